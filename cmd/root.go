// Package cmd implements the dirpack command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"dirpack/config"
	"dirpack/helpers"
	"dirpack/pack"
)

var version = "dev" // Set at build time using -ldflags

// ErrDownloadsFailed is returned when the run finished but some files could
// not be saved.
var ErrDownloadsFailed = errors.New("some files failed to download")

const (
	flagConfig        = "config"
	flagConcurrency   = "concurrency"
	flagTimeout       = "timeout"
	flagBranchMatch   = "branch-match"
	flagPathMatch     = "path-match"
	flagDefaultBranch = "default-branch"
	flagCache         = "cache"
	flagNoProgress    = "no-progress"
	flagLogLevel      = "log-level"
)

type RootCmd struct {
	configPath    string
	concurrency   int
	timeout       time.Duration
	branchMatch   string
	pathMatch     string
	defaultBranch string
	cache         bool
	noProgress    bool
	logLevel      string

	logger hclog.Logger
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		helpers.PrintError(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&RootCmd{logger: hclog.NewNullLogger()})
}

func newRootCmd(c *RootCmd) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dirpack <repository-url> <save-path>",
		Short:         "Download a directory or file from a GitHub repository.",
		Long:          c.longDescription(),
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			c.logger = configureLogger(cmd.ErrOrStderr(), c.logLevel)
		},
		RunE: c.run,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.configPath, flagConfig, "", "Path to the config file (default "+config.DefaultPath()+")")
	pf.StringVar(&c.logLevel, flagLogLevel, "", "Log level: trace, debug, info, warn, error or off (env "+envVarLogLevel+")")

	f := rootCmd.Flags()
	f.IntVarP(&c.concurrency, flagConcurrency, "c", 0, "Maximum number of downloads in flight")
	f.DurationVar(&c.timeout, flagTimeout, 0, "Deadline for each download, e.g. 3s")
	f.StringVar(&c.branchMatch, flagBranchMatch, "", "Branch selection when several names match: longest or first")
	f.StringVar(&c.pathMatch, flagPathMatch, "", "Path filter: segment or literal")
	f.StringVar(&c.defaultBranch, flagDefaultBranch, "", "Branch used when the URL names no path")
	f.BoolVar(&c.cache, flagCache, false, "Reuse previously downloaded files from the blob cache")
	f.BoolVar(&c.noProgress, flagNoProgress, false, "Disable the progress bar")

	rootCmd.AddCommand(newConfigCmd(c))

	return rootCmd
}

func (c *RootCmd) longDescription() string {
	return `dirpack resolves a GitHub web URL such as
https://github.com/owner/repo/tree/main/docs into a branch and path, lists the
files under it and downloads them into <save-path>, keeping their repository
paths. A /blob/ URL downloads a single file.`
}

func (c *RootCmd) run(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	progress := helpers.NewProgress(cmd.ErrOrStderr(), !c.noProgress && isTerminal(cmd.ErrOrStderr()))

	result, err := pack.Run(cmd.Context(), pack.Options{
		URL:      args[0],
		SavePath: args[1],
		Config:   cfg,
		Logger:   c.logger,
		Observer: progress,
	})
	if err != nil {
		return err
	}

	printResult(out, result, args[1])
	if !result.Summary.OK() {
		return fmt.Errorf("%w: %d of %d", ErrDownloadsFailed, result.Summary.Failed, result.Summary.Total)
	}
	return nil
}

// loadConfig reads the config file and applies any flags set on the command
// line on top of it.
func (c *RootCmd) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed(flagConcurrency) {
		cfg.Concurrency = c.concurrency
	}
	if flags.Changed(flagTimeout) {
		cfg.TimeoutMs = int(c.timeout.Milliseconds())
	}
	if flags.Changed(flagBranchMatch) {
		cfg.BranchMatch = c.branchMatch
	}
	if flags.Changed(flagPathMatch) {
		cfg.PathMatch = c.pathMatch
	}
	if flags.Changed(flagDefaultBranch) {
		cfg.DefaultBranch = c.defaultBranch
	}
	if flags.Changed(flagCache) {
		cfg.Cache = c.cache
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	c.logger.Debug("effective config", "concurrency", cfg.Concurrency, "timeout", cfg.Timeout(),
		"branch_match", cfg.BranchMatch, "path_match", cfg.PathMatch, "cache", cfg.Cache)
	return cfg, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && helpers.IsTerminal(f)
}
