// Package pack wires URL parsing, branch resolution, tree listing and the
// download scheduler into a single run.
package pack

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"dirpack/config"
	"dirpack/fetcher"
	"dirpack/gh"
	"dirpack/helpers"
	"dirpack/model"
)

type Options struct {
	URL      string
	SavePath string
	Config   config.Config
	Logger   hclog.Logger
	Observer fetcher.Observer
	// Client overrides the client built from Config.
	Client *gh.Client
}

// Result describes a completed run. Per-file failures are reported here,
// not as an error from Run.
type Result struct {
	Reference model.RepositoryReference
	Truncated bool
	Outcomes  []model.DownloadOutcome
	Summary   fetcher.Summary
}

// Run downloads the file or directory that opts.URL points at into
// opts.SavePath. It returns an error only when the URL cannot be resolved
// to a set of files.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	cfg := opts.Config

	ref, err := helpers.ParseRepoURL(opts.URL)
	if err != nil {
		return nil, err
	}
	logger.Debug("parsed repository URL", "repo", ref.FullName(), "path", ref.RawPath)

	client := opts.Client
	if client == nil {
		client, err = NewClient(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	err = gh.ResolveBranch(ctx, client, &ref, gh.ResolveOptions{
		DefaultBranch: cfg.DefaultBranch,
		Policy:        gh.BranchPolicy(cfg.BranchMatch),
		Logger:        logger.Named("branch"),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("resolved reference", "repo", ref.FullName(), "branch", ref.Branch, "target", ref.TargetPath, "file", ref.IsFile)

	result := &Result{Reference: ref}

	var entries []model.TreeEntry
	if ref.IsFile {
		entries = []model.TreeEntry{{
			Path:      ref.TargetPath,
			Kind:      model.KindFile,
			RemoteURL: client.RawURL(ref, ref.TargetPath),
			LFSURL:    client.MediaURL(ref, ref.TargetPath),
		}}
	} else {
		listing, err := client.ListFiles(ctx, ref, gh.PathPolicy(cfg.PathMatch))
		if err != nil {
			return nil, err
		}
		entries = listing.Entries
		result.Truncated = listing.Truncated
	}
	logger.Info("fetching files", "count", len(entries), "dest", opts.SavePath)

	tasks, rejected := buildTasks(entries, opts.SavePath, cfg)

	scheduler := fetcher.NewScheduler(
		func(ctx context.Context, task model.DownloadTask) (int64, error) {
			if err, ok := rejected[task.Path]; ok {
				return 0, model.NewTaskError(model.KindIO, task.Path, err)
			}
			return client.Fetch(ctx, task)
		},
		fetcher.WithConcurrency(cfg.Concurrency),
		fetcher.WithObserver(opts.Observer),
		fetcher.WithLogger(logger.Named("fetcher")),
	)

	result.Outcomes = scheduler.Run(ctx, tasks)
	result.Summary = fetcher.Summarize(result.Outcomes)
	logger.Debug("run finished", "succeeded", result.Summary.Succeeded, "failed", result.Summary.Failed, "bytes", result.Summary.Bytes)

	return result, nil
}

// NewClient builds a GitHub client from the configuration, opening the blob
// cache when it is enabled.
func NewClient(cfg config.Config, logger hclog.Logger) (*gh.Client, error) {
	var cache *gh.BlobCache
	if cfg.Cache {
		dir := cfg.CacheDir
		if dir == "" {
			d, err := config.DefaultCacheDir()
			if err != nil {
				return nil, fmt.Errorf("locating blob cache: %w", err)
			}
			dir = d
		}
		c, err := gh.NewBlobCache(dir)
		if err != nil {
			return nil, err
		}
		cache = c
		logger.Debug("blob cache enabled", "dir", dir)
	}

	return gh.NewClient(gh.ClientOptions{
		APIHost:   cfg.APIHost,
		RawHost:   cfg.RawHost,
		MediaHost: cfg.MediaHost,
		UserAgent: cfg.UserAgent,
		Retries:   cfg.APIRetries,
		Cache:     cache,
		Logger:    logger.Named("github"),
	})
}

// buildTasks maps tree entries to download tasks. Entries whose local path
// cannot be placed under saveDir still get a task so they are reported, but
// the fetcher fails them without a request.
func buildTasks(entries []model.TreeEntry, saveDir string, cfg config.Config) ([]model.DownloadTask, map[string]error) {
	tasks := make([]model.DownloadTask, 0, len(entries))
	rejected := make(map[string]error)
	for _, e := range entries {
		local, err := helpers.LocalPath(saveDir, e.Path)
		if err != nil {
			rejected[e.Path] = err
		}
		tasks = append(tasks, model.DownloadTask{
			Path:      e.Path,
			RemoteURL: e.RemoteURL,
			LFSURL:    e.LFSURL,
			LocalPath: local,
			SHA:       e.SHA,
			Timeout:   cfg.Timeout(),
		})
	}
	return tasks, rejected
}
