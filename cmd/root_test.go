package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpack/config"
	"dirpack/ghtest"
	"dirpack/model"
)

// writeTestConfig points a config file at the fake GitHub server.
func writeTestConfig(t *testing.T, srv *ghtest.Server) string {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.APIHost = srv.APIHost()
	cfg.RawHost = srv.RawHost()
	cfg.MediaHost = srv.MediaHost()
	cfg.APIRetries = 0

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.SaveConfig(path, cfg))
	return path
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func testRepo() *ghtest.Repo {
	return &ghtest.Repo{
		Owner: "owner",
		Name:  "repo",
		Files: map[string]map[string]string{
			"main": {"docs/a.md": "alpha", "docs/b.md": "beta", "src/c.go": "gamma"},
		},
	}
}

func TestRootCmdDownloads(t *testing.T) {
	srv := ghtest.NewServer(t, testRepo())
	cfgPath := writeTestConfig(t, srv)
	dest := t.TempDir()

	out, err := executeRoot(t, "--config", cfgPath, "--no-progress", "-c", "2",
		"https://github.com/owner/repo/tree/main/docs", dest)
	require.NoError(t, err)

	assert.Contains(t, out, "owner/repo @ main")
	assert.Contains(t, out, "saved to: "+dest)
	assert.Contains(t, out, "downloaded 2 files")

	content, err := os.ReadFile(filepath.Join(dest, "docs", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(content))
	assert.NoFileExists(t, filepath.Join(dest, "src", "c.go"))
}

func TestRootCmdReportsFailures(t *testing.T) {
	repo := testRepo()
	repo.Status = map[string]int{"docs/b.md": 503}
	srv := ghtest.NewServer(t, repo)
	cfgPath := writeTestConfig(t, srv)

	out, err := executeRoot(t, "--config", cfgPath, "--no-progress",
		"https://github.com/owner/repo/tree/main/docs", t.TempDir())
	require.ErrorIs(t, err, ErrDownloadsFailed)

	assert.Contains(t, out, "downloaded 1 of 2 files")
	assert.Contains(t, out, "NetworkError docs/b.md")
}

func TestRootCmdWarnsOnTruncatedTree(t *testing.T) {
	repo := testRepo()
	repo.Truncated = map[string]bool{"main": true}
	srv := ghtest.NewServer(t, repo)
	cfgPath := writeTestConfig(t, srv)

	out, err := executeRoot(t, "--config", cfgPath, "--no-progress",
		"https://github.com/owner/repo/tree/main/docs", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "truncated")
}

func TestRootCmdFatalErrors(t *testing.T) {
	srv := ghtest.NewServer(t, testRepo())
	cfgPath := writeTestConfig(t, srv)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{
			name: "bad url",
			args: []string{"--config", cfgPath, "https://example.com/owner/repo", t.TempDir()},
			want: model.ErrInvalidReference,
		},
		{
			name: "unknown branch",
			args: []string{"--config", cfgPath, "https://github.com/owner/repo/tree/dev/docs", t.TempDir()},
			want: model.ErrBranchNotFound,
		},
		{
			name: "invalid flag value",
			args: []string{"--config", cfgPath, "--branch-match", "shortest", "https://github.com/owner/repo", t.TempDir()},
			want: config.ErrInvalidConfig,
		},
		{
			name: "zero concurrency",
			args: []string{"--config", cfgPath, "-c", "0", "https://github.com/owner/repo", t.TempDir()},
			want: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeRoot(t, tt.args...)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRootCmdRequiresTwoArgs(t *testing.T) {
	_, err := executeRoot(t, "https://github.com/owner/repo")
	require.Error(t, err)
}

func TestLoadConfigAppliesChangedFlagsOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency = 9\npath_match = \"literal\"\n"), 0o600))

	c := &RootCmd{logger: hclog.NewNullLogger()}
	root := newRootCmd(c)
	require.NoError(t, root.ParseFlags([]string{"--config", path, "--timeout", "750ms", "--cache"}))

	cfg, err := c.loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Concurrency)
	assert.Equal(t, config.PathMatchLiteral, cfg.PathMatch)
	assert.Equal(t, 750, cfg.TimeoutMs)
	assert.True(t, cfg.Cache)
	assert.Equal(t, config.BranchMatchLongest, cfg.BranchMatch)
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{name: "default", want: "warn"},
		{name: "env", env: "DEBUG", want: "debug"},
		{name: "flag wins", flag: "error", env: "debug", want: "error"},
		{name: "unknown", flag: "loud", want: "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envVarLogLevel, tt.env)
			assert.Equal(t, tt.want, getLogLevel(tt.flag))
		})
	}
}
