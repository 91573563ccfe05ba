package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpack/config"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := executeRoot(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	_, err = executeRoot(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeRoot(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency = 12\n"), 0o600))

	out, err := executeRoot(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "concurrency = 12")
	assert.Contains(t, out, `default_branch = "master"`)
}

func TestConfigShowMissingExplicitFile(t *testing.T) {
	_, err := executeRoot(t, "config", "show", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
