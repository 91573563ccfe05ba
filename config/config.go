package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BranchMatchLongest = "longest"
	BranchMatchFirst   = "first"

	PathMatchSegment = "segment"
	PathMatchLiteral = "literal"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	Concurrency   int    `toml:"concurrency"`
	TimeoutMs     int    `toml:"timeout_ms"`
	APIHost       string `toml:"api_host"`
	RawHost       string `toml:"raw_host"`
	MediaHost     string `toml:"media_host"`
	UserAgent     string `toml:"user_agent"`
	DefaultBranch string `toml:"default_branch"`
	BranchMatch   string `toml:"branch_match"`
	PathMatch     string `toml:"path_match"`
	APIRetries    int    `toml:"api_retries"`
	Cache         bool   `toml:"cache"`
	CacheDir      string `toml:"cache_dir,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Concurrency:   5,
		TimeoutMs:     3000,
		APIHost:       "https://api.github.com",
		RawHost:       "https://raw.githubusercontent.com",
		MediaHost:     "https://media.githubusercontent.com",
		UserAgent:     "dirpack",
		DefaultBranch: "master",
		BranchMatch:   BranchMatchLongest,
		PathMatch:     PathMatchSegment,
		APIRetries:    2,
	}
}

// Timeout returns the per-download deadline.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c Config) Validate() error {
	var errs []error
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("timeout_ms must be positive, got %d", c.TimeoutMs))
	}
	if c.APIRetries < 0 {
		errs = append(errs, fmt.Errorf("api_retries cannot be negative, got %d", c.APIRetries))
	}
	for name, v := range map[string]string{"api_host": c.APIHost, "raw_host": c.RawHost, "media_host": c.MediaHost} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s cannot be empty", name))
		}
	}
	if strings.TrimSpace(c.DefaultBranch) == "" {
		errs = append(errs, errors.New("default_branch cannot be empty"))
	}
	switch c.BranchMatch {
	case BranchMatchLongest, BranchMatchFirst:
	default:
		errs = append(errs, fmt.Errorf("branch_match must be %q or %q, got %q", BranchMatchLongest, BranchMatchFirst, c.BranchMatch))
	}
	switch c.PathMatch {
	case PathMatchSegment, PathMatchLiteral:
	default:
		errs = append(errs, fmt.Errorf("path_match must be %q or %q, got %q", PathMatchSegment, PathMatchLiteral, c.PathMatch))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LoadConfig loads the configuration from path, or from the default location
// when path is empty. Keys missing from the file keep their default values and
// a missing default file is not an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	config := DefaultConfig()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return config, nil
		}
		return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes the configuration to path.
func SaveConfig(path string, config Config) error {
	data, err := Marshal(config)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Marshal encodes the configuration as TOML.
func Marshal(config Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	return buf.Bytes(), nil
}

// DefaultPath returns the path to the config file
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "dirpack", "config.toml")
}

// DefaultCacheDir returns the blob cache location used when cache_dir is unset.
func DefaultCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "dirpack", "blobs"), nil
}
