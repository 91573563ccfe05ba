package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

const envVarLogLevel = "DIRPACK_LOG_LEVEL"

func configureLogger(out io.Writer, flagLevel string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "dirpack",
		Level:  hclog.LevelFromString(getLogLevel(flagLevel)),
		Output: out,
	})
}

// getLogLevel prefers the flag over the environment. Unknown values fall
// back to warn so routine runs only show the summary.
func getLogLevel(flagLevel string) string {
	lvl := strings.ToLower(strings.TrimSpace(flagLevel))
	if lvl == "" {
		lvl = strings.ToLower(strings.TrimSpace(os.Getenv(envVarLogLevel)))
	}
	switch lvl {
	case "trace", "debug", "info", "warn", "error", "off":
		return lvl
	default:
		return "warn"
	}
}
