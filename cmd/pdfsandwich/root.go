package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ocrforge/pdfsandwich/version"
)

var (
	cfgFile  string
	logLevel string
)

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn, or error", level)
	}
}

// resolvedLogLevel checks the --log-level flag, then SANDWICH_LOG_LEVEL,
// then falls back to info.
func resolvedLogLevel() slog.Level {
	level := logLevel
	if level == "" {
		level = os.Getenv("SANDWICH_LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	parsed, err := parseLogLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info\n", err)
		return slog.LevelInfo
	}
	return parsed
}

var rootCmd = &cobra.Command{
	Use:   "pdfsandwich",
	Short: "Add a searchable text layer to scanned PDFs",
	Long: `pdfsandwich OCRs a scanned or image-only PDF and adds an invisible
searchable text layer on top of each page, optionally converting the
result to PDF/A and optimising embedded images.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pdfsandwich.yaml or ~/.config/pdfsandwich/pdfsandwich.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn, error (default: info, env: SANDWICH_LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
