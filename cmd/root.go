// Package cmd implements the fintrack CLI commands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/logging"
	"github.com/theirongolddev/fintrack/internal/store"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagAPIURL   string
	flagStateDir string
	flagQuiet    bool
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "fintrack",
	Short: "Family finance client",
	Long: "Terminal client for the family finance tracker: browse screens, " +
		"watch for notifications and manage your local session.",
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Backend base URL (overrides config and FINTRACK_API_URL)")
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", "", "Directory for local state (default: XDG state dir)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: trace, debug, info, warn, error, off")
}

// loadConfig loads config, returning defaults on error so commands can
// always run even if the file is corrupted.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "  Warning: %v (using defaults)\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// resolveBaseURL applies --api-url over env and config.
func resolveBaseURL(cfg config.Config) string {
	if flagAPIURL != "" {
		return flagAPIURL
	}
	return config.GetBaseURL(cfg)
}

func stateDir() string {
	if flagStateDir != "" {
		return flagStateDir
	}
	return config.StateDir()
}

func statePath() string {
	return filepath.Join(stateDir(), "state.db")
}

func openState() (*store.State, error) {
	st, err := store.Open(statePath())
	if err != nil {
		return nil, fmt.Errorf("opening client state: %w", err)
	}
	return st, nil
}

func logLevel(cfg config.Config) string {
	if flagLogLevel != "" {
		return flagLogLevel
	}
	return cfg.Log.Level
}

// newConsoleLogger returns the stderr logger used by CLI commands. Quiet
// mode only lets warnings through.
func newConsoleLogger(cfg config.Config) zerolog.Logger {
	level := logLevel(cfg)
	if flagQuiet && flagLogLevel == "" {
		level = "warn"
	}
	log, _, err := logging.New(logging.Options{Level: level, Console: true, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "  Warning: %v\n", err)
		log, _, _ = logging.New(logging.Options{Level: level, Console: true})
	}
	return log
}

// newFileLogger returns a JSON file logger for processes that own the
// terminal or run detached.
func newFileLogger(cfg config.Config, defaultName string) (zerolog.Logger, io.Closer, error) {
	path := cfg.Log.File
	if path == "" {
		path = filepath.Join(stateDir(), defaultName)
	}
	return logging.New(logging.Options{Level: logLevel(cfg), File: path})
}
