package cmd

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/tui/theme"

	"github.com/spf13/cobra"
)

var (
	flagConfigForce bool
	flagConfigTheme string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&flagConfigForce, "force", false, "Overwrite an existing config file")
	configInitCmd.Flags().StringVar(&flagConfigTheme, "theme", "", "Theme to write ("+strings.Join(theme.Names(), ", ")+")")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [api]")
	fmt.Print(cli.RenderKV([][2]string{
		{"base_url", cfg.API.BaseURL},
		{"effective", resolveBaseURL(cfg)},
		{"timeout", cfg.Timeout().String()},
	}))
	fmt.Println()

	fmt.Println("  [notifications]")
	fmt.Print(cli.RenderKV([][2]string{
		{"enabled", strconv.FormatBool(cfg.Notifications.Enabled)},
		{"poll_interval", cfg.PollInterval().String()},
	}))
	fmt.Println()

	fmt.Println("  [transitions]")
	fmt.Print(cli.RenderKV([][2]string{
		{"duration", cfg.TransitionDuration().String()},
	}))
	fmt.Println()

	fmt.Println("  [appearance]")
	fmt.Print(cli.RenderKV([][2]string{{"theme", cfg.Appearance.Theme}}))
	fmt.Println()

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = "(state dir)"
	}
	fmt.Println("  [log]")
	fmt.Print(cli.RenderKV([][2]string{
		{"level", cfg.Log.Level},
		{"file", logFile},
	}))
	fmt.Println()

	fmt.Printf("  State dir: %s\n", stateDir())
	fmt.Println("  Run `fintrack config init` to write a config file.")
	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	if config.Exists() && !flagConfigForce {
		return errors.New("config file already exists (use --force to overwrite)")
	}

	cfg := config.DefaultConfig()
	if flagConfigTheme != "" {
		if !slices.Contains(theme.Names(), flagConfigTheme) {
			return fmt.Errorf("unknown theme %q", flagConfigTheme)
		}
		cfg.Appearance.Theme = flagConfigTheme
	}
	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("  Saved to %s\n", config.Path())
	return nil
}
