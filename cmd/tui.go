package cmd

import (
	"fmt"

	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/route"
	"github.com/theirongolddev/fintrack/internal/tui"
	"github.com/theirongolddev/fintrack/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var flagTUIStart string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive client",
	RunE:  runTUI,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, tuiCmd} {
		c.Flags().StringVar(&flagTUIStart, "start", route.PathHome, "Screen to open first, e.g. /group or /settings?tab=security")
	}
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	// The TUI owns the terminal, so diagnostics go to a file.
	log, closer, err := newFileLogger(cfg, "fintrack.log")
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	app := tui.NewApp(tui.Options{
		Config:        cfg,
		BaseURL:       resolveBaseURL(cfg),
		StatePath:     statePath(),
		TokenOverride: config.GetEnvToken(),
		Initial:       route.ParseLocation(flagTUIStart),
		Logger:        log,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	final, err := p.Run()
	if m, ok := final.(tui.App); ok {
		m.Shutdown()
	}
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
