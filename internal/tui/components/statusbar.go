package components

import (
	"github.com/theirongolddev/fintrack/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusBar holds the variable segments of the bottom bar.
type StatusBar struct {
	Middle string
	Right  string
	Err    bool // draw Middle in the error color
}

// RenderStatusBar renders the bottom status bar: key hints on the left,
// a middle segment and watcher state on the right.
func RenderStatusBar(width int, sb StatusBar) string {
	middle, right := sb.Middle, sb.Right
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface)
	textStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)
	midStyle := lipgloss.NewStyle().
		Foreground(t.TextPrimary).
		Background(t.Surface)
	if sb.Err {
		midStyle = midStyle.Foreground(t.Error).Bold(true)
	}

	left := textStyle.Render(" ") + keyStyle.Render("[?]") + textStyle.Render("help  ") +
		keyStyle.Render("[q]") + textStyle.Render("uit")
	if middle != "" {
		left += textStyle.Render("  │ ") + midStyle.Render(middle)
	}
	if right != "" {
		right = textStyle.Render(right + " ")
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	gap := lipgloss.NewStyle().Background(t.Surface).Width(padding).Render("")
	return style.Render(left + gap + right)
}
