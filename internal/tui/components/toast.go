package components

import (
	"strings"

	"github.com/theirongolddev/fintrack/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderToasts stacks short notification banners, newest last. Each banner
// is at most width columns wide and is right-aligned within width.
func RenderToasts(texts []string, width int) string {
	if len(texts) == 0 {
		return ""
	}
	t := theme.Active

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Toast).
		Foreground(t.ToastText).
		Background(t.Surface).
		Padding(0, 1)
	iconStyle := lipgloss.NewStyle().
		Foreground(t.Toast).
		Background(t.Surface).
		Bold(true)

	inner := width - 4
	if inner < 10 {
		inner = 10
	}

	banners := make([]string, 0, len(texts))
	for _, text := range texts {
		body := iconStyle.Render("● ") + text
		if lipgloss.Width(body) > inner {
			body = lipgloss.NewStyle().MaxWidth(inner).Render(body)
		}
		banners = append(banners, lipgloss.PlaceHorizontal(width, lipgloss.Right, style.Render(body),
			lipgloss.WithWhitespaceBackground(t.Background)))
	}
	return strings.Join(banners, "\n")
}
