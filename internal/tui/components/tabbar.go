package components

import (
	"strings"

	"github.com/theirongolddev/fintrack/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // position of the shortcut letter in the name (-1 if not in name)
}

const tabSeparator = " "

// TabVisualWidth returns the rendered width of a tab. RenderTabBar and mouse
// hit-testing both rely on it.
func TabVisualWidth(tab Tab, active bool) int {
	w := lipgloss.Width(tab.Name) + 2 // horizontal padding
	if active {
		return w
	}
	if tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name) {
		return w + 2 // "[" and "]" around the key letter
	}
	return w + 3 // "[k]" suffix
}

// TabLayout splits tab indices into rows that each fit within width.
func TabLayout(tabs []Tab, activeIdx, width int) [][]int {
	var rows [][]int
	var row []int
	used := 0
	for i, tab := range tabs {
		w := TabVisualWidth(tab, i == activeIdx)
		need := w
		if len(row) > 0 {
			need += len(tabSeparator)
		}
		if len(row) > 0 && used+need > width {
			rows = append(rows, row)
			row, used, need = nil, 0, w
		}
		row = append(row, i)
		used += need
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// RenderTabBar renders the tab bar with the given active index, wrapping
// onto extra rows when the tabs do not fit in width.
func RenderTabBar(tabs []Tab, activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceActive).
		Bold(true).
		Padding(0, 1)

	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	dimKeyStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface)

	padStyle := lipgloss.NewStyle().Background(t.Surface)
	rowStyle := lipgloss.NewStyle().Background(t.Surface).Width(width)

	var lines []string
	for _, row := range TabLayout(tabs, activeIdx, width) {
		var parts []string
		for _, i := range row {
			tab := tabs[i]
			var rendered string
			switch {
			case i == activeIdx:
				rendered = activeStyle.Render(tab.Name)
			case tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name):
				before := tab.Name[:tab.KeyPos]
				key := string(tab.Name[tab.KeyPos])
				after := tab.Name[tab.KeyPos+1:]
				rendered = padStyle.Render(" ") + inactiveStyle.Render(before) +
					dimKeyStyle.Render("[") + keyStyle.Render(key) + dimKeyStyle.Render("]") +
					inactiveStyle.Render(after) + padStyle.Render(" ")
			default:
				rendered = padStyle.Render(" ") + inactiveStyle.Render(tab.Name) +
					dimKeyStyle.Render("[") + keyStyle.Render(string(tab.Key)) + dimKeyStyle.Render("]") +
					padStyle.Render(" ")
			}
			parts = append(parts, rendered)
		}
		lines = append(lines, rowStyle.Render(strings.Join(parts, padStyle.Render(tabSeparator))))
	}
	return strings.Join(lines, "\n")
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(tabs []Tab, key rune) int {
	for i, tab := range tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
