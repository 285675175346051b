package tui

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/route"
	"github.com/theirongolddev/fintrack/internal/tui/components"
	"github.com/theirongolddev/fintrack/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// screen is one navigable destination of the client shell.
type screen struct {
	path  string
	tab   components.Tab
	title string
	blurb string
}

var screens = []screen{
	{route.PathHome, components.Tab{Name: "Home", Key: 'h', KeyPos: 0}, "Home",
		"Your balances, this month's spending and the latest activity across your wallets."},
	{route.PathGroup, components.Tab{Name: "Group", Key: 'g', KeyPos: 0}, "Group",
		"Shared spending with your family group: who paid, who owes, and the group budget."},
	{route.PathWallets, components.Tab{Name: "Wallets", Key: 'w', KeyPos: 0}, "Wallets",
		"Cash, bank and card wallets with their current balances."},
	{route.PathCategories, components.Tab{Name: "Categories", Key: 'c', KeyPos: 0}, "Categories",
		"Income and expense categories used to classify transactions."},
	{route.PathTransactions, components.Tab{Name: "Transactions", Key: 't', KeyPos: 0}, "Transactions",
		"Every income, expense and transfer, newest first."},
	{route.PathFamilies, components.Tab{Name: "Families", Key: 'f', KeyPos: 0}, "Families",
		"Family groups you belong to, their members and invitations."},
	{route.PathSettings, components.Tab{Name: "Settings", Key: 's', KeyPos: 0}, "Settings", ""},
	{route.PathAdmin, components.Tab{Name: "Admin", Key: 'a', KeyPos: 0}, "Admin",
		"User management and system-wide category defaults. Requires an administrator account."},
	{route.PathInbox, components.Tab{Name: "Inbox", Key: 'n', KeyPos: 1}, "Notifications", ""},
}

// screenTabs returns the tab bar entries in screen order.
func screenTabs() []components.Tab {
	tabs := make([]components.Tab, len(screens))
	for i, s := range screens {
		tabs[i] = s.tab
	}
	return tabs
}

// screenIdx returns the index of the screen for path, or -1.
func screenIdx(path string) int {
	for i, s := range screens {
		if s.path == path {
			return i
		}
	}
	return -1
}

// Settings sub-tabs, selected by the "tab" query parameter.
const (
	settingsProfile    = "profile"
	settingsCategories = "categories"
	settingsSecurity   = "security"
)

var settingsTabs = []string{settingsProfile, settingsCategories, settingsSecurity}

// settingsTab reads the active settings sub-tab from a location query.
func settingsTab(loc route.Location) string {
	q, err := url.ParseQuery(loc.Query)
	if err != nil {
		return settingsProfile
	}
	tab := q.Get("tab")
	for _, known := range settingsTabs {
		if tab == known {
			return tab
		}
	}
	return settingsProfile
}

func settingsLocation(tab string) route.Location {
	return route.Location{Path: route.PathSettings, Query: "tab=" + tab}
}

// stageFrame maps a transition stage to the card frame the screen is drawn in.
func stageFrame(stage route.Stage) components.Frame {
	t := theme.Active
	switch stage {
	case route.Exiting:
		return components.Frame{Border: t.ExitingBorder, Title: t.ExitingTitle, Faint: true}
	case route.Entering:
		return components.Frame{Border: t.EnteringBorder, Title: t.EnteringTitle}
	default:
		return components.DefaultFrame()
	}
}

// renderScreen draws the screen at loc, framed for the given stage.
func (a App) renderScreen(loc route.Location, stage route.Stage, cw int) string {
	idx := screenIdx(loc.Path)
	if idx < 0 {
		body := fmt.Sprintf("Nothing lives at %s.\nPress h to go home.", loc.String())
		return components.FramedCard("Not found", body, cw, stageFrame(stage))
	}

	s := screens[idx]
	inner := components.CardInnerWidth(cw)

	var body string
	switch s.path {
	case route.PathHome:
		body = a.renderHomeBody(s, inner)
	case route.PathSettings:
		body = a.renderSettingsBody(loc, inner)
	case route.PathInbox:
		body = a.renderInboxBody(inner)
	default:
		body = a.renderPlaceholderBody(s, inner)
	}

	title := s.title
	if stage == route.Entering {
		title = "›› " + title
	}
	return components.FramedCard(title, body, cw, stageFrame(stage))
}

func (a App) renderHomeBody(s screen, inner int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	user := "signed out"
	if a.session.SignedIn() {
		user = a.session.UserID
	}

	metrics := []components.Metric{{Label: "Signed in as", Value: user}}
	if a.watcher != nil {
		st := a.watcher.Stats()
		metrics = append(metrics,
			components.Metric{Label: "Notifications", Value: cli.FormatNumber(int64(st.SeenCount)),
				Delta: cli.FormatNumber(st.Emitted) + " new this run"},
			components.Metric{Label: "Poll cycles", Value: cli.FormatNumber(st.Cycles),
				Delta: cli.FormatNumber(st.Failures) + " failed"},
			components.Metric{Label: "Last check", Value: cli.FormatAgo(st.LastCycle, a.now())},
		)
	} else {
		metrics = append(metrics, components.Metric{Label: "Notifications", Value: "off"})
	}

	return mutedStyle.Width(inner).Render(s.blurb) + "\n\n" +
		components.MetricCardRow(metrics, inner)
}

func (a App) renderPlaceholderBody(s screen, inner int) string {
	t := theme.Active
	textStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Width(inner)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	return textStyle.Render(s.blurb) + "\n\n" +
		dimStyle.Render("Records are managed from the web client.")
}

func (a App) renderSettingsBody(loc route.Location, inner int) string {
	t := theme.Active
	active := settingsTab(loc)

	activeStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Underline(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	keyStyle := lipgloss.NewStyle().Foreground(t.Key)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	var header []string
	for i, tab := range settingsTabs {
		name := strings.ToUpper(tab[:1]) + tab[1:]
		style := inactiveStyle
		if tab == active {
			style = activeStyle
		}
		header = append(header, keyStyle.Render(fmt.Sprintf("[%d]", i+1))+" "+style.Render(name))
	}

	var body string
	switch active {
	case settingsProfile:
		user := "(not signed in)"
		if a.session.SignedIn() {
			user = a.session.UserID
		}
		body = cli.RenderKV([][2]string{
			{"User ID", user},
			{"Token", cli.MaskToken(a.effectiveToken())},
			{"API URL", a.baseURL},
			{"Theme", theme.Active.Name},
		})
	case settingsCategories:
		body = lipgloss.NewStyle().Foreground(t.TextPrimary).Width(inner).
			Render("Default categories offered when creating a transaction.")
	case settingsSecurity:
		body = lipgloss.NewStyle().Foreground(t.TextPrimary).Width(inner).
			Render("Press L to sign out. The stored token and user id are removed from this machine.")
	}

	return strings.Join(header, "   ") + "\n\n" + strings.TrimRight(body, "\n") + "\n\n" +
		dimStyle.Render("1-3 switch section")
}

func (a App) renderInboxBody(inner int) string {
	t := theme.Active
	timeStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	textStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	if len(a.inbox) == 0 {
		if a.watcher == nil {
			return mutedStyle.Render("Notifications are off. Sign in to start watching.")
		}
		return mutedStyle.Render("No notifications yet this session.")
	}

	var b strings.Builder
	for i := len(a.inbox) - 1; i >= 0; i-- {
		n := a.inbox[i]
		stamp := n.ReceivedAt.Format("15:04:05")
		b.WriteString(timeStyle.Render(stamp))
		b.WriteString("  ")
		b.WriteString(textStyle.Render(cli.Truncate(n.Text, inner-len(stamp)-2)))
		if i > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
