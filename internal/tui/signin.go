package tui

import (
	"errors"
	"strings"

	"github.com/theirongolddev/fintrack/internal/store"
	"github.com/theirongolddev/fintrack/internal/tui/theme"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// signInValues holds the sign-in form bindings. It lives behind a pointer
// so the bindings survive App value copies.
type signInValues struct {
	userID string
	token  string
}

func newSignInForm(baseURL string, vals *signInValues) *huh.Form {
	// ctrl+c quits the whole app before the form sees it.
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "skip"))

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Sign in to fintrack").
				Description("Credentials are stored locally and used against\n"+baseURL),
			huh.NewInput().
				Title("User ID").
				Placeholder("64f1c0...").
				Value(&vals.userID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("user id is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Access token").
				Description("Bearer token from the web client (optional).").
				EchoMode(huh.EchoModePassword).
				Value(&vals.token),
		),
	).WithTheme(huh.ThemeDracula()).WithKeyMap(km).WithShowHelp(true)
}

// openSignIn shows the sign-in form.
func (a App) openSignIn() (tea.Model, tea.Cmd) {
	*a.signInVals = signInValues{}
	a.signInForm = newSignInForm(a.baseURL, a.signInVals)
	if a.width > 0 {
		a.signInForm = a.signInForm.WithWidth(a.width).WithHeight(a.height)
	}
	return a, a.signInForm.Init()
}

func (a App) updateSignInForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.signInForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.signInForm = f
	}

	switch a.signInForm.State {
	case huh.StateCompleted:
		sess := store.Session{
			UserID: strings.TrimSpace(a.signInVals.userID),
			Token:  strings.TrimSpace(a.signInVals.token),
		}
		a.signInForm = nil
		a.errText = ""
		return a, saveSessionCmd(a.statePath, sess)

	case huh.StateAborted:
		// Continue signed out; the watcher stays inactive.
		a.signInForm = nil
		return a, nil
	}

	return a, cmd
}

func (a App) viewSignIn() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Padding(1, 2)

	hintStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	card := cardStyle.Render(a.signInForm.View() + "\n" +
		hintStyle.Render("esc to continue without signing in"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}
