// Package tui provides the interactive Bubble Tea client for fintrack.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/fintrack/internal/api"
	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/notify"
	"github.com/theirongolddev/fintrack/internal/route"
	"github.com/theirongolddev/fintrack/internal/sched"
	"github.com/theirongolddev/fintrack/internal/store"
	"github.com/theirongolddev/fintrack/internal/tui/components"
	"github.com/theirongolddev/fintrack/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// SessionLoadedMsg is sent once persisted client state has been read.
type SessionLoadedMsg struct {
	Session store.Session
	Err     error
}

// SessionSavedMsg is sent after the sign-in form writes credentials.
type SessionSavedMsg struct {
	Session store.Session
	Err     error
}

// SessionClearedMsg is sent after sign-out removes credentials.
type SessionClearedMsg struct {
	Err error
}

// NotificationMsg carries one notification surfaced by the watcher.
type NotificationMsg struct {
	Notification notify.Notification
	gen          uint64 // watcher generation that emitted it
}

// routeChangedMsg signals that the route controller changed state.
type routeChangedMsg struct{}

type tickMsg struct{}

// Options configures the App.
type Options struct {
	Config config.Config
	// BaseURL is the effective backend URL (env and flags already applied).
	BaseURL string
	// StatePath is the persisted client state database. Empty disables
	// persistence; the app then starts signed out.
	StatePath string
	// TokenOverride replaces the stored token when non-empty.
	TokenOverride string
	Initial       route.Location
	Scheduler     sched.Scheduler
	Logger        zerolog.Logger
	// Fetcher replaces the HTTP client built from the session.
	Fetcher notify.Fetcher
	// Now is used for toast expiry. Defaults to time.Now.
	Now func() time.Time
}

const (
	toastTTL       = 5 * time.Second
	maxToasts      = 3
	maxInbox       = 100
	toastQueueSize = 32
)

type toast struct {
	text    string
	expires time.Time
}

// App is the root Bubble Tea model.
type App struct {
	cfg       config.Config
	baseURL   string
	statePath string
	tokenEnv  string
	fetcher   notify.Fetcher
	sched     sched.Scheduler
	log       zerolog.Logger
	now       func() time.Time

	// Navigation. The controller owns the state; routeState is the copy the
	// view renders, refreshed whenever the controller signals a change.
	routes     *route.Controller
	routeSig   chan struct{}
	routeState route.State

	// Session + notifications
	session    store.Session
	loaded     bool
	watcher    *notify.Watcher
	watcherGen uint64
	toastSub   chan NotificationMsg
	toasts     []toast
	inbox      []notify.Notification
	errText    string

	// Sign-in form (huh)
	signInForm *huh.Form
	signInVals *signInValues

	// UI state
	width    int
	height   int
	showHelp bool
	spinner  spinner.Model
	spinning bool
}

const (
	minTerminalWidth = 60
	maxContentWidth  = 160
	minContentHeight = 5
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	if opts.Scheduler == nil {
		opts.Scheduler = sched.Real()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BaseURL == "" {
		opts.BaseURL = config.GetBaseURL(opts.Config)
	}
	initial := opts.Initial
	if initial.Path == "" {
		initial = route.Location{Path: route.PathHome}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	sig := make(chan struct{}, 1)
	routes := route.New(route.Config{
		Initial:   initial,
		Duration:  opts.Config.TransitionDuration(),
		Scheduler: opts.Scheduler,
		Logger:    opts.Logger,
		OnChange: func(route.State) {
			select {
			case sig <- struct{}{}:
			default:
			}
		},
	})

	return App{
		cfg:        opts.Config,
		baseURL:    opts.BaseURL,
		statePath:  opts.StatePath,
		tokenEnv:   opts.TokenOverride,
		fetcher:    opts.Fetcher,
		sched:      opts.Scheduler,
		log:        opts.Logger,
		now:        opts.Now,
		routes:     routes,
		routeSig:   sig,
		routeState: routes.State(),
		toastSub:   make(chan NotificationMsg, toastQueueSize),
		signInVals: &signInValues{},
		spinner:    sp,
		spinning:   true,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadSessionCmd(a.statePath),
		a.spinner.Tick,
		tickCmd(),
		waitForRouteChange(a.routeSig),
		waitForNotification(a.toastSub),
	)
}

// Shutdown stops background timers. It is safe to call more than once.
func (a App) Shutdown() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.routes.Stop()
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.signInForm != nil {
			a.signInForm = a.signInForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.signInForm != nil {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress {
			if idx := a.tabAt(msg.X, msg.Y); idx >= 0 {
				return a.navigate(route.Location{Path: screens[idx].path})
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case SessionLoadedMsg:
		a.loaded = true
		if msg.Err != nil {
			a.log.Warn().Err(msg.Err).Msg("reading client state")
			a.errText = "could not read saved session"
		}
		a.session = msg.Session
		if a.session.SignedIn() {
			a.startWatcher()
			return a, nil
		}
		return a.openSignIn()

	case SessionSavedMsg:
		if msg.Err != nil {
			// Nothing was persisted, so the session stays signed out.
			a.log.Error().Err(msg.Err).Msg("saving client state")
			a.errText = "could not save session"
			return a.openSignIn()
		}
		a.session = msg.Session
		a.startWatcher()
		return a, nil

	case SessionClearedMsg:
		if msg.Err != nil {
			a.log.Error().Err(msg.Err).Msg("clearing client state")
			a.errText = "could not clear saved session"
		}
		return a, nil

	case NotificationMsg:
		if msg.gen == a.watcherGen {
			a.addNotification(msg.Notification)
		}
		return a, waitForNotification(a.toastSub)

	case routeChangedMsg:
		a.routeState = a.routes.State()
		spin := a.ensureSpinning()
		return a, tea.Batch(waitForRouteChange(a.routeSig), spin)

	case spinner.TickMsg:
		if !a.loaded || a.routeState.Stage != route.Idle {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		a.spinning = false
		return a, nil

	case tickMsg:
		a.pruneToasts()
		return a, tickCmd()
	}

	// Forward unhandled messages to the sign-in form (cursor blinks, etc.)
	if a.signInForm != nil {
		return a.updateSignInForm(msg)
	}

	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		a.Shutdown()
		return a, tea.Quit
	}

	if !a.loaded {
		return a, nil
	}

	// Sign-in form intercepts all keys
	if a.signInForm != nil {
		return a.updateSignInForm(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		a.Shutdown()
		return a, tea.Quit
	case "L":
		return a.signOut()
	case "l":
		if !a.session.SignedIn() {
			return a.openSignIn()
		}
		return a, nil
	case "x":
		a.toasts = nil
		return a, nil
	case "left", "right":
		return a.cycleTab(key == "right")
	}

	if a.routeState.Current.Path == route.PathSettings && len(key) == 1 && key[0] >= '1' && key[0] <= '3' {
		return a.navigate(settingsLocation(settingsTabs[key[0]-'1']))
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(screenTabs(), msg.Runes[0]); idx >= 0 {
			return a.navigate(route.Location{Path: screens[idx].path})
		}
	}
	return a, nil
}

// navigate hands loc to the route controller and picks up the resulting
// state synchronously.
func (a App) navigate(loc route.Location) (tea.Model, tea.Cmd) {
	a.routes.Navigate(loc)
	a.routeState = a.routes.State()
	spin := a.ensureSpinning()
	return a, spin
}

func (a App) cycleTab(forward bool) (tea.Model, tea.Cmd) {
	idx := screenIdx(a.routeState.Current.Path)
	n := len(screens)
	switch {
	case idx < 0:
		idx = 0
	case forward:
		idx = (idx + 1) % n
	default:
		idx = (idx - 1 + n) % n
	}
	return a.navigate(route.Location{Path: screens[idx].path})
}

// ensureSpinning restarts the spinner tick loop when a transition is
// running and the loop has stopped.
func (a *App) ensureSpinning() tea.Cmd {
	if a.routeState.Stage == route.Idle || a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

// effectiveToken is the bearer token used for API calls.
func (a App) effectiveToken() string {
	if a.tokenEnv != "" {
		return a.tokenEnv
	}
	return a.session.Token
}

// startWatcher activates notification polling for the current session.
func (a *App) startWatcher() {
	if a.watcher != nil || !a.session.SignedIn() || !a.cfg.Notifications.Enabled {
		return
	}

	fetcher := a.fetcher
	if fetcher == nil {
		fetcher = api.NewClient(a.baseURL, a.effectiveToken(), api.Options{Timeout: a.cfg.Timeout()})
	}

	sub := a.toastSub
	gen := a.watcherGen
	log := a.log
	a.watcher = notify.New(notify.Config{
		UserID:    a.session.UserID,
		Fetcher:   fetcher,
		Interval:  a.cfg.PollInterval(),
		Scheduler: a.sched,
		Logger:    a.log,
		Emitter: notify.EmitterFunc(func(n notify.Notification) {
			select {
			case sub <- NotificationMsg{Notification: n, gen: gen}:
			default:
				log.Warn().Str("id", n.ID).Msg("notification queue full, dropping toast")
			}
		}),
	})
	if !a.watcher.Start(context.Background()) {
		a.watcher = nil
	}
}

func (a *App) addNotification(n notify.Notification) {
	a.inbox = append(a.inbox, n)
	if len(a.inbox) > maxInbox {
		a.inbox = a.inbox[len(a.inbox)-maxInbox:]
	}
	a.toasts = append(a.toasts, toast{text: n.Text, expires: a.now().Add(toastTTL)})
	if len(a.toasts) > maxToasts {
		a.toasts = a.toasts[len(a.toasts)-maxToasts:]
	}
}

func (a *App) pruneToasts() {
	now := a.now()
	kept := a.toasts[:0]
	for _, t := range a.toasts {
		if now.Before(t.expires) {
			kept = append(kept, t)
		}
	}
	a.toasts = kept
}

func (a App) signOut() (tea.Model, tea.Cmd) {
	if a.watcher != nil {
		a.watcher.Stop()
		a.watcher = nil
	}
	// Anything the old watcher queued belongs to the previous session.
	a.watcherGen++
	drainQueued(a.toastSub)
	a.session = store.Session{}
	a.toasts = nil
	a.inbox = nil

	m, navCmd := a.navigate(route.Location{Path: route.PathHome})
	a = m.(App)
	m, formCmd := a.openSignIn()
	return m, tea.Batch(navCmd, clearSessionCmd(a.statePath), formCmd)
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}

	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	if !a.loaded {
		return a.viewLoading()
	}

	if a.signInForm != nil {
		return a.viewSignIn()
	}

	if a.showHelp {
		return a.viewHelp()
	}

	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}

	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  fintrack needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)

	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ fintrack"))
	b.WriteString(subtitleStyle.Render(" · Family Finance"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(subtitleStyle.Render(" Loading session..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	sectionStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Key).
		Background(t.Surface).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	dimStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Navigation"))
	b.WriteString("\n")
	navBindings := []struct{ key, desc string }{
		{"h g w c t", "Home, Group, Wallets, Categories, Transactions"},
		{"f s a n", "Families, Settings, Admin, Inbox"},
		{"← →", "Previous / Next screen"},
		{"1 2 3", "Settings sections"},
	}
	for _, bind := range navBindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Actions"))
	b.WriteString("\n")
	actionBindings := []struct{ key, desc string }{
		{"x", "Dismiss notifications"},
		{"l", "Sign in"},
		{"L", "Sign out"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	for _, bind := range actionBindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height
	st := a.routeState

	// 1. Header: tab bar highlights the screen on display, plus a location row
	header := components.RenderTabBar(screenTabs(), screenIdx(st.Displayed.Path), w) + "\n" +
		a.renderLocationRow(w)

	// 2. Status bar
	statusBar := components.RenderStatusBar(w, components.StatusBar{
		Middle: a.statusMiddle(),
		Right:  a.statusRight(),
		Err:    a.errText != "",
	})

	// 3. Content zone height
	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	// 4. Screen content, with toasts stacked underneath
	content := a.renderScreen(st.Displayed, st.Stage, cw)
	if len(a.toasts) > 0 {
		texts := make([]string, len(a.toasts))
		for i, ts := range a.toasts {
			texts[i] = ts.text
		}
		toastW := cw / 2
		if toastW < 30 {
			toastW = cw
		}
		content += "\n" + lipgloss.PlaceHorizontal(cw, lipgloss.Right, components.RenderToasts(texts, toastW),
			lipgloss.WithWhitespaceBackground(t.Background))
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)

	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderLocationRow(w int) string {
	t := theme.Active
	st := a.routeState

	rowStyle := lipgloss.NewStyle().Background(t.Surface).Width(w)
	pathStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	row := dimStyle.Render(" ") + pathStyle.Render(st.Displayed.String())
	if st.Stage != route.Idle {
		row += dimStyle.Render(" ") + a.spinner.View() +
			dimStyle.Render(fmt.Sprintf(" %s → %s", st.Stage, st.Current.String()))
	}
	return rowStyle.Render(row)
}

func (a App) statusMiddle() string {
	if a.errText != "" {
		return a.errText
	}
	if a.session.SignedIn() {
		return "signed in as " + a.session.UserID
	}
	return "signed out · press l to sign in"
}

func (a App) statusRight() string {
	if a.watcher == nil {
		if a.session.SignedIn() {
			return "notifications off"
		}
		return ""
	}
	st := a.watcher.Stats()
	return fmt.Sprintf("%s seen · checked %s", cli.FormatNumber(int64(st.SeenCount)), cli.FormatAgo(st.LastCycle, a.now()))
}

// ─── Helpers ────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// waitForRouteChange blocks until the route controller signals a change.
func waitForRouteChange(sig chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-sig
		return routeChangedMsg{}
	}
}

// waitForNotification blocks until the watcher emits the next notification.
func waitForNotification(sub chan NotificationMsg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// drainQueued discards notifications already waiting in sub.
func drainQueued(sub chan NotificationMsg) {
	for {
		select {
		case <-sub:
		default:
			return
		}
	}
}

func loadSessionCmd(statePath string) tea.Cmd {
	return func() tea.Msg {
		if statePath == "" {
			return SessionLoadedMsg{}
		}
		st, err := store.Open(statePath)
		if err != nil {
			return SessionLoadedMsg{Err: err}
		}
		defer func() { _ = st.Close() }()
		sess, err := st.Session()
		return SessionLoadedMsg{Session: sess, Err: err}
	}
}

func saveSessionCmd(statePath string, sess store.Session) tea.Cmd {
	return func() tea.Msg {
		if statePath == "" {
			return SessionSavedMsg{Session: sess}
		}
		st, err := store.Open(statePath)
		if err != nil {
			return SessionSavedMsg{Session: sess, Err: err}
		}
		defer func() { _ = st.Close() }()
		return SessionSavedMsg{Session: sess, Err: st.SaveSession(sess)}
	}
}

func clearSessionCmd(statePath string) tea.Cmd {
	return func() tea.Msg {
		if statePath == "" {
			return SessionClearedMsg{}
		}
		st, err := store.Open(statePath)
		if err != nil {
			return SessionClearedMsg{Err: err}
		}
		defer func() { _ = st.Close() }()
		return SessionClearedMsg{Err: st.ClearSession()}
	}
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAt returns the screen index of the tab at (x, y), or -1 if none.
// Hitboxes are derived from the same layout RenderTabBar uses.
func (a App) tabAt(x, y int) int {
	tabs := screenTabs()
	active := screenIdx(a.routeState.Displayed.Path)
	rows := components.TabLayout(tabs, active, a.width)
	if y < 0 || y >= len(rows) {
		return -1
	}

	pos := 0
	for i, idx := range rows[y] {
		if i > 0 {
			pos++ // separator
		}
		w := components.TabVisualWidth(tabs[idx], idx == active)
		if x >= pos && x < pos+w {
			return idx
		}
		pos += w
	}
	return -1
}
