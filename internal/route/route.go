// Package route sequences screen changes. Most navigations swap the displayed
// screen immediately; moving between the home and group screens plays a timed
// two-phase exit/enter transition instead.
package route

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/fintrack/internal/sched"
)

// DefaultDuration is the full length of an animated transition.
const DefaultDuration = 1200 * time.Millisecond

// Route paths known to the client shell.
const (
	PathHome         = "/home"
	PathGroup        = "/group"
	PathWallets      = "/wallets"
	PathCategories   = "/categories"
	PathTransactions = "/transactions"
	PathFamilies     = "/families"
	PathSettings     = "/settings"
	PathAdmin        = "/admin"
	PathInbox        = "/notifications"
)

// Location is a screen address: a path plus an optional raw query string.
type Location struct {
	Path  string
	Query string
}

// ParseLocation splits "path?query" into a Location.
func ParseLocation(s string) Location {
	path, query, _ := strings.Cut(s, "?")
	if path == "" {
		path = "/"
	}
	return Location{Path: path, Query: query}
}

// String renders the location as "path" or "path?query".
func (l Location) String() string {
	if l.Query == "" {
		return l.Path
	}
	return l.Path + "?" + l.Query
}

// Stage is the phase of a screen transition.
type Stage int

// Transition stages.
const (
	Idle Stage = iota
	Exiting
	Entering
)

func (s Stage) String() string {
	switch s {
	case Exiting:
		return "exiting"
	case Entering:
		return "entering"
	default:
		return "idle"
	}
}

// State is what the rendering layer reads: the authoritative location, the
// location actually on screen, and the transition phase.
type State struct {
	Current   Location
	Displayed Location
	Stage     Stage
}

// Animated reports whether moving from one path to another plays the
// exit/enter transition. Queries are not considered.
func Animated(from, to string) bool {
	return (from == PathHome && to == PathGroup) || (from == PathGroup && to == PathHome)
}

// event identifies which timer fired.
type event int

const (
	evHalfway event = iota
	evDone
)

// Config controls a Controller.
type Config struct {
	Initial   Location
	Duration  time.Duration
	Scheduler sched.Scheduler
	// OnChange is called after every state change, outside the controller lock.
	OnChange func(State)
	Logger   zerolog.Logger
}

// Controller is the transition state machine. It is safe for concurrent use;
// timer callbacks from a real scheduler arrive on other goroutines.
type Controller struct {
	duration time.Duration
	sched    sched.Scheduler
	onChange func(State)
	log      zerolog.Logger

	mu        sync.Mutex
	current   Location
	displayed Location
	stage     Stage
	gen       uint64
	timer     sched.Timer
	stopped   bool
}

// New returns a Controller displaying cfg.Initial in the Idle stage.
func New(cfg Config) *Controller {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = sched.Real()
	}
	if cfg.Initial.Path == "" {
		cfg.Initial.Path = PathHome
	}
	return &Controller{
		duration:  cfg.Duration,
		sched:     cfg.Scheduler,
		onChange:  cfg.OnChange,
		log:       cfg.Logger,
		current:   cfg.Initial,
		displayed: cfg.Initial,
	}
}

// State returns a snapshot of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{Current: c.current, Displayed: c.displayed, Stage: c.stage}
}

// half is the first phase length, round(duration/2).
func (c *Controller) half() time.Duration {
	return (c.duration + 1) / 2
}

// Navigate handles a navigation event to loc.
func (c *Controller) Navigate(loc Location) {
	c.mu.Lock()
	if c.stopped || loc == c.current {
		c.mu.Unlock()
		return
	}

	c.cancelLocked()
	from := c.displayed
	c.current = loc

	if Animated(from.Path, loc.Path) {
		c.stage = Exiting
		c.scheduleLocked(c.half(), evHalfway)
		c.log.Debug().
			Str("from", from.String()).
			Str("to", loc.String()).
			Dur("duration", c.duration).
			Msg("route transition started")
	} else {
		c.displayed = loc
		c.stage = Idle
	}
	st := c.stateLocked()
	c.mu.Unlock()

	c.notify(st)
}

// Stop cancels pending timers. Later navigations and timer callbacks are
// ignored.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.stopped = true
}

// cancelLocked stops the pending timer and invalidates any callback that
// already escaped Stop.
func (c *Controller) cancelLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) scheduleLocked(d time.Duration, ev event) {
	gen := c.gen
	c.timer = c.sched.AfterFunc(d, func() { c.fire(gen, ev) })
}

// fire is the single timer transition function.
func (c *Controller) fire(gen uint64, ev event) {
	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil

	switch ev {
	case evHalfway:
		if c.stage != Exiting {
			c.mu.Unlock()
			return
		}
		c.displayed = c.current
		c.stage = Entering
		c.scheduleLocked(c.duration-c.half(), evDone)
	case evDone:
		if c.stage != Entering {
			c.mu.Unlock()
			return
		}
		c.stage = Idle
	}
	st := c.stateLocked()
	c.mu.Unlock()

	c.notify(st)
}

func (c *Controller) notify(st State) {
	if c.onChange != nil {
		c.onChange(st)
	}
}
