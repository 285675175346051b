// Package notify implements the background notification watcher: a best-effort
// poll loop that surfaces notifications not seen before in this process.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/fintrack/internal/sched"
)

const (
	// DefaultInterval is the delay between fetch cycles.
	DefaultInterval = 8 * time.Second

	// PrimaryPath is the notification list endpoint.
	PrimaryPath = "/api/notifications"
	// FallbackPath is tried once when the primary endpoint fails.
	FallbackPath = "/api/notifications/list"
)

// Fetcher performs a GET against the backend and returns the body.
// *api.Client satisfies it.
type Fetcher interface {
	GetRaw(ctx context.Context, path string) ([]byte, error)
}

// Emitter surfaces a new notification. Emit must not block and must not call
// back into the Watcher.
type Emitter interface {
	Emit(n Notification)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Notification)

// Emit implements Emitter.
func (f EmitterFunc) Emit(n Notification) { f(n) }

// Fetch runs the request half of a cycle: the primary endpoint, then the
// fallback endpoint once if the primary failed. The body is normalized.
func Fetch(ctx context.Context, f Fetcher, log zerolog.Logger) ([]Record, error) {
	body, err := f.GetRaw(ctx, PrimaryPath)
	if err == nil {
		return Normalize(body), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	log.Debug().Err(err).Str("path", PrimaryPath).Msg("primary notification endpoint failed, trying fallback")

	body, fbErr := f.GetRaw(ctx, FallbackPath)
	if fbErr != nil {
		return nil, fmt.Errorf("notifications: primary: %v; fallback: %w", err, fbErr)
	}
	return Normalize(body), nil
}

// Config controls a Watcher.
type Config struct {
	// UserID gates activation. The watcher does nothing without it.
	UserID    string
	Fetcher   Fetcher
	Emitter   Emitter
	Interval  time.Duration
	Scheduler sched.Scheduler
	Logger    zerolog.Logger
	// Now stamps emitted notifications. Defaults to time.Now.
	Now func() time.Time
}

// Stats is a point-in-time view of watcher activity.
type Stats struct {
	Running   bool
	Cycles    int64
	Skipped   int64
	Failures  int64
	Emitted   int64
	SeenCount int
	LastCycle time.Time
	LastError string
}

// Watcher polls the notification list and emits records it has not seen.
type Watcher struct {
	userID   string
	fetcher  Fetcher
	emitter  Emitter
	interval time.Duration
	sched    sched.Scheduler
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	seen     map[string]struct{}
	running  bool
	gen      uint64
	timer    sched.Timer
	inFlight uint64 // generation whose cycle is outstanding, 0 when idle
	cancel   context.CancelFunc
	stats    Stats
}

// New returns an inactive Watcher.
func New(cfg Config) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = sched.Real()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = EmitterFunc(func(Notification) {})
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Watcher{
		userID:   cfg.UserID,
		fetcher:  cfg.Fetcher,
		emitter:  cfg.Emitter,
		interval: cfg.Interval,
		sched:    cfg.Scheduler,
		log:      cfg.Logger,
		now:      cfg.Now,
		seen:     make(map[string]struct{}),
	}
}

// Start activates the watcher: one cycle right away, then one per interval
// until Stop or ctx is done. It reports false when the watcher is already
// running or no user is signed in.
func (w *Watcher) Start(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running || w.userID == "" || w.fetcher == nil {
		return false
	}

	cctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.gen++
	w.stats.Running = true
	w.scheduleLocked(cctx, 0)

	w.log.Debug().Str("user_id", w.userID).Dur("interval", w.interval).Msg("notification watcher started")
	return true
}

// Stop deactivates the watcher. The repeating timer is released, any
// in-flight request is cancelled, and no results are applied afterwards.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	w.gen++
	w.stats.Running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.log.Debug().Msg("notification watcher stopped")
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Seen returns every identifier seen so far, sorted.
func (w *Watcher) Seen() []string {
	w.mu.Lock()
	ids := make([]string, 0, len(w.seen))
	for id := range w.seen {
		ids = append(ids, id)
	}
	w.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Stats returns a snapshot of watcher counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := w.stats
	st.SeenCount = len(w.seen)
	return st
}

func (w *Watcher) scheduleLocked(ctx context.Context, d time.Duration) {
	gen := w.gen
	w.timer = w.sched.AfterFunc(d, func() { w.tick(ctx, gen) })
}

// tick fires once per interval. The next tick is scheduled before the cycle
// runs; a tick that finds the previous cycle still running is skipped.
func (w *Watcher) tick(ctx context.Context, gen uint64) {
	w.mu.Lock()
	if !w.live(ctx, gen) {
		w.mu.Unlock()
		return
	}
	w.scheduleLocked(ctx, w.interval)
	if w.inFlight == gen {
		w.stats.Skipped++
		w.mu.Unlock()
		w.log.Debug().Msg("previous notification cycle still running, skipping tick")
		return
	}
	w.inFlight = gen
	w.mu.Unlock()

	w.cycle(ctx, gen)

	w.mu.Lock()
	if w.inFlight == gen {
		w.inFlight = 0
	}
	w.mu.Unlock()
}

// live must be called with w.mu held.
func (w *Watcher) live(ctx context.Context, gen uint64) bool {
	return w.running && gen == w.gen && ctx.Err() == nil
}

func (w *Watcher) cycle(ctx context.Context, gen uint64) {
	records, err := Fetch(ctx, w.fetcher, w.log)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.live(ctx, gen) {
		return
	}
	w.stats.Cycles++
	w.stats.LastCycle = w.now()
	if err != nil {
		w.stats.Failures++
		w.stats.LastError = err.Error()
		w.log.Warn().Err(err).Msg("notification cycle abandoned")
		return
	}
	w.stats.LastError = ""

	var fresh []Record
	for _, r := range records {
		if _, ok := w.seen[r.ID]; !ok {
			fresh = append(fresh, r)
		}
	}

	at := w.now()
	for _, r := range fresh {
		w.emitter.Emit(Notification{ID: r.ID, Text: r.Text(), ReceivedAt: at})
		w.stats.Emitted++
	}

	// Every fetched id is re-added, not only the fresh ones.
	for _, r := range records {
		w.seen[r.ID] = struct{}{}
	}

	if len(fresh) > 0 {
		w.log.Info().Int("new", len(fresh)).Int("fetched", len(records)).Msg("new notifications")
	}
}
