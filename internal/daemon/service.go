// Package daemon provides the headless notification watcher service and its
// local HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/fintrack/internal/notify"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	EventsBuffer int
	BaseURL      string
	// Watch configures the embedded watcher. Its Emitter is replaced by the
	// service.
	Watch  notify.Config
	Logger zerolog.Logger
}

// Event is published for every notification the watcher surfaces.
type Event struct {
	ID           int64               `json:"id"`
	Type         string              `json:"type"`
	Timestamp    time.Time           `json:"timestamp"`
	Notification notify.Notification `json:"notification"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	UserID          string    `json:"user_id"`
	BaseURL         string    `json:"base_url"`
	PollIntervalSec float64   `json:"poll_interval_sec"`
	Running         bool      `json:"running"`
	Cycles          int64     `json:"cycles"`
	Skipped         int64     `json:"skipped"`
	Failures        int64     `json:"failures"`
	Emitted         int64     `json:"emitted"`
	SeenCount       int       `json:"seen_count"`
	LastCycleAt     time.Time `json:"last_cycle_at"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service runs a notification watcher and serves what it surfaces.
type Service struct {
	cfg     Config
	watcher *notify.Watcher
	log     zerolog.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8797"
	}
	if cfg.Watch.Interval <= 0 {
		cfg.Watch.Interval = notify.DefaultInterval
	}

	s := &Service{
		cfg:       cfg,
		log:       cfg.Logger,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	wcfg := cfg.Watch
	wcfg.Emitter = s
	wcfg.Logger = cfg.Logger
	s.watcher = notify.New(wcfg)
	return s
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/notifications", s.handleNotifications)
	mux.HandleFunc("/v1/stream", s.handleStream)
	return mux
}

// Run starts the HTTP endpoints and the watcher until ctx is canceled.
// It fails fast when no user is signed in.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Watch.UserID == "" {
		return errors.New("daemon: not signed in (run `fintrack login` first)")
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("daemon http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.watcher.Start(gctx)
		<-gctx.Done()
		s.watcher.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Emit implements notify.Emitter. It never blocks.
func (s *Service) Emit(n notify.Notification) {
	s.mu.Lock()
	s.nextEventID++
	ev := Event{
		ID:           s.nextEventID,
		Type:         "notification",
		Timestamp:    n.ReceivedAt,
		Notification: n,
	}
	s.mu.Unlock()

	s.log.Info().Str("id", n.ID).Msg(n.Text)
	s.publishEvent(ev)
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	ws := s.watcher.Stats()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		UserID:          s.cfg.Watch.UserID,
		BaseURL:         s.cfg.BaseURL,
		PollIntervalSec: s.cfg.Watch.Interval.Seconds(),
		Running:         ws.Running,
		Cycles:          ws.Cycles,
		Skipped:         ws.Skipped,
		Failures:        ws.Failures,
		Emitted:         ws.Emitted,
		SeenCount:       ws.SeenCount,
		LastCycleAt:     ws.LastCycle,
		LastError:       ws.LastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
