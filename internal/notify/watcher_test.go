package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/fintrack/internal/api"
	"github.com/theirongolddev/fintrack/internal/sched"
)

// scriptedFetcher answers each path from a queue of responses; the last
// response for a path repeats once the queue is drained.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses map[string][]response
	calls     map[string]int
	onFetch   func(path string)
}

type response struct {
	body string
	err  error
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		responses: make(map[string][]response),
		calls:     make(map[string]int),
	}
}

func (f *scriptedFetcher) on(path string, rs ...response) *scriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = append(f.responses[path], rs...)
	return f
}

func (f *scriptedFetcher) GetRaw(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.calls[path]++
	queue := f.responses[path]
	var r response
	switch {
	case len(queue) == 0:
		r = response{err: errors.New("no route")}
	case len(queue) == 1:
		r = queue[0]
	default:
		r = queue[0]
		f.responses[path] = queue[1:]
	}
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(path)
	}
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.body), nil
}

func (f *scriptedFetcher) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

type recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recorder) Emit(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.got))
	for _, n := range r.got {
		ids = append(ids, n.ID)
	}
	return ids
}

func newTestWatcher(f Fetcher, userID string) (*Watcher, *sched.Manual, *recorder) {
	clock := sched.NewManual()
	rec := &recorder{}
	w := New(Config{
		UserID:    userID,
		Fetcher:   f,
		Emitter:   rec,
		Interval:  DefaultInterval,
		Scheduler: clock,
		Logger:    zerolog.Nop(),
	})
	return w, clock, rec
}

func TestWatcherRequiresUserID(t *testing.T) {
	f := newScriptedFetcher().on(PrimaryPath, response{body: `[{"_id":"1"}]`})
	w, clock, rec := newTestWatcher(f, "")

	assert.False(t, w.Start(context.Background()))
	assert.False(t, w.Running())
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Minute)
	assert.Equal(t, 0, f.count(PrimaryPath))
	assert.Empty(t, rec.ids())
}

func TestWatcherFetchesImmediatelyThenEveryInterval(t *testing.T) {
	f := newScriptedFetcher().on(PrimaryPath, response{body: `[]`})
	w, clock, _ := newTestWatcher(f, "u1")
	require.True(t, w.Start(context.Background()))
	defer w.Stop()

	clock.Advance(0)
	assert.Equal(t, 1, f.count(PrimaryPath))

	clock.Advance(DefaultInterval - time.Millisecond)
	assert.Equal(t, 1, f.count(PrimaryPath))

	clock.Advance(time.Millisecond)
	assert.Equal(t, 2, f.count(PrimaryPath))

	clock.Advance(3 * DefaultInterval)
	assert.Equal(t, 5, f.count(PrimaryPath))
	assert.False(t, w.Start(context.Background()), "already running")
}

func TestWatcherDedupAcrossCycles(t *testing.T) {
	list := `[{"_id":"a","message":"hello"},{"id":"b"}]`
	f := newScriptedFetcher().on(PrimaryPath, response{body: list})
	w, clock, rec := newTestWatcher(f, "u1")
	require.True(t, w.Start(context.Background()))
	defer w.Stop()

	clock.Advance(0)
	assert.Equal(t, []string{"a", "b"}, rec.ids())

	clock.Advance(DefaultInterval)
	assert.Equal(t, []string{"a", "b"}, rec.ids(), "second cycle emits nothing")
	assert.Equal(t, []string{"a", "b"}, w.Seen())

	rec.mu.Lock()
	assert.Equal(t, "hello", rec.got[0].Text)
	assert.Equal(t, Placeholder, rec.got[1].Text)
	rec.mu.Unlock()
}

func TestWatcherSeenSetOnlyGrows(t *testing.T) {
	f := newScriptedFetcher().on(PrimaryPath,
		response{body: `[{"_id":"1"},{"_id":"2"}]`},
		response{body: `{"data":[{"_id":"2"},{"_id":"3"}]}`},
		response{body: `[]`},
	)
	w, clock, rec := newTestWatcher(f, "u1")
	require.True(t, w.Start(context.Background()))
	defer w.Stop()

	clock.Advance(0)
	clock.Advance(DefaultInterval)
	clock.Advance(DefaultInterval)

	assert.Equal(t, []string{"1", "2", "3"}, rec.ids())
	assert.Equal(t, []string{"1", "2", "3"}, w.Seen())
	assert.Equal(t, int64(3), w.Stats().Emitted)
}

func TestWatcherFallbackOnPrimaryFailure(t *testing.T) {
	f := newScriptedFetcher().
		on(PrimaryPath, response{err: &api.StatusError{Path: PrimaryPath, Code: 500}}).
		on(FallbackPath, response{body: `{"notifications":[{"_id":"x","text":"from fallback"}]}`})
	w, clock, rec := newTestWatcher(f, "u1")
	require.True(t, w.Start(context.Background()))
	defer w.Stop()

	clock.Advance(0)
	assert.Equal(t, 1, f.count(PrimaryPath))
	assert.Equal(t, 1, f.count(FallbackPath))
	assert.Equal(t, []string{"x"}, rec.ids())
}

func TestWatcherBothEndpointsFailing(t *testing.T) {
	f := newScriptedFetcher().
		on(PrimaryPath, response{err: &api.StatusError{Path: PrimaryPath, Code: 500}}).
		on(FallbackPath, response{err: errors.New("connection refused")})
	w, clock, rec := newTestWatcher(f, "u1")
	require.True(t, w.Start(context.Background()))
	defer w.Stop()

	clock.Advance(0)
	assert.Equal(t, 1, f.count(FallbackPath))
	assert.Empty(t, rec.ids())
	assert.Empty(t, w.Seen())

	st := w.Stats()
	assert.Equal(t, int64(1), st.Failures)
	assert.Contains(t, st.LastError, "connection refused")
	assert.True(t, w.Running(), "failure does not stop the loop")

	clock.Advance(DefaultInterval)
	assert.Equal(t, 2, f.count(PrimaryPath))
}

func TestWatcherMalformedBodyIsNotFatal(t *testing.T) {
	f := newScriptedFetcher().on(PrimaryPath,
		response{body: `<html>oops</html>`},
		response{body: `[{"_id":"1"}]`},
	)
	w, clock, rec := newTestWatcher(f, "u1")
	require.True(t, w.Start(context.Background()))
	defer w.Stop()

	clock.Advance(0)
	assert.Empty(t, rec.ids())
	assert.Equal(t, 0, f.count(FallbackPath), "2xx with bad body does not trigger fallback")

	clock.Advance(DefaultInterval)
	assert.Equal(t, []string{"1"}, rec.ids())
}

func TestWatcherStopPreventsFurtherWork(t *testing.T) {
	f := newScriptedFetcher().on(PrimaryPath,
		response{body: `[{"_id":"1"}]`},
		response{body: `[{"_id":"2"}]`},
	)
	w, clock, rec := newTestWatcher(f, "u1")
	require.True(t, w.Start(context.Background()))

	clock.Advance(0)
	clock.Advance(DefaultInterval / 2)
	w.Stop()
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(10 * DefaultInterval)
	assert.Equal(t, 1, f.count(PrimaryPath))
	assert.Equal(t, []string{"1"}, rec.ids())
	assert.False(t, w.Running())
}

func TestWatcherStopDuringInFlightCycleDropsResults(t *testing.T) {
	f := newScriptedFetcher().on(PrimaryPath, response{body: `[{"_id":"late"}]`})
	w, clock, rec := newTestWatcher(f, "u1")
	f.onFetch = func(string) { w.Stop() }
	require.True(t, w.Start(context.Background()))

	clock.Advance(0)
	assert.Empty(t, rec.ids())
	assert.Empty(t, w.Seen())
	assert.Equal(t, 0, f.count(FallbackPath))
}

func TestWatcherSkipsTickWhileCycleInFlight(t *testing.T) {
	f := newScriptedFetcher().on(PrimaryPath, response{body: `[{"_id":"1"}]`})
	w, clock, rec := newTestWatcher(f, "u1")

	// The first fetch advances virtual time past the next tick, so that
	// tick lands while the cycle is still outstanding.
	first := true
	f.onFetch = func(string) {
		if first {
			first = false
			clock.Advance(DefaultInterval)
		}
	}
	require.True(t, w.Start(context.Background()))
	defer w.Stop()

	clock.Advance(0)
	assert.Equal(t, 1, f.count(PrimaryPath))
	assert.Equal(t, int64(1), w.Stats().Skipped)
	assert.Equal(t, []string{"1"}, rec.ids())

	clock.Advance(DefaultInterval)
	assert.Equal(t, 2, f.count(PrimaryPath))
	assert.Equal(t, []string{"1"}, rec.ids())
}

func TestWatcherAgainstHTTPBackend(t *testing.T) {
	var (
		mu       sync.Mutex
		auth     string
		primary  int
		fallback int
	)
	mux := http.NewServeMux()
	mux.HandleFunc(PrimaryPath, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		primary++
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc(FallbackPath, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		fallback++
		mu.Unlock()
		_, _ = w.Write([]byte(`{"data":[{"_id":"n1","message":"Wallet shared with you"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := api.NewClient(srv.URL, "secret", api.Options{})
	w, clock, rec := newTestWatcher(client, "u1")
	require.True(t, w.Start(context.Background()))
	defer w.Stop()

	clock.Advance(0)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, primary)
	assert.Equal(t, 1, fallback)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, []string{"n1"}, rec.ids())
}

func TestWatcherRestartKeepsSeenSet(t *testing.T) {
	f := newScriptedFetcher().on(PrimaryPath, response{body: `[{"_id":"1"}]`})
	w, clock, rec := newTestWatcher(f, "u1")

	require.True(t, w.Start(context.Background()))
	clock.Advance(0)
	w.Stop()

	require.True(t, w.Start(context.Background()))
	clock.Advance(0)
	w.Stop()

	assert.Equal(t, 2, f.count(PrimaryPath))
	assert.Equal(t, []string{"1"}, rec.ids())
}

func TestWatcherRestartDuringInFlightCycleFetchesImmediately(t *testing.T) {
	f := newScriptedFetcher().on(PrimaryPath, response{body: `[{"_id":"1"}]`})
	w, clock, rec := newTestWatcher(f, "u1")

	// Restart while the first cycle's request is outstanding; the new
	// generation's first tick lands before that request returns.
	first := true
	f.onFetch = func(string) {
		if !first {
			return
		}
		first = false
		w.Stop()
		require.True(t, w.Start(context.Background()))
		clock.Advance(0)
	}
	require.True(t, w.Start(context.Background()))
	defer w.Stop()

	clock.Advance(0)
	assert.Equal(t, 2, f.count(PrimaryPath))
	assert.Equal(t, []string{"1"}, rec.ids())

	st := w.Stats()
	assert.Equal(t, int64(0), st.Skipped)
	assert.Equal(t, int64(1), st.Cycles, "the abandoned cycle is not counted")

	clock.Advance(DefaultInterval)
	assert.Equal(t, 3, f.count(PrimaryPath))
	assert.Equal(t, int64(0), w.Stats().Skipped)
}

func TestWatcherAbandonedCycleIsNotCounted(t *testing.T) {
	f := newScriptedFetcher().on(PrimaryPath, response{body: `[{"_id":"1"}]`})
	w, clock, _ := newTestWatcher(f, "u1")
	f.onFetch = func(string) { w.Stop() }
	require.True(t, w.Start(context.Background()))

	clock.Advance(0)
	st := w.Stats()
	assert.Equal(t, int64(0), st.Cycles)
	assert.True(t, st.LastCycle.IsZero())
}
