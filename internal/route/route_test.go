package route

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/fintrack/internal/sched"
)

func newTestController(t *testing.T, initial string) (*Controller, *sched.Manual, *[]State) {
	t.Helper()
	clock := sched.NewManual()
	var seen []State
	c := New(Config{
		Initial:   ParseLocation(initial),
		Duration:  DefaultDuration,
		Scheduler: clock,
		OnChange:  func(s State) { seen = append(seen, s) },
	})
	return c, clock, &seen
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want Location
	}{
		{"/home", Location{Path: "/home"}},
		{"/settings?tab=categories", Location{Path: "/settings", Query: "tab=categories"}},
		{"?x=1", Location{Path: "/", Query: "x=1"}},
	}
	for _, tt := range tests {
		got := ParseLocation(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "/settings?tab=categories", ParseLocation("/settings?tab=categories").String())
}

func TestNonAnimatedNavigationIsImmediate(t *testing.T) {
	pairs := [][2]string{
		{"/home", "/wallets"},
		{"/wallets", "/group"},
		{"/group", "/families"},
		{"/settings", "/home"},
		{"/admin", "/categories"},
		{"/home", "/home?x=1"},
	}
	for _, p := range pairs {
		c, clock, seen := newTestController(t, p[0])
		c.Navigate(ParseLocation(p[1]))

		st := c.State()
		assert.Equal(t, ParseLocation(p[1]), st.Displayed, "%s -> %s", p[0], p[1])
		assert.Equal(t, Idle, st.Stage)
		assert.Equal(t, 0, clock.Pending())

		for _, s := range *seen {
			assert.Equal(t, Idle, s.Stage, "no intermediate stage for %s -> %s", p[0], p[1])
		}
	}
}

func TestAnimatedPairRunsBothPhases(t *testing.T) {
	for _, p := range [][2]string{{"/home", "/group"}, {"/group", "/home"}} {
		c, clock, _ := newTestController(t, p[0])
		from, to := ParseLocation(p[0]), ParseLocation(p[1])

		c.Navigate(to)
		st := c.State()
		assert.Equal(t, Exiting, st.Stage)
		assert.Equal(t, from, st.Displayed)
		assert.Equal(t, to, st.Current)

		clock.Advance(599 * time.Millisecond)
		assert.Equal(t, Exiting, c.State().Stage)
		assert.Equal(t, from, c.State().Displayed)

		clock.Advance(time.Millisecond)
		st = c.State()
		assert.Equal(t, Entering, st.Stage)
		assert.Equal(t, to, st.Displayed)

		clock.Advance(599 * time.Millisecond)
		assert.Equal(t, Entering, c.State().Stage)

		clock.Advance(time.Millisecond)
		assert.Equal(t, Idle, c.State().Stage)
		assert.Equal(t, to, c.State().Displayed)
		assert.Equal(t, 0, clock.Pending())
	}
}

func TestAnimatedPairEmitsStagesInOrder(t *testing.T) {
	c, clock, seen := newTestController(t, "/home")
	c.Navigate(ParseLocation("/group"))
	clock.Advance(DefaultDuration)

	require.Len(t, *seen, 3)
	assert.Equal(t, []Stage{Exiting, Entering, Idle},
		[]Stage{(*seen)[0].Stage, (*seen)[1].Stage, (*seen)[2].Stage})
}

func TestQueryOnlyChangeIsImmediate(t *testing.T) {
	c, clock, seen := newTestController(t, "/settings")
	c.Navigate(ParseLocation("/settings?tab=categories"))

	st := c.State()
	assert.Equal(t, Location{Path: "/settings", Query: "tab=categories"}, st.Displayed)
	assert.Equal(t, Idle, st.Stage)
	assert.Equal(t, 0, clock.Pending())
	require.Len(t, *seen, 1)
}

func TestQueryIgnoredForAnimatedPair(t *testing.T) {
	c, _, _ := newTestController(t, "/home?view=month")
	c.Navigate(ParseLocation("/group?id=42"))
	assert.Equal(t, Exiting, c.State().Stage)
}

func TestSupersedingNavigationCancelsPendingTimers(t *testing.T) {
	c, clock, _ := newTestController(t, "/home")
	c.Navigate(ParseLocation("/group"))
	clock.Advance(300 * time.Millisecond)

	c.Navigate(ParseLocation("/wallets"))
	st := c.State()
	assert.Equal(t, ParseLocation("/wallets"), st.Displayed)
	assert.Equal(t, Idle, st.Stage)

	clock.Advance(5 * time.Second)
	st = c.State()
	assert.Equal(t, ParseLocation("/wallets"), st.Displayed)
	assert.Equal(t, Idle, st.Stage)
}

func TestSupersedeDuringEnteringRestartsTransition(t *testing.T) {
	c, clock, _ := newTestController(t, "/home")
	c.Navigate(ParseLocation("/group"))
	clock.Advance(700 * time.Millisecond)
	require.Equal(t, Entering, c.State().Stage)

	c.Navigate(ParseLocation("/home"))
	assert.Equal(t, Exiting, c.State().Stage)
	assert.Equal(t, ParseLocation("/group"), c.State().Displayed)

	// The first transition's completion at t=1200 must not land.
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, Exiting, c.State().Stage)

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, Entering, c.State().Stage)
	assert.Equal(t, ParseLocation("/home"), c.State().Displayed)

	clock.Advance(600 * time.Millisecond)
	assert.Equal(t, Idle, c.State().Stage)
}

func TestStaleCallbackIsIgnored(t *testing.T) {
	// Simulates a real timer whose callback escaped Stop.
	c := New(Config{Initial: ParseLocation("/home"), Scheduler: sched.NewManual()})
	c.Navigate(ParseLocation("/group"))

	c.mu.Lock()
	staleGen := c.gen
	c.mu.Unlock()

	c.Navigate(ParseLocation("/wallets"))
	c.fire(staleGen, evHalfway)

	st := c.State()
	assert.Equal(t, ParseLocation("/wallets"), st.Displayed)
	assert.Equal(t, Idle, st.Stage)
}

func TestStopReleasesTimers(t *testing.T) {
	c, clock, _ := newTestController(t, "/group")
	c.Navigate(ParseLocation("/home"))
	c.Stop()

	assert.Equal(t, 0, clock.Pending())
	clock.Advance(5 * time.Second)
	assert.Equal(t, Exiting, c.State().Stage)
	assert.Equal(t, ParseLocation("/group"), c.State().Displayed)

	c.Navigate(ParseLocation("/wallets"))
	assert.Equal(t, ParseLocation("/group"), c.State().Displayed)
}

func TestOddDurationSplitsIntoTwoPhases(t *testing.T) {
	clock := sched.NewManual()
	c := New(Config{Initial: ParseLocation("/home"), Duration: 5 * time.Millisecond, Scheduler: clock})
	c.Navigate(ParseLocation("/group"))

	clock.Advance(2 * time.Millisecond)
	assert.Equal(t, Exiting, c.State().Stage)
	clock.Advance(time.Millisecond)
	assert.Equal(t, Entering, c.State().Stage)
	clock.Advance(2 * time.Millisecond)
	assert.Equal(t, Idle, c.State().Stage)
}

func TestRepeatNavigationToCurrentIsNoop(t *testing.T) {
	c, clock, seen := newTestController(t, "/home")
	c.Navigate(ParseLocation("/group"))
	c.Navigate(ParseLocation("/group"))

	assert.Len(t, *seen, 1)
	assert.Equal(t, 1, clock.Pending())
}
