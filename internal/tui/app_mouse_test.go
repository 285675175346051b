package tui

import (
	"testing"

	"github.com/theirongolddev/fintrack/internal/route"
	"github.com/theirongolddev/fintrack/internal/tui/components"
)

func TestTabAtMatchesTabWidths(t *testing.T) {
	tabs := screenTabs()
	for active := range screens {
		a := App{
			width:      400,
			routeState: route.State{Displayed: route.Location{Path: screens[active].path}},
		}
		pos := 0

		for i := range tabs {
			w := components.TabVisualWidth(tabs[i], i == active)
			x := pos + w/2 // midpoint inside this tab
			if got := a.tabAt(x, 0); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w
			if i < len(tabs)-1 {
				pos++ // separator
			}
		}
		if got := a.tabAt(pos+5, 0); got != -1 {
			t.Errorf("active=%d: click past last tab -> %d, want -1", active, got)
		}
	}
}

func TestTabAtSecondRow(t *testing.T) {
	a := App{
		width:      70,
		routeState: route.State{Displayed: route.Location{Path: route.PathHome}},
	}
	rows := components.TabLayout(screenTabs(), 0, a.width)
	if len(rows) < 2 {
		t.Fatalf("expected the tab bar to wrap at width %d", a.width)
	}
	first := rows[1][0]
	if got := a.tabAt(1, 1); got != first {
		t.Errorf("tabAt(1, 1) = %d, want %d", got, first)
	}
	if got := a.tabAt(1, len(rows)); got != -1 {
		t.Errorf("click below the tab bar -> %d, want -1", got)
	}
}
