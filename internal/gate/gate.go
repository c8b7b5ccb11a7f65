// Package gate decides when the journal will talk. With ghost mode on, it
// only answers during a nightly window.
package gate

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DeclineMessage is the reply for commands that arrive outside the window.
const DeclineMessage = "……現在不是說話的時候。夢裡見。"

// Gate is the ghost-mode predicate. It is safe for concurrent use.
type Gate struct {
	clock   clockwork.Clock
	loc     *time.Location
	start   int // minutes after midnight
	end     int
	enabled atomic.Bool
}

// New builds a gate for the inclusive window start..end, both "HH:MM" in loc.
// A window whose end is before its start wraps past midnight.
func New(clock clockwork.Clock, enabled bool, start, end string, loc *time.Location) (*Gate, error) {
	s, err := parseClock(start)
	if err != nil {
		return nil, fmt.Errorf("window start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return nil, fmt.Errorf("window end: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	g := &Gate{clock: clock, loc: loc, start: s, end: e}
	g.enabled.Store(enabled)
	return g, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Enabled reports whether ghost mode is on.
func (g *Gate) Enabled() bool { return g.enabled.Load() }

// Toggle flips ghost mode and returns the new state.
func (g *Gate) Toggle() bool {
	for {
		old := g.enabled.Load()
		if g.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Allowed reports whether a command arriving now may be honored.
func (g *Gate) Allowed() bool {
	return g.IsWithinAllowedWindow(g.clock.Now())
}

// IsWithinAllowedWindow is always true with ghost mode off. With it on, now
// must fall inside the window, to the minute, both ends included.
func (g *Gate) IsWithinAllowedWindow(now time.Time) bool {
	if !g.enabled.Load() {
		return true
	}
	local := now.In(g.loc)
	m := local.Hour()*60 + local.Minute()
	if g.start <= g.end {
		return m >= g.start && m <= g.end
	}
	return m >= g.start || m <= g.end
}

// Window renders the window as "HH:MM-HH:MM".
func (g *Gate) Window() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", g.start/60, g.start%60, g.end/60, g.end%60)
}
