package log

import (
	"log/slog"
	"sync"
	"time"
)

// Gate rate-limits a hot-path log site to one event per minimum interval.
// The control loop runs at 10-50 Hz; without a gate a persistent safety
// violation would emit one warning per cycle.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	dropped  int
}

// NewGate creates a gate that allows one event per interval.
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval}
}

// Allow reports whether an event may be logged now.
// Suppressed events are counted and reported on the next allowed event.
func (g *Gate) Allow() (ok bool, suppressed int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		g.dropped++
		return false, 0
	}

	suppressed = g.dropped
	g.dropped = 0
	g.last = now
	return true, suppressed
}

// Warn logs at warn level if the gate allows it, appending a suppressed
// count when earlier events were dropped.
func (g *Gate) Warn(msg string, args ...any) {
	ok, suppressed := g.Allow()
	if !ok {
		return
	}
	if suppressed > 0 {
		args = append(args, slog.Int("suppressed", suppressed))
	}
	Warn(msg, args...)
}
