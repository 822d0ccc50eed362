// Package session enforces that a single client drives the fleet at a time.
package session

import (
	"sync"
	"time"

	"github.com/kilianp07/rcbase/core/metrics"
)

// Gate holds the identity of the current session owner. The first origin to
// claim an empty gate becomes the owner; other origins are ignored until the
// owner releases it. There is no queue and no takeover. Session events are
// recorded under the lock so the recorder sees them in gate order.
type Gate struct {
	mu    sync.Mutex
	owner string
	held  bool
	sink  metrics.SessionRecorder
}

// NewGate returns an empty gate. A nil recorder disables session metrics.
func NewGate(rec metrics.SessionRecorder) *Gate {
	if rec == nil {
		rec = metrics.NopSink{}
	}
	return &Gate{sink: rec}
}

// Claim makes origin the owner if the gate is free. It reports whether origin
// owns the gate after the call.
func (g *Gate) Claim(origin string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return g.owner == origin
	}
	g.owner = origin
	g.held = true
	_ = g.sink.RecordSession(metrics.SessionEvent{Origin: origin, Claimed: true, Time: time.Now()})
	return true
}

// Release frees the gate if origin owns it. Releasing from another origin is
// a no-op. It reports whether the gate was freed.
func (g *Gate) Release(origin string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.held || g.owner != origin {
		return false
	}
	g.owner = ""
	g.held = false
	_ = g.sink.RecordSession(metrics.SessionEvent{Origin: origin, Claimed: false, Time: time.Now()})
	return true
}

// Allows reports whether frames from origin may be processed.
func (g *Gate) Allows(origin string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held && g.owner == origin
}

// Owner returns the current owner, if any.
func (g *Gate) Owner() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner, g.held
}
