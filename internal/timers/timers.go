// Package timers provides cancellable deferred callbacks grouped by owner, so a view or
// session can stop everything it scheduled when it goes away.
package timers

import (
	"sync"
	"time"
)

// Group owns a set of pending timers.
type Group struct {
	mu      sync.Mutex
	pending map[*Timer]struct{}
	stopped bool
}

// Timer is a single deferred callback.
type Timer struct {
	group *Group
	t     *time.Timer
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{pending: map[*Timer]struct{}{}}
}

// AfterFunc runs fn after d unless the timer or its group is stopped first. It returns nil
// when the group has already been stopped.
func (g *Group) AfterFunc(d time.Duration, fn func()) *Timer {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return nil
	}
	tm := &Timer{group: g}
	tm.t = time.AfterFunc(d, func() {
		if !g.release(tm) {
			return
		}
		fn()
	})
	g.pending[tm] = struct{}{}
	return tm
}

// release removes tm from the pending set and reports whether it was still pending.
func (g *Group) release(tm *Timer) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pending[tm]; !ok {
		return false
	}
	delete(g.pending, tm)
	return true
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (g *Group) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Stop cancels every pending timer and rejects new ones.
func (g *Group) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	for tm := range g.pending {
		tm.t.Stop()
		delete(g.pending, tm)
	}
}

// Stopped reports whether Stop has been called.
func (g *Group) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

// Stop cancels the timer. It reports whether the callback was prevented from running.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	if !t.group.release(t) {
		return false
	}
	t.t.Stop()
	return true
}
