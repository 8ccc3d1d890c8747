// Package lifecycle implements the reasoner's pause/shutdown gate: a
// single atomic running flag, a cooperative pause flag, and a condition
// variable long-running plugin work checks at safe points between units
// of work.
package lifecycle

import (
	"sync"
	"sync/atomic"
)

// Gate coordinates cooperative pause and shutdown across plugins. It
// does not preempt in-flight work; callers opt in by calling Wait at
// points where stalling or stopping is safe (e.g. between processing
// one event and the next).
type Gate struct {
	mu      sync.Mutex
	cond    *sync.Cond
	paused  atomic.Bool
	running atomic.Bool
}

// New returns a Gate in the running, unpaused state.
func New() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	g.running.Store(true)
	return g
}

// SetPaused toggles the pause flag. Going from paused to unpaused wakes
// every goroutine blocked in Wait.
func (g *Gate) SetPaused(paused bool) {
	g.paused.Store(paused)
	if !paused {
		g.mu.Lock()
		g.cond.Broadcast()
		g.mu.Unlock()
	}
}

// Paused reports the current pause state.
func (g *Gate) Paused() bool { return g.paused.Load() }

// Running reports whether Shutdown has been called yet.
func (g *Gate) Running() bool { return g.running.Load() }

// Wait blocks the calling goroutine while the gate is paused and still
// running. It returns immediately, without blocking, once Shutdown has
// been called — callers must check Running() afterward to distinguish
// "resumed" from "shutting down".
func (g *Gate) Wait() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.paused.Load() && g.running.Load() {
		g.cond.Wait()
	}
}

// Shutdown marks the gate as no longer running and wakes every waiter;
// it does not itself stop the event bus or any IO collaborator — callers
// orchestrate draining those separately after calling Shutdown.
func (g *Gate) Shutdown() {
	g.running.Store(false)
	g.mu.Lock()
	g.cond.Broadcast()
	g.mu.Unlock()
}
