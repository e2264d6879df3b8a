package usecase

import (
	"context"
	"sync"
)

// GateOutcome is the result of waiting at a stage boundary.
type GateOutcome int

const (
	GateResumed GateOutcome = iota
	GateCancelled
)

// Gate is the single-job cancellation and pause signal. The pipeline
// consults it at every stage boundary; cancellation is cooperative and
// also tears down in-flight port calls through the gate's context.
type Gate struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

func NewGate() *Gate {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gate{ctx: ctx, cancel: cancel}
}

// Context is cancelled when the job is cancelled. It is handed to
// extractor and analyzer calls so in-flight requests are torn down
// rather than merely ignored.
func (g *Gate) Context() context.Context {
	return g.ctx
}

// Cancel raises the abort signal and releases any paused waiter.
func (g *Gate) Cancel() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
	g.cancel()
}

func (g *Gate) Cancelled() bool {
	return g.ctx.Err() != nil
}

// Pause requests suspension at the next stage boundary. The in-flight
// stage is allowed to finish. Pausing twice is the same as pausing once.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused || g.ctx.Err() != nil {
		return
	}
	g.paused = true
	g.resume = make(chan struct{})
}

// Resume releases the paused waiter. A no-op when not paused.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return
	}
	g.paused = false
	close(g.resume)
}

func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// AwaitResumeOrCancel blocks until Resume or Cancel. Callers must treat
// GateCancelled as final; after a resume the cancellation flag is
// re-checked so a cancel racing a resume still wins.
func (g *Gate) AwaitResumeOrCancel() GateOutcome {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		if g.Cancelled() {
			return GateCancelled
		}
		return GateResumed
	}
	resume := g.resume
	g.mu.Unlock()

	select {
	case <-resume:
		if g.Cancelled() {
			return GateCancelled
		}
		return GateResumed
	case <-g.ctx.Done():
		return GateCancelled
	}
}

// Proceed is the stage-boundary check: cancelled wins, a pause suspends
// until resume or cancel, and cancellation is re-checked after any
// suspension before the next stage is allowed to start.
func (g *Gate) Proceed() GateOutcome {
	if g.Cancelled() {
		return GateCancelled
	}
	if g.Paused() {
		if g.AwaitResumeOrCancel() == GateCancelled {
			return GateCancelled
		}
		if g.Cancelled() {
			return GateCancelled
		}
	}
	return GateResumed
}
