package usecase

import (
	"testing"
	"time"
)

func TestGateProceedDefault(t *testing.T) {
	g := NewGate()
	if g.Proceed() != GateResumed {
		t.Fatal("fresh gate must allow the next stage")
	}
}

func TestGateCancelWins(t *testing.T) {
	g := NewGate()
	g.Cancel()
	if !g.Cancelled() {
		t.Fatal("expected cancelled")
	}
	if g.Proceed() != GateCancelled {
		t.Fatal("cancelled gate must refuse the next stage")
	}
	select {
	case <-g.Context().Done():
	default:
		t.Fatal("gate context must be cancelled")
	}
}

func TestGatePauseBlocksUntilResume(t *testing.T) {
	g := NewGate()
	g.Pause()
	if !g.Paused() {
		t.Fatal("expected paused")
	}

	done := make(chan GateOutcome, 1)
	go func() { done <- g.Proceed() }()

	select {
	case <-done:
		t.Fatal("Proceed must block while paused")
	case <-time.After(20 * time.Millisecond):
	}

	g.Resume()
	select {
	case outcome := <-done:
		if outcome != GateResumed {
			t.Fatalf("expected resume outcome, got %v", outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("Proceed did not return after resume")
	}
	if g.Paused() {
		t.Fatal("gate must not stay paused after resume")
	}
}

func TestGateCancelReleasesPausedWaiter(t *testing.T) {
	g := NewGate()
	g.Pause()

	done := make(chan GateOutcome, 1)
	go func() { done <- g.Proceed() }()

	g.Cancel()
	select {
	case outcome := <-done:
		if outcome != GateCancelled {
			t.Fatalf("expected cancelled outcome, got %v", outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("Proceed did not return after cancel")
	}
}

func TestGateCancelRacingResumeStillCancels(t *testing.T) {
	g := NewGate()
	g.Pause()
	g.Cancel()
	g.Resume()
	if g.Proceed() != GateCancelled {
		t.Fatal("cancel must win over a racing resume")
	}
}

func TestGatePauseIdempotent(t *testing.T) {
	g := NewGate()
	g.Pause()
	g.Pause()
	g.Resume()
	if g.Proceed() != GateResumed {
		t.Fatal("double pause then resume must release the gate")
	}
	// Resume with no pause pending is a no-op.
	g.Resume()
	if g.Proceed() != GateResumed {
		t.Fatal("spurious resume must not change the gate")
	}
}

func TestGatePauseAfterCancelIsIgnored(t *testing.T) {
	g := NewGate()
	g.Cancel()
	g.Pause()
	if g.Paused() {
		t.Fatal("pause after cancel must be ignored")
	}
}
