package ingestion

import (
	"context"
	"fmt"
)

// Handle is a non-owning reference to a running dispatch.
//
// It can observe the dispatch lifecycle and request termination. It never
// exposes the items or documents of the dispatch.
type Handle struct {
	s *supervisor
}

// ID returns the dispatch identifier.
func (h *Handle) ID() string {
	return h.s.id
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return State(h.s.state.Load())
}

// Done returns a channel that is closed once the supervisor goroutine has exited.
// After Terminate, parses still running and the goroutine submitting items to
// the pool may outlive Done; they exit once the running parses return.
func (h *Handle) Done() <-chan struct{} {
	return h.s.done
}

// Wait blocks until the dispatch stops or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for dispatch %s: %w", h.s.id, ctx.Err())
	}
}

// Terminate forcefully stops the dispatch: the drain loop exits, pending
// results are discarded and the worker pool is released. Parses already
// running are not interrupted; their results are dropped, and the submitting
// goroutine blocked behind them exits when they return. Terminate does not
// wait; use Done or Wait for that. Calling it after the dispatch stopped is a
// no-op.
func (h *Handle) Terminate() {
	h.s.terminate()
}

// Report returns a snapshot of the dispatch counters.
func (h *Handle) Report() Report {
	return h.s.stats.snapshot()
}
