package hub

import (
	"context"
	"time"

	"github.com/hivemind-sh/hivemind/internal/domain"
)

// WaitParams bounds one long-poll iteration.
type WaitParams struct {
	WorkspaceID    string
	TimeoutSeconds int
	Types          []domain.EventType
	Iteration      int
	MaxIterations  int
}

// WaitResult is returned from every Wait call. A timeout is a normal
// outcome, flagged rather than errored. ContinuePolling goes false once
// the caller's iteration budget is spent.
type WaitResult struct {
	Events          []domain.Event `json:"events"`
	TimedOut        bool           `json:"timedOut"`
	ContinuePolling bool           `json:"continuePolling"`
	Iteration       int            `json:"iteration"`
	Hint            string         `json:"hint,omitempty"`
}

// Wait suspends the caller until a matching event arrives or the
// (clamped) timeout elapses. Exceeding MaxIterations short-circuits
// immediately with no wait and a restart hint. Cancelling ctx returns
// early with whatever was collected.
func (h *Hub) Wait(ctx context.Context, p WaitParams) WaitResult {
	maxIter := p.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	if p.Iteration > maxIter {
		return WaitResult{
			Events:          []domain.Event{},
			ContinuePolling: false,
			Iteration:       p.Iteration,
			Hint:            "iteration budget exhausted; restart the loop with iteration=1",
		}
	}

	timeout := p.TimeoutSeconds
	if timeout > MaxWaitSeconds {
		timeout = MaxWaitSeconds
	}
	if timeout <= 0 {
		timeout = 1
	}

	sub := h.Subscribe(p.WorkspaceID, p.Types)
	defer sub.Cancel()

	timer := time.NewTimer(time.Duration(timeout) * time.Second)
	defer timer.Stop()

	res := WaitResult{
		Events:          []domain.Event{},
		ContinuePolling: p.Iteration < maxIter,
		Iteration:       p.Iteration,
	}

	select {
	case e := <-sub.ch:
		res.Events = append(res.Events, e)
		res.Events = append(res.Events, drain(sub.ch)...)
	case <-timer.C:
		res.TimedOut = true
	case <-ctx.Done():
	}
	return res
}

// drain collects any events already queued without blocking.
func drain(ch <-chan domain.Event) []domain.Event {
	var out []domain.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
