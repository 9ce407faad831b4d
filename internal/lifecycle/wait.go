package lifecycle

import (
	"context"
	"time"

	apperrors "appshell/internal/errors"
)

// WaitFor polls cond until it reports true, racing against the timeout.
// Phases use it at the boundary where they wait for an external
// readiness condition (required registry entries, required elements).
// On deadline it returns a timeout error, which the orchestrator treats
// as an ordinary phase failure.
func WaitFor(ctx context.Context, timeout time.Duration, what string, cond func() bool) error {
	if cond() {
		return nil
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return apperrors.NewTimeout(what, timeout)
		case <-tick.C:
			if cond() {
				return nil
			}
		}
	}
}

// WaitForChannel blocks until ch is closed (or receives), racing the
// timeout the same way WaitFor does.
func WaitForChannel(ctx context.Context, timeout time.Duration, what string, ch <-chan struct{}) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-deadline.C:
		return apperrors.NewTimeout(what, timeout)
	}
}
