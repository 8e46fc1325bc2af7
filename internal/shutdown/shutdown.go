// Package shutdown provides the cooperative-cancellation primitive used
// by the worker, scheduler, and LLM retry helper. The source system
// used a mutable process-wide flag checked at suspension points; Go
// gives us context.Context cancellation as a first-class mechanism, so
// this package is a thin wrapper around it rather than a reimplemented
// flag (spec §9, "Exception-driven shutdown").
package shutdown

import (
	"context"
	"errors"
	"time"
)

// ErrRequested is returned by SleepChunked (and propagated by anything
// built on top of it) when shutdown was observed mid-sleep. It is the
// structured-cancellation equivalent of the source system's
// ShutdownRequested exception.
var ErrRequested = errors.New("shutdown requested")

// chunk is the granularity at which long sleeps re-check ctx.Done, per
// spec §4.C / §4.F's "sub-second granularity" requirement.
const chunk = 1 * time.Second

// SleepChunked sleeps for d, polling ctx in ≤1s increments so
// cancellation is observed quickly even during a long backoff. Returns
// ErrRequested the moment ctx is done, without completing the
// remainder of the sleep.
func SleepChunked(ctx context.Context, d time.Duration) error {
	for d > 0 {
		step := d
		if step > chunk {
			step = chunk
		}
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ErrRequested
		case <-timer.C:
		}
		d -= step
	}
	return nil
}

// Requested reports whether ctx has already been cancelled, for the
// non-blocking check between poll-loop iterations.
func Requested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
