// Package llmretry implements the one non-trivial shared primitive
// content-generation handlers use around external LLM calls: a bounded
// exponential backoff that doubles after each failure, caps at 300s,
// and gives up once the wall-clock budget is exhausted (spec §4.F).
//
// The backoff math itself is delegated to sethvargo/go-retry rather
// than hand-rolled, generalizing the teacher's own
// calculateRetryDelay — that function computed a jittered exponential
// delay inline because its call site (dead-letter retry scheduling)
// needed the delay as a value to persist, not just to sleep through;
// here the call site only ever needs to sleep-and-retry, which is
// exactly what go-retry's Do loop provides, and go-retry was already an
// indirect dependency of the teacher's module graph.
package llmretry

import (
	"context"
	"errors"
	"time"

	"github.com/arkady/edgarflow/internal/shutdown"
	"github.com/sethvargo/go-retry"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 300 * time.Second
)

// Fn is a retryable operation. Returning a plain error marks the
// attempt as retryable; wrap a non-retryable terminal error with
// retry.RetryableError(false-equivalent) is not needed here because
// every failure this helper is used for (LLM call failures) is
// considered transient until the timeout budget is exhausted.
type Fn func(ctx context.Context) error

// Do repeatedly invokes fn until it returns nil or the total elapsed
// time exceeds timeout, doubling the backoff (starting at 1s, capped at
// 300s) after each failure. If ctx carries a cancellation signal
// observed between attempts, Do returns shutdown.ErrRequested instead
// of continuing to retry, matching the source's ShutdownRequested
// propagation into the worker loop.
func Do(ctx context.Context, timeout time.Duration, fn Fn) error {
	backoff, err := retry.NewExponential(initialBackoff)
	if err != nil {
		return err
	}
	backoff = retry.WithCappedDuration(maxBackoff, backoff)
	backoff = retry.WithMaxDuration(timeout, backoff)

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if shutdown.Requested(ctx) {
			// Non-retryable: return as-is so Do aborts immediately
			// instead of continuing to back off.
			return shutdown.ErrRequested
		}
		if err := fn(ctx); err != nil {
			if errors.Is(err, shutdown.ErrRequested) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil && shutdown.Requested(ctx) {
		return shutdown.ErrRequested
	}
	return err
}
