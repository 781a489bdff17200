package engine

import (
	"context"
	"log/slog"

	"github.com/juakali/scanflow/internal/remote"
)

// SweepResult summarizes one reconciliation sweep over the pending queue.
type SweepResult struct {
	// Applied counts actions the authority acknowledged (including tokens
	// it had already processed - replaying those is a no-op by design).
	Applied int `json:"applied"`

	// Flagged counts actions the authority rejected on business grounds.
	// They stay queued, marked for operator review.
	Flagged int `json:"flagged"`

	// Skipped counts actions left untouched: already flagged for review, or
	// behind a flagged action for the same package code.
	Skipped int `json:"skipped"`

	// Aborted is true when a connectivity failure cut the sweep short.
	// Whatever remains is picked up on the next offline-to-online event.
	Aborted bool `json:"aborted"`
}

// Reconciler drains the pending action queue when connectivity returns.
//
// Replay order is FIFO per package code: a later action for a code (deliver)
// only makes sense after the earlier one (collect) succeeded, so a rejection
// blocks everything behind it for that code. Sweeps are idempotent - each
// replay carries the action's original token, and the authority
// short-circuits tokens it has already processed.
type Reconciler struct {
	exec *Executor
	log  *slog.Logger
}

// NewReconciler creates a Reconciler over the executor's remote-call path.
func NewReconciler(exec *Executor, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{exec: exec, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger overrides the reconciler's logger.
func WithReconcilerLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.log = log }
}

// Run performs one sweep over the pending queue.
//
// Per action: success removes it from the queue and refreshes the cache; an
// application-class rejection flags it for review and blocks later actions
// for the same code; a connectivity-class failure aborts the sweep (the
// in-flight call is left to fail naturally, nothing is force-cancelled).
//
// A sweep never returns an error for per-action outcomes - those are counted
// in the SweepResult. Only storage failures and context cancellation error.
func (r *Reconciler) Run(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	pending, err := r.exec.queue.List(ctx)
	if err != nil {
		return result, NewStorageError("reconcile: list pending", err)
	}
	if len(pending) == 0 {
		return result, nil
	}

	r.log.Info("reconciliation sweep starting", "pending", len(pending))

	// blocked marks codes whose earliest unresolved action was rejected or
	// flagged; everything behind it for that code depends on it succeeding.
	blocked := make(map[string]bool)

	for _, pa := range pending {
		if err := ctx.Err(); err != nil {
			result.Aborted = true
			return result, err
		}

		if pa.NeedsAttention || blocked[pa.Code] {
			blocked[pa.Code] = true
			result.Skipped++
			continue
		}

		if err := r.exec.queue.RecordAttempt(ctx, pa.Token); err != nil {
			return result, NewStorageError("reconcile: record attempt", err)
		}

		res, err := r.exec.submitPending(ctx, pa)
		switch {
		case err == nil:
			if err := r.exec.queue.Remove(ctx, pa.Token); err != nil {
				return result, NewStorageError("reconcile: remove applied", err)
			}
			result.Applied++
			if res.AlreadyApplied {
				r.log.Debug("token already processed by authority", "token", pa.Token, "code", pa.Code)
			}
		case remote.IsNetworkError(err):
			// Connectivity dropped mid-sweep; stop and wait for the next
			// offline-to-online transition.
			r.log.Info("reconciliation aborted by network failure", "code", pa.Code)
			result.Aborted = true
			return result, nil
		default:
			// Business rejection: it will not spontaneously succeed.
			r.log.Warn("queued action rejected by authority",
				"code", pa.Code, "action", pa.Action, "error", err)
			if err := r.exec.queue.FlagForReview(ctx, pa.Token); err != nil {
				return result, NewStorageError("reconcile: flag for review", err)
			}
			blocked[pa.Code] = true
			result.Flagged++
		}
	}

	r.log.Info("reconciliation sweep finished",
		"applied", result.Applied, "flagged", result.Flagged, "skipped", result.Skipped)
	return result, nil
}

// Watch runs sweeps on every offline-to-online transition until ctx ends.
// Sweep failures are logged, not fatal: the next transition tries again.
func (r *Reconciler) Watch(ctx context.Context, signal Signal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case online := <-signal.Events():
			if !online {
				continue
			}
			if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("reconciliation sweep failed", "error", err)
			}
		}
	}
}
