package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juakali/scanflow/internal/model"
	"github.com/juakali/scanflow/internal/store"
)

// DefaultQueueLimit bounds the pending queue. A device that has been offline
// long enough to queue this many scans needs operator attention, not more
// queue: new actions are rejected rather than old ones evicted, because an
// evicted action would be a silently dropped scan.
const DefaultQueueLimit = 500

// Queue is the pending action queue: the only place a scan action can wait.
//
// Durability comes from the store; ordering comes from the logical clock.
// All mutations are serialized through one mutex so an in-flight bulk scan
// and a reconciliation sweep never race on the same storage. Reads go
// straight to the store.
type Queue struct {
	mu    sync.Mutex
	store *store.Store
	clock *Clock
	limit int
	now   func() time.Time
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithQueueLimit overrides the pending action bound.
func WithQueueLimit(n int) QueueOption {
	return func(q *Queue) { q.limit = n }
}

// WithQueueNowFunc overrides the time source. Used for testing.
func WithQueueNowFunc(now func() time.Time) QueueOption {
	return func(q *Queue) { q.now = now }
}

// NewQueue creates a Queue over the store, resuming the logical clock past
// the highest seq already persisted so restarts never reuse a seq.
func NewQueue(ctx context.Context, st *store.Store, opts ...QueueOption) (*Queue, error) {
	maxSeq, err := st.MaxPendingSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("new queue: %w", err)
	}

	q := &Queue{
		store: st,
		clock: NewClockAt(maxSeq),
		limit: DefaultQueueLimit,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue persists a scan action to wait for reconciliation and returns it.
//
// token is the caller-generated idempotency token for the action. When the
// newest pending action for the same code has the same scan fingerprint (an
// offline double-tap), no new row is written and the existing action is
// returned with coalesced=true - the operator pressed twice, but only one
// scan happened.
//
// Returns a QUEUE_FULL ScanError when the queue is at its bound.
func (q *Queue) Enqueue(ctx context.Context, token, code string, action model.ActionType, op model.Operator, meta model.Metadata) (pa model.PendingAction, coalesced bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n, err := q.store.CountPending(ctx)
	if err != nil {
		return model.PendingAction{}, false, NewStorageError("enqueue: count pending", err)
	}
	if n >= q.limit {
		return model.PendingAction{}, false, NewQueueFullError(code, q.limit)
	}

	fingerprint, err := model.ScanFingerprint(code, action, op)
	if err != nil {
		return model.PendingAction{}, false, fmt.Errorf("enqueue: %w", err)
	}

	latest, latestFP, ok, err := q.store.LatestPendingForCode(ctx, code)
	if err != nil {
		return model.PendingAction{}, false, NewStorageError("enqueue: latest for code", err)
	}
	if ok && latestFP == fingerprint {
		return latest, true, nil
	}

	pa = model.PendingAction{
		Token:    token,
		Code:     code,
		Action:   action,
		Operator: op,
		Metadata: meta,
		Seq:      q.clock.Next(),
		QueuedAt: q.now().UTC(),
	}
	inserted, err := q.store.InsertPending(ctx, pa, fingerprint)
	if err != nil {
		return model.PendingAction{}, false, NewStorageError("enqueue: insert", err)
	}
	if !inserted {
		// Token already persisted by an earlier attempt; that row wins.
		return pa, true, nil
	}
	return pa, false, nil
}

// Peek returns the oldest pending action without removing it.
func (q *Queue) Peek(ctx context.Context) (model.PendingAction, bool, error) {
	return q.store.PeekPending(ctx)
}

// Remove deletes a pending action by token. Called after the authority has
// acknowledged the action, or on explicit operator discard.
func (q *Queue) Remove(ctx context.Context, token string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.RemovePending(ctx, token)
}

// List returns every pending action in enqueue order.
func (q *Queue) List(ctx context.Context) ([]model.PendingAction, error) {
	return q.store.ListPending(ctx)
}

// ListByCode returns the pending actions for one package code in enqueue order.
func (q *Queue) ListByCode(ctx context.Context, code string) ([]model.PendingAction, error) {
	return q.store.ListPendingByCode(ctx, code)
}

// Len returns the number of queued actions.
func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.store.CountPending(ctx)
}

// RecordAttempt bumps an action's replay attempt counter.
func (q *Queue) RecordAttempt(ctx context.Context, token string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.IncrementAttempts(ctx, token)
}

// FlagForReview marks an action as needing operator attention. Flagged
// actions stay queued but are not replayed again automatically.
func (q *Queue) FlagForReview(ctx context.Context, token string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.MarkNeedsAttention(ctx, token)
}
