package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/juakali/scanflow/internal/cache"
	"github.com/juakali/scanflow/internal/catalog"
	"github.com/juakali/scanflow/internal/model"
	"github.com/juakali/scanflow/internal/remote"
)

// Executor orchestrates a single scan action from code to Outcome.
//
// The shape of every execution is the same fallback machine:
//
//	resolve snapshot -> validate locally -> attempt remote -> classify
//
// with exactly four exits: Applied (authority confirmed), Queued (network
// failed, action persisted for reconciliation), Rejected (local precondition
// failed, no network call made), Failed (business rejection or hard local
// failure, no automatic retry).
//
// The retryable/final split is the executor's central property: network
// errors queue, application errors never do - retrying a rejected business
// rule cannot succeed.
type Executor struct {
	authority remote.Authority
	cache     *cache.Cache
	queue     *Queue
	signal    Signal
	tokens    TokenGenerator
	log       *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTokenGenerator overrides the idempotency token source (for testing).
func WithTokenGenerator(g TokenGenerator) ExecutorOption {
	return func(e *Executor) { e.tokens = g }
}

// WithLogger overrides the executor's logger.
func WithLogger(log *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.log = log }
}

// NewExecutor creates an Executor over its collaborators.
func NewExecutor(authority remote.Authority, c *cache.Cache, q *Queue, signal Signal, opts ...ExecutorOption) *Executor {
	e := &Executor{
		authority: authority,
		cache:     c,
		queue:     q,
		signal:    signal,
		tokens:    UUIDv7Generator{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one scan action and reports its Outcome.
//
// Algorithm:
//  1. Resolve the current snapshot: live fetch when online (refreshing the
//     cache), cached data when not. Offline with no cached snapshot is a
//     hard NO_CACHED_DATA failure - there is nothing to resolve against.
//  2. Validate the action against the resolved action set for the snapshot's
//     (state, role, delivery type). Illegal actions are Rejected before any
//     network traffic.
//  3. Submit to the authority with a fresh idempotency token. Success
//     updates the cache with the returned state and yields Applied.
//  4. A connectivity-class failure enqueues the action and yields Queued.
//  5. An application-class failure yields Failed with the server's message,
//     and is never enqueued.
func (e *Executor) Execute(ctx context.Context, rawCode string, action model.ActionType, op model.Operator, meta model.Metadata) Outcome {
	code := model.NormalizeCode(rawCode)
	if err := model.ValidateCode(code); err != nil {
		return failed(code, action, err)
	}

	snap, fromCache, out, ok := e.resolveSnapshot(ctx, code, action)
	if !ok {
		return out
	}

	if !catalog.Allowed(snap.State, op.Role, snap.DeliveryType, action) {
		reason := NewIllegalTransitionError(code, snap.State, op.Role, action)
		return rejected(code, action, reason.Message)
	}

	if fromCache {
		// Offline path: queue-and-return, never block waiting for a link.
		return e.enqueue(ctx, code, action, op, meta, true)
	}

	res, err := e.authority.SubmitAction(ctx, remote.ActionRequest{
		Code:     code,
		Action:   action,
		Operator: op,
		Metadata: meta,
		Token:    e.tokens.Generate(),
	})
	switch {
	case err == nil:
		snap.State = res.NewState
		if cacheErr := e.cache.Put(ctx, snap); cacheErr != nil {
			e.log.Warn("cache refresh after apply failed", "code", code, "error", cacheErr)
		}
		return applied(code, action, res.NewState)
	case remote.IsNetworkError(err):
		e.log.Info("submit hit network failure, queuing", "code", code, "action", action)
		return e.enqueue(ctx, code, action, op, meta, false)
	default:
		// Application rejection or anything equally final.
		return failed(code, action, err)
	}
}

// resolveSnapshot fetches or reads the package snapshot for a scan.
// ok=false means resolution already produced a terminal Outcome.
func (e *Executor) resolveSnapshot(ctx context.Context, code string, action model.ActionType) (snap model.Snapshot, fromCache bool, out Outcome, ok bool) {
	if e.signal.Online() {
		fetched, err := e.authority.FetchPackage(ctx, code)
		switch {
		case err == nil:
			if cacheErr := e.cache.Put(ctx, fetched); cacheErr != nil {
				e.log.Warn("cache refresh after fetch failed", "code", code, "error", cacheErr)
			}
			return fetched, false, Outcome{}, true
		case errors.Is(err, remote.ErrNotFound):
			return model.Snapshot{}, false, failed(code, action, NewPackageNotFoundError(code)), false
		case remote.IsNetworkError(err):
			// The link is worse than the signal believes; fall back to cache.
			e.log.Info("fetch hit network failure, using cached snapshot", "code", code)
		default:
			return model.Snapshot{}, false, failed(code, action, err), false
		}
	}

	entry, found, err := e.cache.Get(ctx, code)
	if err != nil {
		return model.Snapshot{}, false, failed(code, action, NewStorageError("read cached snapshot", err)), false
	}
	if !found {
		return model.Snapshot{}, false, failed(code, action, NewNoCachedDataError(code)), false
	}
	return entry.Snapshot, true, Outcome{}, true
}

// enqueue persists the action for later reconciliation and reports Queued.
func (e *Executor) enqueue(ctx context.Context, code string, action model.ActionType, op model.Operator, meta model.Metadata, fromCache bool) Outcome {
	pa, coalesced, err := e.queue.Enqueue(ctx, e.tokens.Generate(), code, action, op, meta)
	if err != nil {
		return failed(code, action, err)
	}
	if coalesced {
		e.log.Debug("duplicate scan coalesced", "code", code, "token", pa.Token)
	}
	return queued(code, action, pa.Token, fromCache)
}

// ResolveActions returns the legal actions for a package as seen by a role,
// together with the snapshot entry they were derived from. Resolution uses
// the same snapshot source as Execute: live fetch when online, cache when
// not, NO_CACHED_DATA when neither exists.
func (e *Executor) ResolveActions(ctx context.Context, rawCode string, role model.Role) ([]catalog.ActionDescriptor, cache.Entry, error) {
	code := model.NormalizeCode(rawCode)
	if err := model.ValidateCode(code); err != nil {
		return nil, cache.Entry{}, err
	}

	if e.signal.Online() {
		snap, err := e.authority.FetchPackage(ctx, code)
		switch {
		case err == nil:
			if cacheErr := e.cache.Put(ctx, snap); cacheErr != nil {
				e.log.Warn("cache refresh after fetch failed", "code", code, "error", cacheErr)
			}
			entry := cache.Entry{Snapshot: snap}
			return catalog.Resolve(snap.State, role, snap.DeliveryType), entry, nil
		case errors.Is(err, remote.ErrNotFound):
			return nil, cache.Entry{}, NewPackageNotFoundError(code)
		case remote.IsNetworkError(err):
			// Fall through to the cache.
		default:
			return nil, cache.Entry{}, err
		}
	}

	entry, found, err := e.cache.Get(ctx, code)
	if err != nil {
		return nil, cache.Entry{}, NewStorageError("read cached snapshot", err)
	}
	if !found {
		return nil, cache.Entry{}, NewNoCachedDataError(code)
	}
	entry.Stale = true // cached data serving an offline read is stale by definition
	return catalog.Resolve(entry.Snapshot.State, role, entry.Snapshot.DeliveryType), entry, nil
}

// submitPending replays one queued action against the authority using its
// original idempotency token, refreshing the cache on success. Shared by the
// reconciler so replays and live scans go through the same remote call.
func (e *Executor) submitPending(ctx context.Context, pa model.PendingAction) (remote.ActionResult, error) {
	res, err := e.authority.SubmitAction(ctx, remote.ActionRequest{
		Code:     pa.Code,
		Action:   pa.Action,
		Operator: pa.Operator,
		Metadata: pa.Metadata,
		Token:    pa.Token,
	})
	if err != nil {
		return remote.ActionResult{}, err
	}

	entry, found, cacheErr := e.cache.Get(ctx, pa.Code)
	if cacheErr == nil && found {
		entry.Snapshot.State = res.NewState
		cacheErr = e.cache.Put(ctx, entry.Snapshot)
	}
	if cacheErr != nil {
		e.log.Warn("cache refresh after replay failed", "code", pa.Code, "error", cacheErr)
	}
	return res, nil
}
