// Package testutil provides deterministic collaborators for engine tests:
// a scripted remote authority, a hand-driven connectivity signal, and store
// helpers over temp directories.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/juakali/scanflow/internal/catalog"
	"github.com/juakali/scanflow/internal/model"
	"github.com/juakali/scanflow/internal/remote"
)

// FakeAuthority is an in-memory remote.Authority with scriptable failures.
//
// It applies the same transition graph as the catalog (ignoring role
// restrictions - the server has its own authorization) and honors
// idempotency tokens: re-submitting a processed token returns the original
// result with AlreadyApplied set and does not transition twice.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeAuthority struct {
	mu sync.Mutex

	// Snapshots is the authority's package table, keyed by code.
	Snapshots map[string]model.Snapshot

	// FetchFailures and SubmitFailures force the next calls for a code to
	// fail with the given error. nil entries mean "behave normally".
	FetchFailures  map[string]error
	SubmitFailures map[string]error

	// BulkFailure forces SubmitBulk to fail as a whole.
	BulkFailure error

	// BulkOmit lists codes the bulk response silently drops, simulating a
	// buggy or truncating server.
	BulkOmit map[string]bool

	// SubmitCalls records every SubmitAction request, in order.
	SubmitCalls []remote.ActionRequest

	// Transitions counts confirmed state transitions per code. Idempotent
	// re-submissions do not increment it.
	Transitions map[string]int

	processed map[string]remote.ActionResult
}

// NewFakeAuthority creates an empty authority.
func NewFakeAuthority() *FakeAuthority {
	return &FakeAuthority{
		Snapshots:      make(map[string]model.Snapshot),
		FetchFailures:  make(map[string]error),
		SubmitFailures: make(map[string]error),
		BulkOmit:       make(map[string]bool),
		Transitions:    make(map[string]int),
		processed:      make(map[string]remote.ActionResult),
	}
}

// Seed inserts a package into the authority's table.
func (a *FakeAuthority) Seed(snap model.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Snapshots[snap.Code] = snap
}

// State returns the authority's current state for a code.
func (a *FakeAuthority) State(code string) (model.PackageState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap, ok := a.Snapshots[code]
	return snap.State, ok
}

// FetchPackage implements remote.Authority.
func (a *FakeAuthority) FetchPackage(ctx context.Context, code string) (model.Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.FetchFailures[code]; err != nil {
		return model.Snapshot{}, err
	}
	snap, ok := a.Snapshots[code]
	if !ok {
		return model.Snapshot{}, fmt.Errorf("fetch package: %w", remote.ErrNotFound)
	}
	return snap, nil
}

// SubmitAction implements remote.Authority.
func (a *FakeAuthority) SubmitAction(ctx context.Context, req remote.ActionRequest) (remote.ActionResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.SubmitCalls = append(a.SubmitCalls, req)

	if err := a.SubmitFailures[req.Code]; err != nil {
		return remote.ActionResult{}, err
	}

	// Idempotency: a processed token answers its original result.
	if res, done := a.processed[req.Token]; done {
		res.AlreadyApplied = true
		return res, nil
	}

	res, err := a.applyLocked(req.Code, req.Action)
	if err != nil {
		return remote.ActionResult{}, err
	}
	a.processed[req.Token] = res
	return res, nil
}

// SubmitBulk implements remote.Authority.
func (a *FakeAuthority) SubmitBulk(ctx context.Context, req remote.BulkRequest) ([]remote.BulkItemResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.BulkFailure != nil {
		return nil, a.BulkFailure
	}

	var items []remote.BulkItemResult
	for _, code := range req.Codes {
		if a.BulkOmit[code] {
			continue
		}
		res, err := a.applyLocked(code, req.Action)
		if err != nil {
			items = append(items, remote.BulkItemResult{Code: code, Success: false, Message: err.Error()})
			continue
		}
		items = append(items, remote.BulkItemResult{Code: code, Success: true, NewState: res.NewState})
	}
	return items, nil
}

// applyLocked validates the transition against the lifecycle graph and
// applies it. Side-effect-only actions succeed without changing state.
func (a *FakeAuthority) applyLocked(code string, action model.ActionType) (remote.ActionResult, error) {
	snap, ok := a.Snapshots[code]
	if !ok {
		return remote.ActionResult{}, &remote.ApplicationError{
			Op: "submit action", Status: 422, Message: fmt.Sprintf("unknown package %s", code),
		}
	}

	target, ok := catalog.Target(snap.State, action)
	if !ok {
		return remote.ActionResult{}, &remote.ApplicationError{
			Op: "submit action", Status: 409,
			Message: fmt.Sprintf("package %s is %s, cannot %s", code, snap.State, action),
		}
	}

	if target != snap.State {
		snap.State = target
		a.Snapshots[code] = snap
		a.Transitions[code]++
	}
	return remote.ActionResult{NewState: target}, nil
}

// NetworkFailure builds a connectivity-class error for scripted failures.
func NetworkFailure(op string) error {
	return &remote.NetworkError{Op: op, Err: fmt.Errorf("connection refused")}
}
