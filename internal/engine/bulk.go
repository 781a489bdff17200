package engine

import (
	"context"

	"github.com/juakali/scanflow/internal/model"
	"github.com/juakali/scanflow/internal/remote"
)

// BulkOutcome is the per-code result within a bulk scan.
type BulkOutcome struct {
	Code     string             `json:"code"`
	Status   OutcomeStatus      `json:"status"`
	NewState model.PackageState `json:"new_state,omitempty"`
	Token    string             `json:"token,omitempty"`
	Reason   string             `json:"reason,omitempty"`
}

// BulkResult is a bulk scan summary. The aggregate counts are always
// computed client-side from Outcomes, never copied from the server, so
// Total == Successful + Failed + Queued holds by construction and every
// submitted code appears exactly once.
type BulkResult struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Queued     int           `json:"queued"`
	Outcomes   []BulkOutcome `json:"outcomes"`
}

// add appends an outcome and maintains the aggregate counts.
func (r *BulkResult) add(o BulkOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Total++
	switch o.Status {
	case StatusApplied:
		r.Successful++
	case StatusQueued:
		r.Queued++
	default:
		r.Failed++
	}
}

// ProcessBulk applies one action type to many package codes.
//
// Online, the whole batch goes to the authority in a single call and the
// per-code results come back in one response; if the batch call itself hits
// a network failure, the batch degrades to the offline path. Offline, each
// code is executed individually through Execute, which queues it.
//
// Partial failure never aborts the batch: every code receives an outcome,
// and the caller decides whether to retry the failed subset.
func (e *Executor) ProcessBulk(ctx context.Context, rawCodes []string, action model.ActionType, op model.Operator, meta model.Metadata) BulkResult {
	var result BulkResult

	// Normalize and dedupe, preserving scan order. A label scanned twice in
	// one batch is one code; malformed codes fail locally without touching
	// the network.
	var codes []string
	seen := make(map[string]bool)
	for _, raw := range rawCodes {
		code := model.NormalizeCode(raw)
		if seen[code] {
			continue
		}
		seen[code] = true
		if err := model.ValidateCode(code); err != nil {
			result.add(BulkOutcome{Code: code, Status: StatusFailed, Reason: err.Error()})
			continue
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return result
	}

	if !e.signal.Online() {
		e.bulkOffline(ctx, &result, codes, action, op, meta)
		return result
	}

	items, err := e.authority.SubmitBulk(ctx, remote.BulkRequest{
		Codes:    codes,
		Action:   action,
		Operator: op,
		Metadata: meta,
	})
	switch {
	case err == nil:
		e.bulkReconcileResponse(ctx, &result, codes, items)
	case remote.IsNetworkError(err):
		e.log.Info("bulk submit hit network failure, queuing per code", "codes", len(codes))
		e.bulkOffline(ctx, &result, codes, action, op, meta)
	default:
		// The authority refused the batch as a whole; every code shares
		// the rejection.
		for _, code := range codes {
			result.add(BulkOutcome{Code: code, Status: StatusFailed, Reason: err.Error()})
		}
	}
	return result
}

// bulkReconcileResponse merges the authority's per-code results with the
// submitted code list. The server's list is treated as untrusted input:
// duplicates and unrequested codes are dropped, and a submitted code the
// server did not answer for becomes an explicit failure rather than a
// silent omission.
func (e *Executor) bulkReconcileResponse(ctx context.Context, result *BulkResult, codes []string, items []remote.BulkItemResult) {
	byCode := make(map[string]remote.BulkItemResult, len(items))
	requested := make(map[string]bool, len(codes))
	for _, code := range codes {
		requested[code] = true
	}
	for _, item := range items {
		code := model.NormalizeCode(item.Code)
		if !requested[code] {
			e.log.Warn("authority answered for a code not in the batch", "code", code)
			continue
		}
		if _, dup := byCode[code]; dup {
			continue
		}
		byCode[code] = item
	}

	for _, code := range codes {
		item, ok := byCode[code]
		if !ok {
			result.add(BulkOutcome{Code: code, Status: StatusFailed, Reason: "authority returned no result for code"})
			continue
		}
		if !item.Success {
			result.add(BulkOutcome{Code: code, Status: StatusFailed, Reason: item.Message})
			continue
		}
		e.refreshCachedState(ctx, code, item.NewState)
		result.add(BulkOutcome{Code: code, Status: StatusApplied, NewState: item.NewState})
	}
}

// bulkOffline queues each code individually via the executor.
func (e *Executor) bulkOffline(ctx context.Context, result *BulkResult, codes []string, action model.ActionType, op model.Operator, meta model.Metadata) {
	for _, code := range codes {
		out := e.Execute(ctx, code, action, op, meta)
		bo := BulkOutcome{Code: code, Status: out.Status, NewState: out.NewState, Token: out.Token}
		switch out.Status {
		case StatusRejected:
			bo.Reason = out.Reason
		case StatusFailed:
			bo.Reason = out.ErrorMessage()
		}
		result.add(bo)
	}
}

// refreshCachedState patches the cached snapshot's state after a confirmed
// bulk transition. Uncached codes are left alone; the next fetch fills them.
func (e *Executor) refreshCachedState(ctx context.Context, code string, newState model.PackageState) {
	if newState == "" {
		return
	}
	entry, found, err := e.cache.Get(ctx, code)
	if err != nil || !found {
		return
	}
	entry.Snapshot.State = newState
	if err := e.cache.Put(ctx, entry.Snapshot); err != nil {
		e.log.Warn("cache refresh after bulk apply failed", "code", code, "error", err)
	}
}
