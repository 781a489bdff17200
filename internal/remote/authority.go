// Package remote defines the narrow contract with the package/scan authority
// and its HTTP implementation. The server is always the single source of
// truth: the engine only reads snapshots from it and submits actions to it,
// classifying every failure as retryable (network) or final (application).
package remote

import (
	"context"

	"github.com/juakali/scanflow/internal/model"
)

// ActionRequest is one scan action submitted to the authority.
// Token is the client-generated idempotency token: the authority applies a
// token at most once and answers the original result on re-submission.
type ActionRequest struct {
	Code     string           `json:"code"`
	Action   model.ActionType `json:"action"`
	Operator model.Operator   `json:"operator"`
	Metadata model.Metadata   `json:"metadata"`
	Token    string           `json:"token"`
}

// ActionResult is the authority's answer to a confirmed action.
// AlreadyApplied is true when the token had been processed before; the
// transition did not happen a second time.
type ActionResult struct {
	NewState       model.PackageState `json:"new_state"`
	AlreadyApplied bool               `json:"already_applied"`
}

// BulkRequest applies one action type to many package codes in one call.
type BulkRequest struct {
	Codes    []string         `json:"codes"`
	Action   model.ActionType `json:"action"`
	Operator model.Operator   `json:"operator"`
	Metadata model.Metadata   `json:"metadata"`
}

// BulkItemResult is the authority's per-code outcome within a bulk response.
type BulkItemResult struct {
	Code     string             `json:"code"`
	Success  bool               `json:"success"`
	Message  string             `json:"message,omitempty"`
	NewState model.PackageState `json:"new_state,omitempty"`
}

// Authority is the package/scan API as the engine sees it.
//
// Error contract:
//   - *NetworkError for connectivity-class failures (retryable)
//   - *ApplicationError for business-rule rejections (final)
//   - ErrNotFound from FetchPackage for unknown codes
type Authority interface {
	FetchPackage(ctx context.Context, code string) (model.Snapshot, error)
	SubmitAction(ctx context.Context, req ActionRequest) (ActionResult, error)
	SubmitBulk(ctx context.Context, req BulkRequest) ([]BulkItemResult, error)
}
