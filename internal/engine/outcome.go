package engine

import "github.com/juakali/scanflow/internal/model"

// OutcomeStatus is the terminal disposition of a scan attempt.
// Every scan ends in exactly one of these; nothing is silently dropped.
type OutcomeStatus string

const (
	// StatusApplied means the authority confirmed the transition.
	StatusApplied OutcomeStatus = "applied"

	// StatusQueued means connectivity failed and the action waits in the
	// pending queue for reconciliation.
	StatusQueued OutcomeStatus = "queued"

	// StatusRejected means the local precondition failed: the action is not
	// legal for the package's current state. No network call was made.
	StatusRejected OutcomeStatus = "rejected"

	// StatusFailed means the scan cannot proceed and will not be retried
	// automatically: a business rejection, a missing package, an offline
	// cache miss, or a storage failure.
	StatusFailed OutcomeStatus = "failed"
)

// Outcome is the uniform result the executor reports to its caller.
// The caller (UI layer) owns all follow-on side effects; the engine only
// says what happened.
type Outcome struct {
	Status OutcomeStatus    `json:"status"`
	Code   string           `json:"code"`
	Action model.ActionType `json:"action"`

	// NewState is set when Status == StatusApplied.
	NewState model.PackageState `json:"new_state,omitempty"`

	// Token is the idempotency token of the queued action when
	// Status == StatusQueued.
	Token string `json:"token,omitempty"`

	// Reason explains a StatusRejected outcome.
	Reason string `json:"reason,omitempty"`

	// Err carries the failure when Status == StatusFailed.
	Err error `json:"-"`

	// FromCache is true when the scan was resolved against offline cached
	// data rather than a live fetch. Callers must present such results as
	// possibly stale, never as live.
	FromCache bool `json:"from_cache,omitempty"`
}

// ErrorMessage returns the failure text for display, or "" when none.
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

func applied(code string, action model.ActionType, newState model.PackageState) Outcome {
	return Outcome{Status: StatusApplied, Code: code, Action: action, NewState: newState}
}

func queued(code string, action model.ActionType, token string, fromCache bool) Outcome {
	return Outcome{Status: StatusQueued, Code: code, Action: action, Token: token, FromCache: fromCache}
}

func rejected(code string, action model.ActionType, reason string) Outcome {
	return Outcome{Status: StatusRejected, Code: code, Action: action, Reason: reason}
}

func failed(code string, action model.ActionType, err error) Outcome {
	return Outcome{Status: StatusFailed, Code: code, Action: action, Err: err}
}
