package model

import "time"

// CartSnapshot is a point-in-time read of the remote cart. It is only valid
// for one reconciliation step; callers must re-fetch after every mutation.
type CartSnapshot struct {
	TotalAmount float64  `json:"total_amount"`
	Titles      []string `json:"titles,omitempty"`
	// Partial marks a snapshot whose total could be read but whose titles
	// could not be enumerated. Containment checks must treat it as empty so
	// that additions are never blocked on guesswork.
	Partial bool `json:"partial,omitempty"`
	TakenAt time.Time `json:"taken_at"`
}

// ApplyOutcome classifies the result of one apply-item operation.
type ApplyOutcome string

const (
	ApplyFullSuccess    ApplyOutcome = "full_success"
	ApplyPartialSuccess ApplyOutcome = "partial_success"
	ApplyFailure        ApplyOutcome = "failure"
)

// FailedItem records a desired item that could not be applied, with a reason.
type FailedItem struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// ReconciliationResult summarizes a full reconcile invocation. It is owned by
// the calling workflow; the engine keeps no reference after returning it.
type ReconciliationResult struct {
	AddedCount   int          `json:"added_count"`
	SkippedCount int          `json:"skipped_count"`
	FailedItems  []FailedItem `json:"failed_items,omitempty"`
	FinalTotal   float64      `json:"final_total"`
	TargetMet    bool         `json:"target_met"`
	Attempts     int          `json:"attempts"`
}

// RunStatus tracks the lifecycle of a persisted reconciliation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is a persisted record of one reconciliation invocation.
type Run struct {
	ID          string                `json:"id"`
	Requirement string                `json:"requirement"`
	Target      float64               `json:"target"`
	Status      RunStatus             `json:"status"`
	Result      *ReconciliationResult `json:"result,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}
