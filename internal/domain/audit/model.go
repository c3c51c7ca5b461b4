package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is the fixed set of workflow events recorded in the compliance log.
type Action string

const (
	ActionIntakeSubmitted   Action = "intake-submitted"
	ActionAnalysisGenerated Action = "analysis-generated"
	ActionPlanModified      Action = "plan-modified"
	ActionPlanApproved      Action = "plan-approved"
	ActionPlanRejected      Action = "plan-rejected"
)

// Entry is one compliance log record. The log is append-only: entries are
// never mutated, removed, or reordered, and insertion order is chronological.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	User      string    `json:"user"`
	Details   string    `json:"details"`
}
