package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carelane/carelane/internal/domain/analysis"
	"github.com/carelane/carelane/internal/domain/audit"
	"github.com/carelane/carelane/internal/domain/patient"
)

// State names the workflow step a session is in.
type State string

const (
	StateIntake  State = "intake"
	StateReview  State = "review"
	StateSummary State = "summary"
)

// Session is one intake-to-summary workflow. Everything it accumulates lives
// in memory for the lifetime of the session; nothing is persisted, and no
// state is shared across sessions. The mutex serializes transitions so two
// requests against the same session cannot interleave.
type Session struct {
	mu *sync.Mutex

	ID        uuid.UUID                         `json:"id"`
	State     State                             `json:"state"`
	Patient   *patient.Record                   `json:"patient,omitempty"`
	Analysis  *analysis.ClinicalAnalysis        `json:"analysis,omitempty"`
	FinalPlan *analysis.TreatmentRecommendation `json:"final_plan,omitempty"`
	AuditLog  []audit.Entry                     `json:"audit_log"`
	CreatedAt time.Time                         `json:"created_at"`
	UpdatedAt time.Time                         `json:"updated_at"`
}

// reset discards all accumulated state and returns the session to intake.
func (s *Session) reset() {
	s.State = StateIntake
	s.Patient = nil
	s.Analysis = nil
	s.FinalPlan = nil
	s.AuditLog = nil
}

// ExportDocument is the compliance record offered for download once a
// session reaches summary: the intake record, the plan the clinician
// finalized, and the audit log verbatim.
type ExportDocument struct {
	PatientRecord      *patient.Record                   `json:"patient_record"`
	FinalTreatmentPlan *analysis.TreatmentRecommendation `json:"final_treatment_plan"`
	AuditLog           []audit.Entry                     `json:"audit_log"`
}
