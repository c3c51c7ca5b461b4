package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelane/carelane/internal/domain/analysis"
)

// Append extends the log with a fresh entry carrying a new id and the
// current UTC time, and returns the extended log.
func Append(log []Entry, action Action, user, details string) []Entry {
	return append(log, Entry{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		User:      user,
		Details:   details,
	})
}

// PlanDecision compares the plan the clinician finalized against the
// model-proposed primary plan, field by field over medication, dosage, and
// duration. Any difference yields plan-modified with one clause per changed
// field; an identical plan yields plan-approved.
func PlanDecision(original, final analysis.TreatmentRecommendation) (Action, string) {
	var changes []string
	if original.Medication != final.Medication {
		changes = append(changes, fieldChange("medication", original.Medication, final.Medication))
	}
	if original.Dosage != final.Dosage {
		changes = append(changes, fieldChange("dosage", original.Dosage, final.Dosage))
	}
	if original.Duration != final.Duration {
		changes = append(changes, fieldChange("duration", original.Duration, final.Duration))
	}
	if len(changes) == 0 {
		return ActionPlanApproved, "Treatment plan approved without changes"
	}
	return ActionPlanModified, strings.Join(changes, "; ")
}

func fieldChange(field, from, to string) string {
	return fmt.Sprintf("%s changed from %q to %q", field, from, to)
}
