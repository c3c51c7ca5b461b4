package analysis

import (
	"github.com/carelane/carelane/internal/domain/interaction"
)

// escalationScoreFloor is the minimum risk score once a High-severity
// deterministic warning is present.
const escalationScoreFloor = 90

// MergeAndEscalate folds deterministic checker findings into the
// model-produced analysis. Checker warnings are prepended so they appear
// before the model's own warnings, and any High-severity checker finding
// forces the risk level to High with the score raised to at least the
// escalation floor. The score is never lowered. The input value is left
// untouched; the merged warning list is a fresh slice.
func MergeAndEscalate(a ClinicalAnalysis, dbWarnings []interaction.Warning) ClinicalAnalysis {
	if len(dbWarnings) == 0 {
		return a
	}

	merged := make([]interaction.Warning, 0, len(dbWarnings)+len(a.Warnings))
	merged = append(merged, dbWarnings...)
	merged = append(merged, a.Warnings...)
	a.Warnings = merged

	for _, w := range dbWarnings {
		if w.Severity == interaction.SeverityHigh {
			a.RiskLevel = RiskHigh
			if a.RiskScore < escalationScoreFloor {
				a.RiskScore = escalationScoreFloor
			}
			break
		}
	}
	return a
}
