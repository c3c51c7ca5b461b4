package interaction

import (
	"strings"

	"github.com/carelane/carelane/internal/domain/patient"
)

// CheckInteractions scans the patient's current medications against the
// proposed medication using the built-in rule table. Every (medication, rule)
// match emits its own warning; duplicates are deliberately not collapsed so
// the reviewer sees one line per offending medication. The result order
// follows the medication list, then the table order within one medication.
func CheckInteractions(current []patient.Medication, proposed string) []Warning {
	proposedName := strings.ToLower(strings.TrimSpace(proposed))
	if proposedName == "" || len(current) == 0 {
		return nil
	}
	var warnings []Warning
	for _, med := range current {
		name := strings.ToLower(med.Name)
		for _, rule := range defaultRules {
			if ruleFires(name, proposedName, rule) {
				warnings = append(warnings, Warning{
					Severity:    rule.Severity,
					Description: rule.Description,
					Source:      SourceDrugDB,
				})
			}
		}
	}
	return warnings
}

// ruleFires reports whether the rule's token pair straddles the current and
// proposed names, in either orientation.
func ruleFires(current, proposed string, r Rule) bool {
	if strings.Contains(current, r.DrugA) && strings.Contains(proposed, r.DrugB) {
		return true
	}
	return strings.Contains(current, r.DrugB) && strings.Contains(proposed, r.DrugA)
}
