package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/carelane/carelane/internal/domain/analysis"
	"github.com/carelane/carelane/internal/domain/interaction"
	"github.com/carelane/carelane/internal/domain/patient"
)

// RuleAdvisor is the built-in deterministic advisor used when no model
// provider is configured. It drafts a schema-valid analysis from intake
// heuristics alone, which keeps local development and demos fully offline.
// It never fails.
type RuleAdvisor struct{}

func NewRuleAdvisor() *RuleAdvisor { return &RuleAdvisor{} }

func (a *RuleAdvisor) Provider() string { return "builtin" }

func (a *RuleAdvisor) Analyze(_ context.Context, rec patient.Record) (*analysis.ClinicalAnalysis, error) {
	score := riskScore(rec)
	level := classifyRisk(score)

	out := &analysis.ClinicalAnalysis{
		RiskLevel: level,
		RiskScore: score,
		Summary: fmt.Sprintf(
			"Heuristic screening of the intake produced a %s risk profile (score %d) from vitals, history, and lifestyle factors. Primary complaint: %s.",
			strings.ToLower(string(level)), score, rec.PrimaryComplaint,
		),
		Warnings:                 intakeWarnings(rec),
		Contraindications:        contraindications(rec),
		LifestyleRecommendations: lifestyleAdvice(rec),
	}
	out.TreatmentPlan, out.Alternatives = draftPlan(rec)
	return out, nil
}

func (a *RuleAdvisor) Chat(_ context.Context, ex Exchange) (string, error) {
	return fmt.Sprintf(
		"Offline advisor response. The current analysis classifies this patient as %s risk (score %d) with %d warning(s) on file. Regarding %q: no model provider is configured, so please consult the analysis summary and warnings directly, or enable a provider for free-form answers.",
		ex.Analysis.RiskLevel, ex.Analysis.RiskScore, len(ex.Analysis.Warnings), ex.Question,
	), nil
}

func (a *RuleAdvisor) Handout(_ context.Context, ex Exchange) (string, error) {
	var b strings.Builder
	b.WriteString("# Your Visit Summary\n\n")
	b.WriteString("## What we found\n")
	b.WriteString(ex.Analysis.Summary + "\n\n")
	b.WriteString("## Your treatment\n")
	plan := ex.Analysis.TreatmentPlan
	fmt.Fprintf(&b, "- Medication: %s\n- Dose: %s\n- For: %s\n\n", plan.Medication, plan.Dosage, plan.Duration)
	if len(ex.Analysis.LifestyleRecommendations) > 0 {
		b.WriteString("## Taking care of yourself\n")
		for _, r := range ex.Analysis.LifestyleRecommendations {
			b.WriteString("- " + r + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("## When to seek help\n")
	b.WriteString("Contact your clinician if symptoms worsen, if you notice new side effects, or before starting any new medication.\n")
	return b.String(), nil
}

// ── Heuristics ──

func riskScore(rec patient.Record) int {
	score := 10
	switch {
	case rec.Age >= 65:
		score += 15
	case rec.Age >= 50:
		score += 10
	}
	switch {
	case rec.BMI >= 35:
		score += 15
	case rec.BMI >= 30:
		score += 10
	}
	if isSmoker(rec.SmokingStatus) {
		score += 15
	}
	if strings.Contains(strings.ToLower(rec.AlcoholUse), "heavy") {
		score += 10
	}
	systolic := parseSystolic(rec.Vitals.BloodPressure)
	switch {
	case systolic >= 160:
		score += 20
	case systolic >= 140:
		score += 10
	}
	if rec.Vitals.HeartRate > 100 {
		score += 10
	}
	for _, cond := range rec.Conditions {
		c := strings.ToLower(cond)
		switch {
		case strings.Contains(c, "heart") || strings.Contains(c, "coronary") || strings.Contains(c, "cardiovascular"):
			score += 20
		case strings.Contains(c, "kidney") || strings.Contains(c, "renal"):
			score += 15
		case strings.Contains(c, "diabetes"):
			score += 10
		case strings.Contains(c, "hypertension"):
			score += 10
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

func classifyRisk(score int) analysis.RiskLevel {
	switch {
	case score >= 70:
		return analysis.RiskHigh
	case score >= 40:
		return analysis.RiskMedium
	default:
		return analysis.RiskLow
	}
}

func intakeWarnings(rec patient.Record) []interaction.Warning {
	var warnings []interaction.Warning
	if systolic := parseSystolic(rec.Vitals.BloodPressure); systolic >= 160 {
		warnings = append(warnings, interaction.Warning{
			Severity:    interaction.SeverityModerate,
			Description: "Blood pressure was markedly elevated at intake; re-measure before initiating new therapy.",
			Source:      interaction.SourceAIModel,
		})
	}
	if isSmoker(rec.SmokingStatus) && hasComplaint(rec, "erectile") {
		warnings = append(warnings, interaction.Warning{
			Severity:    interaction.SeverityLow,
			Description: "Smoking contributes to vascular erectile dysfunction and reduces treatment response.",
			Source:      interaction.SourceAIModel,
		})
	}
	return warnings
}

func contraindications(rec patient.Record) []string {
	var out []string
	if hasComplaint(rec, "erectile") && takesAny(rec, "nitroglycerin", "isosorbide", "nitrate") {
		out = append(out, "Concurrent nitrate therapy: PDE5 inhibitors require cardiology review before use.")
	}
	for _, allergy := range rec.Allergies {
		a := strings.ToLower(allergy)
		if strings.Contains(a, "penicillin") {
			out = append(out, "Documented penicillin allergy: avoid beta-lactam antibiotics.")
		}
		if strings.Contains(a, "aspirin") || strings.Contains(a, "nsaid") {
			out = append(out, "Documented NSAID sensitivity: avoid aspirin and ibuprofen.")
		}
	}
	return out
}

func draftPlan(rec patient.Record) (analysis.TreatmentRecommendation, []analysis.TreatmentRecommendation) {
	switch {
	case hasComplaint(rec, "erectile", "impotence"):
		return analysis.TreatmentRecommendation{
				Medication:      "Sildenafil",
				Dosage:          "50mg as needed",
				Duration:        "90 days",
				Rationale:       "First-line PDE5 inhibitor for erectile dysfunction in the absence of contraindications.",
				ConfidenceScore: 75,
			}, []analysis.TreatmentRecommendation{
				{
					Medication:      "Tadalafil",
					Dosage:          "10mg as needed",
					Duration:        "90 days",
					Rationale:       "Longer half-life alternative when spontaneity is a priority.",
					ConfidenceScore: 70,
				},
			}
	case hasComplaint(rec, "allerg", "rhinitis", "hay fever"):
		return analysis.TreatmentRecommendation{
				Medication:      "Loratadine",
				Dosage:          "10mg daily",
				Duration:        "14 days",
				Rationale:       "Non-sedating antihistamine for allergic symptoms.",
				ConfidenceScore: 85,
			}, []analysis.TreatmentRecommendation{
				{
					Medication:      "Cetirizine",
					Dosage:          "10mg daily",
					Duration:        "14 days",
					Rationale:       "Alternative second-generation antihistamine.",
					ConfidenceScore: 80,
				},
			}
	case hasComplaint(rec, "hypertension", "blood pressure"):
		return analysis.TreatmentRecommendation{
				Medication:      "Lisinopril",
				Dosage:          "10mg daily",
				Duration:        "30 days, then review",
				Rationale:       "ACE inhibitor as initial therapy for uncomplicated hypertension.",
				ConfidenceScore: 80,
			}, []analysis.TreatmentRecommendation{
				{
					Medication:      "Amlodipine",
					Dosage:          "5mg daily",
					Duration:        "30 days, then review",
					Rationale:       "Calcium channel blocker alternative if ACE inhibitors are not tolerated.",
					ConfidenceScore: 75,
				},
			}
	case hasComplaint(rec, "insomnia", "sleep"):
		return analysis.TreatmentRecommendation{
			Medication:      "Melatonin",
			Dosage:          "3mg at bedtime",
			Duration:        "30 days",
			Rationale:       "Low-risk first step alongside sleep hygiene measures.",
			ConfidenceScore: 70,
		}, nil
	default:
		return analysis.TreatmentRecommendation{
			Medication:      "Acetaminophen",
			Dosage:          "500mg as needed",
			Duration:        "7 days",
			Rationale:       "Symptomatic relief pending clinician evaluation of the primary complaint.",
			ConfidenceScore: 60,
		}, nil
	}
}

func lifestyleAdvice(rec patient.Record) []string {
	var out []string
	if isSmoker(rec.SmokingStatus) {
		out = append(out, "Begin a smoking cessation program; this is the single highest-impact change available.")
	}
	if rec.BMI >= 30 {
		out = append(out, "Aim for gradual weight reduction through diet changes and regular activity.")
	}
	if ex := strings.ToLower(rec.ExerciseFrequency); ex == "" || strings.Contains(ex, "never") || strings.Contains(ex, "rare") || strings.Contains(ex, "sedentary") {
		out = append(out, "Build up to at least 150 minutes of moderate exercise per week.")
	}
	if strings.Contains(strings.ToLower(rec.AlcoholUse), "heavy") {
		out = append(out, "Reduce alcohol intake; heavy use worsens blood pressure and treatment response.")
	}
	if len(out) == 0 {
		out = append(out, "Maintain a balanced diet, regular sleep, and routine physical activity.")
	}
	return out
}

// ── Helpers ──

func isSmoker(status string) bool {
	s := strings.ToLower(status)
	return strings.Contains(s, "current") || s == "smoker" || s == "yes"
}

func hasComplaint(rec patient.Record, keywords ...string) bool {
	complaint := strings.ToLower(rec.PrimaryComplaint)
	for _, kw := range keywords {
		if strings.Contains(complaint, kw) {
			return true
		}
	}
	return false
}

func takesAny(rec patient.Record, tokens ...string) bool {
	for _, med := range rec.Medications {
		name := strings.ToLower(med.Name)
		for _, tok := range tokens {
			if strings.Contains(name, tok) {
				return true
			}
		}
	}
	return false
}

func parseSystolic(bp string) int {
	parts := strings.SplitN(strings.TrimSpace(bp), "/", 2)
	if len(parts) == 0 {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0
	}
	return v
}
