package analysis

import (
	"github.com/carelane/carelane/internal/domain/interaction"
)

// RiskLevel is the overall classification attached to an analysis.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// TreatmentRecommendation is a single proposed course of treatment. One
// instance is the primary plan; others are offered as alternatives. The
// clinician may copy an alternative into the primary slot or edit the
// primary fields before finalizing.
type TreatmentRecommendation struct {
	Medication      string `json:"medication" validate:"required"`
	Dosage          string `json:"dosage" validate:"required"`
	Duration        string `json:"duration" validate:"required"`
	Rationale       string `json:"rationale"`
	ConfidenceScore int    `json:"confidence_score" validate:"gte=0,lte=100"`
}

// ClinicalAnalysis is the structured result drafted by the model-invocation
// collaborator for one intake. It is produced once per submission and then
// transformed exactly once by MergeAndEscalate before review. The validate
// tags double as the response schema for the model collaborator.
type ClinicalAnalysis struct {
	RiskLevel                RiskLevel                 `json:"risk_level" validate:"required,oneof=Low Medium High"`
	RiskScore                int                       `json:"risk_score" validate:"gte=0,lte=100"`
	Summary                  string                    `json:"summary" validate:"required"`
	Warnings                 []interaction.Warning     `json:"warnings" validate:"omitempty,dive"`
	Contraindications        []string                  `json:"contraindications"`
	TreatmentPlan            TreatmentRecommendation   `json:"treatment_plan" validate:"required"`
	Alternatives             []TreatmentRecommendation `json:"alternatives" validate:"omitempty,dive"`
	LifestyleRecommendations []string                  `json:"lifestyle_recommendations"`
}
