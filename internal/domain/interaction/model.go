package interaction

// Severity grades how dangerous a known drug combination is.
type Severity string

const (
	SeverityHigh     Severity = "High"
	SeverityModerate Severity = "Moderate"
	SeverityLow      Severity = "Low"
)

// Source identifies which collaborator produced a warning.
type Source string

const (
	SourceAIModel Source = "AI_MODEL"
	SourceDrugDB  Source = "DRUG_DB"
)

// Warning is a single interaction finding. Warnings are never mutated after
// creation; they are only appended to warning lists.
type Warning struct {
	Severity    Severity `json:"severity" validate:"required,oneof=High Moderate Low"`
	Description string   `json:"description" validate:"required"`
	Source      Source   `json:"source,omitempty" validate:"omitempty,oneof=AI_MODEL DRUG_DB"`
}

// Rule is one known two-drug interaction. Matching is symmetric over the
// pair: either drug token may appear on the current-medication side.
type Rule struct {
	DrugA       string   `json:"drug_a"`
	DrugB       string   `json:"drug_b"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}
