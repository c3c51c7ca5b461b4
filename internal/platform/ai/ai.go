package ai

import (
	"context"
	"errors"

	"github.com/carelane/carelane/internal/domain/analysis"
	"github.com/carelane/carelane/internal/domain/patient"
)

var (
	// ErrInvalidResponse marks a model reply that was malformed or missing
	// required fields. The analysis attempt is abandoned; no partial result
	// is ever returned alongside it.
	ErrInvalidResponse = errors.New("model response failed validation")

	// ErrUnavailable marks a transport-level failure reaching the model
	// service, including an open circuit breaker.
	ErrUnavailable = errors.New("model service unavailable")
)

// Exchange carries the patient and analysis context handed to follow-up
// calls. Question is set for chat only.
type Exchange struct {
	Patient  patient.Record
	Analysis analysis.ClinicalAnalysis
	Question string
}

// Advisor is the model-invocation collaborator. Analyze drafts a structured
// clinical analysis for an intake record; Chat answers a free-form question
// in the context of a patient and their analysis; Handout produces a
// patient-readable plain-text/markdown summary. All calls are long-latency
// and cancellable through ctx; callers do not retry.
type Advisor interface {
	Analyze(ctx context.Context, rec patient.Record) (*analysis.ClinicalAnalysis, error)
	Chat(ctx context.Context, ex Exchange) (string, error)
	Handout(ctx context.Context, ex Exchange) (string, error)
	Provider() string
}
