package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelane/carelane/internal/domain/analysis"
	"github.com/carelane/carelane/internal/domain/audit"
	"github.com/carelane/carelane/internal/domain/interaction"
	"github.com/carelane/carelane/internal/domain/patient"
	"github.com/carelane/carelane/internal/platform/ai"
	"github.com/carelane/carelane/internal/platform/metrics"
)

// ErrInvalidState is returned when an operation does not apply to the
// session's current workflow state, e.g. approving a plan before intake.
var ErrInvalidState = errors.New("invalid session state")

// defaultUser is recorded on audit entries when the caller does not
// identify themselves. There is no authentication layer, so attribution
// is whatever the client supplies.
const defaultUser = "clinician"

type Service struct {
	store     *Store
	advisor   ai.Advisor
	collector *metrics.Collector
	logger    zerolog.Logger
}

func NewService(store *Store, advisor ai.Advisor, collector *metrics.Collector, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		advisor:   advisor,
		collector: collector,
		logger:    logger,
	}
}

// Start opens a fresh session in the intake state.
func (s *Service) Start(ctx context.Context) (*Session, error) {
	sess := s.store.Create()

	s.collector.SessionsStartedTotal.Inc()
	s.collector.SessionsActive.Set(float64(s.store.Count()))
	s.logger.Info().Str("session_id", sess.ID.String()).Msg("session started")

	return sess, nil
}

// SubmitIntake records the patient intake, asks the advisor for a clinical
// analysis, merges deterministic drug-interaction warnings into it, and
// moves the session to review. If the advisor fails, the session is left
// untouched in the intake state so the clinician can retry.
func (s *Service) SubmitIntake(ctx context.Context, id uuid.UUID, rec patient.Record, user string) (*Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if user == "" {
		user = defaultUser
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State != StateIntake {
		return nil, fmt.Errorf("%w: intake already submitted", ErrInvalidState)
	}

	rec.ID = uuid.New()
	rec.DeriveBMI()

	started := time.Now()
	result, err := s.advisor.Analyze(ctx, rec)
	s.collector.ModelRequestDuration.WithLabelValues("analyze").Observe(time.Since(started).Seconds())
	if err != nil {
		s.collector.ModelFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		s.logger.Error().Err(err).Str("session_id", id.String()).Msg("analysis generation failed")
		return nil, err
	}

	dbWarnings := interaction.CheckInteractions(rec.Medications, result.TreatmentPlan.Medication)
	merged := analysis.MergeAndEscalate(*result, dbWarnings)

	s.collector.AnalysesGeneratedTotal.WithLabelValues(s.advisor.Provider()).Inc()
	s.collector.WarningsMergedTotal.WithLabelValues(string(interaction.SourceDrugDB)).Add(float64(len(dbWarnings)))
	s.collector.WarningsMergedTotal.WithLabelValues(string(interaction.SourceAIModel)).Add(float64(len(result.Warnings)))
	for _, w := range dbWarnings {
		if w.Severity == interaction.SeverityHigh {
			s.collector.RiskEscalationsTotal.Inc()
			break
		}
	}

	sess.Patient = &rec
	sess.Analysis = &merged
	sess.AuditLog = audit.Append(sess.AuditLog, audit.ActionIntakeSubmitted, user,
		fmt.Sprintf("Patient intake recorded (%d current medications)", len(rec.Medications)))
	sess.AuditLog = audit.Append(sess.AuditLog, audit.ActionAnalysisGenerated, user,
		fmt.Sprintf("Analysis drafted by %s advisor: risk %s (score %d), %d warning(s)",
			s.advisor.Provider(), merged.RiskLevel, merged.RiskScore, len(merged.Warnings)))
	s.collector.AuditEntriesTotal.Add(2)
	sess.State = StateReview
	sess.UpdatedAt = time.Now().UTC()

	s.logger.Info().
		Str("session_id", id.String()).
		Str("risk_level", string(merged.RiskLevel)).
		Int("risk_score", merged.RiskScore).
		Int("db_warnings", len(dbWarnings)).
		Msg("intake submitted, analysis ready for review")

	return sess, nil
}

// Approve finalizes the treatment plan and moves the session to summary.
// The audit entry distinguishes an unchanged approval from one where the
// clinician edited the drafted plan, field by field.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, final analysis.TreatmentRecommendation, user string) (*Session, error) {
	if final.Medication == "" {
		return nil, fmt.Errorf("plan medication is required")
	}
	if final.Dosage == "" {
		return nil, fmt.Errorf("plan dosage is required")
	}
	if final.Duration == "" {
		return nil, fmt.Errorf("plan duration is required")
	}

	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if user == "" {
		user = defaultUser
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State != StateReview {
		return nil, fmt.Errorf("%w: no plan awaiting review", ErrInvalidState)
	}

	action, details := audit.PlanDecision(sess.Analysis.TreatmentPlan, final)
	sess.AuditLog = audit.Append(sess.AuditLog, action, user, details)
	s.collector.AuditEntriesTotal.Inc()

	decision := "approved"
	if action == audit.ActionPlanModified {
		decision = "modified"
	}
	s.collector.PlanDecisionsTotal.WithLabelValues(decision).Inc()

	sess.FinalPlan = &final
	sess.State = StateSummary
	sess.UpdatedAt = time.Now().UTC()

	s.logger.Info().
		Str("session_id", id.String()).
		Str("decision", decision).
		Str("medication", final.Medication).
		Msg("treatment plan finalized")

	return sess, nil
}

// Reject discards the drafted analysis and returns the session to intake.
// The rejection is appended to the audit log and surfaced through logs and
// metrics before the reset wipes the log along with the rest of the
// session's accumulated state.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, user, reason string) (*Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if user == "" {
		user = defaultUser
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State != StateReview {
		return nil, fmt.Errorf("%w: no plan awaiting review", ErrInvalidState)
	}

	details := "Treatment plan rejected"
	if reason != "" {
		details += ": " + reason
	}
	sess.AuditLog = audit.Append(sess.AuditLog, audit.ActionPlanRejected, user, details)
	s.collector.AuditEntriesTotal.Inc()
	s.collector.PlanDecisionsTotal.WithLabelValues("rejected").Inc()

	rejection := sess.AuditLog[len(sess.AuditLog)-1]
	s.logger.Info().
		Str("session_id", id.String()).
		Str("audit_id", rejection.ID.String()).
		Str("user", user).
		Str("details", details).
		Msg("plan rejected, session reset to intake")

	sess.reset()
	sess.UpdatedAt = time.Now().UTC()

	return sess, nil
}

// Restart wipes the session back to a blank intake regardless of its
// current state. Unlike Reject it records no audit entry; it is the
// "start over" button, not a clinical decision.
func (s *Service) Restart(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.reset()
	sess.UpdatedAt = time.Now().UTC()

	s.logger.Info().Str("session_id", id.String()).Msg("session restarted")

	return sess, nil
}

// Chat relays a clinician question about the current analysis to the
// advisor. A failed exchange returns an error without touching the
// session, so the workflow state is never disturbed by chat.
func (s *Service) Chat(ctx context.Context, id uuid.UUID, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is required")
	}

	sess, err := s.store.Get(id)
	if err != nil {
		return "", err
	}

	ex, err := s.exchange(sess)
	if err != nil {
		return "", err
	}
	ex.Question = question

	started := time.Now()
	reply, err := s.advisor.Chat(ctx, ex)
	s.collector.ModelRequestDuration.WithLabelValues("chat").Observe(time.Since(started).Seconds())
	if err != nil {
		s.collector.ModelFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		s.logger.Warn().Err(err).Str("session_id", id.String()).Msg("chat exchange failed")
		return "", err
	}

	s.collector.ChatRequestsTotal.Inc()
	return reply, nil
}

// Handout asks the advisor for a patient-friendly summary of the current
// analysis, suitable for printing.
func (s *Service) Handout(ctx context.Context, id uuid.UUID) (string, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return "", err
	}

	ex, err := s.exchange(sess)
	if err != nil {
		return "", err
	}

	started := time.Now()
	handout, err := s.advisor.Handout(ctx, ex)
	s.collector.ModelRequestDuration.WithLabelValues("handout").Observe(time.Since(started).Seconds())
	if err != nil {
		s.collector.ModelFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		s.logger.Warn().Err(err).Str("session_id", id.String()).Msg("handout generation failed")
		return "", err
	}

	s.collector.HandoutsGeneratedTotal.Inc()
	return handout, nil
}

// exchange snapshots the session's patient and analysis for an advisor
// call. The snapshot is taken under the session lock; the call itself runs
// without it so a slow model cannot stall state transitions.
func (s *Service) exchange(sess *Session) (ai.Exchange, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Patient == nil || sess.Analysis == nil {
		return ai.Exchange{}, fmt.Errorf("%w: no analysis available", ErrInvalidState)
	}
	return ai.Exchange{
		Patient:  *sess.Patient,
		Analysis: *sess.Analysis,
	}, nil
}

// Export assembles the compliance record for a finalized session.
func (s *Service) Export(ctx context.Context, id uuid.UUID) (*ExportDocument, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State != StateSummary {
		return nil, fmt.Errorf("%w: session not finalized", ErrInvalidState)
	}

	doc := &ExportDocument{
		PatientRecord:      sess.Patient,
		FinalTreatmentPlan: sess.FinalPlan,
		AuditLog:           append([]audit.Entry(nil), sess.AuditLog...),
	}

	s.collector.ExportsTotal.Inc()
	s.logger.Info().Str("session_id", id.String()).Msg("compliance record exported")

	return doc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.store.Get(id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Session, int, error) {
	items, total := s.store.List(limit, offset)
	return items, total, nil
}

// AuditLog returns a page of the session's audit trail in append order,
// along with the total number of entries.
func (s *Service) AuditLog(ctx context.Context, id uuid.UUID, limit, offset int) ([]audit.Entry, int, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, 0, err
	}

	sess.mu.Lock()
	log := append([]audit.Entry(nil), sess.AuditLog...)
	sess.mu.Unlock()

	total := len(log)
	if offset >= total {
		return []audit.Entry{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return log[offset:end], total, nil
}

// failureReason buckets advisor errors for the failure counter: responses
// that arrived but failed validation versus transport-level failures.
func failureReason(err error) string {
	if errors.Is(err, ai.ErrInvalidResponse) {
		return "validation"
	}
	return "transport"
}
