package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carelane/carelane/internal/domain/analysis"
	"github.com/carelane/carelane/internal/domain/patient"
	"github.com/carelane/carelane/internal/platform/ai"
	"github.com/carelane/carelane/internal/platform/validate"
)

func newTestHandler(adv ai.Advisor) (*Handler, *Service, *echo.Echo) {
	store := NewStore(time.Hour)
	svc := NewService(store, adv, testCollector, zerolog.Nop())
	e := echo.New()
	e.Validator = validate.New()
	return NewHandler(svc), svc, e
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func sessionParam(c echo.Context, id string) {
	c.SetParamNames("id")
	c.SetParamValues(id)
}

func TestStartSessionEndpoint(t *testing.T) {
	h, _, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})

	req := jsonRequest(http.MethodPost, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.StartSession(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}

	var body struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.State != string(StateIntake) {
		t.Errorf("expected state %q, got %q", StateIntake, body.State)
	}
	if _, err := uuid.Parse(body.ID); err != nil {
		t.Errorf("expected a valid session id, got %q", body.ID)
	}
}

func TestSubmitIntakeEndpoint(t *testing.T) {
	h, svc, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})
	sess, _ := svc.Start(context.Background())

	payload := map[string]interface{}{
		"patient":      intakeRecord(),
		"submitted_by": "dr.chen",
	}
	req := jsonRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID.String()+"/intake", payload)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	sessionParam(c, sess.ID.String())

	if err := h.SubmitIntake(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		State    string `json:"state"`
		Analysis struct {
			RiskLevel string `json:"risk_level"`
			RiskScore int    `json:"risk_score"`
		} `json:"analysis"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.State != string(StateReview) {
		t.Errorf("expected state %q, got %q", StateReview, body.State)
	}
	if body.Analysis.RiskLevel != string(analysis.RiskHigh) || body.Analysis.RiskScore != 90 {
		t.Errorf("expected escalated High/90, got %s/%d", body.Analysis.RiskLevel, body.Analysis.RiskScore)
	}
}

func TestSubmitIntakeEndpoint_ValidationError(t *testing.T) {
	h, svc, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})
	sess, _ := svc.Start(context.Background())

	rec := intakeRecord()
	rec.Age = 0
	payload := map[string]interface{}{"patient": rec}

	req := jsonRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID.String()+"/intake", payload)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, sess.ID.String())

	err := h.SubmitIntake(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing age, got %v", err)
	}
}

func TestSubmitIntakeEndpoint_AdvisorDown(t *testing.T) {
	adv := &stubAdvisor{analyzeErr: fmt.Errorf("%w: 503", ai.ErrUnavailable)}
	h, svc, e := newTestHandler(adv)
	sess, _ := svc.Start(context.Background())

	payload := map[string]interface{}{"patient": intakeRecord()}
	req := jsonRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID.String()+"/intake", payload)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, sess.ID.String())

	err := h.SubmitIntake(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when the advisor is down, got %v", err)
	}
}

func TestGetSessionEndpoint_NotFound(t *testing.T) {
	h, _, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, uuid.NewString())

	err := h.GetSession(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %v", err)
	}
}

func TestGetSessionEndpoint_BadID(t *testing.T) {
	h, _, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, "not-a-uuid")

	err := h.GetSession(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed id, got %v", err)
	}
}

func TestApprovePlanEndpoint(t *testing.T) {
	h, svc, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})
	sess := reviewSession(t, svc)

	payload := map[string]interface{}{
		"plan":        sess.Analysis.TreatmentPlan,
		"approved_by": "dr.chen",
	}
	req := jsonRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID.String()+"/approve", payload)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, sess.ID.String())

	if err := h.ApprovePlan(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"state":"summary"`) {
		t.Errorf("expected summary state in response, got %s", w.Body.String())
	}
}

func TestRejectPlanEndpoint(t *testing.T) {
	h, svc, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})
	sess := reviewSession(t, svc)

	payload := map[string]interface{}{"reason": "wants lifestyle changes first", "rejected_by": "dr.chen"}
	req := jsonRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID.String()+"/reject", payload)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, sess.ID.String())

	if err := h.RejectPlan(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		State    string          `json:"state"`
		Analysis json.RawMessage `json:"analysis"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.State != string(StateIntake) {
		t.Errorf("expected session reset to %q, got %q", StateIntake, body.State)
	}
	if len(body.Analysis) != 0 {
		t.Errorf("expected analysis cleared from response, got %s", body.Analysis)
	}
}

func TestChatEndpoint(t *testing.T) {
	adv := &stubAdvisor{result: draftAnalysis(), chatReply: "Both drugs lower blood pressure."}
	h, svc, e := newTestHandler(adv)
	sess := reviewSession(t, svc)

	payload := map[string]interface{}{"question": "Why is this combination dangerous?"}
	req := jsonRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID.String()+"/chat", payload)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, sess.ID.String())

	if err := h.Chat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Reply != adv.chatReply {
		t.Errorf("unexpected reply: %q", body.Reply)
	}
}

func TestChatEndpoint_MissingQuestion(t *testing.T) {
	h, svc, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})
	sess := reviewSession(t, svc)

	req := jsonRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID.String()+"/chat", map[string]interface{}{})
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, sess.ID.String())

	err := h.Chat(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing question, got %v", err)
	}
}

func TestHandoutEndpoint(t *testing.T) {
	adv := &stubAdvisor{result: draftAnalysis(), handoutText: "# Your Visit Summary"}
	h, svc, e := newTestHandler(adv)
	sess := reviewSession(t, svc)

	req := jsonRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID.String()+"/handout", nil)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, sess.ID.String())

	if err := h.Handout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body handoutResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Handout != adv.handoutText {
		t.Errorf("unexpected handout: %q", body.Handout)
	}
}

func TestExportEndpoint(t *testing.T) {
	h, svc, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})
	sess := reviewSession(t, svc)
	if _, err := svc.Approve(context.Background(), sess.ID, sess.Analysis.TreatmentPlan, "dr.chen"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID.String()+"/export", nil)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, sess.ID.String())

	if err := h.ExportRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if cd := w.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "attachment") {
		t.Errorf("expected attachment disposition, got %q", cd)
	}

	var doc struct {
		PatientRecord      *patient.Record                   `json:"patient_record"`
		FinalTreatmentPlan *analysis.TreatmentRecommendation `json:"final_treatment_plan"`
		AuditLog           []json.RawMessage                 `json:"audit_log"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if doc.PatientRecord == nil || doc.FinalTreatmentPlan == nil {
		t.Fatal("expected patient record and final plan in export")
	}
	if len(doc.AuditLog) != 3 {
		t.Errorf("expected 3 audit entries in export, got %d", len(doc.AuditLog))
	}
}

func TestExportEndpoint_BeforeApproval(t *testing.T) {
	h, svc, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})
	sess := reviewSession(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID.String()+"/export", nil)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, sess.ID.String())

	err := h.ExportRecord(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409 before approval, got %v", err)
	}
}

func TestListSessionsEndpoint(t *testing.T) {
	h, svc, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})
	for i := 0; i < 3; i++ {
		if _, err := svc.Start(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=2", nil)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)

	if err := h.ListSessions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Data    []json.RawMessage `json:"data"`
		Total   int               `json:"total"`
		HasMore bool              `json:"has_more"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Total != 3 {
		t.Errorf("expected total 3, got %d", body.Total)
	}
	if len(body.Data) != 2 {
		t.Errorf("expected 2 sessions in page, got %d", len(body.Data))
	}
	if !body.HasMore {
		t.Error("expected has_more true")
	}
}

func TestAuditLogEndpoint(t *testing.T) {
	h, svc, e := newTestHandler(&stubAdvisor{result: draftAnalysis()})
	sess := reviewSession(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID.String()+"/audit", nil)
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)
	sessionParam(c, sess.ID.String())

	if err := h.GetAuditLog(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Data  []struct{ Action string } `json:"data"`
		Total int                       `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Total != 2 {
		t.Errorf("expected 2 audit entries, got %d", body.Total)
	}
}
