package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carelane/carelane/internal/domain/interaction"
	"github.com/carelane/carelane/internal/domain/session"
	"github.com/carelane/carelane/internal/platform/ai"
	"github.com/carelane/carelane/internal/platform/metrics"
	"github.com/carelane/carelane/internal/platform/middleware"
	"github.com/carelane/carelane/internal/platform/validate"
)

// Collectors register against the default prometheus registry, so the test
// binary shares a single instance across this package's tests.
var testCollector = metrics.NewCollector("carelane_e2e")

// newServer wires the full application the way the serve command does, with
// the deterministic builtin advisor so no network access is needed.
func newServer() *echo.Echo {
	logger := zerolog.Nop()

	store := session.NewStore(time.Hour)
	advisor := ai.NewRuleAdvisor()
	svc := session.NewService(store, advisor, testCollector, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.Metrics(testCollector))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	api := e.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	session.NewHandler(svc).RegisterRoutes(api)
	interaction.NewHandler().RegisterRoutes(api)

	return e
}

// doJSON sends a request with an optional JSON body and returns the recorder.
func doJSON(t *testing.T, e *echo.Echo, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = buf
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a response body into out, failing the test on error.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
}

// sessionBody is the wire shape of a session response.
type sessionBody struct {
	ID       string          `json:"id"`
	State    string          `json:"state"`
	Patient  json.RawMessage `json:"patient"`
	Analysis *struct {
		RiskLevel string `json:"risk_level"`
		RiskScore int    `json:"risk_score"`
		Summary   string `json:"summary"`
		Warnings  []struct {
			Severity    string `json:"severity"`
			Description string `json:"description"`
			Source      string `json:"source"`
		} `json:"warnings"`
		TreatmentPlan struct {
			Medication string `json:"medication"`
			Dosage     string `json:"dosage"`
			Duration   string `json:"duration"`
		} `json:"treatment_plan"`
		Alternatives []struct {
			Medication string `json:"medication"`
		} `json:"alternatives"`
	} `json:"analysis"`
	FinalPlan *struct {
		Medication string `json:"medication"`
		Dosage     string `json:"dosage"`
		Duration   string `json:"duration"`
	} `json:"final_plan"`
	AuditLog []auditEntryBody `json:"audit_log"`
}

type auditEntryBody struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	User      string `json:"user"`
	Details   string `json:"details"`
}

// startSession creates a fresh session and returns its id.
func startSession(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body sessionBody
	decode(t, rec, &body)
	if body.ID == "" {
		t.Fatal("start session: expected an id")
	}
	return body.ID
}

// nitratePatient is an intake that trips the nitrate/PDE5 interaction rule
// once the builtin advisor proposes sildenafil.
func nitratePatient() map[string]interface{} {
	return map[string]interface{}{
		"age":       58,
		"gender":    "male",
		"weight_kg": 92.0,
		"height_cm": 178.0,
		"vitals": map[string]interface{}{
			"blood_pressure": "150/95",
			"heart_rate":     78,
		},
		"smoking_status":     "Current smoker",
		"alcohol_use":        "Social",
		"exercise_frequency": "Rarely",
		"conditions":         []string{"Hypertension"},
		"medications": []map[string]string{
			{"name": "Nitroglycerin", "dosage": "0.4mg", "frequency": "as needed"},
		},
		"primary_complaint": "Erectile dysfunction",
	}
}
