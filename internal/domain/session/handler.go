package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelane/carelane/internal/domain/analysis"
	"github.com/carelane/carelane/internal/domain/patient"
	"github.com/carelane/carelane/internal/platform/ai"
	"github.com/carelane/carelane/internal/platform/middleware"
	"github.com/carelane/carelane/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/sessions", h.StartSession)
	api.GET("/sessions", h.ListSessions)
	api.GET("/sessions/:id", h.GetSession)
	api.POST("/sessions/:id/intake", h.SubmitIntake)
	api.POST("/sessions/:id/approve", h.ApprovePlan)
	api.POST("/sessions/:id/reject", h.RejectPlan)
	api.POST("/sessions/:id/restart", h.RestartSession)
	api.POST("/sessions/:id/chat", h.Chat)
	api.POST("/sessions/:id/handout", h.Handout)
	api.GET("/sessions/:id/audit", h.GetAuditLog)
	api.GET("/sessions/:id/export", h.ExportRecord)
}

type intakeRequest struct {
	Patient     patient.Record `json:"patient" validate:"required"`
	SubmittedBy string         `json:"submitted_by"`
}

type approveRequest struct {
	Plan       analysis.TreatmentRecommendation `json:"plan" validate:"required"`
	ApprovedBy string                           `json:"approved_by"`
}

type rejectRequest struct {
	Reason     string `json:"reason"`
	RejectedBy string `json:"rejected_by"`
}

type chatRequest struct {
	Question string `json:"question" validate:"required"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type handoutResponse struct {
	Handout string `json:"handout"`
}

func (h *Handler) StartSession(c echo.Context) error {
	sess, err := h.svc.Start(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)

	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	sess, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) SubmitIntake(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	var req intakeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess, err := h.svc.SubmitIntake(c.Request().Context(), id, req.Patient, req.SubmittedBy)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) ApprovePlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	var req approveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess, err := h.svc.Approve(c.Request().Context(), id, req.Plan, req.ApprovedBy)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) RejectPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Reason = middleware.SanitizeString(req.Reason)

	sess, err := h.svc.Reject(c.Request().Context(), id, req.RejectedBy, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) RestartSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	sess, err := h.svc.Restart(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Chat(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	// Sanitize before validation so a question of pure control characters
	// fails the required check instead of reaching the advisor.
	req.Question = middleware.SanitizeString(req.Question)
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	reply, err := h.svc.Chat(c.Request().Context(), id, req.Question)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, chatResponse{Reply: reply})
}

func (h *Handler) Handout(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	handout, err := h.svc.Handout(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, handoutResponse{Handout: handout})
}

func (h *Handler) GetAuditLog(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	pg := pagination.FromContext(c)

	entries, total, err := h.svc.AuditLog(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

func (h *Handler) ExportRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	doc, err := h.svc.Export(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}

	filename := fmt.Sprintf("compliance-record-%s.json", id)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.JSON(http.StatusOK, doc)
}

// httpError maps service errors onto HTTP statuses: unknown sessions are
// 404, operations out of step with the workflow are 409, advisor failures
// are 502, and everything else is treated as a bad request.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ai.ErrInvalidResponse):
		return echo.NewHTTPError(http.StatusBadGateway, "model response rejected: "+err.Error())
	case errors.Is(err, ai.ErrUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "model service unavailable")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
