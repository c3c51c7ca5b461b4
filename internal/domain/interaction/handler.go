package interaction

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carelane/carelane/internal/domain/patient"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/interaction-rules", h.ListRules)
	api.POST("/interaction-check", h.Check)
}

// CheckRequest is an ad hoc interaction query, used by the review UI when the
// clinician edits the proposed medication before finalizing.
type CheckRequest struct {
	Medications        []patient.Medication `json:"medications" validate:"omitempty,dive"`
	ProposedMedication string               `json:"proposed_medication"`
}

type CheckResponse struct {
	ProposedMedication string    `json:"proposed_medication"`
	Warnings           []Warning `json:"warnings"`
}

func (h *Handler) ListRules(c echo.Context) error {
	return c.JSON(http.StatusOK, Rules())
}

func (h *Handler) Check(c echo.Context) error {
	var req CheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	warnings := CheckInteractions(req.Medications, req.ProposedMedication)
	if warnings == nil {
		warnings = []Warning{}
	}
	return c.JSON(http.StatusOK, CheckResponse{
		ProposedMedication: req.ProposedMedication,
		Warnings:           warnings,
	})
}
