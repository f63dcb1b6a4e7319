package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nexesmission/ardhi-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// RecurrenceHandler exposes the template driver to the external scheduler
type RecurrenceHandler struct {
	driverService *service.DriverService
}

// NewRecurrenceHandler creates a new RecurrenceHandler
func NewRecurrenceHandler(driverService *service.DriverService) *RecurrenceHandler {
	return &RecurrenceHandler{driverService: driverService}
}

// RunDueRequest represents the run request body. Now is optional and exists
// for backfills and tests; production schedulers send an empty body.
type RunDueRequest struct {
	Now string `json:"now,omitempty"`
}

// RunDue handles POST /internal/recurrence/run. Safe to invoke repeatedly:
// an occurrence is materialized at most once no matter how many runs race.
func (h *RecurrenceHandler) RunDue(c echo.Context) error {
	var req RunDueRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	now := time.Now().UTC()
	if req.Now != "" {
		parsed, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			return NewValidationError(c, "Invalid now", []ValidationError{
				{Field: "now", Message: "Must be an RFC 3339 timestamp"},
			})
		}
		now = parsed
	}

	result, err := h.driverService.RunDue(now)
	if err != nil {
		log.Error().Err(err).Msg("Recurrence run failed")
		return NewInternalError(c, "Recurrence run failed")
	}

	return c.JSON(http.StatusOK, result)
}
