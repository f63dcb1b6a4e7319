package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nexesmission/ardhi-backend/internal/domain"
	"github.com/nexesmission/ardhi-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TemplateHandler handles recurring template HTTP requests
type TemplateHandler struct {
	templateService *service.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(templateService *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// CreateTemplateRequest represents the create template request body
type CreateTemplateRequest struct {
	Name       string `json:"name"`
	Cadence    string `json:"cadence"`
	Anchor     int32  `json:"anchor"`
	AnchorTime string `json:"anchorTime,omitempty"`
	Amount     string `json:"amount"`
	IsRevenue  bool   `json:"isRevenue"`
	StartDate  string `json:"startDate"`
}

// UpdateTemplateRequest represents the update template request body
type UpdateTemplateRequest struct {
	Name           string  `json:"name"`
	Cadence        string  `json:"cadence"`
	Anchor         int32   `json:"anchor"`
	AnchorTime     string  `json:"anchorTime,omitempty"`
	Amount         string  `json:"amount"`
	IsRevenue      bool    `json:"isRevenue"`
	IsActive       bool    `json:"isActive"`
	NextOccurrence *string `json:"nextOccurrence,omitempty"`
}

// TemplateResponse represents a recurring template in API responses
type TemplateResponse struct {
	ID             int32   `json:"id"`
	Name           string  `json:"name"`
	Cadence        string  `json:"cadence"`
	Anchor         int32   `json:"anchor"`
	AnchorTime     string  `json:"anchorTime"`
	Amount         string  `json:"amount"`
	IsRevenue      bool    `json:"isRevenue"`
	IsActive       bool    `json:"isActive"`
	NextOccurrence string  `json:"nextOccurrence"`
	LastGenerated  *string `json:"lastGenerated,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

func toTemplateResponse(tpl *domain.RecurringTemplate) TemplateResponse {
	resp := TemplateResponse{
		ID:             tpl.ID,
		Name:           tpl.Name,
		Cadence:        string(tpl.Cadence),
		Anchor:         tpl.Anchor,
		AnchorTime:     tpl.AnchorTime,
		Amount:         tpl.Amount.StringFixed(2),
		IsRevenue:      tpl.IsRevenue,
		IsActive:       tpl.IsActive,
		NextOccurrence: tpl.NextOccurrence.Format("2006-01-02"),
		CreatedAt:      tpl.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      tpl.UpdatedAt.Format(time.RFC3339),
	}
	if tpl.LastGenerated != nil {
		s := tpl.LastGenerated.Format("2006-01-02")
		resp.LastGenerated = &s
	}
	return resp
}

func templateErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNameRequired):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Name is required"},
		})
	case errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Must be 255 characters or less"},
		})
	case errors.Is(err, domain.ErrInvalidAmount):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Amount must be positive"},
		})
	case errors.Is(err, domain.ErrInvalidAnchor):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "anchor", Message: "Anchor out of range for cadence"},
		})
	case errors.Is(err, domain.ErrInvalidAnchorTime):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "anchorTime", Message: "Must be HH:MM between 00:00 and 23:59"},
		})
	}
	return nil
}

// CreateTemplate handles POST /api/v1/templates
func (h *TemplateHandler) CreateTemplate(c echo.Context) error {
	var req CreateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return NewValidationError(c, "Invalid start date", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	tpl, err := h.templateService.CreateTemplate(service.CreateTemplateInput{
		Name:       req.Name,
		Cadence:    domain.Cadence(req.Cadence),
		Anchor:     req.Anchor,
		AnchorTime: req.AnchorTime,
		Amount:     amount,
		IsRevenue:  req.IsRevenue,
		StartDate:  startDate,
	})
	if err != nil {
		if resp := templateErrorResponse(c, err); resp != nil {
			return resp
		}
		log.Error().Err(err).Msg("Failed to create template")
		return NewInternalError(c, "Failed to create template")
	}

	log.Info().Int32("template_id", tpl.ID).Str("name", tpl.Name).Msg("Template created")

	return c.JSON(http.StatusCreated, toTemplateResponse(tpl))
}

// GetTemplates handles GET /api/v1/templates
func (h *TemplateHandler) GetTemplates(c echo.Context) error {
	var activeOnly *bool
	switch c.QueryParam("active") {
	case "true":
		v := true
		activeOnly = &v
	case "false":
		v := false
		activeOnly = &v
	}

	templates, err := h.templateService.ListTemplates(activeOnly)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list templates")
		return NewInternalError(c, "Failed to list templates")
	}

	resp := make([]TemplateResponse, len(templates))
	for i, tpl := range templates {
		resp[i] = toTemplateResponse(tpl)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetTemplate handles GET /api/v1/templates/:id
func (h *TemplateHandler) GetTemplate(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	tpl, err := h.templateService.GetTemplate(id)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return NewNotFoundError(c, "Template not found")
		}
		log.Error().Err(err).Int32("template_id", id).Msg("Failed to get template")
		return NewInternalError(c, "Failed to get template")
	}

	return c.JSON(http.StatusOK, toTemplateResponse(tpl))
}

// UpdateTemplate handles PUT /api/v1/templates/:id
func (h *TemplateHandler) UpdateTemplate(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req UpdateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	var nextOccurrence *time.Time
	if req.NextOccurrence != nil && *req.NextOccurrence != "" {
		next, err := time.Parse("2006-01-02", *req.NextOccurrence)
		if err != nil {
			return NewValidationError(c, "Invalid next occurrence", []ValidationError{
				{Field: "nextOccurrence", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		nextOccurrence = &next
	}

	tpl, err := h.templateService.UpdateTemplate(id, service.UpdateTemplateInput{
		Name:           req.Name,
		Cadence:        domain.Cadence(req.Cadence),
		Anchor:         req.Anchor,
		AnchorTime:     req.AnchorTime,
		Amount:         amount,
		IsRevenue:      req.IsRevenue,
		IsActive:       req.IsActive,
		NextOccurrence: nextOccurrence,
	})
	if err != nil {
		if resp := templateErrorResponse(c, err); resp != nil {
			return resp
		}
		switch {
		case errors.Is(err, domain.ErrTemplateNotFound):
			return NewNotFoundError(c, "Template not found")
		case errors.Is(err, domain.ErrPointerMovedBackwards):
			return NewConflictError(c, "Next occurrence may not move behind the last generated date")
		}
		log.Error().Err(err).Int32("template_id", id).Msg("Failed to update template")
		return NewInternalError(c, "Failed to update template")
	}

	return c.JSON(http.StatusOK, toTemplateResponse(tpl))
}

// ToggleActive handles PATCH /api/v1/templates/:id/toggle-active
func (h *TemplateHandler) ToggleActive(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	tpl, err := h.templateService.ToggleActive(id)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return NewNotFoundError(c, "Template not found")
		}
		log.Error().Err(err).Int32("template_id", id).Msg("Failed to toggle template")
		return NewInternalError(c, "Failed to toggle template")
	}

	return c.JSON(http.StatusOK, toTemplateResponse(tpl))
}

// DeleteTemplate handles DELETE /api/v1/templates/:id. A template with
// generated records is deactivated instead of removed.
func (h *TemplateHandler) DeleteTemplate(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	result, err := h.templateService.DeleteTemplate(id)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return NewNotFoundError(c, "Template not found")
		}
		log.Error().Err(err).Int32("template_id", id).Msg("Failed to delete template")
		return NewInternalError(c, "Failed to delete template")
	}

	return c.JSON(http.StatusOK, result)
}
