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

// RecordHandler handles cash record HTTP requests
type RecordHandler struct {
	recordService *service.RecordService
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(recordService *service.RecordService) *RecordHandler {
	return &RecordHandler{recordService: recordService}
}

// CreateRecordRequest represents the create record request body
type CreateRecordRequest struct {
	Name          string `json:"name"`
	Amount        string `json:"amount"`
	IsRevenue     bool   `json:"isRevenue"`
	EffectiveDate string `json:"effectiveDate"`
}

// RecordResponse represents a cash record in API responses
type RecordResponse struct {
	ID            int32  `json:"id"`
	TemplateID    *int32 `json:"templateId,omitempty"`
	Name          string `json:"name"`
	Amount        string `json:"amount"`
	IsRevenue     bool   `json:"isRevenue"`
	EffectiveDate string `json:"effectiveDate"`
	CreatedAt     string `json:"createdAt"`
}

func toRecordResponse(record *domain.CashRecord) RecordResponse {
	return RecordResponse{
		ID:            record.ID,
		TemplateID:    record.TemplateID,
		Name:          record.Name,
		Amount:        record.Amount.StringFixed(2),
		IsRevenue:     record.IsRevenue,
		EffectiveDate: record.EffectiveDate.Format("2006-01-02"),
		CreatedAt:     record.CreatedAt.Format(time.RFC3339),
	}
}

// CreateRecord handles POST /api/v1/records for manual entries
func (h *RecordHandler) CreateRecord(c echo.Context) error {
	var req CreateRecordRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	effectiveDate, err := time.Parse("2006-01-02", req.EffectiveDate)
	if err != nil {
		return NewValidationError(c, "Invalid effective date", []ValidationError{
			{Field: "effectiveDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	record, err := h.recordService.CreateRecord(service.CreateRecordInput{
		Name:          req.Name,
		Amount:        amount,
		IsRevenue:     req.IsRevenue,
		EffectiveDate: effectiveDate,
	})
	if err != nil {
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
		}
		log.Error().Err(err).Msg("Failed to create record")
		return NewInternalError(c, "Failed to create record")
	}

	return c.JSON(http.StatusCreated, toRecordResponse(record))
}

// GetRecords handles GET /api/v1/records?from=...&to=...
func (h *RecordHandler) GetRecords(c echo.Context) error {
	from, err := parseDateParam(c, "from")
	if err != nil {
		return err
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return err
	}

	records, err := h.recordService.ListByRange(from, to)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Invalid range", []ValidationError{
				{Field: "to", Message: "Must not be before from"},
			})
		}
		log.Error().Err(err).Msg("Failed to list records")
		return NewInternalError(c, "Failed to list records")
	}

	resp := make([]RecordResponse, len(records))
	for i, record := range records {
		resp[i] = toRecordResponse(record)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetTemplateRecords handles GET /api/v1/templates/:id/records
func (h *RecordHandler) GetTemplateRecords(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	records, err := h.recordService.ListByTemplate(id)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return NewNotFoundError(c, "Template not found")
		}
		log.Error().Err(err).Int32("template_id", id).Msg("Failed to list template records")
		return NewInternalError(c, "Failed to list template records")
	}

	resp := make([]RecordResponse, len(records))
	for i, record := range records {
		resp[i] = toRecordResponse(record)
	}
	return c.JSON(http.StatusOK, resp)
}

func parseDateParam(c echo.Context, name string) (time.Time, error) {
	value := c.QueryParam(name)
	if value == "" {
		return time.Time{}, NewValidationError(c, "Missing "+name, []ValidationError{
			{Field: name, Message: "Required, in YYYY-MM-DD format"},
		})
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, NewValidationError(c, "Invalid "+name, []ValidationError{
			{Field: name, Message: "Must be in YYYY-MM-DD format"},
		})
	}
	return parsed, nil
}
