package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nexesmission/ardhi-backend/internal/domain"
	"github.com/nexesmission/ardhi-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// SaleHandler handles sale-related HTTP requests
type SaleHandler struct {
	saleService *service.SaleService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService *service.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// CreateSaleRequest represents the create sale request body
type CreateSaleRequest struct {
	Reference        string  `json:"reference"`
	ClientName       string  `json:"clientName"`
	BasePrice        string  `json:"basePrice"`
	FeePercent       string  `json:"feePercent"`
	Advance          string  `json:"advance"`
	AdvanceIsPercent bool    `json:"advanceIsPercent"`
	Months           *int32  `json:"months,omitempty"`
	MonthlyAmount    *string `json:"monthlyAmount,omitempty"`
	StartDate        string  `json:"startDate"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID             int32   `json:"id"`
	Reference      string  `json:"reference"`
	ClientName     string  `json:"clientName"`
	BasePrice      string  `json:"basePrice"`
	FeePercent     string  `json:"feePercent"`
	TotalPayable   string  `json:"totalPayable"`
	AdvanceAmount  string  `json:"advanceAmount"`
	FinancedAmount string  `json:"financedAmount"`
	Months         *int32  `json:"months,omitempty"`
	MonthlyAmount  *string `json:"monthlyAmount,omitempty"`
	StartDate      string  `json:"startDate"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

func toSaleResponse(sale *domain.Sale) SaleResponse {
	resp := SaleResponse{
		ID:             sale.ID,
		Reference:      sale.Reference,
		ClientName:     sale.ClientName,
		BasePrice:      sale.BasePrice.StringFixed(2),
		FeePercent:     sale.FeePercent.StringFixed(2),
		TotalPayable:   sale.TotalPayable.StringFixed(2),
		AdvanceAmount:  sale.AdvanceAmount.StringFixed(2),
		FinancedAmount: sale.FinancedAmount.StringFixed(2),
		Months:         sale.Months,
		StartDate:      sale.StartDate.Format("2006-01-02"),
		CreatedAt:      sale.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      sale.UpdatedAt.Format(time.RFC3339),
	}
	if sale.MonthlyAmount != nil {
		s := sale.MonthlyAmount.StringFixed(2)
		resp.MonthlyAmount = &s
	}
	return resp
}

func (h *SaleHandler) parseInput(c echo.Context) (*service.CreateSaleInput, error) {
	var req CreateSaleRequest
	if err := c.Bind(&req); err != nil {
		return nil, NewValidationError(c, "Invalid request body", nil)
	}

	basePrice, err := decimal.NewFromString(req.BasePrice)
	if err != nil {
		return nil, NewValidationError(c, "Invalid base price", []ValidationError{
			{Field: "basePrice", Message: "Must be a valid decimal number"},
		})
	}

	feePercent := decimal.Zero
	if req.FeePercent != "" {
		feePercent, err = decimal.NewFromString(req.FeePercent)
		if err != nil {
			return nil, NewValidationError(c, "Invalid fee percent", []ValidationError{
				{Field: "feePercent", Message: "Must be a valid decimal number"},
			})
		}
	}

	advance := decimal.Zero
	if req.Advance != "" {
		advance, err = decimal.NewFromString(req.Advance)
		if err != nil {
			return nil, NewValidationError(c, "Invalid advance", []ValidationError{
				{Field: "advance", Message: "Must be a valid decimal number"},
			})
		}
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, NewValidationError(c, "Invalid start date", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	var monthlyAmount *decimal.Decimal
	if req.MonthlyAmount != nil && *req.MonthlyAmount != "" {
		amount, err := decimal.NewFromString(*req.MonthlyAmount)
		if err != nil {
			return nil, NewValidationError(c, "Invalid monthly amount", []ValidationError{
				{Field: "monthlyAmount", Message: "Must be a valid decimal number"},
			})
		}
		monthlyAmount = &amount
	}

	return &service.CreateSaleInput{
		Reference:        req.Reference,
		ClientName:       req.ClientName,
		BasePrice:        basePrice,
		FeePercent:       feePercent,
		Advance:          advance,
		AdvanceIsPercent: req.AdvanceIsPercent,
		Months:           req.Months,
		MonthlyAmount:    monthlyAmount,
		StartDate:        startDate,
	}, nil
}

func saleErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrSaleReferenceRequired):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "reference", Message: "Reference is required"},
		})
	case errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "reference", Message: "Must be 255 characters or less"},
		})
	case errors.Is(err, domain.ErrSalePriceInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "basePrice", Message: "Base price must be positive"},
		})
	case errors.Is(err, domain.ErrSaleFeeInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "feePercent", Message: "Fee percent must be between 0 and 100"},
		})
	case errors.Is(err, domain.ErrSaleAdvanceInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "advance", Message: "Advance must be non-negative and below the total payable"},
		})
	case errors.Is(err, domain.ErrSaleTargetInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "months", Message: "Provide exactly one of months or monthlyAmount"},
		})
	}
	return nil
}

// CreateSale handles POST /api/v1/sales
func (h *SaleHandler) CreateSale(c echo.Context) error {
	input, err := h.parseInput(c)
	if err != nil {
		return err
	}

	sale, err := h.saleService.CreateSale(*input)
	if err != nil {
		if resp := saleErrorResponse(c, err); resp != nil {
			return resp
		}
		log.Error().Err(err).Msg("Failed to create sale")
		return NewInternalError(c, "Failed to create sale")
	}

	log.Info().Int32("sale_id", sale.ID).Str("reference", sale.Reference).Msg("Sale created")

	return c.JSON(http.StatusCreated, toSaleResponse(sale))
}

// PreviewSale handles POST /api/v1/sales/preview
func (h *SaleHandler) PreviewSale(c echo.Context) error {
	input, err := h.parseInput(c)
	if err != nil {
		return err
	}

	preview, err := h.saleService.PreviewSale(*input)
	if err != nil {
		if resp := saleErrorResponse(c, err); resp != nil {
			return resp
		}
		log.Error().Err(err).Msg("Failed to preview sale")
		return NewInternalError(c, "Failed to preview sale")
	}

	return c.JSON(http.StatusOK, preview)
}

// GetSales handles GET /api/v1/sales
func (h *SaleHandler) GetSales(c echo.Context) error {
	sales, err := h.saleService.ListSales()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list sales")
		return NewInternalError(c, "Failed to list sales")
	}

	resp := make([]SaleResponse, len(sales))
	for i, sale := range sales {
		resp[i] = toSaleResponse(sale)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetSale handles GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	sale, err := h.saleService.GetSale(id)
	if err != nil {
		if errors.Is(err, domain.ErrSaleNotFound) {
			return NewNotFoundError(c, "Sale not found")
		}
		log.Error().Err(err).Int32("sale_id", id).Msg("Failed to get sale")
		return NewInternalError(c, "Failed to get sale")
	}

	return c.JSON(http.StatusOK, toSaleResponse(sale))
}

// GetSaleSummary handles GET /api/v1/sales/:id/summary
func (h *SaleHandler) GetSaleSummary(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	summary, err := h.saleService.GetSaleSummary(id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrSaleNotFound) {
			return NewNotFoundError(c, "Sale not found")
		}
		log.Error().Err(err).Int32("sale_id", id).Msg("Failed to get sale summary")
		return NewInternalError(c, "Failed to get sale summary")
	}

	return c.JSON(http.StatusOK, summary)
}

// DeleteSale handles DELETE /api/v1/sales/:id
func (h *SaleHandler) DeleteSale(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := h.saleService.DeleteSale(id); err != nil {
		if errors.Is(err, domain.ErrSaleNotFound) {
			return NewNotFoundError(c, "Sale not found")
		}
		log.Error().Err(err).Int32("sale_id", id).Msg("Failed to delete sale")
		return NewInternalError(c, "Failed to delete sale")
	}

	return c.NoContent(http.StatusNoContent)
}

func parseIDParam(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id < 1 {
		return 0, NewValidationError(c, "Invalid ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}
	return int32(id), nil
}
