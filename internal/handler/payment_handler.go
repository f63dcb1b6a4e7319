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

// PaymentHandler handles payment and installment HTTP requests
type PaymentHandler struct {
	ledgerService *service.LedgerService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(ledgerService *service.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledgerService: ledgerService}
}

// ApplyPaymentRequest represents the apply payment request body
type ApplyPaymentRequest struct {
	Amount              string `json:"amount"`
	TargetInstallmentID *int32 `json:"targetInstallmentId,omitempty"`
	PaidAt              string `json:"paidAt,omitempty"`
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	ID         int32  `json:"id"`
	SaleID     int32  `json:"saleId"`
	Sequence   int32  `json:"sequence"`
	AmountDue  string `json:"amountDue"`
	AmountPaid string `json:"amountPaid"`
	DueDate    string `json:"dueDate"`
	Status     string `json:"status"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                  int32  `json:"id"`
	SaleID              int32  `json:"saleId"`
	Reference           string `json:"reference"`
	Amount              string `json:"amount"`
	TargetInstallmentID *int32 `json:"targetInstallmentId,omitempty"`
	PaidAt              string `json:"paidAt"`
}

// PaymentOutcomeResponse represents the result of applying a payment
type PaymentOutcomeResponse struct {
	Payment             PaymentResponse       `json:"payment"`
	ChangedInstallments []InstallmentResponse `json:"changedInstallments"`
	Residual            string                `json:"residual"`
}

func toInstallmentResponse(inst *domain.Installment, today time.Time) InstallmentResponse {
	return InstallmentResponse{
		ID:         inst.ID,
		SaleID:     inst.SaleID,
		Sequence:   inst.Sequence,
		AmountDue:  inst.AmountDue.StringFixed(2),
		AmountPaid: inst.AmountPaid.StringFixed(2),
		DueDate:    inst.DueDate.Format("2006-01-02"),
		Status:     string(inst.DeriveStatus(today)),
	}
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                  payment.ID,
		SaleID:              payment.SaleID,
		Reference:           payment.Reference,
		Amount:              payment.Amount.StringFixed(2),
		TargetInstallmentID: payment.TargetInstallmentID,
		PaidAt:              payment.PaidAt.Format(time.RFC3339),
	}
}

// ApplyPayment handles POST /api/v1/sales/:id/payments
func (h *PaymentHandler) ApplyPayment(c echo.Context) error {
	saleID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req ApplyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	paidAt := time.Now().UTC()
	if req.PaidAt != "" {
		paidAt, err = time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			return NewValidationError(c, "Invalid paidAt", []ValidationError{
				{Field: "paidAt", Message: "Must be an RFC 3339 timestamp"},
			})
		}
	}

	outcome, err := h.ledgerService.ApplyPayment(saleID, amount, req.TargetInstallmentID, paidAt)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentAmountInvalid):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "amount", Message: "Amount must be positive"},
			})
		case errors.Is(err, domain.ErrSaleNotFound):
			return NewNotFoundError(c, "Sale not found")
		case errors.Is(err, domain.ErrInstallmentNotFound):
			return NewNotFoundError(c, "Installment not found")
		case errors.Is(err, domain.ErrCrossSalePayment):
			return NewConflictError(c, "Installment does not belong to this sale")
		}
		log.Error().Err(err).Int32("sale_id", saleID).Msg("Failed to apply payment")
		return NewInternalError(c, "Failed to apply payment")
	}

	resp := PaymentOutcomeResponse{
		Payment:             toPaymentResponse(outcome.Payment),
		ChangedInstallments: make([]InstallmentResponse, len(outcome.ChangedInstallments)),
		Residual:            outcome.Residual.StringFixed(2),
	}
	for i, inst := range outcome.ChangedInstallments {
		resp.ChangedInstallments[i] = toInstallmentResponse(inst, paidAt)
	}

	return c.JSON(http.StatusCreated, resp)
}

// GetPayments handles GET /api/v1/sales/:id/payments
func (h *PaymentHandler) GetPayments(c echo.Context) error {
	saleID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	payments, err := h.ledgerService.GetPayments(saleID)
	if err != nil {
		if errors.Is(err, domain.ErrSaleNotFound) {
			return NewNotFoundError(c, "Sale not found")
		}
		log.Error().Err(err).Int32("sale_id", saleID).Msg("Failed to list payments")
		return NewInternalError(c, "Failed to list payments")
	}

	resp := make([]PaymentResponse, len(payments))
	for i, payment := range payments {
		resp[i] = toPaymentResponse(payment)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetInstallments handles GET /api/v1/sales/:id/installments. Statuses are
// re-derived against today, so a row that went past due since the last sweep
// already reads as late.
func (h *PaymentHandler) GetInstallments(c echo.Context) error {
	saleID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	installments, err := h.ledgerService.GetInstallments(saleID)
	if err != nil {
		if errors.Is(err, domain.ErrSaleNotFound) {
			return NewNotFoundError(c, "Sale not found")
		}
		log.Error().Err(err).Int32("sale_id", saleID).Msg("Failed to list installments")
		return NewInternalError(c, "Failed to list installments")
	}

	today := time.Now().UTC()
	resp := make([]InstallmentResponse, len(installments))
	for i, inst := range installments {
		resp[i] = toInstallmentResponse(inst, today)
	}
	return c.JSON(http.StatusOK, resp)
}

// SweepLate handles POST /internal/installments/sweep-late
func (h *PaymentHandler) SweepLate(c echo.Context) error {
	changed, err := h.ledgerService.SweepLate(time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("Late sweep failed")
		return NewInternalError(c, "Late sweep failed")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"changed": changed})
}
