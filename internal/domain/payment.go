package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrPaymentAmountInvalid   = errors.New("payment amount must be positive")
	ErrRoundingReconciliation = errors.New("installment amounts do not sum to the financed amount")
)

// Payment is one application of money to a sale's obligations. Its effects
// never leave the sale: carry-forward stops at the sale's last installment
// and any remainder is reported back as Residual, not applied elsewhere.
type Payment struct {
	ID                  int32           `json:"id"`
	SaleID              int32           `json:"saleId"`
	Reference           string          `json:"reference"`
	Amount              decimal.Decimal `json:"amount"`
	TargetInstallmentID *int32          `json:"targetInstallmentId,omitempty"`
	PaidAt              time.Time       `json:"paidAt"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// PaymentOutcome is what ApplyPayment hands back to the caller for
// persistence of audit trails, notifications and credit accounting.
type PaymentOutcome struct {
	Payment             *Payment        `json:"payment"`
	ChangedInstallments []*Installment  `json:"changedInstallments"`
	Residual            decimal.Decimal `json:"residual"`
}

type PaymentRepository interface {
	// RecordApplication persists the payment and the new state of every
	// touched installment atomically, locking the sale row for the duration.
	RecordApplication(payment *Payment, touched []*Installment) (*Payment, error)
	GetBySaleID(saleID int32) ([]*Payment, error)
}
