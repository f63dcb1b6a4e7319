package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrCrossSalePayment    = errors.New("installment does not belong to the given sale")
)

// InstallmentStatus is derived from amounts and the due date. Paid is
// terminal; late is a time overlay on unpaid/partial and is recomputed on
// read, the stored value is a query convenience only.
type InstallmentStatus string

const (
	StatusUnpaid  InstallmentStatus = "unpaid"
	StatusPartial InstallmentStatus = "partial"
	StatusPaid    InstallmentStatus = "paid"
	StatusLate    InstallmentStatus = "late"
)

// Installment is one scheduled obligation within a sale. Sequence is unique
// per sale, 1..N; the amounts due across a sale sum to its financed amount.
type Installment struct {
	ID         int32             `json:"id"`
	SaleID     int32             `json:"saleId"`
	Sequence   int32             `json:"sequence"`
	AmountDue  decimal.Decimal   `json:"amountDue"`
	AmountPaid decimal.Decimal   `json:"amountPaid"`
	DueDate    time.Time         `json:"dueDate"`
	Status     InstallmentStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Outstanding returns the unpaid remainder of the obligation.
func (i *Installment) Outstanding() decimal.Decimal {
	rem := i.AmountDue.Sub(i.AmountPaid)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// IsSettled reports whether the obligation is fully covered.
func (i *Installment) IsSettled() bool {
	return i.AmountPaid.GreaterThanOrEqual(i.AmountDue)
}

// DeriveStatus recomputes the status from amounts and the due date.
func (i *Installment) DeriveStatus(today time.Time) InstallmentStatus {
	if i.IsSettled() {
		return StatusPaid
	}
	y, m, d := today.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if i.DueDate.Before(startOfDay) {
		return StatusLate
	}
	if i.AmountPaid.IsPositive() {
		return StatusPartial
	}
	return StatusUnpaid
}

type InstallmentRepository interface {
	GetByID(id int32) (*Installment, error)
	// GetBySaleID returns the sale's installments ordered by sequence.
	GetBySaleID(saleID int32) ([]*Installment, error)
	// SweepLate re-stamps the stored status of every non-paid installment
	// whose due date has passed, returning the number of rows changed.
	SweepLate(today time.Time) (int64, error)
}
