package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSaleNotFound          = errors.New("sale not found")
	ErrSalePriceInvalid      = errors.New("base price must be positive")
	ErrSaleAdvanceInvalid    = errors.New("advance must be non-negative and below the total payable")
	ErrSaleFeeInvalid        = errors.New("fee percent must be between 0 and 100")
	ErrSaleTargetInvalid     = errors.New("exactly one of months or monthly amount is required")
	ErrSaleReferenceRequired = errors.New("sale reference is required")
)

// Sale is a financed land transaction. Advances are resolved to a fixed
// amount at creation; FinancedAmount = TotalPayable - AdvanceAmount is the
// sum scheduled across the sale's installments, exactly.
type Sale struct {
	ID             int32            `json:"id"`
	Reference      string           `json:"reference"`
	ClientName     string           `json:"clientName"`
	BasePrice      decimal.Decimal  `json:"basePrice"`
	FeePercent     decimal.Decimal  `json:"feePercent"`
	TotalPayable   decimal.Decimal  `json:"totalPayable"`
	AdvanceAmount  decimal.Decimal  `json:"advanceAmount"`
	FinancedAmount decimal.Decimal  `json:"financedAmount"`
	Months         *int32           `json:"months,omitempty"`
	MonthlyAmount  *decimal.Decimal `json:"monthlyAmount,omitempty"`
	StartDate      time.Time        `json:"startDate"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	DeletedAt      *time.Time       `json:"deletedAt,omitempty"`
}

type SaleRepository interface {
	// CreateWithInstallments persists the sale and its full installment
	// schedule atomically.
	CreateWithInstallments(sale *Sale, installments []*Installment) (*Sale, error)
	GetByID(id int32) (*Sale, error)
	List() ([]*Sale, error)
	SoftDelete(id int32) error
}
