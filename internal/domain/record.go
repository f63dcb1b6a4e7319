package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrRecordExists = errors.New("a record for this occurrence already exists")

// CashRecord is one materialized financial entry. EffectiveDate is the
// scheduled occurrence date, not the wall clock at generation time; at most
// one record exists per (template, effective date) pair.
type CashRecord struct {
	ID            int32           `json:"id"`
	TemplateID    *int32          `json:"templateId,omitempty"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	IsRevenue     bool            `json:"isRevenue"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (r *CashRecord) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	if len(r.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

type CashRecordRepository interface {
	// Create persists a manually entered record (no template reference
	// required).
	Create(record *CashRecord) (*CashRecord, error)
	// CreateForOccurrence persists the record and advances the template
	// pointer from expectedNext to newNext in one atomic step. It fails with
	// ErrGenerationConflict when the pointer no longer equals expectedNext,
	// and with ErrRecordExists when the occurrence was already materialized.
	CreateForOccurrence(record *CashRecord, expectedNext, newNext time.Time) (*CashRecord, error)
	ListByTemplate(templateID int32) ([]*CashRecord, error)
	ListByRange(from, to time.Time) ([]*CashRecord, error)
	CountByTemplate(templateID int32) (int64, error)
}
