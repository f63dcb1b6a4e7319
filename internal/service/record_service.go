package service

import (
	"strings"
	"time"

	"github.com/nexesmission/ardhi-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// RecordService handles manually entered and generated cash records
type RecordService struct {
	recordRepo   domain.CashRecordRepository
	templateRepo domain.RecurringTemplateRepository
}

// NewRecordService creates a new RecordService
func NewRecordService(recordRepo domain.CashRecordRepository, templateRepo domain.RecurringTemplateRepository) *RecordService {
	return &RecordService{
		recordRepo:   recordRepo,
		templateRepo: templateRepo,
	}
}

// CreateRecordInput holds the input for a manually entered record
type CreateRecordInput struct {
	Name          string
	Amount        decimal.Decimal
	IsRevenue     bool
	EffectiveDate time.Time
}

// CreateRecord persists a manual record. Manual entries carry no template
// reference and are not part of any idempotency window.
func (s *RecordService) CreateRecord(input CreateRecordInput) (*domain.CashRecord, error) {
	record := &domain.CashRecord{
		Name:          strings.TrimSpace(input.Name),
		Amount:        input.Amount,
		IsRevenue:     input.IsRevenue,
		EffectiveDate: input.EffectiveDate,
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return s.recordRepo.Create(record)
}

// ListByTemplate retrieves all records generated from a template
func (s *RecordService) ListByTemplate(templateID int32) ([]*domain.CashRecord, error) {
	if _, err := s.templateRepo.GetByID(templateID); err != nil {
		return nil, err
	}
	return s.recordRepo.ListByTemplate(templateID)
}

// ListByRange retrieves records effective within [from, to]
func (s *RecordService) ListByRange(from, to time.Time) ([]*domain.CashRecord, error) {
	if to.Before(from) {
		return nil, domain.ErrInvalidInput
	}
	return s.recordRepo.ListByRange(from, to)
}
