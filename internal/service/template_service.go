package service

import (
	"strings"
	"time"

	"github.com/nexesmission/ardhi-backend/internal/domain"
	"github.com/nexesmission/ardhi-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// TemplateService handles recurring template business logic
type TemplateService struct {
	templateRepo   domain.RecurringTemplateRepository
	recordRepo     domain.CashRecordRepository
	eventPublisher websocket.EventPublisher
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templateRepo domain.RecurringTemplateRepository, recordRepo domain.CashRecordRepository) *TemplateService {
	return &TemplateService{
		templateRepo: templateRepo,
		recordRepo:   recordRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *TemplateService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *TemplateService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// CreateTemplateInput holds the input for creating a recurring template
type CreateTemplateInput struct {
	Name       string
	Cadence    domain.Cadence
	Anchor     int32
	AnchorTime string
	Amount     decimal.Decimal
	IsRevenue  bool
	StartDate  time.Time
}

// CreateTemplate creates a new recurring template. The first occurrence
// defaults to the start date; anchors are validated here, never at
// generation time.
func (s *TemplateService) CreateTemplate(input CreateTemplateInput) (*domain.RecurringTemplate, error) {
	anchorTime := input.AnchorTime
	if anchorTime == "" {
		anchorTime = "00:00"
	}

	tpl := &domain.RecurringTemplate{
		Name:           strings.TrimSpace(input.Name),
		Cadence:        input.Cadence,
		Anchor:         input.Anchor,
		AnchorTime:     anchorTime,
		Amount:         input.Amount,
		IsRevenue:      input.IsRevenue,
		IsActive:       true,
		NextOccurrence: input.StartDate,
	}

	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	return s.templateRepo.Create(tpl)
}

// ListTemplates retrieves templates, optionally only active ones
func (s *TemplateService) ListTemplates(activeOnly *bool) ([]*domain.RecurringTemplate, error) {
	return s.templateRepo.List(activeOnly)
}

// GetTemplate retrieves a template by ID
func (s *TemplateService) GetTemplate(id int32) (*domain.RecurringTemplate, error) {
	return s.templateRepo.GetByID(id)
}

// UpdateTemplateInput holds the input for updating a recurring template
type UpdateTemplateInput struct {
	Name           string
	Cadence        domain.Cadence
	Anchor         int32
	AnchorTime     string
	Amount         decimal.Decimal
	IsRevenue      bool
	IsActive       bool
	NextOccurrence *time.Time
}

// UpdateTemplate updates a template. The scheduling pointer may be moved
// forward for skips, never behind the last generated occurrence.
func (s *TemplateService) UpdateTemplate(id int32, input UpdateTemplateInput) (*domain.RecurringTemplate, error) {
	existing, err := s.templateRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Cadence = input.Cadence
	existing.Anchor = input.Anchor
	if input.AnchorTime != "" {
		existing.AnchorTime = input.AnchorTime
	}
	existing.Amount = input.Amount
	existing.IsRevenue = input.IsRevenue
	existing.IsActive = input.IsActive

	if input.NextOccurrence != nil {
		if existing.LastGenerated != nil && input.NextOccurrence.Before(*existing.LastGenerated) {
			return nil, domain.ErrPointerMovedBackwards
		}
		existing.NextOccurrence = *input.NextOccurrence
	}

	if err := existing.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.templateRepo.Update(existing)
	if err != nil {
		return nil, err
	}

	s.publishEvent(websocket.TemplateUpdated(map[string]interface{}{
		"templateId": updated.ID,
		"name":       updated.Name,
	}))

	return updated, nil
}

// ToggleActive flips the template's active flag
func (s *TemplateService) ToggleActive(id int32) (*domain.RecurringTemplate, error) {
	existing, err := s.templateRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.templateRepo.SetActive(id, !existing.IsActive)
}

// DeleteTemplateResult reports whether the template was removed or only
// deactivated because generated records still reference it
type DeleteTemplateResult struct {
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}

// DeleteTemplate removes a template, or soft-deactivates it while generated
// records reference it
func (s *TemplateService) DeleteTemplate(id int32) (*DeleteTemplateResult, error) {
	if _, err := s.templateRepo.GetByID(id); err != nil {
		return nil, err
	}

	count, err := s.recordRepo.CountByTemplate(id)
	if err != nil {
		return nil, err
	}

	if count > 0 {
		if _, err := s.templateRepo.SetActive(id, false); err != nil {
			return nil, err
		}
		s.publishEvent(websocket.TemplateDeactivated(map[string]interface{}{"templateId": id}))
		return &DeleteTemplateResult{Deactivated: true}, nil
	}

	if err := s.templateRepo.Delete(id); err != nil {
		return nil, err
	}
	return &DeleteTemplateResult{Deleted: true}, nil
}
