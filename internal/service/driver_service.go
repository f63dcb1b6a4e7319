package service

import (
	"errors"
	"time"

	"github.com/nexesmission/ardhi-backend/internal/domain"
	"github.com/nexesmission/ardhi-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

// DriverService materializes cash records from due recurring templates.
// It is invoked periodically by an external scheduler; concurrent or
// repeated invocations are safe because each template's pointer is advanced
// with a compare-and-swap on its nextOccurrence value.
type DriverService struct {
	templateRepo   domain.RecurringTemplateRepository
	recordRepo     domain.CashRecordRepository
	eventPublisher websocket.EventPublisher
}

// NewDriverService creates a new DriverService
func NewDriverService(templateRepo domain.RecurringTemplateRepository, recordRepo domain.CashRecordRepository) *DriverService {
	return &DriverService{
		templateRepo: templateRepo,
		recordRepo:   recordRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *DriverService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *DriverService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// GeneratedEntry identifies one materialized occurrence
type GeneratedEntry struct {
	TemplateID    int32     `json:"templateId"`
	RecordID      int32     `json:"recordId"`
	EffectiveDate time.Time `json:"effectiveDate"`
}

// RunDueResult accounts for one driver run
type RunDueResult struct {
	Generated []GeneratedEntry `json:"generated"`
	Skipped   int              `json:"skipped"`
	Errors    []string         `json:"errors,omitempty"`
}

// RunDue materializes one record per due template and advances each
// template's pointer past the occurrence. A template whose pointer was
// advanced by a concurrent run is skipped; any other per-template failure
// is logged and does not abort the batch. Re-running immediately after a
// successful run generates nothing.
func (s *DriverService) RunDue(now time.Time) (*RunDueResult, error) {
	templates, err := s.templateRepo.ListDue(now)
	if err != nil {
		return nil, err
	}

	result := &RunDueResult{}
	for _, tpl := range templates {
		// The repository filters on the occurrence date; the anchor time
		// check needs the template's own clock-of-day rule.
		if !tpl.DueAt(now) {
			continue
		}

		entry, err := s.generateOne(tpl)
		if err != nil {
			if errors.Is(err, domain.ErrGenerationConflict) || errors.Is(err, domain.ErrRecordExists) {
				log.Debug().
					Int32("template_id", tpl.ID).
					Time("occurrence", tpl.NextOccurrence).
					Msg("Occurrence already materialized by a concurrent run, skipping")
				result.Skipped++
				continue
			}
			log.Error().Err(err).Int32("template_id", tpl.ID).Msg("Failed to generate record for template")
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		result.Generated = append(result.Generated, *entry)
	}

	log.Info().
		Int("generated", len(result.Generated)).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("Recurrence run complete")

	return result, nil
}

// generateOne materializes a single occurrence. The record carries the
// scheduled occurrence date, not the wall clock, and the pointer advance is
// guarded against concurrent runs by the repository.
func (s *DriverService) generateOne(tpl *domain.RecurringTemplate) (*GeneratedEntry, error) {
	record := &domain.CashRecord{
		TemplateID:    &tpl.ID,
		Name:          tpl.Name,
		Amount:        tpl.Amount,
		IsRevenue:     tpl.IsRevenue,
		EffectiveDate: tpl.NextOccurrence,
	}

	newNext := domain.NextOccurrence(tpl.Cadence, tpl.Anchor, tpl.NextOccurrence)

	created, err := s.recordRepo.CreateForOccurrence(record, tpl.NextOccurrence, newNext)
	if err != nil {
		return nil, err
	}

	s.publishEvent(websocket.RecordGenerated(map[string]interface{}{
		"templateId":    tpl.ID,
		"recordId":      created.ID,
		"amount":        created.Amount.StringFixed(2),
		"isRevenue":     created.IsRevenue,
		"effectiveDate": created.EffectiveDate.Format("2006-01-02"),
	}))

	return &GeneratedEntry{
		TemplateID:    tpl.ID,
		RecordID:      created.ID,
		EffectiveDate: created.EffectiveDate,
	}, nil
}
