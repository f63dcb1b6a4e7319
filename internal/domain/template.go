package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrTemplateNotFound      = errors.New("recurring template not found")
	ErrTemplateInactive      = errors.New("recurring template is inactive")
	ErrTemplateReferenced    = errors.New("recurring template has generated records")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidAnchorTime     = errors.New("anchor time must be HH:MM between 00:00 and 23:59")
	ErrGenerationConflict    = errors.New("template pointer advanced by a concurrent run")
	ErrPointerMovedBackwards = errors.New("next occurrence may not move backwards")
)

// RecurringTemplate is a standing instruction to materialize a dated cash
// record on a cadence. NextOccurrence is the only scheduling pointer: the
// driver generates a record for it and advances it, never the other way
// around, so it is monotonically non-decreasing for the template's lifetime.
type RecurringTemplate struct {
	ID             int32           `json:"id"`
	Name           string          `json:"name"`
	Cadence        Cadence         `json:"cadence"`
	Anchor         int32           `json:"anchor"`
	AnchorTime     string          `json:"anchorTime"` // "HH:MM", occurrence is due from this time of day
	Amount         decimal.Decimal `json:"amount"`
	IsRevenue      bool            `json:"isRevenue"`
	IsActive       bool            `json:"isActive"`
	NextOccurrence time.Time       `json:"nextOccurrence"`
	LastGenerated  *time.Time      `json:"lastGenerated,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (t *RecurringTemplate) Validate() error {
	if t.Name == "" {
		return ErrNameRequired
	}
	if len(t.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if err := ValidateAnchor(t.Cadence, t.Anchor); err != nil {
		return err
	}
	if _, err := ParseAnchorTime(t.AnchorTime); err != nil {
		return err
	}
	return nil
}

// ParseAnchorTime parses a "HH:MM" wall-clock time into a day offset.
func ParseAnchorTime(s string) (time.Duration, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidAnchorTime
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, ErrInvalidAnchorTime
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// DueAt reports whether the template's next occurrence is due at the given
// instant: the occurrence date has passed, or it is the same day and the
// anchor time has been reached.
func (t *RecurringTemplate) DueAt(now time.Time) bool {
	occY, occM, occD := t.NextOccurrence.Date()
	nowY, nowM, nowD := now.Date()
	occDate := time.Date(occY, occM, occD, 0, 0, 0, 0, time.UTC)
	nowDate := time.Date(nowY, nowM, nowD, 0, 0, 0, 0, time.UTC)
	if occDate.After(nowDate) {
		return false
	}
	if occDate.Before(nowDate) {
		return true
	}
	offset, err := ParseAnchorTime(t.AnchorTime)
	if err != nil {
		return true
	}
	midnight := time.Date(nowY, nowM, nowD, 0, 0, 0, 0, now.Location())
	return now.Sub(midnight) >= offset
}

type RecurringTemplateRepository interface {
	Create(t *RecurringTemplate) (*RecurringTemplate, error)
	GetByID(id int32) (*RecurringTemplate, error)
	List(activeOnly *bool) ([]*RecurringTemplate, error)
	ListDue(now time.Time) ([]*RecurringTemplate, error)
	Update(t *RecurringTemplate) (*RecurringTemplate, error)
	SetActive(id int32, active bool) (*RecurringTemplate, error)
	Delete(id int32) error
	// AdvancePointer atomically sets lastGenerated to expectedNext and
	// nextOccurrence to newNext, but only while nextOccurrence still equals
	// expectedNext. Returns ErrGenerationConflict when the guard fails.
	AdvancePointer(id int32, expectedNext, newNext time.Time) error
}
