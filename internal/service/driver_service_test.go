package service

import (
	"errors"
	"testing"
	"time"

	"github.com/nexesmission/ardhi-backend/internal/domain"
	"github.com/nexesmission/ardhi-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriverFixture() (*DriverService, *testutil.MockTemplateRepository, *testutil.MockRecordRepository) {
	templateRepo := testutil.NewMockTemplateRepository()
	recordRepo := testutil.NewMockRecordRepository(templateRepo)
	return NewDriverService(templateRepo, recordRepo), templateRepo, recordRepo
}

func monthlyRentTemplate(next time.Time) *domain.RecurringTemplate {
	return &domain.RecurringTemplate{
		Name:           "Office rent",
		Cadence:        domain.CadenceMonthly,
		Anchor:         1,
		AnchorTime:     "00:00",
		Amount:         decimal.RequireFromString("45000.00"),
		IsRevenue:      false,
		IsActive:       true,
		NextOccurrence: next,
	}
}

func TestRunDueGeneratesAndAdvances(t *testing.T) {
	svc, templateRepo, recordRepo := newDriverFixture()
	tpl := monthlyRentTemplate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	templateRepo.AddTemplate(tpl)

	result, err := svc.RunDue(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, result.Generated, 1)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	// The record carries the scheduled date, not the run's wall clock
	record, err := recordRepo.ListByTemplate(tpl.ID)
	require.NoError(t, err)
	require.Len(t, record, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), record[0].EffectiveDate)
	assert.True(t, record[0].Amount.Equal(tpl.Amount))
	assert.False(t, record[0].IsRevenue)
	require.NotNil(t, record[0].TemplateID)
	assert.Equal(t, tpl.ID, *record[0].TemplateID)

	updated, err := templateRepo.GetByID(tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), updated.NextOccurrence)
	require.NotNil(t, updated.LastGenerated)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *updated.LastGenerated)
}

func TestRunDueIdempotent(t *testing.T) {
	svc, templateRepo, recordRepo := newDriverFixture()
	templateRepo.AddTemplate(monthlyRentTemplate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

	first, err := svc.RunDue(now)
	require.NoError(t, err)
	require.Len(t, first.Generated, 1)

	second, err := svc.RunDue(now)
	require.NoError(t, err)
	assert.Empty(t, second.Generated)
	assert.Equal(t, 0, second.Skipped)

	assert.Len(t, recordRepo.Records, 1)
}

func TestRunDueOneOccurrencePerRun(t *testing.T) {
	svc, templateRepo, recordRepo := newDriverFixture()
	tpl := monthlyRentTemplate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	templateRepo.AddTemplate(tpl)

	// The driver advances one period per run, so a backlog drains across
	// successive runs rather than in a burst
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	wantDates := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	for i, want := range wantDates {
		result, err := svc.RunDue(now)
		require.NoError(t, err)
		require.Len(t, result.Generated, 1, "run %d", i+1)
		assert.Equal(t, want, result.Generated[0].EffectiveDate, "run %d", i+1)
	}

	result, err := svc.RunDue(now)
	require.NoError(t, err)
	assert.Empty(t, result.Generated)
	assert.Len(t, recordRepo.Records, 3)
}

func TestRunDueAnchorTime(t *testing.T) {
	svc, templateRepo, _ := newDriverFixture()
	tpl := monthlyRentTemplate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	tpl.AnchorTime = "09:00"
	templateRepo.AddTemplate(tpl)

	// Same day but before the anchor time: nothing happens
	early, err := svc.RunDue(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, early.Generated)
	assert.Equal(t, 0, early.Skipped)

	late, err := svc.RunDue(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, late.Generated, 1)
}

func TestRunDueSkipsMaterializedOccurrence(t *testing.T) {
	svc, templateRepo, recordRepo := newDriverFixture()
	tpl := monthlyRentTemplate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	templateRepo.AddTemplate(tpl)

	// A record for the occurrence already exists, as after a crash between
	// insert and response on a previous run
	_, err := recordRepo.Create(&domain.CashRecord{
		TemplateID:    &tpl.ID,
		Name:          tpl.Name,
		Amount:        tpl.Amount,
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	result, err := svc.RunDue(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, result.Generated)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Errors)
	assert.Len(t, recordRepo.Records, 1)
}

func TestRunDueIgnoresInactiveAndFuture(t *testing.T) {
	svc, templateRepo, _ := newDriverFixture()

	inactive := monthlyRentTemplate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	inactive.IsActive = false
	templateRepo.AddTemplate(inactive)

	future := monthlyRentTemplate(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	templateRepo.AddTemplate(future)

	result, err := svc.RunDue(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, result.Generated)
	assert.Equal(t, 0, result.Skipped)
}

func TestRunDueBatchSurvivesPerTemplateFailure(t *testing.T) {
	svc, templateRepo, recordRepo := newDriverFixture()

	first := monthlyRentTemplate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	templateRepo.AddTemplate(first)
	healthy := monthlyRentTemplate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	healthy.Name = "Caretaker salary"
	templateRepo.AddTemplate(healthy)

	// The first insert fails mid-batch; the second template must still generate
	recordRepo.FailNext = errors.New("disk full")

	result, err := svc.RunDue(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, result.Generated, 1)
	assert.Equal(t, healthy.ID, result.Generated[0].TemplateID)
	assert.Len(t, result.Errors, 1)
	assert.Len(t, recordRepo.Records, 1)
}
