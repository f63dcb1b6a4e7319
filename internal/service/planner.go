package service

import (
	"time"

	"github.com/nexesmission/ardhi-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// PlanTarget picks one of the two ways to shape a schedule: a fixed number
// of months (monthly amount derived) or a fixed monthly amount (count
// derived).
type PlanTarget struct {
	Months        *int32
	MonthlyAmount *decimal.Decimal
}

// PlannedInstallment is one row of a schedule before persistence.
type PlannedInstallment struct {
	Sequence  int32           `json:"sequence"`
	AmountDue decimal.Decimal `json:"amountDue"`
	DueDate   time.Time       `json:"dueDate"`
}

// PlanInstallments turns a financed amount into an ordered schedule whose
// amounts sum to the financed amount exactly. Rounding drift is absorbed by
// the last installment only; a result that fails to reconcile is a
// programmer error, never silently truncated.
func PlanInstallments(financed decimal.Decimal, target PlanTarget, startDate time.Time) ([]PlannedInstallment, error) {
	if financed.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrSalePriceInvalid
	}
	if (target.Months == nil) == (target.MonthlyAmount == nil) {
		return nil, domain.ErrSaleTargetInvalid
	}

	var count int
	var monthly decimal.Decimal

	switch {
	case target.MonthlyAmount != nil:
		monthly = *target.MonthlyAmount
		if monthly.LessThanOrEqual(decimal.Zero) {
			return nil, domain.ErrSaleTargetInvalid
		}
		count = int(financed.Div(monthly).Ceil().IntPart())
	default:
		if *target.Months < 1 {
			return nil, domain.ErrSaleTargetInvalid
		}
		count = int(*target.Months)
		monthly = financed.Div(decimal.NewFromInt(int64(count))).Round(2)
	}

	installments := make([]PlannedInstallment, count)
	running := decimal.Zero
	for i := 0; i < count; i++ {
		amount := monthly
		if i == count-1 {
			// Last row absorbs the residual so the running total matches
			amount = financed.Sub(running)
			if amount.LessThanOrEqual(decimal.Zero) {
				// More rows than cents to spread across them
				return nil, domain.ErrSaleTargetInvalid
			}
		}
		installments[i] = PlannedInstallment{
			Sequence:  int32(i + 1),
			AmountDue: amount,
			DueDate:   domain.AddMonthsClamped(startDate, i+1),
		}
		running = running.Add(amount)
	}

	if !running.Equal(financed) {
		return nil, domain.ErrRoundingReconciliation
	}

	return installments, nil
}
