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

type ledgerFixture struct {
	svc             *LedgerService
	saleRepo        *testutil.MockSaleRepository
	installmentRepo *testutil.MockInstallmentRepository
	paymentRepo     *testutil.MockPaymentRepository
}

func newLedgerFixture() *ledgerFixture {
	installmentRepo := testutil.NewMockInstallmentRepository()
	saleRepo := testutil.NewMockSaleRepository(installmentRepo)
	paymentRepo := testutil.NewMockPaymentRepository(installmentRepo)
	return &ledgerFixture{
		svc:             NewLedgerService(saleRepo, installmentRepo, paymentRepo),
		saleRepo:        saleRepo,
		installmentRepo: installmentRepo,
		paymentRepo:     paymentRepo,
	}
}

// seedSale creates a sale with one 100.00 installment per month starting
// February 2024, all unpaid.
func (f *ledgerFixture) seedSale(reference string, rows int) *domain.Sale {
	sale := &domain.Sale{Reference: reference}
	f.saleRepo.AddSale(sale)
	due := decimal.RequireFromString("100.00")
	for i := 0; i < rows; i++ {
		f.installmentRepo.AddInstallment(&domain.Installment{
			SaleID:     sale.ID,
			Sequence:   int32(i + 1),
			AmountDue:  due,
			AmountPaid: decimal.Zero,
			DueDate:    time.Date(2024, time.Month(2+i), 1, 0, 0, 0, 0, time.UTC),
			Status:     domain.StatusUnpaid,
		})
	}
	return sale
}

func TestApplyPaymentCarryForward(t *testing.T) {
	f := newLedgerFixture()
	sale := f.seedSale("PLOT-C-001", 3)
	paidAt := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	outcome, err := f.svc.ApplyPayment(sale.ID, decimal.RequireFromString("150.00"), nil, paidAt)
	require.NoError(t, err)
	require.Len(t, outcome.ChangedInstallments, 2)
	assert.True(t, outcome.Residual.IsZero())

	installments, err := f.installmentRepo.GetBySaleID(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, installments[0].Status)
	assert.True(t, installments[0].AmountPaid.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, domain.StatusPartial, installments[1].Status)
	assert.True(t, installments[1].AmountPaid.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, domain.StatusUnpaid, installments[2].Status)

	payments, err := f.svc.GetPayments(sale.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.NotEmpty(t, payments[0].Reference)
}

func TestApplyPaymentResidualCredit(t *testing.T) {
	f := newLedgerFixture()
	sale := f.seedSale("PLOT-C-002", 3)
	paidAt := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	outcome, err := f.svc.ApplyPayment(sale.ID, decimal.RequireFromString("350.00"), nil, paidAt)
	require.NoError(t, err)

	// Everything settles and 50.00 comes back as credit, applied nowhere
	assert.True(t, outcome.Residual.Equal(decimal.RequireFromString("50.00")))
	installments, err := f.installmentRepo.GetBySaleID(sale.ID)
	require.NoError(t, err)
	for _, inst := range installments {
		assert.Equal(t, domain.StatusPaid, inst.Status)
		assert.True(t, inst.AmountPaid.Equal(inst.AmountDue), "overpayment must not inflate amountPaid")
	}
}

func TestApplyPaymentTargeted(t *testing.T) {
	f := newLedgerFixture()
	sale := f.seedSale("PLOT-C-003", 3)
	paidAt := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	installments, err := f.installmentRepo.GetBySaleID(sale.ID)
	require.NoError(t, err)
	target := installments[1].ID

	outcome, err := f.svc.ApplyPayment(sale.ID, decimal.RequireFromString("100.00"), &target, paidAt)
	require.NoError(t, err)
	require.Len(t, outcome.ChangedInstallments, 1)

	installments, err = f.installmentRepo.GetBySaleID(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnpaid, installments[0].Status, "earlier installment is skipped when targeting")
	assert.Equal(t, domain.StatusPaid, installments[1].Status)
	assert.Equal(t, domain.StatusUnpaid, installments[2].Status)
}

func TestApplyPaymentCrossSaleRejected(t *testing.T) {
	f := newLedgerFixture()
	saleA := f.seedSale("PLOT-C-004", 2)
	saleB := f.seedSale("PLOT-C-005", 2)
	paidAt := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	other, err := f.installmentRepo.GetBySaleID(saleB.ID)
	require.NoError(t, err)
	foreign := other[0].ID

	_, err = f.svc.ApplyPayment(saleA.ID, decimal.RequireFromString("100.00"), &foreign, paidAt)
	assert.ErrorIs(t, err, domain.ErrCrossSalePayment)

	// Neither sale moved
	for _, saleID := range []int32{saleA.ID, saleB.ID} {
		installments, err := f.installmentRepo.GetBySaleID(saleID)
		require.NoError(t, err)
		for _, inst := range installments {
			assert.True(t, inst.AmountPaid.IsZero())
			assert.Equal(t, domain.StatusUnpaid, inst.Status)
		}
	}
	assert.Empty(t, f.paymentRepo.Payments)
}

func TestApplyPaymentValidation(t *testing.T) {
	f := newLedgerFixture()
	sale := f.seedSale("PLOT-C-006", 1)
	paidAt := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.ApplyPayment(sale.ID, decimal.Zero, nil, paidAt)
	assert.ErrorIs(t, err, domain.ErrPaymentAmountInvalid)

	_, err = f.svc.ApplyPayment(sale.ID, decimal.RequireFromString("-10.00"), nil, paidAt)
	assert.ErrorIs(t, err, domain.ErrPaymentAmountInvalid)

	_, err = f.svc.ApplyPayment(999, decimal.RequireFromString("10.00"), nil, paidAt)
	assert.ErrorIs(t, err, domain.ErrSaleNotFound)
}

func TestApplyPaymentPersistenceFailureMutatesNothing(t *testing.T) {
	f := newLedgerFixture()
	sale := f.seedSale("PLOT-C-007", 2)
	paidAt := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	boom := errors.New("connection reset")
	f.paymentRepo.FailNext = boom

	_, err := f.svc.ApplyPayment(sale.ID, decimal.RequireFromString("150.00"), nil, paidAt)
	assert.ErrorIs(t, err, boom)

	installments, err := f.installmentRepo.GetBySaleID(sale.ID)
	require.NoError(t, err)
	for _, inst := range installments {
		assert.True(t, inst.AmountPaid.IsZero())
	}
	assert.Empty(t, f.paymentRepo.Payments)
}

func TestApplyPaymentFullySettledSale(t *testing.T) {
	f := newLedgerFixture()
	sale := f.seedSale("PLOT-C-008", 1)
	paidAt := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.ApplyPayment(sale.ID, decimal.RequireFromString("100.00"), nil, paidAt)
	require.NoError(t, err)

	// A payment against a settled sale touches nothing and comes back whole
	outcome, err := f.svc.ApplyPayment(sale.ID, decimal.RequireFromString("25.00"), nil, paidAt)
	require.NoError(t, err)
	assert.Empty(t, outcome.ChangedInstallments)
	assert.True(t, outcome.Residual.Equal(decimal.RequireFromString("25.00")))
}

func TestSweepLate(t *testing.T) {
	f := newLedgerFixture()
	sale := f.seedSale("PLOT-C-009", 3)
	paidAt := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	// Settle the first row so it cannot be swept
	installments, err := f.installmentRepo.GetBySaleID(sale.ID)
	require.NoError(t, err)
	first := installments[0].ID
	_, err = f.svc.ApplyPayment(sale.ID, decimal.RequireFromString("100.00"), &first, paidAt)
	require.NoError(t, err)

	// March 2 makes the March 1 row late; the April row is still ahead
	changed, err := f.svc.SweepLate(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	installments, err = f.installmentRepo.GetBySaleID(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, installments[0].Status)
	assert.Equal(t, domain.StatusLate, installments[1].Status)
	assert.Equal(t, domain.StatusUnpaid, installments[2].Status)

	// Re-running sweeps nothing new
	changed, err = f.svc.SweepLate(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)
}

func TestApplyPaymentDueTodayNotLate(t *testing.T) {
	f := newLedgerFixture()
	sale := f.seedSale("PLOT-C-010", 1)

	// Partial payment on the due date itself stays partial, not late
	paidAt := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	outcome, err := f.svc.ApplyPayment(sale.ID, decimal.RequireFromString("40.00"), nil, paidAt)
	require.NoError(t, err)
	require.Len(t, outcome.ChangedInstallments, 1)
	assert.Equal(t, domain.StatusPartial, outcome.ChangedInstallments[0].Status)
}
