package service

import (
	"testing"
	"time"

	"github.com/nexesmission/ardhi-backend/internal/domain"
	"github.com/nexesmission/ardhi-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSaleServiceForTest() (*SaleService, *testutil.MockSaleRepository, *testutil.MockInstallmentRepository) {
	installmentRepo := testutil.NewMockInstallmentRepository()
	saleRepo := testutil.NewMockSaleRepository(installmentRepo)
	return NewSaleService(saleRepo, installmentRepo), saleRepo, installmentRepo
}

func saleInput() CreateSaleInput {
	n := int32(10)
	return CreateSaleInput{
		Reference:  "PLOT-A-017",
		ClientName: "Amina Wanjiru",
		BasePrice:  decimal.RequireFromString("100000.00"),
		FeePercent: decimal.RequireFromString("5.00"),
		Advance:    decimal.RequireFromString("5000.00"),
		Months:     &n,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateSale(t *testing.T) {
	svc, saleRepo, installmentRepo := newSaleServiceForTest()

	sale, err := svc.CreateSale(saleInput())
	require.NoError(t, err)
	require.NotNil(t, sale)

	// 100000 * 1.05 = 105000 total, 5000 flat advance, 100000 financed
	assert.True(t, sale.TotalPayable.Equal(decimal.RequireFromString("105000.00")))
	assert.True(t, sale.AdvanceAmount.Equal(decimal.RequireFromString("5000.00")))
	assert.True(t, sale.FinancedAmount.Equal(decimal.RequireFromString("100000.00")))

	stored, err := saleRepo.GetByID(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "PLOT-A-017", stored.Reference)

	installments, err := installmentRepo.GetBySaleID(sale.ID)
	require.NoError(t, err)
	require.Len(t, installments, 10)

	sum := decimal.Zero
	for i, inst := range installments {
		assert.Equal(t, int32(i+1), inst.Sequence)
		assert.Equal(t, domain.StatusUnpaid, inst.Status)
		assert.True(t, inst.AmountPaid.IsZero())
		sum = sum.Add(inst.AmountDue)
	}
	assert.True(t, sum.Equal(sale.FinancedAmount))
}

func TestCreateSalePercentAdvance(t *testing.T) {
	svc, _, _ := newSaleServiceForTest()

	input := saleInput()
	input.Advance = decimal.RequireFromString("10.00")
	input.AdvanceIsPercent = true

	sale, err := svc.CreateSale(input)
	require.NoError(t, err)

	// 10% of the fee-inclusive total, not of the base price
	assert.True(t, sale.AdvanceAmount.Equal(decimal.RequireFromString("10500.00")))
	assert.True(t, sale.FinancedAmount.Equal(decimal.RequireFromString("94500.00")))
}

func TestCreateSaleValidation(t *testing.T) {
	svc, _, _ := newSaleServiceForTest()

	tests := []struct {
		name    string
		mutate  func(*CreateSaleInput)
		wantErr error
	}{
		{"empty reference", func(in *CreateSaleInput) { in.Reference = "   " }, domain.ErrSaleReferenceRequired},
		{"non-positive price", func(in *CreateSaleInput) { in.BasePrice = decimal.Zero }, domain.ErrSalePriceInvalid},
		{"negative fee", func(in *CreateSaleInput) { in.FeePercent = decimal.RequireFromString("-1") }, domain.ErrSaleFeeInvalid},
		{"fee over hundred", func(in *CreateSaleInput) { in.FeePercent = decimal.RequireFromString("101") }, domain.ErrSaleFeeInvalid},
		{"negative advance", func(in *CreateSaleInput) { in.Advance = decimal.RequireFromString("-5") }, domain.ErrSaleAdvanceInvalid},
		{"advance covers total", func(in *CreateSaleInput) { in.Advance = decimal.RequireFromString("105000.00") }, domain.ErrSaleAdvanceInvalid},
		{"percent advance over hundred", func(in *CreateSaleInput) {
			in.Advance = decimal.RequireFromString("120")
			in.AdvanceIsPercent = true
		}, domain.ErrSaleAdvanceInvalid},
		{"no schedule target", func(in *CreateSaleInput) { in.Months = nil }, domain.ErrSaleTargetInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := saleInput()
			tt.mutate(&input)
			_, err := svc.CreateSale(input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPreviewSalePersistsNothing(t *testing.T) {
	svc, saleRepo, installmentRepo := newSaleServiceForTest()

	preview, err := svc.PreviewSale(saleInput())
	require.NoError(t, err)
	require.Len(t, preview.Installments, 10)
	assert.True(t, preview.FinancedAmount.Equal(decimal.RequireFromString("100000.00")))

	assert.Empty(t, saleRepo.Sales)
	assert.Empty(t, installmentRepo.Installments)
}

func TestDeleteSale(t *testing.T) {
	svc, _, _ := newSaleServiceForTest()

	sale, err := svc.CreateSale(saleInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSale(sale.ID))

	_, err = svc.GetSale(sale.ID)
	assert.ErrorIs(t, err, domain.ErrSaleNotFound)

	assert.ErrorIs(t, svc.DeleteSale(sale.ID), domain.ErrSaleNotFound)
}

func TestGetSaleSummary(t *testing.T) {
	svc, saleRepo, installmentRepo := newSaleServiceForTest()

	sale := &domain.Sale{Reference: "PLOT-B-002", FinancedAmount: decimal.RequireFromString("300.00")}
	saleRepo.AddSale(sale)

	due := decimal.RequireFromString("100.00")
	installmentRepo.AddInstallment(&domain.Installment{
		SaleID: sale.ID, Sequence: 1, AmountDue: due, AmountPaid: due,
		DueDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Status: domain.StatusPaid,
	})
	installmentRepo.AddInstallment(&domain.Installment{
		SaleID: sale.ID, Sequence: 2, AmountDue: due, AmountPaid: decimal.RequireFromString("40.00"),
		DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Status: domain.StatusPartial,
	})
	installmentRepo.AddInstallment(&domain.Installment{
		SaleID: sale.ID, Sequence: 3, AmountDue: due, AmountPaid: decimal.Zero,
		DueDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Status: domain.StatusUnpaid,
	})

	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	summary, err := svc.GetSaleSummary(sale.ID, today)
	require.NoError(t, err)

	assert.True(t, summary.TotalDue.Equal(decimal.RequireFromString("300.00")))
	assert.True(t, summary.TotalPaid.Equal(decimal.RequireFromString("140.00")))
	assert.True(t, summary.Outstanding.Equal(decimal.RequireFromString("160.00")))
	// Only the past-due partial row is in arrears
	assert.True(t, summary.Arrears.Equal(decimal.RequireFromString("60.00")))
	require.NotNil(t, summary.NextDueDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *summary.NextDueDate)
}
