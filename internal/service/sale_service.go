package service

import (
	"strings"
	"time"

	"github.com/nexesmission/ardhi-backend/internal/domain"
	"github.com/nexesmission/ardhi-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// SaleService handles sale creation and schedule planning
type SaleService struct {
	saleRepo        domain.SaleRepository
	installmentRepo domain.InstallmentRepository
	eventPublisher  websocket.EventPublisher
}

// NewSaleService creates a new SaleService
func NewSaleService(saleRepo domain.SaleRepository, installmentRepo domain.InstallmentRepository) *SaleService {
	return &SaleService{
		saleRepo:        saleRepo,
		installmentRepo: installmentRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *SaleService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *SaleService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// CreateSaleInput contains input for creating a sale
type CreateSaleInput struct {
	Reference        string
	ClientName       string
	BasePrice        decimal.Decimal
	FeePercent       decimal.Decimal
	Advance          decimal.Decimal
	AdvanceIsPercent bool
	Months           *int32
	MonthlyAmount    *decimal.Decimal
	StartDate        time.Time
}

// saleFigures holds the resolved money amounts for a sale
type saleFigures struct {
	TotalPayable   decimal.Decimal
	AdvanceAmount  decimal.Decimal
	FinancedAmount decimal.Decimal
}

// resolveFigures turns the raw input into concrete amounts: the flat fee is
// applied to the base price, and a percentage advance is resolved against
// the resulting total.
func resolveFigures(input CreateSaleInput) (*saleFigures, error) {
	if input.BasePrice.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrSalePriceInvalid
	}
	if input.FeePercent.IsNegative() || input.FeePercent.GreaterThan(oneHundred) {
		return nil, domain.ErrSaleFeeInvalid
	}
	if input.Advance.IsNegative() {
		return nil, domain.ErrSaleAdvanceInvalid
	}

	total := input.BasePrice.Mul(decimal.NewFromInt(1).Add(input.FeePercent.Div(oneHundred))).Round(2)

	advance := input.Advance
	if input.AdvanceIsPercent {
		if input.Advance.GreaterThan(oneHundred) {
			return nil, domain.ErrSaleAdvanceInvalid
		}
		advance = total.Mul(input.Advance.Div(oneHundred)).Round(2)
	}
	if advance.GreaterThanOrEqual(total) {
		return nil, domain.ErrSaleAdvanceInvalid
	}

	return &saleFigures{
		TotalPayable:   total,
		AdvanceAmount:  advance,
		FinancedAmount: total.Sub(advance),
	}, nil
}

// CreateSale creates a sale and its full installment schedule atomically
func (s *SaleService) CreateSale(input CreateSaleInput) (*domain.Sale, error) {
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, domain.ErrSaleReferenceRequired
	}
	if len(reference) > domain.MaxNameLength {
		return nil, domain.ErrNameTooLong
	}

	figures, err := resolveFigures(input)
	if err != nil {
		return nil, err
	}

	plan, err := PlanInstallments(figures.FinancedAmount, PlanTarget{Months: input.Months, MonthlyAmount: input.MonthlyAmount}, input.StartDate)
	if err != nil {
		return nil, err
	}

	sale := &domain.Sale{
		Reference:      reference,
		ClientName:     strings.TrimSpace(input.ClientName),
		BasePrice:      input.BasePrice,
		FeePercent:     input.FeePercent,
		TotalPayable:   figures.TotalPayable,
		AdvanceAmount:  figures.AdvanceAmount,
		FinancedAmount: figures.FinancedAmount,
		Months:         input.Months,
		MonthlyAmount:  input.MonthlyAmount,
		StartDate:      input.StartDate,
	}

	installments := make([]*domain.Installment, len(plan))
	for i, row := range plan {
		installments[i] = &domain.Installment{
			Sequence:   row.Sequence,
			AmountDue:  row.AmountDue,
			AmountPaid: decimal.Zero,
			DueDate:    row.DueDate,
			Status:     domain.StatusUnpaid,
		}
	}

	created, err := s.saleRepo.CreateWithInstallments(sale, installments)
	if err != nil {
		return nil, err
	}

	s.publishEvent(websocket.SaleCreated(map[string]interface{}{
		"saleId":         created.ID,
		"reference":      created.Reference,
		"financedAmount": created.FinancedAmount.StringFixed(2),
		"installments":   len(installments),
	}))

	return created, nil
}

// PreviewSaleResult contains the planned figures without persisting anything
type PreviewSaleResult struct {
	TotalPayable   decimal.Decimal      `json:"totalPayable"`
	AdvanceAmount  decimal.Decimal      `json:"advanceAmount"`
	FinancedAmount decimal.Decimal      `json:"financedAmount"`
	Installments   []PlannedInstallment `json:"installments"`
}

// PreviewSale plans the schedule for the given input without creating the sale
func (s *SaleService) PreviewSale(input CreateSaleInput) (*PreviewSaleResult, error) {
	figures, err := resolveFigures(input)
	if err != nil {
		return nil, err
	}

	plan, err := PlanInstallments(figures.FinancedAmount, PlanTarget{Months: input.Months, MonthlyAmount: input.MonthlyAmount}, input.StartDate)
	if err != nil {
		return nil, err
	}

	return &PreviewSaleResult{
		TotalPayable:   figures.TotalPayable,
		AdvanceAmount:  figures.AdvanceAmount,
		FinancedAmount: figures.FinancedAmount,
		Installments:   plan,
	}, nil
}

// GetSale retrieves a sale by ID
func (s *SaleService) GetSale(id int32) (*domain.Sale, error) {
	return s.saleRepo.GetByID(id)
}

// ListSales retrieves all sales
func (s *SaleService) ListSales() ([]*domain.Sale, error) {
	return s.saleRepo.List()
}

// DeleteSale soft-deletes a sale
func (s *SaleService) DeleteSale(id int32) error {
	if _, err := s.saleRepo.GetByID(id); err != nil {
		return err
	}
	return s.saleRepo.SoftDelete(id)
}

// SaleSummary aggregates a sale's obligations for dashboards
type SaleSummary struct {
	SaleID      int32           `json:"saleId"`
	TotalDue    decimal.Decimal `json:"totalDue"`
	TotalPaid   decimal.Decimal `json:"totalPaid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Arrears     decimal.Decimal `json:"arrears"`
	NextDueDate *time.Time      `json:"nextDueDate,omitempty"`
}

// GetSaleSummary computes paid/outstanding/arrears figures from the sale's
// installments. Arrears is the outstanding balance on past-due rows.
func (s *SaleService) GetSaleSummary(saleID int32, today time.Time) (*SaleSummary, error) {
	if _, err := s.saleRepo.GetByID(saleID); err != nil {
		return nil, err
	}

	installments, err := s.installmentRepo.GetBySaleID(saleID)
	if err != nil {
		return nil, err
	}

	summary := &SaleSummary{
		SaleID:      saleID,
		TotalDue:    decimal.Zero,
		TotalPaid:   decimal.Zero,
		Outstanding: decimal.Zero,
		Arrears:     decimal.Zero,
	}

	for _, inst := range installments {
		summary.TotalDue = summary.TotalDue.Add(inst.AmountDue)
		summary.TotalPaid = summary.TotalPaid.Add(inst.AmountPaid)
		summary.Outstanding = summary.Outstanding.Add(inst.Outstanding())

		status := inst.DeriveStatus(today)
		if status == domain.StatusLate {
			summary.Arrears = summary.Arrears.Add(inst.Outstanding())
		}
		if !inst.IsSettled() && summary.NextDueDate == nil {
			due := inst.DueDate
			summary.NextDueDate = &due
		}
	}

	return summary, nil
}
