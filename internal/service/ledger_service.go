package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexesmission/ardhi-backend/internal/domain"
	"github.com/nexesmission/ardhi-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LedgerService applies payments to a sale's installment schedule
type LedgerService struct {
	saleRepo        domain.SaleRepository
	installmentRepo domain.InstallmentRepository
	paymentRepo     domain.PaymentRepository
	eventPublisher  websocket.EventPublisher
	saleLocks       sync.Map // sale ID -> *sync.Mutex
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(saleRepo domain.SaleRepository, installmentRepo domain.InstallmentRepository, paymentRepo domain.PaymentRepository) *LedgerService {
	return &LedgerService{
		saleRepo:        saleRepo,
		installmentRepo: installmentRepo,
		paymentRepo:     paymentRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LedgerService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *LedgerService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// lockSale acquires the per-sale critical section. Payments to different
// sales proceed in parallel; two payments to the same sale never interleave.
func (s *LedgerService) lockSale(saleID int32) func() {
	v, _ := s.saleLocks.LoadOrStore(saleID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ApplyPayment applies an amount to the sale's obligations in sequence
// order. A targeted installment must belong to the sale; excess beyond one
// installment's due carries forward to the sale's next non-paid installment,
// and whatever survives the last installment is returned as a residual
// credit, never applied elsewhere. Nothing is mutated on any error path.
func (s *LedgerService) ApplyPayment(saleID int32, amount decimal.Decimal, targetInstallmentID *int32, paidAt time.Time) (*domain.PaymentOutcome, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrPaymentAmountInvalid
	}

	unlock := s.lockSale(saleID)
	defer unlock()

	if _, err := s.saleRepo.GetByID(saleID); err != nil {
		return nil, err
	}

	installments, err := s.installmentRepo.GetBySaleID(saleID)
	if err != nil {
		return nil, err
	}

	// Resolve the starting position before touching anything
	start := -1
	if targetInstallmentID != nil {
		target, err := s.installmentRepo.GetByID(*targetInstallmentID)
		if err != nil {
			return nil, err
		}
		if target.SaleID != saleID {
			return nil, domain.ErrCrossSalePayment
		}
		for i, inst := range installments {
			if inst.ID == target.ID {
				start = i
				break
			}
		}
	} else {
		for i, inst := range installments {
			if !inst.IsSettled() {
				start = i
				break
			}
		}
	}

	remaining := amount
	var touched []*domain.Installment
	if start >= 0 {
		for _, inst := range installments[start:] {
			if inst.IsSettled() {
				continue
			}
			portion := decimal.Min(remaining, inst.Outstanding())
			inst.AmountPaid = inst.AmountPaid.Add(portion)
			inst.Status = inst.DeriveStatus(paidAt)
			touched = append(touched, inst)
			remaining = remaining.Sub(portion)
			if remaining.IsZero() {
				break
			}
		}
	}

	payment := &domain.Payment{
		SaleID:              saleID,
		Reference:           uuid.New().String(),
		Amount:              amount,
		TargetInstallmentID: targetInstallmentID,
		PaidAt:              paidAt,
	}

	created, err := s.paymentRepo.RecordApplication(payment, touched)
	if err != nil {
		return nil, err
	}

	if remaining.IsPositive() {
		log.Info().
			Int32("sale_id", saleID).
			Str("residual", remaining.StringFixed(2)).
			Msg("Payment exceeds remaining obligations, residual returned as credit")
	}

	s.publishEvent(websocket.PaymentApplied(map[string]interface{}{
		"saleId":    saleID,
		"paymentId": created.ID,
		"amount":    amount.StringFixed(2),
		"residual":  remaining.StringFixed(2),
		"touched":   len(touched),
	}))

	return &domain.PaymentOutcome{
		Payment:             created,
		ChangedInstallments: touched,
		Residual:            remaining,
	}, nil
}

// GetPayments retrieves the payment history of a sale
func (s *LedgerService) GetPayments(saleID int32) ([]*domain.Payment, error) {
	if _, err := s.saleRepo.GetByID(saleID); err != nil {
		return nil, err
	}
	return s.paymentRepo.GetBySaleID(saleID)
}

// GetInstallments retrieves a sale's installments ordered by sequence
func (s *LedgerService) GetInstallments(saleID int32) ([]*domain.Installment, error) {
	if _, err := s.saleRepo.GetByID(saleID); err != nil {
		return nil, err
	}
	return s.installmentRepo.GetBySaleID(saleID)
}

// SweepLate re-stamps the stored status of past-due installments. The stored
// value is a query convenience; reads always re-derive.
func (s *LedgerService) SweepLate(today time.Time) (int64, error) {
	changed, err := s.installmentRepo.SweepLate(today)
	if err != nil {
		return 0, err
	}

	if changed > 0 {
		s.publishEvent(websocket.InstallmentsSwept(map[string]interface{}{
			"changed": changed,
			"asOf":    today.Format("2006-01-02"),
		}))
	}

	return changed, nil
}
