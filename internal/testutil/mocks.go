package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/nexesmission/ardhi-backend/internal/domain"
)

// MockInstallmentRepository is an in-memory domain.InstallmentRepository.
// Reads hand out copies so callers can mutate freely; writes go through
// the payment repository's RecordApplication.
type MockInstallmentRepository struct {
	Installments map[int32]*domain.Installment
	NextID       int32
	mu           sync.Mutex
}

// NewMockInstallmentRepository creates a new MockInstallmentRepository
func NewMockInstallmentRepository() *MockInstallmentRepository {
	return &MockInstallmentRepository{
		Installments: make(map[int32]*domain.Installment),
		NextID:       1,
	}
}

// AddInstallment adds an installment to the store (helper for tests)
func (m *MockInstallmentRepository) AddInstallment(inst *domain.Installment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst.ID == 0 {
		inst.ID = m.NextID
		m.NextID++
	} else if inst.ID >= m.NextID {
		m.NextID = inst.ID + 1
	}
	copied := *inst
	m.Installments[inst.ID] = &copied
}

// GetByID retrieves an installment by ID
func (m *MockInstallmentRepository) GetByID(id int32) (*domain.Installment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.Installments[id]
	if !ok {
		return nil, domain.ErrInstallmentNotFound
	}
	copied := *inst
	return &copied, nil
}

// GetBySaleID retrieves a sale's installments ordered by sequence
func (m *MockInstallmentRepository) GetBySaleID(saleID int32) ([]*domain.Installment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Installment
	for _, inst := range m.Installments {
		if inst.SaleID == saleID {
			copied := *inst
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Sequence < result[j].Sequence })
	return result, nil
}

// SweepLate re-stamps stored statuses from due dates
func (m *MockInstallmentRepository) SweepLate(today time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for _, inst := range m.Installments {
		derived := inst.DeriveStatus(today)
		if derived == domain.StatusLate && inst.Status != domain.StatusLate {
			inst.Status = domain.StatusLate
			changed++
		}
	}
	return changed, nil
}

// MockSaleRepository is an in-memory domain.SaleRepository
type MockSaleRepository struct {
	Sales        map[int32]*domain.Sale
	NextID       int32
	Installments *MockInstallmentRepository
	mu           sync.Mutex
}

// NewMockSaleRepository creates a MockSaleRepository writing installment
// schedules into the given installment store
func NewMockSaleRepository(installments *MockInstallmentRepository) *MockSaleRepository {
	return &MockSaleRepository{
		Sales:        make(map[int32]*domain.Sale),
		NextID:       1,
		Installments: installments,
	}
}

// AddSale adds a sale to the store (helper for tests)
func (m *MockSaleRepository) AddSale(sale *domain.Sale) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sale.ID == 0 {
		sale.ID = m.NextID
		m.NextID++
	} else if sale.ID >= m.NextID {
		m.NextID = sale.ID + 1
	}
	copied := *sale
	m.Sales[sale.ID] = &copied
}

// CreateWithInstallments persists the sale and its schedule
func (m *MockSaleRepository) CreateWithInstallments(sale *domain.Sale, installments []*domain.Installment) (*domain.Sale, error) {
	m.mu.Lock()
	sale.ID = m.NextID
	m.NextID++
	sale.CreatedAt = time.Now()
	sale.UpdatedAt = sale.CreatedAt
	copied := *sale
	m.Sales[sale.ID] = &copied
	m.mu.Unlock()

	for _, inst := range installments {
		inst.SaleID = sale.ID
		m.Installments.AddInstallment(inst)
	}
	return sale, nil
}

// GetByID retrieves a sale by ID
func (m *MockSaleRepository) GetByID(id int32) (*domain.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale, ok := m.Sales[id]
	if !ok || sale.DeletedAt != nil {
		return nil, domain.ErrSaleNotFound
	}
	copied := *sale
	return &copied, nil
}

// List retrieves all non-deleted sales
func (m *MockSaleRepository) List() ([]*domain.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Sale
	for _, sale := range m.Sales {
		if sale.DeletedAt == nil {
			copied := *sale
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SoftDelete marks a sale as deleted
func (m *MockSaleRepository) SoftDelete(id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale, ok := m.Sales[id]
	if !ok || sale.DeletedAt != nil {
		return domain.ErrSaleNotFound
	}
	now := time.Now()
	sale.DeletedAt = &now
	return nil
}

// MockPaymentRepository is an in-memory domain.PaymentRepository
type MockPaymentRepository struct {
	Payments     map[int32]*domain.Payment
	NextID       int32
	Installments *MockInstallmentRepository
	FailNext     error // when set, the next RecordApplication fails with it
	mu           sync.Mutex
}

// NewMockPaymentRepository creates a MockPaymentRepository writing touched
// installments back into the given installment store
func NewMockPaymentRepository(installments *MockInstallmentRepository) *MockPaymentRepository {
	return &MockPaymentRepository{
		Payments:     make(map[int32]*domain.Payment),
		NextID:       1,
		Installments: installments,
	}
}

// RecordApplication persists the payment and touched installment states
func (m *MockPaymentRepository) RecordApplication(payment *domain.Payment, touched []*domain.Installment) (*domain.Payment, error) {
	m.mu.Lock()
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		m.mu.Unlock()
		return nil, err
	}
	payment.ID = m.NextID
	m.NextID++
	payment.CreatedAt = time.Now()
	copied := *payment
	m.Payments[payment.ID] = &copied
	m.mu.Unlock()

	m.Installments.mu.Lock()
	for _, inst := range touched {
		stored, ok := m.Installments.Installments[inst.ID]
		if !ok {
			m.Installments.mu.Unlock()
			return nil, domain.ErrInstallmentNotFound
		}
		stored.AmountPaid = inst.AmountPaid
		stored.Status = inst.Status
		stored.UpdatedAt = time.Now()
	}
	m.Installments.mu.Unlock()

	return payment, nil
}

// GetBySaleID retrieves a sale's payments
func (m *MockPaymentRepository) GetBySaleID(saleID int32) ([]*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Payment
	for _, p := range m.Payments {
		if p.SaleID == saleID {
			copied := *p
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// MockTemplateRepository is an in-memory domain.RecurringTemplateRepository
type MockTemplateRepository struct {
	Templates map[int32]*domain.RecurringTemplate
	NextID    int32
	mu        sync.Mutex
}

// NewMockTemplateRepository creates a new MockTemplateRepository
func NewMockTemplateRepository() *MockTemplateRepository {
	return &MockTemplateRepository{
		Templates: make(map[int32]*domain.RecurringTemplate),
		NextID:    1,
	}
}

// AddTemplate adds a template to the store (helper for tests)
func (m *MockTemplateRepository) AddTemplate(tpl *domain.RecurringTemplate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tpl.ID == 0 {
		tpl.ID = m.NextID
		m.NextID++
	} else if tpl.ID >= m.NextID {
		m.NextID = tpl.ID + 1
	}
	copied := *tpl
	m.Templates[tpl.ID] = &copied
}

// Create persists a new template
func (m *MockTemplateRepository) Create(tpl *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl.ID = m.NextID
	m.NextID++
	tpl.CreatedAt = time.Now()
	tpl.UpdatedAt = tpl.CreatedAt
	copied := *tpl
	m.Templates[tpl.ID] = &copied
	return tpl, nil
}

// GetByID retrieves a template by ID
func (m *MockTemplateRepository) GetByID(id int32) (*domain.RecurringTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl, ok := m.Templates[id]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	copied := *tpl
	return &copied, nil
}

// List retrieves templates, optionally only active ones
func (m *MockTemplateRepository) List(activeOnly *bool) ([]*domain.RecurringTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.RecurringTemplate
	for _, tpl := range m.Templates {
		if activeOnly != nil && *activeOnly != tpl.IsActive {
			continue
		}
		copied := *tpl
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListDue retrieves active templates whose occurrence date has arrived
func (m *MockTemplateRepository) ListDue(now time.Time) ([]*domain.RecurringTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.RecurringTemplate
	for _, tpl := range m.Templates {
		if !tpl.IsActive {
			continue
		}
		y, mo, d := now.Date()
		endOfDay := time.Date(y, mo, d, 23, 59, 59, 0, time.UTC)
		if !tpl.NextOccurrence.After(endOfDay) {
			copied := *tpl
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Update persists template field changes
func (m *MockTemplateRepository) Update(tpl *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Templates[tpl.ID]; !ok {
		return nil, domain.ErrTemplateNotFound
	}
	tpl.UpdatedAt = time.Now()
	copied := *tpl
	m.Templates[tpl.ID] = &copied
	return tpl, nil
}

// SetActive flips the active flag
func (m *MockTemplateRepository) SetActive(id int32, active bool) (*domain.RecurringTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl, ok := m.Templates[id]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	tpl.IsActive = active
	tpl.UpdatedAt = time.Now()
	copied := *tpl
	return &copied, nil
}

// Delete removes a template
func (m *MockTemplateRepository) Delete(id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Templates[id]; !ok {
		return domain.ErrTemplateNotFound
	}
	delete(m.Templates, id)
	return nil
}

// AdvancePointer performs the compare-and-swap pointer advance
func (m *MockTemplateRepository) AdvancePointer(id int32, expectedNext, newNext time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advancePointerLocked(id, expectedNext, newNext)
}

func (m *MockTemplateRepository) advancePointerLocked(id int32, expectedNext, newNext time.Time) error {
	tpl, ok := m.Templates[id]
	if !ok {
		return domain.ErrTemplateNotFound
	}
	if !tpl.NextOccurrence.Equal(expectedNext) {
		return domain.ErrGenerationConflict
	}
	last := expectedNext
	tpl.LastGenerated = &last
	tpl.NextOccurrence = newNext
	tpl.UpdatedAt = time.Now()
	return nil
}

// MockRecordRepository is an in-memory domain.CashRecordRepository
type MockRecordRepository struct {
	Records   map[int32]*domain.CashRecord
	NextID    int32
	Templates *MockTemplateRepository
	FailNext  error // when set, the next CreateForOccurrence fails with it
	mu        sync.Mutex
}

// NewMockRecordRepository creates a MockRecordRepository advancing pointers
// in the given template store
func NewMockRecordRepository(templates *MockTemplateRepository) *MockRecordRepository {
	return &MockRecordRepository{
		Records:   make(map[int32]*domain.CashRecord),
		NextID:    1,
		Templates: templates,
	}
}

// Create persists a manual record
func (m *MockRecordRepository) Create(record *domain.CashRecord) (*domain.CashRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = m.NextID
	m.NextID++
	record.CreatedAt = time.Now()
	copied := *record
	m.Records[record.ID] = &copied
	return record, nil
}

// CreateForOccurrence persists the record and advances the template pointer
// atomically, mirroring the single-transaction postgres implementation
func (m *MockRecordRepository) CreateForOccurrence(record *domain.CashRecord, expectedNext, newNext time.Time) (*domain.CashRecord, error) {
	m.Templates.mu.Lock()
	defer m.Templates.mu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return nil, err
	}

	for _, existing := range m.Records {
		if existing.TemplateID != nil && record.TemplateID != nil &&
			*existing.TemplateID == *record.TemplateID &&
			sameDate(existing.EffectiveDate, record.EffectiveDate) {
			return nil, domain.ErrRecordExists
		}
	}

	if err := m.Templates.advancePointerLocked(*record.TemplateID, expectedNext, newNext); err != nil {
		return nil, err
	}

	record.ID = m.NextID
	m.NextID++
	record.CreatedAt = time.Now()
	copied := *record
	m.Records[record.ID] = &copied
	return record, nil
}

// ListByTemplate retrieves records generated from a template
func (m *MockRecordRepository) ListByTemplate(templateID int32) ([]*domain.CashRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.CashRecord
	for _, r := range m.Records {
		if r.TemplateID != nil && *r.TemplateID == templateID {
			copied := *r
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListByRange retrieves records effective within [from, to]
func (m *MockRecordRepository) ListByRange(from, to time.Time) ([]*domain.CashRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.CashRecord
	for _, r := range m.Records {
		if !r.EffectiveDate.Before(from) && !r.EffectiveDate.After(to) {
			copied := *r
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CountByTemplate counts records referencing a template
func (m *MockRecordRepository) CountByTemplate(templateID int32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, r := range m.Records {
		if r.TemplateID != nil && *r.TemplateID == templateID {
			count++
		}
	}
	return count, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
