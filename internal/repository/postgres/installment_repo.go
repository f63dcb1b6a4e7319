package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexesmission/ardhi-backend/internal/domain"
)

// InstallmentRepository implements domain.InstallmentRepository using PostgreSQL
type InstallmentRepository struct {
	pool *pgxpool.Pool
}

// NewInstallmentRepository creates a new InstallmentRepository
func NewInstallmentRepository(pool *pgxpool.Pool) *InstallmentRepository {
	return &InstallmentRepository{pool: pool}
}

const installmentColumns = `id, sale_id, sequence, amount_due, amount_paid, due_date, status,
	created_at, updated_at`

// GetByID retrieves an installment by its ID
func (r *InstallmentRepository) GetByID(id int32) (*domain.Installment, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+installmentColumns+`
		FROM installments
		WHERE id = $1`, id)

	inst, err := scanInstallment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrInstallmentNotFound
		}
		return nil, err
	}
	return inst, nil
}

// GetBySaleID retrieves a sale's installments ordered by sequence
func (r *InstallmentRepository) GetBySaleID(saleID int32) ([]*domain.Installment, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+installmentColumns+`
		FROM installments
		WHERE sale_id = $1
		ORDER BY sequence`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inst)
	}
	return result, rows.Err()
}

// SweepLate re-stamps the stored status of every non-paid installment whose
// due date has passed. The stored status is a query convenience; reads always
// re-derive from amounts and dates.
func (r *InstallmentRepository) SweepLate(today time.Time) (int64, error) {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `
		UPDATE installments
		SET status = 'late', updated_at = now()
		WHERE due_date < $1
		  AND amount_paid < amount_due
		  AND status <> 'late'`, timeToPgDate(today))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanInstallment(row pgx.Row) (*domain.Installment, error) {
	var (
		inst       domain.Installment
		amountDue  pgtype.Numeric
		amountPaid pgtype.Numeric
		dueDate    pgtype.Date
		status     string
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)

	err := row.Scan(&inst.ID, &inst.SaleID, &inst.Sequence, &amountDue, &amountPaid,
		&dueDate, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	inst.AmountDue = pgNumericToDecimal(amountDue)
	inst.AmountPaid = pgNumericToDecimal(amountPaid)
	inst.DueDate = dueDate.Time
	inst.Status = domain.InstallmentStatus(status)
	inst.CreatedAt = createdAt.Time
	inst.UpdatedAt = updatedAt.Time

	return &inst, nil
}
