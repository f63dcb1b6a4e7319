package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexesmission/ardhi-backend/internal/domain"
)

// PaymentRepository implements domain.PaymentRepository using PostgreSQL
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, sale_id, reference, amount, target_installment_id, paid_at, created_at`

// RecordApplication persists the payment and the new state of every touched
// installment in one transaction. The sale row is locked for the duration so
// concurrent applications to the same sale serialize at the database even
// across processes.
func (r *PaymentRepository) RecordApplication(payment *domain.Payment, touched []*domain.Installment) (*domain.Payment, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var saleID int32
	err = tx.QueryRow(ctx, `
		SELECT id FROM sales
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, payment.SaleID).Scan(&saleID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrSaleNotFound
		}
		return nil, err
	}

	amount, err := decimalToPgNumeric(payment.Amount)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO payments (sale_id, reference, amount, target_installment_id, paid_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+paymentColumns,
		payment.SaleID, payment.Reference, amount,
		int32PtrToPgInt4(payment.TargetInstallmentID), payment.PaidAt)

	created, err := scanPayment(row)
	if err != nil {
		return nil, err
	}

	for _, inst := range touched {
		amountPaid, err := decimalToPgNumeric(inst.AmountPaid)
		if err != nil {
			return nil, err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE installments
			SET amount_paid = $1, status = $2, updated_at = now()
			WHERE id = $3 AND sale_id = $4`,
			amountPaid, string(inst.Status), inst.ID, payment.SaleID)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, domain.ErrInstallmentNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// GetBySaleID retrieves a sale's payments in application order
func (r *PaymentRepository) GetBySaleID(saleID int32) ([]*domain.Payment, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE sale_id = $1
		ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, payment)
	}
	return result, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		payment   domain.Payment
		amount    pgtype.Numeric
		target    pgtype.Int4
		paidAt    pgtype.Timestamptz
		createdAt pgtype.Timestamptz
	)

	err := row.Scan(&payment.ID, &payment.SaleID, &payment.Reference, &amount,
		&target, &paidAt, &createdAt)
	if err != nil {
		return nil, err
	}

	payment.Amount = pgNumericToDecimal(amount)
	payment.PaidAt = paidAt.Time
	payment.CreatedAt = createdAt.Time
	if target.Valid {
		payment.TargetInstallmentID = &target.Int32
	}

	return &payment, nil
}
