package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexesmission/ardhi-backend/internal/domain"
)

// SaleRepository implements domain.SaleRepository using PostgreSQL
type SaleRepository struct {
	pool *pgxpool.Pool
}

// NewSaleRepository creates a new SaleRepository
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

const saleColumns = `id, reference, client_name, base_price, fee_percent, total_payable,
	advance_amount, financed_amount, months, monthly_amount, start_date,
	created_at, updated_at, deleted_at`

// CreateWithInstallments persists the sale and its full installment schedule
// in one transaction. Either everything lands or nothing does.
func (r *SaleRepository) CreateWithInstallments(sale *domain.Sale, installments []*domain.Installment) (*domain.Sale, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	basePrice, err := decimalToPgNumeric(sale.BasePrice)
	if err != nil {
		return nil, err
	}
	feePercent, err := decimalToPgNumeric(sale.FeePercent)
	if err != nil {
		return nil, err
	}
	totalPayable, err := decimalToPgNumeric(sale.TotalPayable)
	if err != nil {
		return nil, err
	}
	advanceAmount, err := decimalToPgNumeric(sale.AdvanceAmount)
	if err != nil {
		return nil, err
	}
	financedAmount, err := decimalToPgNumeric(sale.FinancedAmount)
	if err != nil {
		return nil, err
	}
	monthlyAmount, err := decimalPtrToPgNumeric(sale.MonthlyAmount)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO sales (reference, client_name, base_price, fee_percent, total_payable,
			advance_amount, financed_amount, months, monthly_amount, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+saleColumns,
		sale.Reference, sale.ClientName, basePrice, feePercent, totalPayable,
		advanceAmount, financedAmount, int32PtrToPgInt4(sale.Months), monthlyAmount,
		timeToPgDate(sale.StartDate))

	created, err := scanSale(row)
	if err != nil {
		return nil, err
	}

	for _, inst := range installments {
		amountDue, err := decimalToPgNumeric(inst.AmountDue)
		if err != nil {
			return nil, err
		}
		amountPaid, err := decimalToPgNumeric(inst.AmountPaid)
		if err != nil {
			return nil, err
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO installments (sale_id, sequence, amount_due, amount_paid, due_date, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			created.ID, inst.Sequence, amountDue, amountPaid,
			timeToPgDate(inst.DueDate), string(inst.Status)).Scan(&inst.ID)
		if err != nil {
			return nil, err
		}
		inst.SaleID = created.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a sale by its ID
func (r *SaleRepository) GetByID(id int32) (*domain.Sale, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE id = $1 AND deleted_at IS NULL`, id)

	sale, err := scanSale(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrSaleNotFound
		}
		return nil, err
	}
	return sale, nil
}

// List retrieves all non-deleted sales
func (r *SaleRepository) List() ([]*domain.Sale, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE deleted_at IS NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sale)
	}
	return result, rows.Err()
}

// SoftDelete marks a sale as deleted
func (r *SaleRepository) SoftDelete(id int32) error {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `
		UPDATE sales
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSaleNotFound
	}
	return nil
}

func scanSale(row pgx.Row) (*domain.Sale, error) {
	var (
		sale          domain.Sale
		basePrice     pgtype.Numeric
		feePercent    pgtype.Numeric
		totalPayable  pgtype.Numeric
		advance       pgtype.Numeric
		financed      pgtype.Numeric
		months        pgtype.Int4
		monthlyAmount pgtype.Numeric
		startDate     pgtype.Date
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
		deletedAt     pgtype.Timestamptz
	)

	err := row.Scan(&sale.ID, &sale.Reference, &sale.ClientName, &basePrice, &feePercent,
		&totalPayable, &advance, &financed, &months, &monthlyAmount, &startDate,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	sale.BasePrice = pgNumericToDecimal(basePrice)
	sale.FeePercent = pgNumericToDecimal(feePercent)
	sale.TotalPayable = pgNumericToDecimal(totalPayable)
	sale.AdvanceAmount = pgNumericToDecimal(advance)
	sale.FinancedAmount = pgNumericToDecimal(financed)
	sale.StartDate = startDate.Time
	sale.CreatedAt = createdAt.Time
	sale.UpdatedAt = updatedAt.Time

	if months.Valid {
		sale.Months = &months.Int32
	}
	if monthlyAmount.Valid {
		d := pgNumericToDecimal(monthlyAmount)
		sale.MonthlyAmount = &d
	}
	if deletedAt.Valid {
		sale.DeletedAt = &deletedAt.Time
	}

	return &sale, nil
}
