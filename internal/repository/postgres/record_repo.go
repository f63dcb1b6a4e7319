package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexesmission/ardhi-backend/internal/domain"
)

const uniqueViolationCode = "23505"

// RecordRepository implements domain.CashRecordRepository using PostgreSQL
type RecordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

const recordColumns = `id, template_id, name, amount, is_revenue, effective_date, created_at`

// Create persists a manually entered record
func (r *RecordRepository) Create(record *domain.CashRecord) (*domain.CashRecord, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(record.Amount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO cash_records (template_id, name, amount, is_revenue, effective_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+recordColumns,
		int32PtrToPgInt4(record.TemplateID), record.Name, amount,
		record.IsRevenue, timeToPgDate(record.EffectiveDate))

	created, err := scanRecord(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrRecordExists
		}
		return nil, err
	}
	return created, nil
}

// CreateForOccurrence persists the record and advances the template pointer
// in one transaction. The CAS runs first so a concurrent run loses cleanly
// before its insert; the unique index on (template_id, effective_date) backs
// the guard up if the pointer was ever moved by hand.
func (r *RecordRepository) CreateForOccurrence(record *domain.CashRecord, expectedNext, newNext time.Time) (*domain.CashRecord, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := advancePointer(ctx, tx, *record.TemplateID, expectedNext, newNext); err != nil {
		return nil, err
	}

	amount, err := decimalToPgNumeric(record.Amount)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO cash_records (template_id, name, amount, is_revenue, effective_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+recordColumns,
		int32PtrToPgInt4(record.TemplateID), record.Name, amount,
		record.IsRevenue, timeToPgDate(record.EffectiveDate))

	created, err := scanRecord(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrRecordExists
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// ListByTemplate retrieves records generated from a template
func (r *RecordRepository) ListByTemplate(templateID int32) ([]*domain.CashRecord, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM cash_records
		WHERE template_id = $1
		ORDER BY effective_date`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListByRange retrieves records effective within [from, to]
func (r *RecordRepository) ListByRange(from, to time.Time) ([]*domain.CashRecord, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM cash_records
		WHERE effective_date BETWEEN $1 AND $2
		ORDER BY effective_date, id`, timeToPgDate(from), timeToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// CountByTemplate counts records referencing a template
func (r *RecordRepository) CountByTemplate(templateID int32) (int64, error) {
	ctx := context.Background()
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM cash_records WHERE template_id = $1`, templateID).Scan(&count)
	return count, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func collectRecords(rows pgx.Rows) ([]*domain.CashRecord, error) {
	var result []*domain.CashRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

func scanRecord(row pgx.Row) (*domain.CashRecord, error) {
	var (
		record        domain.CashRecord
		templateID    pgtype.Int4
		amount        pgtype.Numeric
		effectiveDate pgtype.Date
		createdAt     pgtype.Timestamptz
	)

	err := row.Scan(&record.ID, &templateID, &record.Name, &amount, &record.IsRevenue,
		&effectiveDate, &createdAt)
	if err != nil {
		return nil, err
	}

	record.Amount = pgNumericToDecimal(amount)
	record.EffectiveDate = effectiveDate.Time
	record.CreatedAt = createdAt.Time
	if templateID.Valid {
		record.TemplateID = &templateID.Int32
	}

	return &record, nil
}
