package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexesmission/ardhi-backend/internal/domain"
)

// TemplateRepository implements domain.RecurringTemplateRepository using PostgreSQL
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

const templateColumns = `id, name, cadence, anchor, anchor_time, amount, is_revenue, is_active,
	next_occurrence, last_generated, created_at, updated_at`

// executor is the slice of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// pointer CAS can run standalone or inside another repository's transaction.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Create persists a new recurring template
func (r *TemplateRepository) Create(t *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO recurring_templates (name, cadence, anchor, anchor_time, amount,
			is_revenue, is_active, next_occurrence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+templateColumns,
		t.Name, string(t.Cadence), t.Anchor, t.AnchorTime, amount,
		t.IsRevenue, t.IsActive, timeToPgDate(t.NextOccurrence))

	return scanTemplate(row)
}

// GetByID retrieves a template by its ID
func (r *TemplateRepository) GetByID(id int32) (*domain.RecurringTemplate, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_templates
		WHERE id = $1`, id)

	tpl, err := scanTemplate(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return tpl, nil
}

// List retrieves templates, optionally filtered on the active flag
func (r *TemplateRepository) List(activeOnly *bool) ([]*domain.RecurringTemplate, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_templates
		WHERE $1::boolean IS NULL OR is_active = $1
		ORDER BY id`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTemplates(rows)
}

// ListDue retrieves active templates whose next occurrence date has arrived.
// The anchor time of day is checked at the service layer.
func (r *TemplateRepository) ListDue(now time.Time) ([]*domain.RecurringTemplate, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_templates
		WHERE is_active AND next_occurrence <= $1
		ORDER BY id`, timeToPgDate(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTemplates(rows)
}

// Update persists template field changes
func (r *TemplateRepository) Update(t *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE recurring_templates
		SET name = $2, cadence = $3, anchor = $4, anchor_time = $5, amount = $6,
			is_revenue = $7, is_active = $8, next_occurrence = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+templateColumns,
		t.ID, t.Name, string(t.Cadence), t.Anchor, t.AnchorTime, amount,
		t.IsRevenue, t.IsActive, timeToPgDate(t.NextOccurrence))

	updated, err := scanTemplate(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return updated, nil
}

// SetActive flips the active flag
func (r *TemplateRepository) SetActive(id int32, active bool) (*domain.RecurringTemplate, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		UPDATE recurring_templates
		SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+templateColumns, id, active)

	updated, err := scanTemplate(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a template
func (r *TemplateRepository) Delete(id int32) error {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `DELETE FROM recurring_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTemplateNotFound
	}
	return nil
}

// AdvancePointer moves the scheduling pointer with a compare-and-swap on its
// current value. A zero row count means another run got there first.
func (r *TemplateRepository) AdvancePointer(id int32, expectedNext, newNext time.Time) error {
	ctx := context.Background()
	return advancePointer(ctx, r.pool, id, expectedNext, newNext)
}

// advancePointer runs the CAS against any pgx query executor so the record
// repository can reuse it inside its transaction.
func advancePointer(ctx context.Context, q executor, id int32, expectedNext, newNext time.Time) error {
	tag, err := q.Exec(ctx, `
		UPDATE recurring_templates
		SET last_generated = next_occurrence, next_occurrence = $3, updated_at = now()
		WHERE id = $1 AND next_occurrence = $2`,
		id, timeToPgDate(expectedNext), timeToPgDate(newNext))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM recurring_templates WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrTemplateNotFound
		}
		return domain.ErrGenerationConflict
	}
	return nil
}

func collectTemplates(rows pgx.Rows) ([]*domain.RecurringTemplate, error) {
	var result []*domain.RecurringTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}

func scanTemplate(row pgx.Row) (*domain.RecurringTemplate, error) {
	var (
		tpl           domain.RecurringTemplate
		cadence       string
		amount        pgtype.Numeric
		next          pgtype.Date
		lastGenerated pgtype.Date
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)

	err := row.Scan(&tpl.ID, &tpl.Name, &cadence, &tpl.Anchor, &tpl.AnchorTime, &amount,
		&tpl.IsRevenue, &tpl.IsActive, &next, &lastGenerated, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	tpl.Cadence = domain.Cadence(cadence)
	tpl.Amount = pgNumericToDecimal(amount)
	tpl.NextOccurrence = next.Time
	tpl.CreatedAt = createdAt.Time
	tpl.UpdatedAt = updatedAt.Time
	if lastGenerated.Valid {
		tpl.LastGenerated = &lastGenerated.Time
	}

	return &tpl, nil
}
