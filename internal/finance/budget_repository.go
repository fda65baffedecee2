package finance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sanctus-app/sanctus/internal/platform/store"
	"github.com/sanctus-app/sanctus/internal/shared"
)

const budgetColumns = `id, parish_id, category, amount::text, fiscal_year, fiscal_month, description,
	created_by, created_at, updated_at`

func scanBudget(row pgx.Row, b *Budget) error {
	var amount string
	if err := row.Scan(&b.ID, &b.ParishID, &b.Category, &amount, &b.FiscalYear, &b.FiscalMonth, &b.Description,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	return parseAmount(amount, &b.Amount)
}

// PGBudgetRepository implements BudgetRepository on PostgreSQL.
type PGBudgetRepository struct {
	table *store.LiveTable
}

// NewBudgetRepository constructs the PostgreSQL budget repository.
func NewBudgetRepository(db store.DBTX) *PGBudgetRepository {
	return &PGBudgetRepository{table: store.NewLiveTable(db, "budget", budgetColumns, "Budget")}
}

// List returns live budget lines of one parish and year ordered by category.
func (r *PGBudgetRepository) List(ctx context.Context, filter BudgetFilter) ([]Budget, error) {
	f := (&store.Filter{}).Where("parish_id = ?", filter.ParishID).
		Where("fiscal_year = ?", filter.FiscalYear).
		WhereIf(filter.FiscalMonth != nil, "fiscal_month = ?", derefInt(filter.FiscalMonth))
	out := []Budget{}
	err := r.table.List(ctx, f, "category, fiscal_month NULLS FIRST", nil, func(rows pgx.Rows) error {
		var b Budget
		if err := scanBudget(rows, &b); err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	return out, err
}

// Get loads one live budget line, confined to scope when set.
func (r *PGBudgetRepository) Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (Budget, error) {
	var b Budget
	err := r.table.Get(ctx, id, scope, func(row pgx.Row) error { return scanBudget(row, &b) })
	return b, err
}

// Create inserts a budget line.
func (r *PGBudgetRepository) Create(ctx context.Context, b Budget) (Budget, error) {
	var out Budget
	err := scanBudget(r.table.DB().QueryRow(ctx, `INSERT INTO budget (
			id, parish_id, category, amount, fiscal_year, fiscal_month, description, created_by
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
		RETURNING `+budgetColumns,
		b.ID, b.ParishID, string(b.Category), b.Amount.String(), b.FiscalYear, b.FiscalMonth, b.Description, b.CreatedBy), &out)
	if err != nil {
		return Budget{}, mapWriteError(err)
	}
	return out, nil
}

// Update writes the amount and description of a live budget line.
func (r *PGBudgetRepository) Update(ctx context.Context, b Budget) (Budget, error) {
	var out Budget
	err := scanBudget(r.table.DB().QueryRow(ctx, `UPDATE budget SET
			amount = $2::numeric, description = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+budgetColumns,
		b.ID, b.Amount.String(), b.Description), &out)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, shared.NotFound("Budget not found")
		}
		return Budget{}, mapWriteError(err)
	}
	return out, nil
}

// SoftDelete marks a live budget line deleted.
func (r *PGBudgetRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.table.SoftDelete(ctx, id)
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

var _ BudgetRepository = (*PGBudgetRepository)(nil)
