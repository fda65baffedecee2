package finance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/patch"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Budget is the amount planned for one category over a fiscal year, or one
// month of it when FiscalMonth is set.
type Budget struct {
	ID          uuid.UUID       `json:"id"`
	ParishID    uuid.UUID       `json:"parish_id"`
	Category    Category        `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	FiscalYear  int             `json:"fiscal_year"`
	FiscalMonth *int            `json:"fiscal_month"`
	Description *string         `json:"description"`
	CreatedBy   *uuid.UUID      `json:"created_by"`
	CreatedAt   *time.Time      `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at"`
}

// Validate checks the category, amount and period.
func (b Budget) Validate() error {
	switch {
	case !b.Category.Valid():
		return fmt.Errorf("unknown category %q", b.Category)
	case b.Amount.IsNegative():
		return fmt.Errorf("amount must not be negative")
	case b.FiscalYear < 1900 || b.FiscalYear > 9999:
		return fmt.Errorf("fiscal_year %d out of range", b.FiscalYear)
	case b.FiscalMonth != nil && (*b.FiscalMonth < 1 || *b.FiscalMonth > 12):
		return fmt.Errorf("fiscal_month must be between 1 and 12")
	}
	return nil
}

// CreateBudgetInput is the payload for a budget line.
type CreateBudgetInput struct {
	ParishID    *uuid.UUID      `json:"parish_id"`
	Category    Category        `json:"category" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	FiscalYear  int             `json:"fiscal_year" validate:"required"`
	FiscalMonth *int            `json:"fiscal_month"`
	Description *string         `json:"description"`
}

// BudgetPatch amends the amount or description of a budget line.
type BudgetPatch struct {
	Amount      patch.Field[decimal.Decimal] `json:"amount"`
	Description patch.Field[string]          `json:"description"`
}

// Apply merges p onto existing.
func (p BudgetPatch) Apply(existing Budget) Budget {
	out := existing
	out.Amount = p.Amount.ApplyRequired(existing.Amount)
	out.Description = p.Description.Apply(existing.Description)
	return out
}

// BudgetFilter narrows budget listings to one parish and fiscal period.
type BudgetFilter struct {
	ParishID    uuid.UUID
	FiscalYear  int
	FiscalMonth *int
}

// BudgetRepository persists budget lines. Reads exclude soft-deleted rows.
type BudgetRepository interface {
	List(ctx context.Context, filter BudgetFilter) ([]Budget, error)
	Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (Budget, error)
	Create(ctx context.Context, b Budget) (Budget, error)
	Update(ctx context.Context, b Budget) (Budget, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// BudgetService restricts budgets to finance roles within the caller's parish.
type BudgetService struct {
	repo   BudgetRepository
	audit  shared.AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewBudgetService constructs the budget service.
func NewBudgetService(repo BudgetRepository, audit shared.AuditRecorder, logger *slog.Logger) *BudgetService {
	return &BudgetService{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// BudgetQuery is the caller-supplied listing request. A zero FiscalYear means
// the current year.
type BudgetQuery struct {
	ParishID    *uuid.UUID
	FiscalYear  int
	FiscalMonth *int
}

// List returns the budget lines of one fiscal year ordered by category.
func (s *BudgetService) List(ctx context.Context, p authz.Principal, q BudgetQuery) ([]Budget, error) {
	if err := authz.RequireFinance(p); err != nil {
		return nil, err
	}
	parishID, err := authz.ResolveParishID(p, q.ParishID)
	if err != nil {
		return nil, err
	}
	year := q.FiscalYear
	if year == 0 {
		year = s.now().Year()
	}
	return s.repo.List(ctx, BudgetFilter{ParishID: parishID, FiscalYear: year, FiscalMonth: q.FiscalMonth})
}

// Get loads a budget line visible to the principal.
func (s *BudgetService) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (Budget, error) {
	if err := authz.RequireFinance(p); err != nil {
		return Budget{}, err
	}
	scope, err := authz.ReadScope(p)
	if err != nil {
		return Budget{}, err
	}
	return s.repo.Get(ctx, id, scope)
}

// Create adds a budget line to the resolved parish.
func (s *BudgetService) Create(ctx context.Context, p authz.Principal, in CreateBudgetInput) (Budget, error) {
	if err := authz.RequireFinance(p); err != nil {
		return Budget{}, err
	}
	parishID, err := authz.ResolveParishID(p, in.ParishID)
	if err != nil {
		return Budget{}, err
	}
	category, err := ParseCategory(string(in.Category))
	if err != nil {
		return Budget{}, shared.BadRequest(err.Error())
	}
	creator := p.UserID
	b := Budget{
		ID:          uuid.New(),
		ParishID:    parishID,
		Category:    category,
		Amount:      in.Amount,
		FiscalYear:  in.FiscalYear,
		FiscalMonth: in.FiscalMonth,
		Description: in.Description,
		CreatedBy:   &creator,
	}
	if err := b.Validate(); err != nil {
		return Budget{}, shared.BadRequest(err.Error())
	}
	created, err := s.repo.Create(ctx, b)
	if err != nil {
		return Budget{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "CREATE", "budget", created.ID, nil, created))
	return created, nil
}

// Update amends a live budget line.
func (s *BudgetService) Update(ctx context.Context, p authz.Principal, id uuid.UUID, patch BudgetPatch) (Budget, error) {
	existing, err := s.Get(ctx, p, id)
	if err != nil {
		return Budget{}, err
	}
	next := patch.Apply(existing)
	if err := next.Validate(); err != nil {
		return Budget{}, shared.BadRequest(err.Error())
	}
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Budget{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "UPDATE", "budget", id, existing, updated))
	return updated, nil
}

// Delete soft-deletes a budget line.
func (s *BudgetService) Delete(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	existing, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "DELETE", "budget", id, existing, nil))
	return nil
}
