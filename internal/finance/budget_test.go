package finance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

type fakeBudgets struct {
	rows    map[uuid.UUID]Budget
	queries []BudgetFilter
}

func newFakeBudgets() *fakeBudgets { return &fakeBudgets{rows: map[uuid.UUID]Budget{}} }

func (f *fakeBudgets) List(_ context.Context, filter BudgetFilter) ([]Budget, error) {
	f.queries = append(f.queries, filter)
	out := []Budget{}
	for _, b := range f.rows {
		if b.ParishID == filter.ParishID && b.FiscalYear == filter.FiscalYear {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBudgets) Get(_ context.Context, id uuid.UUID, scope *uuid.UUID) (Budget, error) {
	b, ok := f.rows[id]
	if !ok || (scope != nil && b.ParishID != *scope) {
		return Budget{}, shared.NotFound("Budget not found")
	}
	return b, nil
}

func (f *fakeBudgets) Create(_ context.Context, b Budget) (Budget, error) {
	f.rows[b.ID] = b
	return b, nil
}

func (f *fakeBudgets) Update(_ context.Context, b Budget) (Budget, error) {
	f.rows[b.ID] = b
	return b, nil
}

func (f *fakeBudgets) SoftDelete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func accountantOf(parish uuid.UUID) authz.Principal {
	return authz.Principal{UserID: uuid.New(), Role: authz.RoleAccountant, ParishID: &parish}
}

func TestBudgetsAreFinanceOnly(t *testing.T) {
	repo := newFakeBudgets()
	svc := NewBudgetService(repo, nil, nil)
	home := uuid.New()
	secretary := authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary, ParishID: &home}

	_, err := svc.List(context.Background(), secretary, BudgetQuery{})
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.Create(context.Background(), secretary, CreateBudgetInput{Category: CategoryTithe, Amount: decimal.NewFromInt(10), FiscalYear: 2026})
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, repo.rows)
	assert.Empty(t, repo.queries)
}

func TestBudgetListDefaultsToCurrentYear(t *testing.T) {
	repo := newFakeBudgets()
	svc := NewBudgetService(repo, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	home := uuid.New()

	_, err := svc.List(context.Background(), accountantOf(home), BudgetQuery{})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), accountantOf(home), BudgetQuery{FiscalYear: 2024})
	require.NoError(t, err)

	require.Len(t, repo.queries, 2)
	assert.Equal(t, 2026, repo.queries[0].FiscalYear)
	assert.Equal(t, home, repo.queries[0].ParishID)
	assert.Equal(t, 2024, repo.queries[1].FiscalYear)
}

func TestBudgetCreateValidates(t *testing.T) {
	svc := NewBudgetService(newFakeBudgets(), nil, nil)
	home := uuid.New()
	ctx := context.Background()
	month := 13

	cases := map[string]CreateBudgetInput{
		"unknown category": {Category: "BINGO", Amount: decimal.NewFromInt(1), FiscalYear: 2026},
		"negative amount":  {Category: CategoryTithe, Amount: decimal.NewFromInt(-5), FiscalYear: 2026},
		"month past 12":    {Category: CategoryTithe, Amount: decimal.NewFromInt(5), FiscalYear: 2026, FiscalMonth: &month},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, accountantOf(home), in)
			require.ErrorIs(t, err, shared.ErrBadRequest)
		})
	}

	created, err := svc.Create(ctx, accountantOf(home), CreateBudgetInput{Category: "salary expense", Amount: decimal.RequireFromString("125000.50"), FiscalYear: 2026})
	require.NoError(t, err)
	assert.Equal(t, CategorySalaryExpense, created.Category)
	assert.Equal(t, home, created.ParishID)
	require.NotNil(t, created.CreatedBy)
}

func TestBudgetUpdateKeepsPeriodAndScope(t *testing.T) {
	repo := newFakeBudgets()
	svc := NewBudgetService(repo, nil, nil)
	home, other := uuid.New(), uuid.New()
	ctx := context.Background()
	b, err := svc.Create(ctx, accountantOf(home), CreateBudgetInput{Category: CategoryTithe, Amount: decimal.NewFromInt(100), FiscalYear: 2026})
	require.NoError(t, err)

	var p BudgetPatch
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"250.75","description":"revised"}`), &p))
	updated, err := svc.Update(ctx, accountantOf(home), b.ID, p)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("250.75").Equal(updated.Amount))
	assert.Equal(t, 2026, updated.FiscalYear)
	assert.Equal(t, CategoryTithe, updated.Category)

	_, err = svc.Update(ctx, accountantOf(other), b.ID, p)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBudgetHandlerRejectsBadMonth(t *testing.T) {
	home := uuid.New()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authz.ContextWithPrincipal(req.Context(), accountantOf(home))))
		})
	})
	NewBudgetHandler(nil, NewBudgetService(newFakeBudgets(), nil, nil)).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/budgets?fiscal_month=june", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/budgets", strings.NewReader(`{"category":"TITHE","amount":"500","fiscal_year":2026}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"amount":"500"`)
}
