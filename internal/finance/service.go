package finance

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

const (
	incomePrefix  = "INC"
	expensePrefix = "EXP"
)

// Service applies finance role and parish scope checks around the books.
type Service struct {
	income   IncomeRepository
	expenses ExpenseRepository
	numbers  Sequencer
	audit    shared.AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the finance service.
func NewService(income IncomeRepository, expenses ExpenseRepository, numbers Sequencer, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{income: income, expenses: expenses, numbers: numbers, audit: audit, logger: logger, now: time.Now}
}

// ListQuery is the caller-supplied listing request.
type ListQuery struct {
	ParishID *uuid.UUID
	Limit    int
	Offset   int
}

func (s *Service) filter(p authz.Principal, q ListQuery) (ListFilter, error) {
	parishID, err := authz.ResolveParishID(p, q.ParishID)
	if err != nil {
		return ListFilter{}, err
	}
	return ListFilter{ParishID: parishID, Limit: q.Limit, Offset: q.Offset}, nil
}

func (s *Service) today() pgtype.Date {
	y, m, d := s.now().Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

// ListIncome returns live income of the resolved parish.
func (s *Service) ListIncome(ctx context.Context, p authz.Principal, q ListQuery) ([]IncomeTransaction, error) {
	f, err := s.filter(p, q)
	if err != nil {
		return nil, err
	}
	return s.income.List(ctx, f)
}

// GetIncome loads a transaction visible to the principal.
func (s *Service) GetIncome(ctx context.Context, p authz.Principal, id uuid.UUID) (IncomeTransaction, error) {
	scope, err := authz.ReadScope(p)
	if err != nil {
		return IncomeTransaction{}, err
	}
	return s.income.Get(ctx, id, scope)
}

// RecordIncome numbers and stores a new transaction.
func (s *Service) RecordIncome(ctx context.Context, p authz.Principal, in CreateIncomeInput) (IncomeTransaction, error) {
	if err := authz.RequireFinance(p); err != nil {
		return IncomeTransaction{}, err
	}
	parishID, err := authz.ResolveParishID(p, in.ParishID)
	if err != nil {
		return IncomeTransaction{}, err
	}
	if !in.TransactionDate.Valid {
		in.TransactionDate = s.today()
	}
	// Catch enum and amount errors before a sequence number is burnt.
	if err := NewIncome(parishID, p.UserID, "pending", in).Validate(); err != nil {
		return IncomeTransaction{}, shared.BadRequest(err.Error())
	}
	number, err := s.numbers.Next(ctx, parishID, incomePrefix, in.TransactionDate.Time)
	if err != nil {
		return IncomeTransaction{}, err
	}
	created, err := s.income.Create(ctx, NewIncome(parishID, p.UserID, number, in))
	if err != nil {
		return IncomeTransaction{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "CREATE", "income_transaction", created.ID, nil, created))
	return created, nil
}

// ListExpenses returns live vouchers of the resolved parish.
func (s *Service) ListExpenses(ctx context.Context, p authz.Principal, q ListQuery) ([]ExpenseVoucher, error) {
	f, err := s.filter(p, q)
	if err != nil {
		return nil, err
	}
	return s.expenses.List(ctx, f)
}

// GetExpense loads a voucher visible to the principal.
func (s *Service) GetExpense(ctx context.Context, p authz.Principal, id uuid.UUID) (ExpenseVoucher, error) {
	scope, err := authz.ReadScope(p)
	if err != nil {
		return ExpenseVoucher{}, err
	}
	return s.expenses.Get(ctx, id, scope)
}

// RaiseExpense numbers and stores a pending voucher requested by the principal.
func (s *Service) RaiseExpense(ctx context.Context, p authz.Principal, in CreateExpenseInput) (ExpenseVoucher, error) {
	if err := authz.RequireFinance(p); err != nil {
		return ExpenseVoucher{}, err
	}
	parishID, err := authz.ResolveParishID(p, in.ParishID)
	if err != nil {
		return ExpenseVoucher{}, err
	}
	if !in.ExpenseDate.Valid {
		in.ExpenseDate = s.today()
	}
	if err := NewExpense(parishID, p.UserID, "pending", in).Validate(); err != nil {
		return ExpenseVoucher{}, shared.BadRequest(err.Error())
	}
	number, err := s.numbers.Next(ctx, parishID, expensePrefix, in.ExpenseDate.Time)
	if err != nil {
		return ExpenseVoucher{}, err
	}
	created, err := s.expenses.Create(ctx, NewExpense(parishID, p.UserID, number, in))
	if err != nil {
		return ExpenseVoucher{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "CREATE", "expense_voucher", created.ID, nil, created))
	return created, nil
}
