package finance

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

type fakeIncome struct{ rows map[uuid.UUID]IncomeTransaction }

func (f *fakeIncome) List(_ context.Context, filter ListFilter) ([]IncomeTransaction, error) {
	out := []IncomeTransaction{}
	for _, t := range f.rows {
		if t.ParishID == filter.ParishID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeIncome) Get(_ context.Context, id uuid.UUID, scope *uuid.UUID) (IncomeTransaction, error) {
	t, ok := f.rows[id]
	if !ok || (scope != nil && t.ParishID != *scope) {
		return IncomeTransaction{}, shared.NotFound("Transaction not found")
	}
	return t, nil
}

func (f *fakeIncome) Create(_ context.Context, t IncomeTransaction) (IncomeTransaction, error) {
	f.rows[t.ID] = t
	return t, nil
}

func (f *fakeIncome) InsertIfAbsent(context.Context, IncomeTransaction) error        { return nil }
func (f *fakeIncome) Overwrite(context.Context, IncomeTransaction, *uuid.UUID) error { return nil }
func (f *fakeIncome) MarkDeleted(context.Context, uuid.UUID, *uuid.UUID) error       { return nil }

type fakeExpenses struct{ rows map[uuid.UUID]ExpenseVoucher }

func (f *fakeExpenses) List(context.Context, ListFilter) ([]ExpenseVoucher, error) { return nil, nil }

func (f *fakeExpenses) Get(_ context.Context, id uuid.UUID, scope *uuid.UUID) (ExpenseVoucher, error) {
	v, ok := f.rows[id]
	if !ok || (scope != nil && v.ParishID != *scope) {
		return ExpenseVoucher{}, shared.NotFound("Voucher not found")
	}
	return v, nil
}

func (f *fakeExpenses) Create(_ context.Context, v ExpenseVoucher) (ExpenseVoucher, error) {
	f.rows[v.ID] = v
	return v, nil
}

func (f *fakeExpenses) InsertIfAbsent(context.Context, ExpenseVoucher) error        { return nil }
func (f *fakeExpenses) Overwrite(context.Context, ExpenseVoucher, *uuid.UUID) error { return nil }
func (f *fakeExpenses) MarkDeleted(context.Context, uuid.UUID, *uuid.UUID) error    { return nil }

type countingSequencer struct{ calls int64 }

func (s *countingSequencer) Next(_ context.Context, _ uuid.UUID, prefix string, date time.Time) (string, error) {
	s.calls++
	return FormatNumber(prefix, date, s.calls), nil
}

type fixture struct {
	svc      *Service
	income   *fakeIncome
	expenses *fakeExpenses
	seq      *countingSequencer
	parish   uuid.UUID
}

func newFixture() fixture {
	f := fixture{
		income:   &fakeIncome{rows: map[uuid.UUID]IncomeTransaction{}},
		expenses: &fakeExpenses{rows: map[uuid.UUID]ExpenseVoucher{}},
		seq:      &countingSequencer{},
		parish:   uuid.New(),
	}
	f.svc = NewService(f.income, f.expenses, f.seq, nil, nil)
	f.svc.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }
	return f
}

func (f fixture) principal(role authz.Role) authz.Principal {
	parish := f.parish
	return authz.Principal{UserID: uuid.New(), Role: role, ParishID: &parish}
}

func TestRecordIncomeNumbersAndDefaultsDate(t *testing.T) {
	f := newFixture()
	accountant := f.principal(authz.RoleAccountant)

	var in CreateIncomeInput
	require.NoError(t, json.Unmarshal([]byte(`{"category":"TITHE","amount":1500.50,"payment_method":"MPESA"}`), &in))

	created, err := f.svc.RecordIncome(context.Background(), accountant, in)
	require.NoError(t, err)
	assert.Equal(t, "INC-2610-0001", created.TransactionNumber)
	assert.Equal(t, f.parish, created.ParishID)
	assert.True(t, created.Amount.Equal(decimal.RequireFromString("1500.50")))
	assert.Equal(t, 2026, created.TransactionDate.Time.Year())
	require.NotNil(t, created.ReceivedBy)
	assert.Equal(t, accountant.UserID, *created.ReceivedBy)
}

func TestRecordIncomeRejectsBadInputWithoutBurningNumber(t *testing.T) {
	f := newFixture()
	accountant := f.principal(authz.RoleAccountant)

	_, err := f.svc.RecordIncome(context.Background(), accountant, CreateIncomeInput{
		Category: CategoryTithe, Amount: decimal.NewFromInt(-5), PaymentMethod: PaymentCash,
	})
	require.ErrorIs(t, err, shared.ErrBadRequest)

	_, err = f.svc.RecordIncome(context.Background(), accountant, CreateIncomeInput{
		Category: "LOTTERY", Amount: decimal.NewFromInt(5), PaymentMethod: PaymentCash,
	})
	require.ErrorIs(t, err, shared.ErrBadRequest)
	assert.Zero(t, f.seq.calls)
}

func TestFinanceWritesNeedFinanceRole(t *testing.T) {
	f := newFixture()
	secretary := f.principal(authz.RoleSecretary)

	_, err := f.svc.RecordIncome(context.Background(), secretary, CreateIncomeInput{
		Category: CategoryOffertory, Amount: decimal.NewFromInt(100), PaymentMethod: PaymentCash,
	})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.svc.RaiseExpense(context.Background(), secretary, CreateExpenseInput{
		Category: CategoryUtilitiesExpense, Amount: decimal.NewFromInt(100), PaymentMethod: PaymentCash,
		PayeeName: "Power Co", Description: "October bill",
	})
	require.ErrorIs(t, err, shared.ErrForbidden)

	list, err := f.svc.ListIncome(context.Background(), secretary, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRaiseExpenseIsPendingAndRequestedByCaller(t *testing.T) {
	f := newFixture()
	admin := f.principal(authz.RoleParishAdmin)

	v, err := f.svc.RaiseExpense(context.Background(), admin, CreateExpenseInput{
		Category: CategoryMaintenanceExpense, Amount: decimal.RequireFromString("2500.00"), PaymentMethod: PaymentBankTransfer,
		PayeeName: "  Roof Repairs Ltd ", Description: "Gutter replacement",
	})
	require.NoError(t, err)
	assert.Equal(t, "EXP-2610-0001", v.VoucherNumber)
	assert.Equal(t, "Roof Repairs Ltd", v.PayeeName)
	assert.Equal(t, admin.UserID, v.RequestedBy)
	require.NotNil(t, v.ApprovalStatus)
	assert.Equal(t, ApprovalPending, *v.ApprovalStatus)
}

func TestGetIsParishScoped(t *testing.T) {
	f := newFixture()
	other := uuid.New()
	foreign := NewIncome(other, uuid.New(), "INC-2610-0001", CreateIncomeInput{
		Category: CategoryDonation, Amount: decimal.NewFromInt(10), PaymentMethod: PaymentCash,
	})
	f.income.rows[foreign.ID] = foreign

	_, err := f.svc.GetIncome(context.Background(), f.principal(authz.RoleAccountant), foreign.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.svc.GetExpense(context.Background(), f.principal(authz.RoleAccountant), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)

	parishless := authz.Principal{UserID: uuid.New(), Role: authz.RoleAccountant}
	_, err = f.svc.GetIncome(context.Background(), parishless, foreign.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	super := authz.Principal{UserID: uuid.New(), Role: authz.RoleSuperAdmin}
	got, err := f.svc.GetIncome(context.Background(), super, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, other, got.ParishID)
}

func TestParseEnumsAreLenient(t *testing.T) {
	c, err := ParseCategory(" mass offering ")
	require.NoError(t, err)
	assert.Equal(t, CategoryMassOffering, c)

	m, err := ParsePaymentMethod("bank-transfer")
	require.NoError(t, err)
	assert.Equal(t, PaymentBankTransfer, m)

	_, err = ParsePaymentMethod("barter")
	require.Error(t, err)
}

func TestIncomeValidateTransactionTime(t *testing.T) {
	tx := NewIncome(uuid.New(), uuid.New(), "INC-1", CreateIncomeInput{
		Category: CategoryTithe, Amount: decimal.NewFromInt(1), PaymentMethod: PaymentCash,
	})
	tx.TransactionDate.Valid = true
	ok := "10:15:00"
	tx.TransactionTime = &ok
	require.NoError(t, tx.Validate())

	bad := "quarter past ten"
	tx.TransactionTime = &bad
	require.Error(t, tx.Validate())
}
