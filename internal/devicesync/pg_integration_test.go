package devicesync_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/devicesync"
	"github.com/sanctus-app/sanctus/internal/finance"
	"github.com/sanctus-app/sanctus/internal/members"
	"github.com/sanctus-app/sanctus/internal/shared"
	"github.com/sanctus-app/sanctus/internal/testing/pgtest"
)

func memberChange(t *testing.T, op devicesync.Operation, data any) devicesync.ChangeRecord {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return devicesync.ChangeRecord{Table: "member", Operation: op, Data: raw}
}

func TestReconcileMembersAgainstPostgres(t *testing.T) {
	pool := pgtest.Start(t)
	ctx := context.Background()
	home := pgtest.SeedParish(t, pool, "STJ")
	other := pgtest.SeedParish(t, pool, "STP")

	repo := members.NewRepository(pool)
	registry := devicesync.NewRegistry().Register("member", devicesync.NewApplier[members.Member](repo))
	reconciler := devicesync.NewReconciler(registry, nil, shared.NewAuditLogger(pool), nil)
	secretary := authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary, ParishID: &home}

	id := uuid.New()
	base := map[string]any{"id": id.String(), "parish_id": home.String(), "member_code": "M-1", "first_name": "Rose", "last_name": "Achieng"}
	dup := map[string]any{"id": id.String(), "parish_id": home.String(), "member_code": "M-1", "first_name": "Ignored", "last_name": "Achieng"}
	renamed := map[string]any{"id": id.String(), "parish_id": home.String(), "member_code": "M-1", "first_name": "Rosemary", "last_name": "Achieng"}
	foreign := map[string]any{"id": uuid.NewString(), "parish_id": other.String(), "member_code": "X-1", "first_name": "A", "last_name": "B"}

	res, err := reconciler.Reconcile(ctx, secretary, devicesync.Request{DeviceID: "tablet-1", Changes: []devicesync.ChangeRecord{
		memberChange(t, devicesync.OpInsert, base),
		memberChange(t, devicesync.OpInsert, dup),
		memberChange(t, devicesync.OpInsert, foreign),
	}})
	require.NoError(t, err)
	assert.Equal(t, devicesync.StatusPartialSuccess, res.Status)
	assert.Equal(t, 2, res.SyncedCount)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Error processing change for member")

	got, err := repo.Get(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rose", got.FirstName)

	res, err = reconciler.Reconcile(ctx, secretary, devicesync.Request{DeviceID: "tablet-1", Changes: []devicesync.ChangeRecord{
		memberChange(t, devicesync.OpUpdate, renamed),
	}})
	require.NoError(t, err)
	assert.Equal(t, devicesync.StatusSuccess, res.Status)
	got, err = repo.Get(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rosemary", got.FirstName)

	res, err = reconciler.Reconcile(ctx, secretary, devicesync.Request{DeviceID: "tablet-1", Changes: []devicesync.ChangeRecord{
		memberChange(t, devicesync.OpDelete, map[string]any{"id": id.String()}),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SyncedCount)

	_, err = repo.Get(ctx, id, nil)
	require.ErrorIs(t, err, shared.ErrNotFound)
	list, err := repo.List(ctx, members.ListFilter{ParishID: home})
	require.NoError(t, err)
	assert.Empty(t, list)

	var audits int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log WHERE action_type = 'SYNC'`).Scan(&audits))
	assert.Equal(t, 3, audits)
}

func TestIdempotencyStoreAgainstPostgres(t *testing.T) {
	pool := pgtest.Start(t)
	ctx := context.Background()
	keys := shared.NewIdempotencyStore(pool)

	require.NoError(t, keys.CheckAndInsert(ctx, "import:members:k1", "imports"))
	require.ErrorIs(t, keys.CheckAndInsert(ctx, "import:members:k1", "imports"), shared.ErrIdempotencyConflict)

	n, err := keys.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, keys.CheckAndInsert(ctx, "import:members:k1", "imports"))
}

func TestOverwriteKeepsServerManagedFlags(t *testing.T) {
	pool := pgtest.Start(t)
	ctx := context.Background()
	home := pgtest.SeedParish(t, pool, "STK")
	repo := finance.NewExpenseRepository(pool)

	ref := "CHQ-7"
	v := finance.ExpenseVoucher{
		ID:              uuid.New(),
		ParishID:        home,
		VoucherNumber:   "EXP-1",
		Category:        finance.CategoryUtilitiesExpense,
		Amount:          decimal.NewFromInt(1200),
		PaymentMethod:   finance.PaymentCash,
		PayeeName:       "Kenya Power",
		ExpenseDate:     pgtype.Date{Time: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Valid: true},
		Description:     "February bill",
		ReferenceNumber: &ref,
		RequestedBy:     uuid.New(),
	}
	_, err := repo.Create(ctx, v)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `UPDATE expense_voucher SET approval_status = 'APPROVED', paid = TRUE WHERE id = $1`, v.ID)
	require.NoError(t, err)

	v.Description = "February bill, corrected"
	v.ReferenceNumber = nil
	v.ApprovalStatus = nil
	v.Paid = nil
	require.NoError(t, repo.Overwrite(ctx, v, &home))

	got, err := repo.Get(ctx, v.ID, &home)
	require.NoError(t, err)
	assert.Equal(t, "February bill, corrected", got.Description)
	assert.Nil(t, got.ReferenceNumber)
	require.NotNil(t, got.ApprovalStatus)
	assert.Equal(t, finance.ApprovalApproved, *got.ApprovalStatus)
	require.NotNil(t, got.Paid)
	assert.True(t, *got.Paid)
}
