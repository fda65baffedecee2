package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sanctus-app/sanctus/internal/platform/store"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// IncomeRepository persists income transactions.
type IncomeRepository interface {
	List(ctx context.Context, filter ListFilter) ([]IncomeTransaction, error)
	Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (IncomeTransaction, error)
	Create(ctx context.Context, t IncomeTransaction) (IncomeTransaction, error)

	InsertIfAbsent(ctx context.Context, t IncomeTransaction) error
	Overwrite(ctx context.Context, t IncomeTransaction, scope *uuid.UUID) error
	MarkDeleted(ctx context.Context, id uuid.UUID, scope *uuid.UUID) error
}

// ExpenseRepository persists expense vouchers.
type ExpenseRepository interface {
	List(ctx context.Context, filter ListFilter) ([]ExpenseVoucher, error)
	Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (ExpenseVoucher, error)
	Create(ctx context.Context, v ExpenseVoucher) (ExpenseVoucher, error)

	InsertIfAbsent(ctx context.Context, v ExpenseVoucher) error
	Overwrite(ctx context.Context, v ExpenseVoucher, scope *uuid.UUID) error
	MarkDeleted(ctx context.Context, id uuid.UUID, scope *uuid.UUID) error
}

// Sequencer hands out per-parish document numbers.
type Sequencer interface {
	Next(ctx context.Context, parishID uuid.UUID, prefix string, date time.Time) (string, error)
}

const incomeColumns = `id, parish_id, member_id, family_id, transaction_number, category, amount::text,
	payment_method, transaction_date, transaction_time::text, description, reference_number, received_by,
	receipt_printed, is_synced, synced_at, created_at, updated_at`

const expenseColumns = `id, parish_id, voucher_number, category, amount::text, payment_method, payee_name,
	payee_phone, expense_date, description, reference_number, approval_status, requested_by, approved_by,
	approved_at, rejection_reason, paid, paid_at, is_synced, synced_at, created_at, updated_at`

func scanIncome(row pgx.Row, t *IncomeTransaction) error {
	var amount string
	if err := row.Scan(&t.ID, &t.ParishID, &t.MemberID, &t.FamilyID, &t.TransactionNumber, &t.Category, &amount,
		&t.PaymentMethod, &t.TransactionDate, &t.TransactionTime, &t.Description, &t.ReferenceNumber, &t.ReceivedBy,
		&t.ReceiptPrinted, &t.IsSynced, &t.SyncedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return err
	}
	return parseAmount(amount, &t.Amount)
}

func scanExpense(row pgx.Row, v *ExpenseVoucher) error {
	var amount string
	if err := row.Scan(&v.ID, &v.ParishID, &v.VoucherNumber, &v.Category, &amount, &v.PaymentMethod, &v.PayeeName,
		&v.PayeePhone, &v.ExpenseDate, &v.Description, &v.ReferenceNumber, &v.ApprovalStatus, &v.RequestedBy, &v.ApprovedBy,
		&v.ApprovedAt, &v.RejectionReason, &v.Paid, &v.PaidAt, &v.IsSynced, &v.SyncedAt, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return err
	}
	return parseAmount(amount, &v.Amount)
}

func parseAmount(raw string, dst *decimal.Decimal) error {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", raw, err)
	}
	*dst = d
	return nil
}

// PGIncomeRepository implements IncomeRepository on PostgreSQL.
type PGIncomeRepository struct {
	table *store.LiveTable
}

// NewIncomeRepository constructs the PostgreSQL income repository.
func NewIncomeRepository(db store.DBTX) *PGIncomeRepository {
	return &PGIncomeRepository{table: store.NewLiveTable(db, "income_transaction", incomeColumns, "Transaction")}
}

// List returns live transactions of one parish, newest first.
func (r *PGIncomeRepository) List(ctx context.Context, filter ListFilter) ([]IncomeTransaction, error) {
	f := (&store.Filter{}).Where("parish_id = ?", filter.ParishID)
	page := store.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize(50, 500)
	out := []IncomeTransaction{}
	err := r.table.List(ctx, f, "transaction_date DESC, created_at DESC", &page, func(rows pgx.Rows) error {
		var t IncomeTransaction
		if err := scanIncome(rows, &t); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// Get loads one live transaction.
func (r *PGIncomeRepository) Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (IncomeTransaction, error) {
	var t IncomeTransaction
	err := r.table.Get(ctx, id, scope, func(row pgx.Row) error { return scanIncome(row, &t) })
	return t, err
}

// Create inserts a transaction recorded through the API.
func (r *PGIncomeRepository) Create(ctx context.Context, t IncomeTransaction) (IncomeTransaction, error) {
	var out IncomeTransaction
	err := scanIncome(r.table.DB().QueryRow(ctx, `INSERT INTO income_transaction (
			id, parish_id, member_id, family_id, transaction_number, category, amount, payment_method,
			transaction_date, transaction_time, description, reference_number, received_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10::time, $11, $12, $13)
		RETURNING `+incomeColumns,
		t.ID, t.ParishID, t.MemberID, t.FamilyID, t.TransactionNumber, string(t.Category), t.Amount.String(), string(t.PaymentMethod),
		t.TransactionDate, t.TransactionTime, t.Description, t.ReferenceNumber, t.ReceivedBy), &out)
	if err != nil {
		return IncomeTransaction{}, mapWriteError(err)
	}
	return out, nil
}

// InsertIfAbsent inserts a device-recorded transaction and marks it synced; an existing id wins.
func (r *PGIncomeRepository) InsertIfAbsent(ctx context.Context, t IncomeTransaction) error {
	_, err := r.table.DB().Exec(ctx, `INSERT INTO income_transaction (
			id, parish_id, member_id, family_id, transaction_number, category, amount, payment_method,
			transaction_date, transaction_time, description, reference_number, received_by, receipt_printed,
			is_synced, synced_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10::time, $11, $12, $13, COALESCE($14, FALSE),
			TRUE, NOW(), COALESCE($15, NOW()), COALESCE($16, NOW()))
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.ParishID, t.MemberID, t.FamilyID, t.TransactionNumber, string(t.Category), t.Amount.String(), string(t.PaymentMethod),
		t.TransactionDate, t.TransactionTime, t.Description, t.ReferenceNumber, t.ReceivedBy, t.ReceiptPrinted,
		t.CreatedAt, t.UpdatedAt)
	return err
}

// Overwrite replaces a live transaction with the device copy, keeping the device's updated_at.
func (r *PGIncomeRepository) Overwrite(ctx context.Context, t IncomeTransaction, scope *uuid.UUID) error {
	_, err := r.table.DB().Exec(ctx, `UPDATE income_transaction SET
			parish_id = $2, member_id = $3, family_id = $4, transaction_number = $5, category = $6,
			amount = $7::numeric, payment_method = $8, transaction_date = $9, transaction_time = $10::time,
			description = $11, reference_number = $12, received_by = $13,
			receipt_printed = COALESCE($14, receipt_printed), is_synced = TRUE, synced_at = NOW(),
			updated_at = COALESCE($15, NOW())
		WHERE id = $1 AND deleted_at IS NULL AND ($16::uuid IS NULL OR parish_id = $16)`,
		t.ID, t.ParishID, t.MemberID, t.FamilyID, t.TransactionNumber, string(t.Category),
		t.Amount.String(), string(t.PaymentMethod), t.TransactionDate, t.TransactionTime,
		t.Description, t.ReferenceNumber, t.ReceivedBy,
		t.ReceiptPrinted, t.UpdatedAt, scope)
	return err
}

// MarkDeleted soft-deletes by id; absent or already deleted rows are left alone.
func (r *PGIncomeRepository) MarkDeleted(ctx context.Context, id uuid.UUID, scope *uuid.UUID) error {
	_, err := r.table.DB().Exec(ctx, `UPDATE income_transaction SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND ($2::uuid IS NULL OR parish_id = $2)`, id, scope)
	return err
}

// PGExpenseRepository implements ExpenseRepository on PostgreSQL.
type PGExpenseRepository struct {
	table *store.LiveTable
}

// NewExpenseRepository constructs the PostgreSQL voucher repository.
func NewExpenseRepository(db store.DBTX) *PGExpenseRepository {
	return &PGExpenseRepository{table: store.NewLiveTable(db, "expense_voucher", expenseColumns, "Voucher")}
}

// List returns live vouchers of one parish, newest first.
func (r *PGExpenseRepository) List(ctx context.Context, filter ListFilter) ([]ExpenseVoucher, error) {
	f := (&store.Filter{}).Where("parish_id = ?", filter.ParishID)
	page := store.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize(50, 500)
	out := []ExpenseVoucher{}
	err := r.table.List(ctx, f, "expense_date DESC, created_at DESC", &page, func(rows pgx.Rows) error {
		var v ExpenseVoucher
		if err := scanExpense(rows, &v); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// Get loads one live voucher.
func (r *PGExpenseRepository) Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (ExpenseVoucher, error) {
	var v ExpenseVoucher
	err := r.table.Get(ctx, id, scope, func(row pgx.Row) error { return scanExpense(row, &v) })
	return v, err
}

// Create inserts a voucher raised through the API.
func (r *PGExpenseRepository) Create(ctx context.Context, v ExpenseVoucher) (ExpenseVoucher, error) {
	var out ExpenseVoucher
	err := scanExpense(r.table.DB().QueryRow(ctx, `INSERT INTO expense_voucher (
			id, parish_id, voucher_number, category, amount, payment_method, payee_name, payee_phone,
			expense_date, description, reference_number, approval_status, requested_by
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, COALESCE($12, 'PENDING'), $13)
		RETURNING `+expenseColumns,
		v.ID, v.ParishID, v.VoucherNumber, string(v.Category), v.Amount.String(), string(v.PaymentMethod), v.PayeeName, v.PayeePhone,
		v.ExpenseDate, v.Description, v.ReferenceNumber, v.ApprovalStatus, v.RequestedBy), &out)
	if err != nil {
		return ExpenseVoucher{}, mapWriteError(err)
	}
	return out, nil
}

// InsertIfAbsent inserts a device-raised voucher and marks it synced; an existing id wins.
func (r *PGExpenseRepository) InsertIfAbsent(ctx context.Context, v ExpenseVoucher) error {
	_, err := r.table.DB().Exec(ctx, `INSERT INTO expense_voucher (
			id, parish_id, voucher_number, category, amount, payment_method, payee_name, payee_phone,
			expense_date, description, reference_number, approval_status, requested_by, approved_by,
			approved_at, rejection_reason, paid, paid_at, is_synced, synced_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, COALESCE($12, 'PENDING'), $13, $14,
			$15, $16, COALESCE($17, FALSE), $18, TRUE, NOW(), COALESCE($19, NOW()), COALESCE($20, NOW()))
		ON CONFLICT (id) DO NOTHING`,
		v.ID, v.ParishID, v.VoucherNumber, string(v.Category), v.Amount.String(), string(v.PaymentMethod), v.PayeeName, v.PayeePhone,
		v.ExpenseDate, v.Description, v.ReferenceNumber, v.ApprovalStatus, v.RequestedBy, v.ApprovedBy,
		v.ApprovedAt, v.RejectionReason, v.Paid, v.PaidAt, v.CreatedAt, v.UpdatedAt)
	return err
}

// Overwrite replaces a live voucher with the device copy, keeping the device's updated_at.
func (r *PGExpenseRepository) Overwrite(ctx context.Context, v ExpenseVoucher, scope *uuid.UUID) error {
	_, err := r.table.DB().Exec(ctx, `UPDATE expense_voucher SET
			parish_id = $2, voucher_number = $3, category = $4, amount = $5::numeric, payment_method = $6,
			payee_name = $7, payee_phone = $8, expense_date = $9, description = $10, reference_number = $11,
			approval_status = COALESCE($12, approval_status), requested_by = $13, approved_by = $14,
			approved_at = $15, rejection_reason = $16, paid = COALESCE($17, paid), paid_at = $18,
			is_synced = TRUE, synced_at = NOW(), updated_at = COALESCE($19, NOW())
		WHERE id = $1 AND deleted_at IS NULL AND ($20::uuid IS NULL OR parish_id = $20)`,
		v.ID, v.ParishID, v.VoucherNumber, string(v.Category), v.Amount.String(), string(v.PaymentMethod),
		v.PayeeName, v.PayeePhone, v.ExpenseDate, v.Description, v.ReferenceNumber,
		v.ApprovalStatus, v.RequestedBy, v.ApprovedBy,
		v.ApprovedAt, v.RejectionReason, v.Paid, v.PaidAt,
		v.UpdatedAt, scope)
	return err
}

// MarkDeleted soft-deletes by id; absent or already deleted rows are left alone.
func (r *PGExpenseRepository) MarkDeleted(ctx context.Context, id uuid.UUID, scope *uuid.UUID) error {
	_, err := r.table.DB().Exec(ctx, `UPDATE expense_voucher SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND ($2::uuid IS NULL OR parish_id = $2)`, id, scope)
	return err
}

// PGSequencer numbers documents per parish, document type and month.
type PGSequencer struct {
	db store.DBTX
}

// NewSequencer constructs the PostgreSQL sequencer.
func NewSequencer(db store.DBTX) *PGSequencer {
	return &PGSequencer{db: db}
}

// Next returns e.g. INC-2610-0007 for the seventh income entry of October 2026.
func (s *PGSequencer) Next(ctx context.Context, parishID uuid.UUID, prefix string, date time.Time) (string, error) {
	var seq int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO document_sequence (parish_id, doc_type, period, seq)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (parish_id, doc_type, period)
		DO UPDATE SET seq = document_sequence.seq + 1
		RETURNING seq
	`, parishID, prefix, date.Format("200601")).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("finance: next %s number: %w", prefix, err)
	}
	return FormatNumber(prefix, date, seq), nil
}

// FormatNumber renders {PREFIX}-{YY}{MM}-{SEQ}.
func FormatNumber(prefix string, date time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, date.Format("0601"), seq)
}

func mapWriteError(err error) error {
	if store.IsForeignKeyViolation(err) {
		return shared.BadRequest("unknown parish, member or family")
	}
	return fmt.Errorf("finance: %w", err)
}

var (
	_ IncomeRepository  = (*PGIncomeRepository)(nil)
	_ ExpenseRepository = (*PGExpenseRepository)(nil)
	_ Sequencer         = (*PGSequencer)(nil)
)
