// Package imports loads members and income transactions from spreadsheet
// uploads. Each row goes through the same service path as an API write, so
// validation, numbering and auditing stay identical.
package imports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/finance"
	"github.com/sanctus-app/sanctus/internal/members"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Kind names an import target.
type Kind string

const (
	KindMembers      Kind = "members"
	KindTransactions Kind = "transactions"
)

// MemberCreator registers one member.
type MemberCreator interface {
	Create(ctx context.Context, p authz.Principal, in members.CreateInput) (members.Member, error)
}

// IncomeRecorder records one income transaction.
type IncomeRecorder interface {
	RecordIncome(ctx context.Context, p authz.Principal, in finance.CreateIncomeInput) (finance.IncomeTransaction, error)
}

// KeyStore remembers processed idempotency keys.
type KeyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Observer receives per-import row counts.
type Observer interface {
	ObserveImport(kind string, succeeded, failed int)
}

// Upload is one received file.
type Upload struct {
	FileName       string
	Data           []byte
	ParishID       *uuid.UUID
	IdempotencyKey string
}

// Result is the response body of an import.
type Result struct {
	SuccessCount int      `json:"success_count"`
	Errors       []string `json:"errors"`
}

// Service runs imports.
type Service struct {
	members  MemberCreator
	income   IncomeRecorder
	keys     KeyStore
	observer Observer
	audit    shared.AuditRecorder
	logger   *slog.Logger
}

// NewService constructs the import service. keys and observer may be nil.
func NewService(members MemberCreator, income IncomeRecorder, keys KeyStore, observer Observer, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{members: members, income: income, keys: keys, observer: observer, audit: audit, logger: logger}
}

// Import parses the upload and applies every row independently.
func (s *Service) Import(ctx context.Context, p authz.Principal, kind Kind, up Upload) (Result, error) {
	var apply func(context.Context, authz.Principal, uuid.UUID, Row) error
	switch kind {
	case KindMembers:
		if err := authz.RequireWrite(p); err != nil {
			return Result{}, err
		}
		apply = s.importMember
	case KindTransactions:
		if err := authz.RequireFinance(p); err != nil {
			return Result{}, err
		}
		apply = s.importIncome
	default:
		return Result{}, shared.NotFound("unknown import kind")
	}
	parishID, err := authz.ResolveParishID(p, up.ParishID)
	if err != nil {
		return Result{}, err
	}
	if len(up.Data) == 0 {
		return Result{}, shared.BadRequest("No file uploaded")
	}
	rows, err := ReadRows(up.FileName, up.Data)
	if err != nil {
		return Result{}, err
	}

	key := ""
	if s.keys != nil && strings.TrimSpace(up.IdempotencyKey) != "" {
		key = fmt.Sprintf("import:%s:%s:%s", kind, parishID, strings.TrimSpace(up.IdempotencyKey))
		if err := s.keys.CheckAndInsert(ctx, key, "import."+string(kind)); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Result{}, shared.Conflict("This file has already been imported")
			}
			return Result{}, err
		}
	}

	result := Result{Errors: []string{}}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			if key != "" && result.SuccessCount == 0 {
				_ = s.keys.Delete(context.WithoutCancel(ctx), key)
			}
			return Result{}, err
		}
		if err := apply(ctx, p, parishID, row); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", row.Number, s.rowMessage(kind, row, err)))
			continue
		}
		result.SuccessCount++
	}

	if s.observer != nil {
		s.observer.ObserveImport(string(kind), result.SuccessCount, len(result.Errors))
	}
	entry := authz.AuditEntry(p, "IMPORT", importTable(kind), uuid.Nil, nil, map[string]any{
		"file":          up.FileName,
		"parish_id":     parishID,
		"success_count": result.SuccessCount,
		"failed":        len(result.Errors),
	})
	entry.ParishID = &parishID
	shared.RecordBestEffort(ctx, s.audit, s.logger, entry)
	s.logger.InfoContext(ctx, "import finished",
		slog.String("kind", string(kind)),
		slog.String("parish_id", parishID.String()),
		slog.Int("rows", len(rows)),
		slog.Int("success_count", result.SuccessCount),
		slog.Int("failed", len(result.Errors)))
	return result, nil
}

func importTable(kind Kind) string {
	if kind == KindTransactions {
		return "income_transaction"
	}
	return "member"
}

// rowMessage keeps caller-facing errors and hides everything else.
func (s *Service) rowMessage(kind Kind, row Row, err error) string {
	var rowErr rowError
	if errors.As(err, &rowErr) {
		return string(rowErr)
	}
	var known *shared.Error
	if errors.As(err, &known) {
		return known.Error()
	}
	s.logger.Warn("import row failed",
		slog.String("kind", string(kind)),
		slog.Int("row", row.Number),
		slog.Any("error", err))
	return "Database error"
}

type rowError string

func (e rowError) Error() string { return string(e) }

// Member columns: member_code, first_name, last_name, middle_name, gender,
// date_of_birth, phone_number, email.
func (s *Service) importMember(ctx context.Context, p authz.Principal, parishID uuid.UUID, row Row) error {
	in := members.CreateInput{
		ParishID:    &parishID,
		MemberCode:  row.Cell(0),
		FirstName:   row.Cell(1),
		LastName:    row.Cell(2),
		MiddleName:  optional(row.Cell(3)),
		PhoneNumber: optional(row.Cell(6)),
		Email:       optional(row.Cell(7)),
	}
	if in.FirstName == "" || in.LastName == "" {
		return rowError("Missing required names")
	}
	if in.MemberCode == "" {
		return rowError("Missing member_code")
	}
	if raw := row.Cell(4); raw != "" {
		g := members.Gender(strings.ToUpper(raw))
		if !g.Valid() {
			return rowError(fmt.Sprintf("Invalid gender: %s", raw))
		}
		in.Gender = &g
	}
	if raw := row.Cell(5); raw != "" {
		dob, err := parseDate(raw)
		if err != nil {
			return rowError(fmt.Sprintf("Invalid date: %s", raw))
		}
		in.DateOfBirth = dob
	}
	_, err := s.members.Create(ctx, p, in)
	return err
}

// Transaction columns: category, amount, payment_method, transaction_date,
// description, reference_number.
func (s *Service) importIncome(ctx context.Context, p authz.Principal, parishID uuid.UUID, row Row) error {
	category, err := finance.ParseCategory(row.Cell(0))
	if err != nil {
		return rowError(fmt.Sprintf("Invalid category: %s", row.Cell(0)))
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(row.Cell(1), ",", ""))
	if err != nil {
		return rowError(fmt.Sprintf("Invalid amount: %s", row.Cell(1)))
	}
	method, err := finance.ParsePaymentMethod(row.Cell(2))
	if err != nil {
		return rowError(fmt.Sprintf("Invalid payment method: %s", row.Cell(2)))
	}
	date, err := parseDate(row.Cell(3))
	if err != nil {
		return rowError(fmt.Sprintf("Invalid date: %s", row.Cell(3)))
	}
	_, err = s.income.RecordIncome(ctx, p, finance.CreateIncomeInput{
		ParishID:        &parishID,
		Category:        category,
		Amount:          amount,
		PaymentMethod:   method,
		TransactionDate: date,
		Description:     optional(row.Cell(4)),
		ReferenceNumber: optional(row.Cell(5)),
	})
	return err
}

var dateLayouts = []string{time.DateOnly, "02/01/2006", "2006/01/02"}

func parseDate(raw string) (pgtype.Date, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return pgtype.Date{Time: t, Valid: true}, nil
		}
		lastErr = err
	}
	return pgtype.Date{}, lastErr
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
