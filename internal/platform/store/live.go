// Package store holds the soft-delete aware query helpers shared by every
// entity repository.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sanctus-app/sanctus/internal/shared"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LiveTable scopes every read on a table to rows that are not soft-deleted.
type LiveTable struct {
	db      DBTX
	table   string
	columns string
	noun    string
}

// NewLiveTable wraps table for live-only access; noun is used in not-found messages.
func NewLiveTable(db DBTX, table, columns, noun string) *LiveTable {
	return &LiveTable{db: db, table: table, columns: columns, noun: noun}
}

// DB exposes the underlying handle for writes that are not reads.
func (t *LiveTable) DB() DBTX { return t.db }

// Table returns the table name.
func (t *LiveTable) Table() string { return t.table }

// Filter accumulates AND-ed predicates with positional args.
type Filter struct {
	conds []string
	args  []any
}

// Where appends a predicate; each "?" is replaced with the next positional placeholder.
func (f *Filter) Where(cond string, args ...any) *Filter {
	var b strings.Builder
	next := 0
	for _, r := range cond {
		if r == '?' && next < len(args) {
			f.args = append(f.args, args[next])
			next++
			b.WriteString("$" + strconv.Itoa(len(f.args)))
			continue
		}
		b.WriteRune(r)
	}
	f.conds = append(f.conds, b.String())
	return f
}

// WhereIf appends the predicate only when ok is true.
func (f *Filter) WhereIf(ok bool, cond string, args ...any) *Filter {
	if ok {
		return f.Where(cond, args...)
	}
	return f
}

// Args returns the accumulated positional args.
func (f *Filter) Args() []any { return f.args }

// SQL renders the WHERE clause, always leading with the live-row predicate.
func (f *Filter) SQL() string {
	parts := append([]string{"deleted_at IS NULL"}, f.conds...)
	return " WHERE " + strings.Join(parts, " AND ")
}

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps limit to (0, max] and offset to >= 0.
func (p Page) Normalize(def, max int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// SelectSQL renders the live-only SELECT for the filter, order and page.
func (t *LiveTable) SelectSQL(f *Filter, orderBy string, page *Page) (string, []any) {
	if f == nil {
		f = &Filter{}
	}
	query := "SELECT " + t.columns + " FROM " + t.table + f.SQL()
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	args := append([]any(nil), f.args...)
	if page != nil {
		args = append(args, page.Limit, page.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return query, args
}

// List runs the filtered live-only query and hands each row to scan.
func (t *LiveTable) List(ctx context.Context, f *Filter, orderBy string, page *Page, scan func(pgx.Rows) error) error {
	query, args := t.SelectSQL(f, orderBy, page)
	rows, err := t.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: list: %w", t.table, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("%s: scan: %w", t.table, err)
		}
	}
	return rows.Err()
}

// Get loads a live row by id; soft-deleted rows surface as not found. A
// non-nil scope also requires parish_id to match, so rows of other parishes
// are not found either.
func (t *LiveTable) Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID, scan func(pgx.Row) error) error {
	f := (&Filter{}).Where("id = ?", id)
	if scope != nil {
		f.Where("parish_id = ?", *scope)
	}
	query, args := t.SelectSQL(f, "", nil)
	if err := scan(t.db.QueryRow(ctx, query, args...)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.NotFound(t.noun + " not found")
		}
		return fmt.Errorf("%s: get: %w", t.table, err)
	}
	return nil
}

// SoftDelete marks a live row deleted. Deleting an already-deleted row is not found.
func (t *LiveTable) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := t.db.Exec(ctx, "UPDATE "+t.table+" SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("%s: soft delete: %w", t.table, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound(t.noun + " not found")
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolation reports whether err is a Postgres foreign_key_violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
