package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sanctus-app/sanctus/internal/platform/store"
)

const entryColumns = `id, user_id, parish_id, action_type, table_name, record_id, old_values, new_values,
	ip_address, user_agent, created_at`

// PGRepository reads audit_log.
type PGRepository struct {
	db store.DBTX
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(db store.DBTX) *PGRepository {
	return &PGRepository{db: db}
}

// List returns entries newest first.
func (r *PGRepository) List(ctx context.Context, f Filters) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM audit_log
		WHERE ($1::uuid IS NULL OR parish_id = $1)
		  AND ($2::uuid IS NULL OR user_id = $2)
		  AND ($3::text IS NULL OR action_type = $3)
		  AND ($4::text IS NULL OR table_name = $4)
		  AND ($5::timestamptz IS NULL OR created_at >= $5)
		  AND ($6::timestamptz IS NULL OR created_at < $6)
		ORDER BY created_at DESC
		LIMIT $7 OFFSET $8`,
		f.ParishID, f.UserID, optionalText(f.Action), optionalText(f.Table),
		optionalTime(f.From), optionalTime(f.To), f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := scanEntry(rows, &e); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row, e *Entry) error {
	return row.Scan(&e.ID, &e.UserID, &e.ParishID, &e.ActionType, &e.TableName, &e.RecordID, &e.OldValues, &e.NewValues,
		&e.IPAddress, &e.UserAgent, &e.CreatedAt)
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ Repository = (*PGRepository)(nil)
