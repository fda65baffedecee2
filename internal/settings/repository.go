package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sanctus-app/sanctus/internal/platform/db"
	"github.com/sanctus-app/sanctus/internal/platform/store"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Repository persists settings. A nil parish id addresses the global row.
type Repository interface {
	List(ctx context.Context, parishID *uuid.UUID, group string) ([]Setting, error)
	Get(ctx context.Context, parishID *uuid.UUID, key string) (Setting, error)
	Upsert(ctx context.Context, parishID *uuid.UUID, entries []Entry) ([]Setting, error)
	Delete(ctx context.Context, parishID *uuid.UUID, key string) error
}

const settingColumns = `id, parish_id, setting_key, setting_value, setting_group, description, created_at, updated_at`

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanSetting(row pgx.Row, s *Setting) error {
	return row.Scan(&s.ID, &s.ParishID, &s.Key, &s.Value, &s.Group, &s.Description, &s.CreatedAt, &s.UpdatedAt)
}

// List returns the owner's settings ordered by group and key.
func (r *PGRepository) List(ctx context.Context, parishID *uuid.UUID, group string) ([]Setting, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+settingColumns+` FROM app_setting
		WHERE parish_id IS NOT DISTINCT FROM $1 AND ($2 = '' OR setting_group = $2)
		ORDER BY setting_group, setting_key`, parishID, group)
	if err != nil {
		return nil, fmt.Errorf("settings: list: %w", err)
	}
	defer rows.Close()
	out := []Setting{}
	for rows.Next() {
		var s Setting
		if err := scanSetting(rows, &s); err != nil {
			return nil, fmt.Errorf("settings: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get loads one setting of the owner.
func (r *PGRepository) Get(ctx context.Context, parishID *uuid.UUID, key string) (Setting, error) {
	var s Setting
	err := scanSetting(r.pool.QueryRow(ctx, `SELECT `+settingColumns+` FROM app_setting
		WHERE setting_key = $1 AND parish_id IS NOT DISTINCT FROM $2`, key, parishID), &s)
	if errors.Is(err, pgx.ErrNoRows) {
		return Setting{}, shared.NotFound("Setting not found")
	}
	if err != nil {
		return Setting{}, fmt.Errorf("settings: get: %w", err)
	}
	return s, nil
}

// Upsert writes every entry for the owner in one transaction.
func (r *PGRepository) Upsert(ctx context.Context, parishID *uuid.UUID, entries []Entry) ([]Setting, error) {
	conflict := `(setting_key) WHERE parish_id IS NULL`
	if parishID != nil {
		conflict = `(parish_id, setting_key) WHERE parish_id IS NOT NULL`
	}
	query := `INSERT INTO app_setting (parish_id, setting_key, setting_value, setting_group, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ` + conflict + ` DO UPDATE SET
			setting_value = EXCLUDED.setting_value,
			setting_group = EXCLUDED.setting_group,
			description = COALESCE(EXCLUDED.description, app_setting.description),
			updated_at = NOW()
		RETURNING ` + settingColumns
	out := make([]Setting, 0, len(entries))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, e := range entries {
			var s Setting
			if err := scanSetting(tx.QueryRow(ctx, query, parishID, e.Key, e.Value, e.Group, e.Description), &s); err != nil {
				return err
			}
			out = append(out, s)
		}
		return nil
	})
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return nil, shared.BadRequest("unknown parish")
		}
		return nil, fmt.Errorf("settings: upsert: %w", err)
	}
	return out, nil
}

// Delete removes one setting of the owner.
func (r *PGRepository) Delete(ctx context.Context, parishID *uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM app_setting WHERE setting_key = $1 AND parish_id IS NOT DISTINCT FROM $2`, key, parishID)
	if err != nil {
		return fmt.Errorf("settings: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("Setting not found")
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
