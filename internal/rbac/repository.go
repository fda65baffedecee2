package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sanctus-app/sanctus/internal/platform/db"
	"github.com/sanctus-app/sanctus/internal/platform/store"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Repository abstracts role, permission and override persistence.
type Repository interface {
	ListPermissions(ctx context.Context, group string) ([]Permission, error)
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (Role, error)
	RolePermissions(ctx context.Context, roleID uuid.UUID) ([]Permission, error)
	CreateRole(ctx context.Context, in CreateRoleInput) (Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, in UpdateRoleInput) (Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	ReplaceRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error

	UserRolePermissionKeys(ctx context.Context, userID uuid.UUID) ([]string, error)
	UserParish(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	ListOverrides(ctx context.Context, filter OverrideFilter) ([]Override, error)
	UpsertOverrides(ctx context.Context, userID, grantedBy uuid.UUID, permissionIDs []uuid.UUID, reason *string, expiresAt *time.Time) error
	DeactivateOverrides(ctx context.Context, userID uuid.UUID, permissionIDs []uuid.UUID) error
	OverrideOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	DeactivateOverride(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const (
	permissionColumns = `p.id, p.permission_key, p.permission_group, p.display_name, p.description, p.created_at`
	roleColumns       = `id, role_name, display_name, description, is_system, created_at, updated_at`
	overrideSelect    = `SELECT upo.id, upo.user_id, upo.permission_id, p.permission_key, p.display_name,
		upo.granted_by, upo.reason, upo.expires_at, upo.is_active, upo.created_at
		FROM user_permission_override upo
		JOIN permission p ON p.id = upo.permission_id`
)

// ListPermissions returns the catalog, optionally narrowed to one group.
func (r *PGRepository) ListPermissions(ctx context.Context, group string) ([]Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permission p`
	args := []any{}
	if group != "" {
		query += ` WHERE p.permission_group = $1 ORDER BY p.permission_key`
		args = append(args, group)
	} else {
		query += ` ORDER BY p.permission_group, p.permission_key`
	}
	return r.queryPermissions(ctx, query, args...)
}

// ListRoles returns system roles first, then by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM custom_role ORDER BY is_system DESC, role_name`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list roles: %w", err)
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM custom_role WHERE id = $1`, id))
}

// RolePermissions lists the permissions attached to a role.
func (r *PGRepository) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]Permission, error) {
	return r.queryPermissions(ctx, `SELECT `+permissionColumns+` FROM permission p
		JOIN role_permission rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.permission_group, p.permission_key`, roleID)
}

// CreateRole inserts a non-system role and its initial permissions atomically.
func (r *PGRepository) CreateRole(ctx context.Context, in CreateRoleInput) (Role, error) {
	var role Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		role, err = scanRole(tx.QueryRow(ctx, `INSERT INTO custom_role (role_name, display_name, description, is_system)
			VALUES ($1, $2, $3, FALSE) RETURNING `+roleColumns, in.Name, in.DisplayName, in.Description))
		if err != nil {
			return err
		}
		return attachPermissions(ctx, tx, role.ID, in.PermissionIDs)
	})
	if err != nil {
		return Role{}, mapWriteError(err)
	}
	return role, nil
}

// UpdateRole edits display name and description.
func (r *PGRepository) UpdateRole(ctx context.Context, id uuid.UUID, in UpdateRoleInput) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `UPDATE custom_role SET
			display_name = COALESCE($2, display_name),
			description = COALESCE($3, description),
			updated_at = NOW()
		WHERE id = $1 RETURNING `+roleColumns, id, in.DisplayName, in.Description))
}

// DeleteRole removes a non-system role. Role permissions cascade.
func (r *PGRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM custom_role WHERE id = $1 AND is_system = FALSE`, id)
	if err != nil {
		return fmt.Errorf("rbac: delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("role not found")
	}
	return nil
}

// ReplaceRolePermissions deletes all and re-inserts the given set in one transaction.
func (r *PGRepository) ReplaceRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permission WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		return attachPermissions(ctx, tx, roleID, permissionIDs)
	})
	return mapWriteError(err)
}

// UserRolePermissionKeys resolves the permissions granted through the user's base role.
func (r *PGRepository) UserRolePermissionKeys(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT p.permission_key
		FROM app_user u
		JOIN custom_role cr ON cr.role_name = u.role
		JOIN role_permission rp ON rp.role_id = cr.id
		JOIN permission p ON p.id = rp.permission_id
		WHERE u.id = $1 AND u.deleted_at IS NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: role permissions: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// UserParish returns the home parish of a live user.
func (r *PGRepository) UserParish(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	var parishID *uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT parish_id FROM app_user WHERE id = $1 AND deleted_at IS NULL`, userID).Scan(&parishID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("rbac: user parish: %w", err)
	}
	return parishID, nil
}

// ListOverrides lists overrides, newest first.
func (r *PGRepository) ListOverrides(ctx context.Context, filter OverrideFilter) ([]Override, error) {
	query := overrideSelect + ` WHERE TRUE`
	args := []any{}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(` AND upo.user_id = $%d`, len(args))
	}
	if filter.ActiveOnly {
		query += ` AND upo.is_active = TRUE AND (upo.expires_at IS NULL OR upo.expires_at > NOW())`
	}
	query += ` ORDER BY upo.created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: list overrides: %w", err)
	}
	defer rows.Close()
	var out []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.ID, &o.UserID, &o.PermissionID, &o.PermissionKey, &o.PermissionDisplayName,
			&o.GrantedBy, &o.Reason, &o.ExpiresAt, &o.IsActive, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpsertOverrides grants or re-activates one override row per permission.
func (r *PGRepository) UpsertOverrides(ctx context.Context, userID, grantedBy uuid.UUID, permissionIDs []uuid.UUID, reason *string, expiresAt *time.Time) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, permID := range permissionIDs {
			if _, err := tx.Exec(ctx, `INSERT INTO user_permission_override (user_id, permission_id, granted_by, reason, expires_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (user_id, permission_id) DO UPDATE SET
					granted_by = EXCLUDED.granted_by,
					reason = EXCLUDED.reason,
					expires_at = EXCLUDED.expires_at,
					is_active = TRUE`, userID, permID, grantedBy, reason, expiresAt); err != nil {
				return err
			}
		}
		return nil
	})
	return mapWriteError(err)
}

// DeactivateOverrides revokes the user's overrides for the given permissions. Absent rows are ignored.
func (r *PGRepository) DeactivateOverrides(ctx context.Context, userID uuid.UUID, permissionIDs []uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE user_permission_override SET is_active = FALSE
		WHERE user_id = $1 AND permission_id = ANY($2)`, userID, permissionIDs)
	if err != nil {
		return fmt.Errorf("rbac: revoke overrides: %w", err)
	}
	return nil
}

// OverrideOwner returns the user an override belongs to.
func (r *PGRepository) OverrideOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM user_permission_override WHERE id = $1`, id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, shared.NotFound("override not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("rbac: override owner: %w", err)
	}
	return userID, nil
}

// DeactivateOverride revokes a single override and returns its user.
func (r *PGRepository) DeactivateOverride(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.pool.QueryRow(ctx, `UPDATE user_permission_override SET is_active = FALSE WHERE id = $1 RETURNING user_id`, id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, shared.NotFound("override not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("rbac: revoke override: %w", err)
	}
	return userID, nil
}

// DeactivateExpired flips is_active on overrides whose expiry has passed.
func (r *PGRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE user_permission_override SET is_active = FALSE
		WHERE is_active = TRUE AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("rbac: sweep overrides: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PGRepository) queryPermissions(ctx context.Context, query string, args ...any) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: list permissions: %w", err)
	}
	defer rows.Close()
	perms := []Permission{}
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Key, &p.Group, &p.DisplayName, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func attachPermissions(ctx context.Context, tx pgx.Tx, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	for _, permID := range permissionIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO role_permission (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, permID); err != nil {
			return err
		}
	}
	return nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.NotFound("role not found")
	}
	if err != nil {
		return Role{}, mapWriteError(err)
	}
	return role, nil
}

func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case store.IsUniqueViolation(err):
		return shared.Conflict("role name already exists")
	case store.IsForeignKeyViolation(err):
		return shared.BadRequest("unknown permission or user id")
	case errors.Is(err, shared.ErrNotFound):
		return err
	default:
		return fmt.Errorf("rbac: %w", err)
	}
}

var _ Repository = (*PGRepository)(nil)
