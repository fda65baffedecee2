package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sanctus-app/sanctus/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByLogin(ctx context.Context, usernameOrEmail string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, parish_id, username, email, password_hash, full_name, phone_number, role, profile_photo_url, is_active, created_at, updated_at`

// FindByLogin fetches an active, live user by username or email.
func (r *PGRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user
		WHERE (username = $1 OR email = $1) AND is_active = TRUE AND deleted_at IS NULL`, usernameOrEmail)
	return scanUser(row)
}

// FindByID fetches a live user by id.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ParishID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName,
		&u.PhoneNumber, &u.Role, &u.ProfilePhotoURL, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: scan user: %w", err)
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
