package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sanctus-app/sanctus/internal/platform/store"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter) ([]User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	CreateUser(ctx context.Context, u NewUser) (User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	table *store.LiveTable
}

// NewRepository constructs a repository.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{table: store.NewLiveTable(db, "app_user", userColumns, "User")}
}

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(&u.ID, &u.ParishID, &u.Username, &u.Email, &u.FullName, &u.PhoneNumber, &u.Role, &u.ProfilePhotoURL,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// ListUsers returns live users ordered by username.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter) ([]User, error) {
	f := &store.Filter{}
	if filter.ParishID != nil {
		f.Where("parish_id = ?", *filter.ParishID)
	}
	page := store.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize(50, 500)
	users := []User{}
	err := r.table.List(ctx, f, "username", &page, func(rows pgx.Rows) error {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return err
		}
		users = append(users, u)
		return nil
	})
	return users, err
}

// GetUser loads one live user.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := r.table.Get(ctx, id, nil, func(row pgx.Row) error { return scanUser(row, &u) })
	return u, err
}

// CreateUser inserts an active account.
func (r *Repository) CreateUser(ctx context.Context, u NewUser) (User, error) {
	var out User
	err := scanUser(r.table.DB().QueryRow(ctx, insertUserSQL,
		u.ID, u.ParishID, u.Username, u.Email, u.PasswordHash, u.FullName, u.PhoneNumber, u.Role), &out)
	if err != nil {
		switch {
		case store.IsUniqueViolation(err):
			return User{}, shared.Conflict("username or email already in use")
		case store.IsForeignKeyViolation(err):
			return User{}, shared.BadRequest("unknown parish")
		}
		return User{}, fmt.Errorf("users: create: %w", err)
	}
	return out, nil
}

// DeleteUser soft-deletes an account and deactivates it.
func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.table.DB().Exec(ctx, `UPDATE app_user SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("User not found")
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
