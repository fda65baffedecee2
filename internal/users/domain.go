package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
)

// User is the managed view of an account; the password hash never leaves the
// repository.
type User struct {
	ID              uuid.UUID  `json:"id"`
	ParishID        *uuid.UUID `json:"parish_id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	PhoneNumber     *string    `json:"phone_number"`
	Role            authz.Role `json:"role"`
	ProfilePhotoURL *string    `json:"profile_photo_url"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateInput is the payload for adding an account.
type CreateInput struct {
	ParishID    *uuid.UUID `json:"parish_id"`
	Username    string     `json:"username" validate:"required,min=3,max=64"`
	Email       string     `json:"email" validate:"required,email"`
	Password    string     `json:"password" validate:"required,min=8,max=128"`
	FullName    string     `json:"full_name" validate:"required,max=200"`
	PhoneNumber *string    `json:"phone_number"`
	Role        authz.Role `json:"role" validate:"required"`
}

func (in CreateInput) normalized() CreateInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	return in
}

// NewUser is an account ready to insert.
type NewUser struct {
	User
	PasswordHash string
}

// ListFilter narrows listings. A nil ParishID lists every account.
type ListFilter struct {
	ParishID *uuid.UUID
	Limit    int
	Offset   int
}
