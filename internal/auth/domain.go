package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
)

// User represents an authenticated user account.
type User struct {
	ID              uuid.UUID
	ParishID        *uuid.UUID
	Username        string
	Email           string
	PasswordHash    string
	FullName        string
	PhoneNumber     *string
	Role            authz.Role
	ProfilePhotoURL *string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Profile is the public view of a user returned on login.
type Profile struct {
	ID              uuid.UUID  `json:"id"`
	ParishID        *uuid.UUID `json:"parish_id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	PhoneNumber     *string    `json:"phone_number"`
	Role            authz.Role `json:"role"`
	ProfilePhotoURL *string    `json:"profile_photo_url"`
}

// ProfileOf projects a user onto its public profile.
func ProfileOf(u *User) Profile {
	return Profile{
		ID:              u.ID,
		ParishID:        u.ParishID,
		Username:        u.Username,
		Email:           u.Email,
		FullName:        u.FullName,
		PhoneNumber:     u.PhoneNumber,
		Role:            u.Role,
		ProfilePhotoURL: u.ProfilePhotoURL,
	}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Profile   `json:"user"`
}
