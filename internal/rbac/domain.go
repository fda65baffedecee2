package rbac

import (
	"time"

	"github.com/google/uuid"
)

// Permission represents an atomic capability.
type Permission struct {
	ID          uuid.UUID `json:"id"`
	Key         string    `json:"permission_key"`
	Group       string    `json:"permission_group"`
	DisplayName string    `json:"display_name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Role represents a named permission grouping. System roles mirror the base
// roles carried in tokens and cannot be deleted or renamed.
type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"role_name"`
	DisplayName string    `json:"display_name"`
	Description *string   `json:"description"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleWithPermissions is a role plus its granted permissions.
type RoleWithPermissions struct {
	Role
	Permissions []Permission `json:"permissions"`
}

// Override is a per-user grant layered on top of role permissions.
type Override struct {
	ID                    uuid.UUID  `json:"id"`
	UserID                uuid.UUID  `json:"user_id"`
	PermissionID          uuid.UUID  `json:"permission_id"`
	PermissionKey         string     `json:"permission_key"`
	PermissionDisplayName string     `json:"permission_display_name"`
	GrantedBy             uuid.UUID  `json:"granted_by"`
	Reason                *string    `json:"reason"`
	ExpiresAt             *time.Time `json:"expires_at"`
	IsActive              bool       `json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`
}

// EffectiveAt reports whether the override contributes to permissions at now.
func (o Override) EffectiveAt(now time.Time) bool {
	return o.IsActive && (o.ExpiresAt == nil || o.ExpiresAt.After(now))
}

// CreateRoleInput describes a new custom role.
type CreateRoleInput struct {
	Name          string      `json:"role_name" validate:"required,max=64"`
	DisplayName   string      `json:"display_name" validate:"required,max=128"`
	Description   *string     `json:"description"`
	PermissionIDs []uuid.UUID `json:"permission_ids"`
}

// UpdateRoleInput edits presentation fields only.
type UpdateRoleInput struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=128"`
	Description *string `json:"description"`
}

// GrantInput grants a batch of overrides to one user.
type GrantInput struct {
	UserID        uuid.UUID   `json:"user_id" validate:"required"`
	PermissionIDs []uuid.UUID `json:"permission_ids" validate:"required,min=1"`
	Reason        *string     `json:"reason"`
	ExpiresAt     *time.Time  `json:"expires_at"`
}

// RevokeInput revokes a batch of overrides from one user.
type RevokeInput struct {
	UserID        uuid.UUID   `json:"user_id" validate:"required"`
	PermissionIDs []uuid.UUID `json:"permission_ids" validate:"required,min=1"`
}

// OverrideFilter narrows override listings.
type OverrideFilter struct {
	UserID     *uuid.UUID
	ActiveOnly bool
}
