package authz

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/shared"
)

// PermissionSource resolves the effective permission keys of a user.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// RequirePermission admits a SuperAdmin or a principal whose effective
// permissions, role grants plus overrides, include key. Without a source it
// falls back to RequireAdmin.
func RequirePermission(ctx context.Context, src PermissionSource, p Principal, key string) error {
	if p.IsSuperAdmin() {
		return nil
	}
	if src == nil {
		return RequireAdmin(p)
	}
	granted, err := src.EffectivePermissions(ctx, p.UserID)
	if err != nil {
		return err
	}
	key = strings.ToLower(key)
	for _, g := range granted {
		if strings.ToLower(g) == key {
			return nil
		}
	}
	return shared.Forbidden(MsgInsufficientRoles)
}
