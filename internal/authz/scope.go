package authz

import (
	"slices"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/shared"
)

// Messages returned to callers on scope and role failures.
const (
	MsgParishRequired    = "parish_id is required"
	MsgNoParish          = "User is not assigned to a parish"
	MsgCrossParish       = "You can only access your own parish data"
	MsgInsufficientRoles = "Insufficient permissions"
	MsgReadOnly          = "Viewers have read-only access"
)

// ResolveParishID returns the single parish the principal may operate on for
// this request. requested is untrusted input; only the returned id may be
// bound into queries.
func ResolveParishID(p Principal, requested *uuid.UUID) (uuid.UUID, error) {
	if p.IsSuperAdmin() {
		if requested != nil {
			return *requested, nil
		}
		if p.ParishID != nil {
			return *p.ParishID, nil
		}
		return uuid.Nil, shared.BadRequest(MsgParishRequired)
	}
	if p.ParishID == nil {
		return uuid.Nil, shared.Forbidden(MsgNoParish)
	}
	if requested != nil && *requested != *p.ParishID {
		return uuid.Nil, shared.Forbidden(MsgCrossParish)
	}
	return *p.ParishID, nil
}

// ReadScope returns the parish point lookups are confined to, nil meaning
// every parish. It fails before any data access when a non SuperAdmin has no
// parish. Rows outside the scope are reported as not found.
func ReadScope(p Principal) (*uuid.UUID, error) {
	if p.IsSuperAdmin() {
		return nil, nil
	}
	if p.ParishID == nil {
		return nil, shared.Forbidden(MsgNoParish)
	}
	scope := *p.ParishID
	return &scope, nil
}

// RequireParishAccess checks that a fetched row owned by parishID is within
// the principal's scope.
func RequireParishAccess(p Principal, parishID uuid.UUID) error {
	if p.IsSuperAdmin() {
		return nil
	}
	if p.ParishID == nil {
		return shared.Forbidden(MsgNoParish)
	}
	if *p.ParishID != parishID {
		return shared.Forbidden(MsgCrossParish)
	}
	return nil
}

// RequireRole fails with Forbidden unless the principal holds one of allowed.
func RequireRole(p Principal, allowed ...Role) error {
	if slices.Contains(allowed, p.Role) {
		return nil
	}
	return shared.Forbidden(MsgInsufficientRoles)
}

// RequireWrite fails iff the principal is a Viewer.
func RequireWrite(p Principal) error {
	if !p.Role.CanWrite() {
		return shared.Forbidden(MsgReadOnly)
	}
	return nil
}

// RequireFinance admits SuperAdmin, ParishAdmin and Accountant.
func RequireFinance(p Principal) error {
	return RequireRole(p, RoleSuperAdmin, RoleParishAdmin, RoleAccountant)
}

// RequireAdmin admits SuperAdmin and ParishAdmin.
func RequireAdmin(p Principal) error {
	return RequireRole(p, RoleSuperAdmin, RoleParishAdmin)
}
