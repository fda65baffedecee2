// Package authz resolves which parish an authenticated caller may act on and
// which coarse role gates apply to it.
package authz

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the closed set of base roles carried in a token.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleParishAdmin Role = "PARISH_ADMIN"
	RoleAccountant  Role = "ACCOUNTANT"
	RoleSecretary   Role = "SECRETARY"
	RoleViewer      Role = "VIEWER"
)

// Roles lists every base role.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleParishAdmin, RoleAccountant, RoleSecretary, RoleViewer}
}

// ParseRole accepts the SCREAMING_SNAKE_CASE wire form.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("authz: unknown role %q", raw)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleParishAdmin, RoleAccountant, RoleSecretary, RoleViewer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// UnmarshalJSON rejects unknown roles.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// CanWrite is true for every role except Viewer.
func (r Role) CanWrite() bool { return r.Valid() && r != RoleViewer }

// CanManageFinance is true for SuperAdmin, ParishAdmin and Accountant.
func (r Role) CanManageFinance() bool {
	return r == RoleSuperAdmin || r == RoleParishAdmin || r == RoleAccountant
}

// CanAdminister is true for SuperAdmin and ParishAdmin.
func (r Role) CanAdminister() bool {
	return r == RoleSuperAdmin || r == RoleParishAdmin
}

// Principal is the authenticated identity derived from a verified token.
type Principal struct {
	UserID   uuid.UUID  `json:"user_id"`
	Role     Role       `json:"role"`
	ParishID *uuid.UUID `json:"parish_id,omitempty"`
}

// IsSuperAdmin reports whether the principal may cross parish boundaries.
func (p Principal) IsSuperAdmin() bool { return p.Role == RoleSuperAdmin }
