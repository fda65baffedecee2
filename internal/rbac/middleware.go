package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// PermissionSource resolves the effective permission keys of a user.
type PermissionSource = authz.PermissionSource

// Middleware gates handlers on effective permissions. It expects
// auth.Authenticate to have placed a principal in the request context.
type Middleware struct {
	Service PermissionSource
	Logger  *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require("rbac require any", hasAnyPermission, perms)
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require("rbac require all", hasAllPermissions, perms)
}

func (m Middleware) require(op string, check func(granted, required []string) bool, perms []string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := authz.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.Unauthenticated("Missing authorization header"))
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), principal.UserID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error(op, slog.String("user_id", principal.UserID.String()), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			if check(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, shared.Forbidden(authz.MsgInsufficientRoles))
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
