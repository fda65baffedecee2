package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Handler exposes role, permission and override management.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers routes. The router must already authenticate callers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/permissions", h.listPermissions)
	r.Get("/roles", h.listRoles)
	r.Get("/roles/{id}", h.getRole)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRolesEdit))
		r.Post("/roles", h.createRole)
		r.Put("/roles/{id}", h.updateRole)
		r.Delete("/roles/{id}", h.deleteRole)
		r.Put("/roles/{id}/permissions", h.setRolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOverridesEdit, shared.PermUsersView))
		r.Get("/overrides", h.listOverrides)
		r.Get("/users/{id}/permissions", h.userPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOverridesEdit))
		r.Post("/overrides", h.grant)
		r.Post("/overrides/revoke", h.revoke)
		r.Delete("/overrides/{id}", h.revokeByID)
	})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CreateRoleInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.CreateRole(r.Context(), principal, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateRoleInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.UpdateRole(r.Context(), principal, id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), principal, id); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.NoContent(w)
}

type permissionIDsRequest struct {
	PermissionIDs []uuid.UUID `json:"permission_ids" validate:"required"`
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req permissionIDsRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	perms, err := h.service.SetRolePermissions(r.Context(), principal, id, req.PermissionIDs)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) listOverrides(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	userID, err := httpx.QueryUUID(r, "user_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := OverrideFilter{UserID: userID, ActiveOnly: r.URL.Query().Get("active_only") == "true"}
	overrides, err := h.service.ListOverrides(r.Context(), principal, filter)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overrides)
}

func (h *Handler) userPermissions(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.DescribeUser(r.Context(), principal, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in GrantInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	overrides, err := h.service.Grant(r.Context(), principal, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overrides)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in RevokeInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Revoke(r.Context(), principal, in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) revokeByID(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RevokeByID(r.Context(), principal, id); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.NoContent(w)
}
