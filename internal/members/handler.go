package members

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
)

// Handler exposes member endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers member routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/members", h.list)
	r.Post("/members", h.create)
	r.Get("/members/{id}", h.get)
	r.Put("/members/{id}", h.update)
	r.Delete("/members/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	parishID, err := authz.ParishIDFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	familyID, err := httpx.QueryUUID(r, "family_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	members, err := h.service.List(r.Context(), principal, ListQuery{
		ParishID: parishID,
		Search:   r.URL.Query().Get("search"),
		FamilyID: familyID,
		Limit:    httpx.QueryInt(r, "limit", 50),
		Offset:   httpx.QueryInt(r, "offset", 0),
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, members)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
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
	member, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CreateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	member, err := h.service.Create(r.Context(), principal, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, member)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
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
	var p Patch
	if err := httpx.Bind(r, &p); err != nil {
		httpx.RespondError(w, err)
		return
	}
	member, err := h.service.Update(r.Context(), principal, id, p)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.NoContent(w)
}
