package settings

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Handler exposes settings endpoints. ?scope=global addresses global values;
// otherwise ?parish_id selects the parish as on every other route.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers settings routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.list)
		r.Put("/", h.putMany)
		r.Get("/{key}", h.get)
		r.Put("/{key}", h.put)
		r.Delete("/{key}", h.delete)
	})
}

func target(r *http.Request) (Target, error) {
	if r.URL.Query().Get("scope") == "global" {
		return Target{Global: true}, nil
	}
	parishID, err := authz.ParishIDFromQuery(r)
	if err != nil {
		return Target{}, err
	}
	return Target{ParishID: parishID}, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := target(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.List(r.Context(), principal, t, r.URL.Query().Get("group"))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := target(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	setting, err := h.service.Effective(r.Context(), principal, t, chi.URLParam(r, "key"))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, setting)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := target(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var e Entry
	if err := httpx.DecodeJSON(r, &e); err != nil {
		httpx.RespondError(w, shared.BadRequest(fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	e.Key = chi.URLParam(r, "key")
	setting, err := h.service.Put(r.Context(), principal, t, e)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, setting)
}

func (h *Handler) putMany(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in BulkInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.PutMany(r.Context(), principal, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := target(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), principal, t, chi.URLParam(r, "key")); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.NoContent(w)
}
