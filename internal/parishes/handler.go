package parishes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
)

// Handler exposes parish and diocese endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers parish routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dioceses", h.listDioceses)
	r.Get("/parishes", h.list)
	r.Post("/parishes", h.create)
	r.Get("/parishes/{id}", h.get)
	r.Put("/parishes/{id}", h.update)
	r.Delete("/parishes/{id}", h.delete)
}

func (h *Handler) listDioceses(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	dioceses, err := h.service.ListDioceses(r.Context(), principal)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dioceses)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	dioceseID, err := httpx.QueryUUID(r, "diocese_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	parishes, err := h.service.List(r.Context(), principal, ListQuery{
		DioceseID: dioceseID,
		Limit:     httpx.QueryInt(r, "limit", 100),
		Offset:    httpx.QueryInt(r, "offset", 0),
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, parishes)
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
	parish, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, parish)
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
	parish, err := h.service.Create(r.Context(), principal, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, parish)
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
	parish, err := h.service.Update(r.Context(), principal, id, p)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, parish)
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
