package finance

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// BudgetHandler exposes budget endpoints.
type BudgetHandler struct {
	logger  *slog.Logger
	service *BudgetService
}

// NewBudgetHandler builds BudgetHandler instance.
func NewBudgetHandler(logger *slog.Logger, service *BudgetService) *BudgetHandler {
	return &BudgetHandler{logger: logger, service: service}
}

// MountRoutes registers budget routes on an authenticated router.
func (h *BudgetHandler) MountRoutes(r chi.Router) {
	r.Route("/budgets", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *BudgetHandler) list(w http.ResponseWriter, r *http.Request) {
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
	q := BudgetQuery{ParishID: parishID, FiscalYear: httpx.QueryInt(r, "fiscal_year", 0)}
	if raw := r.URL.Query().Get("fiscal_month"); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, shared.BadRequest("invalid fiscal_month"))
			return
		}
		q.FiscalMonth = &month
	}
	budgets, err := h.service.List(r.Context(), principal, q)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, budgets)
}

func (h *BudgetHandler) get(w http.ResponseWriter, r *http.Request) {
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
	budget, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, budget)
}

func (h *BudgetHandler) create(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CreateBudgetInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	budget, err := h.service.Create(r.Context(), principal, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, budget)
}

func (h *BudgetHandler) update(w http.ResponseWriter, r *http.Request) {
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
	var p BudgetPatch
	if err := httpx.Bind(r, &p); err != nil {
		httpx.RespondError(w, err)
		return
	}
	budget, err := h.service.Update(r.Context(), principal, id, p)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, budget)
}

func (h *BudgetHandler) delete(w http.ResponseWriter, r *http.Request) {
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
