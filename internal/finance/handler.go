package finance

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
)

// Handler exposes income and expense endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers finance routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/income", h.listIncome)
		r.Post("/income", h.createIncome)
		r.Get("/income/{id}", h.getIncome)
		r.Get("/expense", h.listExpenses)
		r.Post("/expense", h.createExpense)
		r.Get("/expense/{id}", h.getExpense)
	})
}

func listQuery(r *http.Request) (ListQuery, error) {
	parishID, err := authz.ParishIDFromQuery(r)
	if err != nil {
		return ListQuery{}, err
	}
	return ListQuery{
		ParishID: parishID,
		Limit:    httpx.QueryInt(r, "limit", 50),
		Offset:   httpx.QueryInt(r, "offset", 0),
	}, nil
}

func (h *Handler) listIncome(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := listQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListIncome(r.Context(), principal, q)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) getIncome(w http.ResponseWriter, r *http.Request) {
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
	item, err := h.service.GetIncome(r.Context(), principal, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) createIncome(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CreateIncomeInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.RecordIncome(r.Context(), principal, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := listQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListExpenses(r.Context(), principal, q)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) getExpense(w http.ResponseWriter, r *http.Request) {
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
	item, err := h.service.GetExpense(r.Context(), principal, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CreateExpenseInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.RaiseExpense(r.Context(), principal, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}
