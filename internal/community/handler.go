package community

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
)

// Handler exposes cluster, SCC and family endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers community routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/clusters", func(r chi.Router) {
		r.Get("/", listHandler(h, "", h.service.ListClusters))
		r.Post("/", createHandler(h, h.service.CreateCluster))
		r.Get("/{id}", getHandler(h, h.service.GetCluster))
		r.Put("/{id}", updateHandler(h, h.service.UpdateCluster))
		r.Delete("/{id}", deleteHandler(h, h.service.DeleteCluster))
	})
	r.Route("/sccs", func(r chi.Router) {
		r.Get("/", listHandler(h, "cluster_id", h.service.ListSCCs))
		r.Post("/", createHandler(h, h.service.CreateSCC))
		r.Get("/{id}", getHandler(h, h.service.GetSCC))
		r.Put("/{id}", updateHandler(h, h.service.UpdateSCC))
		r.Delete("/{id}", deleteHandler(h, h.service.DeleteSCC))
	})
	r.Route("/families", func(r chi.Router) {
		r.Get("/", listHandler(h, "scc_id", h.service.ListFamilies))
		r.Post("/", createHandler(h, h.service.CreateFamily))
		r.Get("/{id}", getHandler(h, h.service.GetFamily))
		r.Put("/{id}", updateHandler(h, h.service.UpdateFamily))
		r.Delete("/{id}", deleteHandler(h, h.service.DeleteFamily))
	})
}

func listHandler[T any](h *Handler, parentParam string, list func(context.Context, authz.Principal, ListQuery) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		q := ListQuery{
			ParishID: parishID,
			Limit:    httpx.QueryInt(r, "limit", 100),
			Offset:   httpx.QueryInt(r, "offset", 0),
		}
		if parentParam != "" {
			if q.ParentID, err = httpx.QueryUUID(r, parentParam); err != nil {
				httpx.RespondError(w, err)
				return
			}
		}
		rows, err := list(r.Context(), principal, q)
		if err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, rows)
	}
}

func getHandler[T any](h *Handler, get func(context.Context, authz.Principal, uuid.UUID) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		row, err := get(r.Context(), principal, id)
		if err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, row)
	}
}

func createHandler[In, T any](h *Handler, create func(context.Context, authz.Principal, In) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := authz.MustPrincipal(r.Context())
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		var in In
		if err := httpx.Bind(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		row, err := create(r.Context(), principal, in)
		if err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, row)
	}
}

func updateHandler[P, T any](h *Handler, update func(context.Context, authz.Principal, uuid.UUID, P) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		var p P
		if err := httpx.Bind(r, &p); err != nil {
			httpx.RespondError(w, err)
			return
		}
		row, err := update(r.Context(), principal, id, p)
		if err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, row)
	}
}

func deleteHandler(h *Handler, del func(context.Context, authz.Principal, uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		if err := del(r.Context(), principal, id); err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		httpx.NoContent(w)
	}
}
