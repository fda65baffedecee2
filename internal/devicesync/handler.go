package devicesync

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// DefaultMaxBody caps a sync batch when no limit is configured.
const DefaultMaxBody int64 = 10 << 20

// Handler exposes the device sync endpoint.
type Handler struct {
	logger     *slog.Logger
	reconciler *Reconciler
	maxBytes   int64
}

// NewHandler builds Handler instance. maxBytes <= 0 selects DefaultMaxBody.
func NewHandler(logger *slog.Logger, reconciler *Reconciler, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBody
	}
	return &Handler{logger: logger, reconciler: reconciler, maxBytes: maxBytes}
}

// MountRoutes registers the sync route on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sync", h.sync)
}

// sync answers 200 for every processed batch, partial failures included.
func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Problem(w, http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge), "sync batch too large")
			return
		}
		httpx.RespondError(w, shared.BadRequest("unreadable request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	var req Request
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.reconciler.Reconcile(r.Context(), principal, req)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
