package imports

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// DefaultMaxBytes caps an import upload.
const DefaultMaxBytes = 10 << 20

// Handler exposes the import endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	maxBytes int64
}

// NewHandler builds Handler instance. maxBytes <= 0 selects DefaultMaxBytes.
func NewHandler(logger *slog.Logger, service *Service, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Handler{logger: logger, service: service, maxBytes: maxBytes}
}

// MountRoutes registers import routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/import/members", h.handle(KindMembers))
	r.Post("/import/transactions", h.handle(KindTransactions))
}

func (h *Handler) handle(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := authz.MustPrincipal(r.Context())
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		up, err := h.readUpload(w, r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		result, err := h.service.Import(r.Context(), principal, kind, up)
		if err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	}
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Upload{}, shared.BadRequest("File too large")
		}
		return Upload{}, shared.BadRequest("Invalid multipart data")
	}
	up := Upload{IdempotencyKey: r.Header.Get("Idempotency-Key")}
	if raw := r.FormValue("parish_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Upload{}, shared.BadRequest("invalid parish_id")
		}
		up.ParishID = &id
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return Upload{}, shared.BadRequest("No file uploaded")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return Upload{}, shared.BadRequest("Failed to read file")
	}
	up.FileName = header.Filename
	up.Data = data
	return up, nil
}
