package uploads

import (
	"context"
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

// Response is returned after a successful upload.
type Response struct {
	URL string `json:"url"`
}

// Handler exposes image upload endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers upload routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/uploads/parishes/{id}/logo", h.upload(h.service.ParishLogo))
	r.Post("/uploads/members/{id}/photo", h.upload(h.service.MemberPhoto))
}

type storeFunc func(ctx context.Context, p authz.Principal, id uuid.UUID, filename string, data []byte) (string, error)

func (h *Handler) upload(store storeFunc) http.HandlerFunc {
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
		filename, data, err := h.readFile(w, r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		url, err := store(r.Context(), principal, id, filename, data)
		if err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, Response{URL: url})
	}
}

// readFile takes the "file" part, or the first file part when the client
// used another field name.
func (h *Handler) readFile(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	limit := h.service.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, shared.BadRequest("File too large")
		}
		return "", nil, shared.BadRequest("Invalid multipart data")
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		for _, hs := range r.MultipartForm.File {
			headers = hs
			break
		}
	}
	if len(headers) == 0 {
		return "", nil, shared.BadRequest("No file provided")
	}
	file, err := headers[0].Open()
	if err != nil {
		return "", nil, shared.BadRequest("Failed to read file")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return "", nil, shared.BadRequest("Failed to read file")
	}
	return headers[0].Filename, data, nil
}
