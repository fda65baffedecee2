package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
	tokens  *TokenIssuer
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, tokens *TokenIssuer) *Handler {
	return &Handler{logger: logger, service: service, tokens: tokens}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.With(Authenticate(h.tokens)).Get("/me", h.handleMe)
}

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		if h.logger != nil {
			h.logger.Info("login rejected", slog.String("login", req.UsernameOrEmail))
		}
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.Me(r.Context(), principal.UserID)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}
