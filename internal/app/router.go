package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sanctus-app/sanctus/internal/auth"
	"github.com/sanctus-app/sanctus/internal/observability"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Tokens  *auth.TokenIssuer
	Metrics *observability.Metrics
	DB      Pinger

	AuthHandler *auth.Handler
	// Handlers are mounted behind bearer authentication.
	Handlers    []Mounter
	UploadFiles http.Handler
}

// Mounter is implemented by every feature handler.
type Mounter interface {
	MountRoutes(r chi.Router)
}

// NewRouter constructs the chi.Router with Sanctus defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.DB.Ping(ctx); err != nil {
				if params.Logger != nil {
					params.Logger.Warn("readiness check failed", slog.Any("error", err))
				}
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.UploadFiles != nil {
		r.Handle("/uploads/*", staticCacheHandler(params.UploadFiles))
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(params.Tokens))
		for _, h := range params.Handlers {
			h.MountRoutes(r)
		}
	})

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Uploaded images are cached for 1 hour in browser.
// Gated mounts m behind middleware such as an rbac permission gate.
func Gated(m Mounter, gates ...func(http.Handler) http.Handler) Mounter {
	return gatedMounter{m: m, gates: gates}
}

type gatedMounter struct {
	m     Mounter
	gates []func(http.Handler) http.Handler
}

func (g gatedMounter) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(g.gates...)
		g.m.MountRoutes(r)
	})
}

func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
