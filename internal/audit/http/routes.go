package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes mendaftarkan endpoint audit log dan ekspor CSV.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "export rate limit exceeded")
		}),
	)
	r.Get("/audit-logs", h.handleList)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/audit-logs/export.csv", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if p, ok := authz.PrincipalFromContext(r.Context()); ok {
		return "user:" + p.UserID.String(), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
