package auth

import (
	"net/http"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
)

// Authenticate verifies the bearer token and stores the principal in the
// request context. Requests without a valid token stop with 401.
func Authenticate(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			principal, err := tokens.Validate(raw)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(authz.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}
