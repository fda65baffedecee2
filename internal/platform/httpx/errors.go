// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sanctus-app/sanctus/internal/shared"
)

// StatusOf maps a domain error onto its HTTP status code.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Internal errors never expose their text to the caller.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		Problem(w, status, "Internal Error", "")
		return
	}
	Problem(w, status, http.StatusText(status), err.Error())
}

// Fail logs internal errors before delegating to RespondError.
func Fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if StatusOf(err) == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	RespondError(w, err)
}
