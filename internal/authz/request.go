package authz

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/shared"
)

// ParishIDFromQuery reads the advisory parish_id query parameter.
func ParishIDFromQuery(r *http.Request) (*uuid.UUID, error) {
	raw := r.URL.Query().Get("parish_id")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.BadRequest("invalid parish_id")
	}
	return &id, nil
}
