package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sanctus-app/sanctus/internal/audit"
	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/platform/httpx"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// AuditService defines the business contract for audit trail reads.
type AuditService interface {
	List(ctx context.Context, p authz.Principal, q audit.Query) ([]audit.Entry, error)
	Export(ctx context.Context, p authz.Principal, q audit.Query) ([]audit.Entry, error)
}

// Handler menangani permintaan audit log.
type Handler struct {
	logger  *slog.Logger
	service AuditService
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service AuditService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, err := h.service.List(r.Context(), principal, q)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	principal, err := authz.MustPrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, err := h.service.Export(r.Context(), principal, q)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	csvBytes, err := audit.WriteCSV(entries)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-log.csv\"")
	if _, err := w.Write(csvBytes); err != nil && h.logger != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func parseQuery(r *http.Request) (audit.Query, error) {
	values := r.URL.Query()
	parishID, err := authz.ParishIDFromQuery(r)
	if err != nil {
		return audit.Query{}, err
	}
	userID, err := httpx.QueryUUID(r, "user_id")
	if err != nil {
		return audit.Query{}, err
	}
	from, err := parseDate(values.Get("from"), "from")
	if err != nil {
		return audit.Query{}, err
	}
	to, err := parseDate(values.Get("to"), "to")
	if err != nil {
		return audit.Query{}, err
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return audit.Query{}, shared.BadRequest("from must not be after to")
	}
	return audit.Query{
		ParishID: parishID,
		UserID:   userID,
		Action:   strings.TrimSpace(values.Get("action_type")),
		Table:    strings.TrimSpace(values.Get("table_name")),
		From:     from,
		To:       to,
		Limit:    httpx.QueryInt(r, "limit", 100),
		Offset:   httpx.QueryInt(r, "offset", 0),
	}, nil
}

func parseDate(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, shared.BadRequest("invalid " + field)
	}
	return t, nil
}
