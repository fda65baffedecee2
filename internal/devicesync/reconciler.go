package devicesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Observer counts per-record outcomes.
type Observer interface {
	ObserveSyncChange(table, outcome string)
}

// Record outcomes reported to the Observer.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Reconciler applies device batches record by record.
type Reconciler struct {
	registry *Registry
	observer Observer
	audit    shared.AuditRecorder
	logger   *slog.Logger
}

// NewReconciler constructs a reconciler. observer and audit may be nil.
func NewReconciler(registry *Registry, observer Observer, audit shared.AuditRecorder, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{registry: registry, observer: observer, audit: audit, logger: logger}
}

// Reconcile applies req.Changes in order. The returned error is non-nil only
// when the principal may not sync at all; per-record problems land in Result.
func (r *Reconciler) Reconcile(ctx context.Context, p authz.Principal, req Request) (Result, error) {
	if err := authz.RequireWrite(p); err != nil {
		return Result{}, err
	}
	scope, err := syncScope(p)
	if err != nil {
		return Result{}, err
	}

	logger := r.logger.With(slog.String("device_id", req.DeviceID), slog.String("user_id", p.UserID.String()))
	logger.Info("sync batch received", slog.Int("changes", len(req.Changes)))

	res := Result{Errors: []string{}}
	for i, change := range req.Changes {
		if err := r.apply(ctx, change, scope); err != nil {
			msg := fmt.Sprintf("Error processing change for %s: %s", change.Table, reason(err))
			logger.Error("sync change failed",
				slog.Int("index", i),
				slog.String("table", change.Table),
				slog.String("operation", string(change.Operation)),
				slog.Any("error", unwrapCause(err)))
			res.Errors = append(res.Errors, msg)
			continue
		}
		res.SyncedCount++
	}
	res.Status = StatusSuccess
	if len(res.Errors) > 0 {
		res.Status = StatusPartialSuccess
	}

	logger.Info("sync batch processed",
		slog.String("status", res.Status),
		slog.Int("synced", res.SyncedCount),
		slog.Int("failed", len(res.Errors)))
	shared.RecordBestEffort(ctx, r.audit, logger, authz.AuditEntry(p, "SYNC", "sync", uuid.Nil, nil, map[string]any{
		"device_id":    req.DeviceID,
		"changes":      len(req.Changes),
		"synced_count": res.SyncedCount,
		"failed":       len(res.Errors),
	}))
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, change ChangeRecord, scope *uuid.UUID) error {
	applier, ok := r.registry.Lookup(change.Table)
	if !ok {
		r.logger.Warn("unknown table in sync request", slog.String("table", change.Table))
		r.observe("unknown", OutcomeSkipped)
		return nil
	}
	err := applier.Apply(ctx, change.Operation, change.Data, scope)
	if err != nil {
		r.observe(change.Table, OutcomeFailed)
		return err
	}
	r.observe(change.Table, OutcomeApplied)
	return nil
}

func (r *Reconciler) observe(table, outcome string) {
	if r.observer != nil {
		r.observer.ObserveSyncChange(table, outcome)
	}
}

// syncScope confines everyone but a super admin to their home parish.
func syncScope(p authz.Principal) (*uuid.UUID, error) {
	if p.IsSuperAdmin() {
		return nil, nil
	}
	if p.ParishID == nil {
		return nil, shared.Forbidden(authz.MsgNoParish)
	}
	scope := *p.ParishID
	return &scope, nil
}

func reason(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return "Database error"
}

func unwrapCause(err error) error {
	var f *Failure
	if errors.As(err, &f) && f.Err != nil {
		return f.Err
	}
	return err
}
