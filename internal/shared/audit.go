package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AuditLog represents a record stored in audit_log.
type AuditLog struct {
	UserID    *uuid.UUID
	ParishID  *uuid.UUID
	Action    string
	Table     string
	RecordID  *uuid.UUID
	OldValues any
	NewValues any
	IPAddress string
	UserAgent string
	At        time.Time
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log AuditLog) error
}

// AuditLogger writes records into audit_log.
type AuditLogger struct {
	db Execer
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(db Execer) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.db == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" {
		return errors.New("audit log requires action")
	}
	oldJSON, err := marshalNullable(log.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := marshalNullable(log.NewValues)
	if err != nil {
		return err
	}
	if log.IPAddress == "" && log.UserAgent == "" {
		meta := RequestMetaFromContext(ctx)
		log.IPAddress, log.UserAgent = meta.IPAddress, meta.UserAgent
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.db.Exec(ctx, `INSERT INTO audit_log (user_id, parish_id, action_type, table_name, record_id, old_values, new_values, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), COALESCE($10, NOW()))`,
		log.UserID, log.ParishID, log.Action, log.Table, log.RecordID, oldJSON, newJSON, log.IPAddress, log.UserAgent, at)
	return err
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// NopAuditRecorder discards entries.
type NopAuditRecorder struct{}

// Record implements AuditRecorder.
func (NopAuditRecorder) Record(context.Context, AuditLog) error { return nil }

// RecordBestEffort writes the entry and only logs a failure; audit trails never
// fail the mutation they describe.
func RecordBestEffort(ctx context.Context, rec AuditRecorder, logger *slog.Logger, log AuditLog) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, log); err != nil && logger != nil {
		logger.Warn("audit record failed",
			slog.String("action", log.Action),
			slog.String("table", log.Table),
			slog.Any("error", err))
	}
}
