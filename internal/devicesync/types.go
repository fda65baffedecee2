// Package devicesync merges change batches queued by offline devices into
// the server store.
package devicesync

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Operation is the mutation a device recorded.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ChangeRecord is one queued device mutation.
type ChangeRecord struct {
	Table     string          `json:"table"`
	Operation Operation       `json:"operation"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// Request is a batch pushed by a device.
type Request struct {
	DeviceID string         `json:"device_id" validate:"required"`
	Changes  []ChangeRecord `json:"changes"`
}

// Batch status values.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
)

// Result summarises a processed batch.
type Result struct {
	Status      string   `json:"status"`
	SyncedCount int      `json:"synced_count"`
	Errors      []string `json:"errors"`
}

// Failure rejects a single change record. Reason is reported to the device.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string { return f.Reason }

func (f *Failure) Unwrap() error { return f.Err }

func decodeFailure(err error) error {
	return &Failure{Reason: fmt.Sprintf("Deserialization error: %v", err), Err: err}
}

// storeFailure reports only the SQLSTATE to the device; the full driver error
// stays in the server log.
func storeFailure(err error) error {
	reason := "Database error"
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		reason = fmt.Sprintf("Database error: SQLSTATE %s", pgErr.Code)
	}
	return &Failure{Reason: reason, Err: err}
}
