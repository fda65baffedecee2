package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is one row of the audit trail.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	UserID     *uuid.UUID      `json:"user_id"`
	ParishID   *uuid.UUID      `json:"parish_id"`
	ActionType string          `json:"action_type"`
	TableName  *string         `json:"table_name"`
	RecordID   *uuid.UUID      `json:"record_id"`
	OldValues  json.RawMessage `json:"old_values"`
	NewValues  json.RawMessage `json:"new_values"`
	IPAddress  *string         `json:"ip_address"`
	UserAgent  *string         `json:"user_agent"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Filters narrows the audit trail. Nil or empty fields do not filter.
type Filters struct {
	ParishID *uuid.UUID
	UserID   *uuid.UUID
	Action   string
	Table    string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// Query is the caller-supplied listing request before scoping.
type Query struct {
	ParishID *uuid.UUID
	UserID   *uuid.UUID
	Action   string
	Table    string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
