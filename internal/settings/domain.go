// Package settings stores key/value configuration, either global or owned by
// one parish. A parish value overrides the global value of the same key.
package settings

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultGroup is assigned when a setting is written without a group.
const DefaultGroup = "general"

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.\-]{0,127}$`)

// Setting is one stored value. ParishID is nil for global settings.
type Setting struct {
	ID          uuid.UUID  `json:"id"`
	ParishID    *uuid.UUID `json:"parish_id"`
	Key         string     `json:"setting_key"`
	Value       string     `json:"setting_value"`
	Group       string     `json:"setting_group"`
	Description *string    `json:"description"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Entry is one key/value pair of a write.
type Entry struct {
	Key         string  `json:"setting_key" validate:"required"`
	Value       string  `json:"setting_value"`
	Group       string  `json:"setting_group"`
	Description *string `json:"description"`
}

// normalize trims the entry, defaults the group and checks the key.
func (e Entry) normalize() (Entry, error) {
	e.Key = strings.ToLower(strings.TrimSpace(e.Key))
	e.Group = strings.TrimSpace(e.Group)
	if e.Group == "" {
		e.Group = DefaultGroup
	}
	if !keyPattern.MatchString(e.Key) {
		return Entry{}, fmt.Errorf("invalid setting_key %q", e.Key)
	}
	return e, nil
}

// Target names the owner of a setting: one parish, or global when Global is set.
type Target struct {
	ParishID *uuid.UUID
	Global   bool
}

// BulkInput writes several settings to one target atomically.
type BulkInput struct {
	ParishID *uuid.UUID `json:"parish_id"`
	Global   bool       `json:"global"`
	Settings []Entry    `json:"settings" validate:"required,min=1,dive"`
}
