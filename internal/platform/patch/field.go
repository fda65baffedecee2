// Package patch models partial-update request fields that distinguish an
// absent key from an explicit JSON null.
package patch

import (
	"bytes"
	"encoding/json"
)

// Field is a tri-state value: absent, explicitly null, or set.
type Field[T any] struct {
	present bool
	null    bool
	value   T
}

// Value builds a set field.
func Value[T any](v T) Field[T] { return Field[T]{present: true, value: v} }

// Null builds an explicitly cleared field.
func Null[T any]() Field[T] { return Field[T]{present: true, null: true} }

// UnmarshalJSON is only invoked when the key exists in the payload.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.null = true
		var zero T
		f.value = zero
		return nil
	}
	f.null = false
	return json.Unmarshal(data, &f.value)
}

// IsAbsent reports whether the key was missing.
func (f Field[T]) IsAbsent() bool { return !f.present }

// IsNull reports whether the key was sent as null.
func (f Field[T]) IsNull() bool { return f.present && f.null }

// Get returns the value and whether one was set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.present && !f.null
}

// Apply merges the field onto an optional target: absent keeps, null clears, value sets.
func (f Field[T]) Apply(current *T) *T {
	switch {
	case !f.present:
		return current
	case f.null:
		return nil
	default:
		v := f.value
		return &v
	}
}

// ApplyRequired merges onto a non-nullable target; null is treated as absent.
func (f Field[T]) ApplyRequired(current T) T {
	if v, ok := f.Get(); ok {
		return v
	}
	return current
}
