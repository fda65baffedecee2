package devicesync

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
)

// Applier applies one change record to a single table. A nil scope means
// the caller may touch any parish.
type Applier interface {
	Apply(ctx context.Context, op Operation, data json.RawMessage, scope *uuid.UUID) error
}

// Entity is a syncable row.
type Entity interface {
	OwnerParish() uuid.UUID
	Validate() error
}

// Store is the sync-facing write surface of an entity repository.
type Store[T Entity] interface {
	InsertIfAbsent(ctx context.Context, item T) error
	Overwrite(ctx context.Context, item T, scope *uuid.UUID) error
	MarkDeleted(ctx context.Context, id uuid.UUID, scope *uuid.UUID) error
}

// TableApplier adapts a Store to Applier.
type TableApplier[T Entity] struct {
	store Store[T]
}

// NewApplier wraps store.
func NewApplier[T Entity](store Store[T]) *TableApplier[T] {
	return &TableApplier[T]{store: store}
}

// Apply implements Applier.
func (a *TableApplier[T]) Apply(ctx context.Context, op Operation, data json.RawMessage, scope *uuid.UUID) error {
	switch op {
	case OpInsert, OpUpdate:
		item, err := decode[T](data)
		if err != nil {
			return err
		}
		if scope != nil && item.OwnerParish() != *scope {
			return &Failure{Reason: authz.MsgCrossParish}
		}
		if op == OpInsert {
			err = a.store.InsertIfAbsent(ctx, item)
		} else {
			err = a.store.Overwrite(ctx, item, scope)
		}
		if err != nil {
			return storeFailure(err)
		}
		return nil
	case OpDelete:
		id, err := deleteID(data)
		if err != nil {
			return err
		}
		if err := a.store.MarkDeleted(ctx, id, scope); err != nil {
			return storeFailure(err)
		}
		return nil
	default:
		return &Failure{Reason: fmt.Sprintf("Unknown operation: %s", op)}
	}
}

func decode[T Entity](data json.RawMessage) (T, error) {
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return item, decodeFailure(err)
	}
	if err := item.Validate(); err != nil {
		return item, decodeFailure(err)
	}
	return item, nil
}

func deleteID(data json.RawMessage) (uuid.UUID, error) {
	var payload struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return uuid.Nil, decodeFailure(err)
	}
	raw, ok := payload.ID.(string)
	if !ok {
		return uuid.Nil, &Failure{Reason: "Missing ID for delete"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &Failure{Reason: fmt.Sprintf("Invalid UUID: %v", err), Err: err}
	}
	return id, nil
}

// Registry maps table names to appliers.
type Registry struct {
	appliers map[string]Applier
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{appliers: make(map[string]Applier)}
}

// Register binds table to applier, replacing any previous binding.
func (r *Registry) Register(table string, applier Applier) *Registry {
	r.appliers[table] = applier
	return r
}

// Lookup returns the applier for table.
func (r *Registry) Lookup(table string) (Applier, bool) {
	a, ok := r.appliers[table]
	return a, ok
}

// Tables lists registered table names in order.
func (r *Registry) Tables() []string {
	out := make([]string, 0, len(r.appliers))
	for t := range r.appliers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
