package settings

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Service reads settings for any authenticated caller within their parish and
// restricts writes to parish admins, or SuperAdmin for global values.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs the settings service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// owner resolves the target a read addresses.
func owner(p authz.Principal, t Target) (*uuid.UUID, error) {
	if t.Global {
		return nil, nil
	}
	parishID, err := authz.ResolveParishID(p, t.ParishID)
	if err != nil {
		return nil, err
	}
	return &parishID, nil
}

// writeOwner resolves the target a write addresses and checks the caller may change it.
func writeOwner(p authz.Principal, t Target) (*uuid.UUID, error) {
	if t.Global {
		if !p.IsSuperAdmin() {
			return nil, shared.Forbidden("Only SuperAdmin can change global settings")
		}
		return nil, nil
	}
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	return owner(p, t)
}

// List returns the target's settings, optionally of one group.
func (s *Service) List(ctx context.Context, p authz.Principal, t Target, group string) ([]Setting, error) {
	parishID, err := owner(p, t)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, parishID, group)
}

// Effective returns the parish value of key, falling back to the global one.
func (s *Service) Effective(ctx context.Context, p authz.Principal, t Target, key string) (Setting, error) {
	parishID, err := owner(p, t)
	if err != nil {
		return Setting{}, err
	}
	if parishID != nil {
		found, err := s.repo.Get(ctx, parishID, key)
		if !errors.Is(err, shared.ErrNotFound) {
			return found, err
		}
	}
	return s.repo.Get(ctx, nil, key)
}

// Put writes one setting.
func (s *Service) Put(ctx context.Context, p authz.Principal, t Target, e Entry) (Setting, error) {
	written, err := s.PutMany(ctx, p, BulkInput{ParishID: t.ParishID, Global: t.Global, Settings: []Entry{e}})
	if err != nil {
		return Setting{}, err
	}
	return written[0], nil
}

// PutMany writes every entry to one target atomically.
func (s *Service) PutMany(ctx context.Context, p authz.Principal, in BulkInput) ([]Setting, error) {
	parishID, err := writeOwner(p, Target{ParishID: in.ParishID, Global: in.Global})
	if err != nil {
		return nil, err
	}
	if len(in.Settings) == 0 {
		return nil, shared.BadRequest("settings must not be empty")
	}
	entries := make([]Entry, 0, len(in.Settings))
	for _, raw := range in.Settings {
		e, err := raw.normalize()
		if err != nil {
			return nil, shared.BadRequest(err.Error())
		}
		entries = append(entries, e)
	}
	written, err := s.repo.Upsert(ctx, parishID, entries)
	if err != nil {
		return nil, err
	}
	for _, w := range written {
		shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "UPSERT", "app_setting", w.ID, nil, w))
	}
	return written, nil
}

// Delete removes one setting of the target.
func (s *Service) Delete(ctx context.Context, p authz.Principal, t Target, key string) error {
	parishID, err := writeOwner(p, t)
	if err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, parishID, key)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, parishID, key); err != nil {
		return err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "DELETE", "app_setting", existing.ID, existing, nil))
	return nil
}
