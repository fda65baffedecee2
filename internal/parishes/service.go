package parishes

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Service applies tenant rules to the parish register.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs the parish service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListDioceses returns every live diocese.
func (s *Service) ListDioceses(ctx context.Context, _ authz.Principal) ([]Diocese, error) {
	return s.repo.ListDioceses(ctx)
}

// ListQuery is the caller-supplied listing request.
type ListQuery struct {
	DioceseID *uuid.UUID
	Limit     int
	Offset    int
}

// List returns every parish to a super admin and only the home parish to
// anyone else.
func (s *Service) List(ctx context.Context, p authz.Principal, q ListQuery) ([]Parish, error) {
	filter := ListFilter{DioceseID: q.DioceseID, Limit: q.Limit, Offset: q.Offset}
	if !p.IsSuperAdmin() {
		if p.ParishID == nil {
			return nil, shared.Forbidden(authz.MsgNoParish)
		}
		filter.ParishID = p.ParishID
	}
	return s.repo.List(ctx, filter)
}

// Get loads a parish the principal may see.
func (s *Service) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (Parish, error) {
	if err := authz.RequireParishAccess(p, id); err != nil {
		return Parish{}, err
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new parish. Only a super admin can add tenants.
func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput) (Parish, error) {
	if err := authz.RequireRole(p, authz.RoleSuperAdmin); err != nil {
		return Parish{}, err
	}
	parish := NewParish(in)
	if err := parish.Validate(); err != nil {
		return Parish{}, shared.BadRequest(err.Error())
	}
	created, err := s.repo.Create(ctx, parish)
	if err != nil {
		return Parish{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "CREATE", "parish", created.ID, nil, created))
	return created, nil
}

// Update edits a parish; a parish admin may edit only their own.
func (s *Service) Update(ctx context.Context, p authz.Principal, id uuid.UUID, patch Patch) (Parish, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return Parish{}, err
	}
	existing, err := s.Get(ctx, p, id)
	if err != nil {
		return Parish{}, err
	}
	next := Apply(existing, patch)
	if err := next.Validate(); err != nil {
		return Parish{}, shared.BadRequest(err.Error())
	}
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Parish{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "UPDATE", "parish", id, existing, updated))
	return updated, nil
}

// Delete soft-deletes a parish. Only a super admin can remove tenants.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.RequireRole(p, authz.RoleSuperAdmin); err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "DELETE", "parish", id, existing, nil))
	return nil
}

// SetLogo stores the URL of an uploaded parish logo.
func (s *Service) SetLogo(ctx context.Context, p authz.Principal, id uuid.UUID, url string) error {
	if err := authz.RequireAdmin(p); err != nil {
		return err
	}
	if err := authz.RequireParishAccess(p, id); err != nil {
		return err
	}
	if err := s.repo.SetLogoURL(ctx, id, url); err != nil {
		return err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "UPDATE", "parish", id, nil, map[string]string{"logo_url": url}))
	return nil
}
