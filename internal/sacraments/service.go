package sacraments

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Service scopes the sacrament register to the caller's parish.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs the sacrament service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListQuery is the caller-supplied listing request.
type ListQuery struct {
	ParishID *uuid.UUID
	MemberID *uuid.UUID
	Type     *Type
	Limit    int
	Offset   int
}

// List returns live records. A super admin asking for one member's history
// sees it across parishes; everyone else is confined to one parish.
func (s *Service) List(ctx context.Context, p authz.Principal, q ListQuery) ([]Record, error) {
	if q.Type != nil && !q.Type.Valid() {
		return nil, shared.BadRequest("unknown sacrament_type")
	}
	filter := ListFilter{MemberID: q.MemberID, Type: q.Type, Limit: q.Limit, Offset: q.Offset}
	if !(p.IsSuperAdmin() && q.MemberID != nil && q.ParishID == nil) {
		parishID, err := authz.ResolveParishID(p, q.ParishID)
		if err != nil {
			return nil, err
		}
		filter.ParishID = &parishID
	}
	return s.repo.List(ctx, filter)
}

// Get loads a record visible to the principal.
func (s *Service) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (Record, error) {
	scope, err := authz.ReadScope(p)
	if err != nil {
		return Record{}, err
	}
	return s.repo.Get(ctx, id, scope)
}

// Create records a sacrament in the resolved parish.
func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput) (Record, error) {
	if err := authz.RequireWrite(p); err != nil {
		return Record{}, err
	}
	parishID, err := authz.ResolveParishID(p, in.ParishID)
	if err != nil {
		return Record{}, err
	}
	rec := NewRecord(parishID, in)
	if err := rec.Validate(); err != nil {
		return Record{}, shared.BadRequest(err.Error())
	}
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "CREATE", "sacrament_record", created.ID, nil, created))
	return created, nil
}

// Update merges a patch onto a live record.
func (s *Service) Update(ctx context.Context, p authz.Principal, id uuid.UUID, patch Patch) (Record, error) {
	if err := authz.RequireWrite(p); err != nil {
		return Record{}, err
	}
	existing, err := s.Get(ctx, p, id)
	if err != nil {
		return Record{}, err
	}
	next := Apply(existing, patch)
	if err := next.Validate(); err != nil {
		return Record{}, shared.BadRequest(err.Error())
	}
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Record{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "UPDATE", "sacrament_record", id, existing, updated))
	return updated, nil
}

// Delete soft-deletes a record.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.RequireWrite(p); err != nil {
		return err
	}
	existing, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "DELETE", "sacrament_record", id, existing, nil))
	return nil
}
