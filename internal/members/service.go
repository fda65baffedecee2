package members

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Service applies role and parish scope checks around the member repository.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs the member service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListQuery is the caller-supplied listing request.
type ListQuery struct {
	ParishID *uuid.UUID
	Search   string
	FamilyID *uuid.UUID
	Limit    int
	Offset   int
}

// List returns live members of the resolved parish.
func (s *Service) List(ctx context.Context, p authz.Principal, q ListQuery) ([]Member, error) {
	parishID, err := authz.ResolveParishID(p, q.ParishID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{
		ParishID: parishID,
		Search:   strings.TrimSpace(q.Search),
		FamilyID: q.FamilyID,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
}

// Get loads a member visible to the principal.
func (s *Service) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (Member, error) {
	scope, err := authz.ReadScope(p)
	if err != nil {
		return Member{}, err
	}
	return s.repo.Get(ctx, id, scope)
}

// Create registers a member in the resolved parish.
func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput) (Member, error) {
	if err := authz.RequireWrite(p); err != nil {
		return Member{}, err
	}
	parishID, err := authz.ResolveParishID(p, in.ParishID)
	if err != nil {
		return Member{}, err
	}
	m := NewMember(parishID, in)
	if err := m.Validate(); err != nil {
		return Member{}, shared.BadRequest(err.Error())
	}
	created, err := s.repo.Create(ctx, m)
	if err != nil {
		return Member{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "CREATE", "member", created.ID, nil, created))
	return created, nil
}

// Update merges a patch onto a live member.
func (s *Service) Update(ctx context.Context, p authz.Principal, id uuid.UUID, patch Patch) (Member, error) {
	if err := authz.RequireWrite(p); err != nil {
		return Member{}, err
	}
	existing, err := s.Get(ctx, p, id)
	if err != nil {
		return Member{}, err
	}
	next := Apply(existing, patch)
	if err := next.Validate(); err != nil {
		return Member{}, shared.BadRequest(err.Error())
	}
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Member{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "UPDATE", "member", id, existing, updated))
	return updated, nil
}

// Delete soft-deletes a member.
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
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "DELETE", "member", id, existing, nil))
	return nil
}

// SetPhoto stores the URL of an uploaded photo.
func (s *Service) SetPhoto(ctx context.Context, p authz.Principal, id uuid.UUID, url string) error {
	if err := authz.RequireWrite(p); err != nil {
		return err
	}
	if _, err := s.Get(ctx, p, id); err != nil {
		return err
	}
	return s.repo.SetPhotoURL(ctx, id, url)
}
