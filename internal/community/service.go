package community

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/members"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// MemberLookup resolves a family head within a parish.
type MemberLookup interface {
	Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (members.Member, error)
}

// Service applies role and parish scope checks around the community repository.
type Service struct {
	repo    Repository
	members MemberLookup
	audit   shared.AuditRecorder
	logger  *slog.Logger
}

// NewService constructs the community service. members may be nil, in which
// case family heads are only checked by the foreign key.
func NewService(repo Repository, members MemberLookup, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, members: members, audit: audit, logger: logger}
}

// ListQuery is the caller-supplied listing request.
type ListQuery struct {
	ParishID *uuid.UUID
	ParentID *uuid.UUID
	Limit    int
	Offset   int
}

func (s *Service) filter(p authz.Principal, q ListQuery) (ListFilter, error) {
	parishID, err := authz.ResolveParishID(p, q.ParishID)
	if err != nil {
		return ListFilter{}, err
	}
	return ListFilter{ParishID: parishID, ParentID: q.ParentID, Limit: q.Limit, Offset: q.Offset}, nil
}

// writeParish gates a create on write access and resolves the owning parish.
func writeParish(p authz.Principal, requested *uuid.UUID) (uuid.UUID, error) {
	if err := authz.RequireWrite(p); err != nil {
		return uuid.Nil, err
	}
	return authz.ResolveParishID(p, requested)
}

// sameParish reports a reference to a row outside parishID as a bad request.
func sameParish(err error, field string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.BadRequest(field + " does not refer to a record of this parish")
	}
	return err
}

func (s *Service) checkCluster(ctx context.Context, parishID uuid.UUID, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	_, err := s.repo.GetCluster(ctx, *id, &parishID)
	return sameParish(err, "cluster_id")
}

func (s *Service) checkSCC(ctx context.Context, parishID uuid.UUID, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	_, err := s.repo.GetSCC(ctx, *id, &parishID)
	return sameParish(err, "scc_id")
}

func (s *Service) checkHead(ctx context.Context, parishID uuid.UUID, id *uuid.UUID) error {
	if id == nil || s.members == nil {
		return nil
	}
	_, err := s.members.Get(ctx, *id, &parishID)
	return sameParish(err, "head_of_family_id")
}

// ListClusters returns live clusters of the resolved parish.
func (s *Service) ListClusters(ctx context.Context, p authz.Principal, q ListQuery) ([]Cluster, error) {
	f, err := s.filter(p, q)
	if err != nil {
		return nil, err
	}
	return s.repo.ListClusters(ctx, f)
}

// GetCluster loads a cluster visible to the principal.
func (s *Service) GetCluster(ctx context.Context, p authz.Principal, id uuid.UUID) (Cluster, error) {
	scope, err := authz.ReadScope(p)
	if err != nil {
		return Cluster{}, err
	}
	return s.repo.GetCluster(ctx, id, scope)
}

// CreateCluster adds a cluster to the resolved parish.
func (s *Service) CreateCluster(ctx context.Context, p authz.Principal, in CreateClusterInput) (Cluster, error) {
	parishID, err := writeParish(p, in.ParishID)
	if err != nil {
		return Cluster{}, err
	}
	c := NewCluster(parishID, in)
	if err := c.Validate(); err != nil {
		return Cluster{}, shared.BadRequest(err.Error())
	}
	created, err := s.repo.CreateCluster(ctx, c)
	if err != nil {
		return Cluster{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "CREATE", "cluster", created.ID, nil, created))
	return created, nil
}

// UpdateCluster merges a patch onto a live cluster.
func (s *Service) UpdateCluster(ctx context.Context, p authz.Principal, id uuid.UUID, patch ClusterPatch) (Cluster, error) {
	if err := authz.RequireWrite(p); err != nil {
		return Cluster{}, err
	}
	existing, err := s.GetCluster(ctx, p, id)
	if err != nil {
		return Cluster{}, err
	}
	next := patch.Apply(existing)
	if err := next.Validate(); err != nil {
		return Cluster{}, shared.BadRequest(err.Error())
	}
	updated, err := s.repo.UpdateCluster(ctx, next)
	if err != nil {
		return Cluster{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "UPDATE", "cluster", id, existing, updated))
	return updated, nil
}

// DeleteCluster soft-deletes a cluster.
func (s *Service) DeleteCluster(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.RequireWrite(p); err != nil {
		return err
	}
	existing, err := s.GetCluster(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCluster(ctx, id); err != nil {
		return err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "DELETE", "cluster", id, existing, nil))
	return nil
}

// ListSCCs returns live SCCs of the resolved parish, optionally of one cluster.
func (s *Service) ListSCCs(ctx context.Context, p authz.Principal, q ListQuery) ([]SCC, error) {
	f, err := s.filter(p, q)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSCCs(ctx, f)
}

// GetSCC loads an SCC visible to the principal.
func (s *Service) GetSCC(ctx context.Context, p authz.Principal, id uuid.UUID) (SCC, error) {
	scope, err := authz.ReadScope(p)
	if err != nil {
		return SCC{}, err
	}
	return s.repo.GetSCC(ctx, id, scope)
}

// CreateSCC adds an SCC to the resolved parish.
func (s *Service) CreateSCC(ctx context.Context, p authz.Principal, in CreateSCCInput) (SCC, error) {
	parishID, err := writeParish(p, in.ParishID)
	if err != nil {
		return SCC{}, err
	}
	scc := NewSCC(parishID, in)
	if err := scc.Validate(); err != nil {
		return SCC{}, shared.BadRequest(err.Error())
	}
	if err := s.checkCluster(ctx, parishID, scc.ClusterID); err != nil {
		return SCC{}, err
	}
	created, err := s.repo.CreateSCC(ctx, scc)
	if err != nil {
		return SCC{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "CREATE", "scc", created.ID, nil, created))
	return created, nil
}

// UpdateSCC merges a patch onto a live SCC.
func (s *Service) UpdateSCC(ctx context.Context, p authz.Principal, id uuid.UUID, patch SCCPatch) (SCC, error) {
	if err := authz.RequireWrite(p); err != nil {
		return SCC{}, err
	}
	existing, err := s.GetSCC(ctx, p, id)
	if err != nil {
		return SCC{}, err
	}
	next := patch.Apply(existing)
	if err := next.Validate(); err != nil {
		return SCC{}, shared.BadRequest(err.Error())
	}
	if err := s.checkCluster(ctx, existing.ParishID, next.ClusterID); err != nil {
		return SCC{}, err
	}
	updated, err := s.repo.UpdateSCC(ctx, next)
	if err != nil {
		return SCC{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "UPDATE", "scc", id, existing, updated))
	return updated, nil
}

// DeleteSCC soft-deletes an SCC.
func (s *Service) DeleteSCC(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.RequireWrite(p); err != nil {
		return err
	}
	existing, err := s.GetSCC(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSCC(ctx, id); err != nil {
		return err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "DELETE", "scc", id, existing, nil))
	return nil
}

// ListFamilies returns live families of the resolved parish, optionally of one SCC.
func (s *Service) ListFamilies(ctx context.Context, p authz.Principal, q ListQuery) ([]Family, error) {
	f, err := s.filter(p, q)
	if err != nil {
		return nil, err
	}
	return s.repo.ListFamilies(ctx, f)
}

// GetFamily loads a family visible to the principal.
func (s *Service) GetFamily(ctx context.Context, p authz.Principal, id uuid.UUID) (Family, error) {
	scope, err := authz.ReadScope(p)
	if err != nil {
		return Family{}, err
	}
	return s.repo.GetFamily(ctx, id, scope)
}

// CreateFamily registers a family in the resolved parish.
func (s *Service) CreateFamily(ctx context.Context, p authz.Principal, in CreateFamilyInput) (Family, error) {
	parishID, err := writeParish(p, in.ParishID)
	if err != nil {
		return Family{}, err
	}
	fam := NewFamily(parishID, in)
	if err := fam.Validate(); err != nil {
		return Family{}, shared.BadRequest(err.Error())
	}
	if err := s.checkFamilyRefs(ctx, parishID, fam); err != nil {
		return Family{}, err
	}
	created, err := s.repo.CreateFamily(ctx, fam)
	if err != nil {
		return Family{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "CREATE", "family", created.ID, nil, created))
	return created, nil
}

// UpdateFamily merges a patch onto a live family.
func (s *Service) UpdateFamily(ctx context.Context, p authz.Principal, id uuid.UUID, patch FamilyPatch) (Family, error) {
	if err := authz.RequireWrite(p); err != nil {
		return Family{}, err
	}
	existing, err := s.GetFamily(ctx, p, id)
	if err != nil {
		return Family{}, err
	}
	next := patch.Apply(existing)
	if err := next.Validate(); err != nil {
		return Family{}, shared.BadRequest(err.Error())
	}
	if err := s.checkFamilyRefs(ctx, existing.ParishID, next); err != nil {
		return Family{}, err
	}
	updated, err := s.repo.UpdateFamily(ctx, next)
	if err != nil {
		return Family{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "UPDATE", "family", id, existing, updated))
	return updated, nil
}

// DeleteFamily soft-deletes a family.
func (s *Service) DeleteFamily(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.RequireWrite(p); err != nil {
		return err
	}
	existing, err := s.GetFamily(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteFamily(ctx, id); err != nil {
		return err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "DELETE", "family", id, existing, nil))
	return nil
}

func (s *Service) checkFamilyRefs(ctx context.Context, parishID uuid.UUID, f Family) error {
	if err := s.checkSCC(ctx, parishID, f.SCCID); err != nil {
		return err
	}
	return s.checkHead(ctx, parishID, f.HeadOfFamilyID)
}
