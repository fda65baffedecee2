// Package audit reads back the trail written by shared.AuditLogger.
package audit

import (
	"context"
	"fmt"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

const (
	defaultLimit = 100
	maxLimit     = 500
	exportLimit  = 5000
)

// Repository menyediakan akses baca ke audit_log.
type Repository interface {
	List(ctx context.Context, f Filters) ([]Entry, error)
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	repo  Repository
	perms authz.PermissionSource
}

// NewService membuat service audit baru.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// WithPermissions gates reads on audit.view instead of the admin roles.
func (s *Service) WithPermissions(src authz.PermissionSource) *Service {
	s.perms = src
	return s
}

// List returns one page of the trail visible to an administrator.
func (s *Service) List(ctx context.Context, p authz.Principal, q Query) ([]Entry, error) {
	f, err := s.filters(ctx, p, q)
	if err != nil {
		return nil, err
	}
	f.Limit = clampLimit(q.Limit, defaultLimit, maxLimit)
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// Export returns up to exportLimit entries for download.
func (s *Service) Export(ctx context.Context, p authz.Principal, q Query) ([]Entry, error) {
	f, err := s.filters(ctx, p, q)
	if err != nil {
		return nil, err
	}
	f.Limit, f.Offset = exportLimit, 0
	return s.repo.List(ctx, f)
}

// filters scopes q. A super admin without parish_id sees every parish; a
// parish admin only ever sees their own.
func (s *Service) filters(ctx context.Context, p authz.Principal, q Query) (Filters, error) {
	if s.repo == nil {
		return Filters{}, fmt.Errorf("audit: repository not configured")
	}
	if err := authz.RequirePermission(ctx, s.perms, p, shared.PermAuditView); err != nil {
		return Filters{}, err
	}
	f := Filters{
		ParishID: q.ParishID,
		UserID:   q.UserID,
		Action:   q.Action,
		Table:    q.Table,
		From:     q.From,
		To:       q.To,
		Offset:   q.Offset,
	}
	if !p.IsSuperAdmin() {
		parishID, err := authz.ResolveParishID(p, q.ParishID)
		if err != nil {
			return Filters{}, err
		}
		f.ParishID = &parishID
	}
	return f, nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
