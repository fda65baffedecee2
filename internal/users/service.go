package users

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/auth"
	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	audit  shared.AuditRecorder
	logger *slog.Logger
	hash   func(plain string) (string, error)
	perms  authz.PermissionSource
}

// NewService builds Service instance. New passwords are stored with bcrypt.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		audit:  audit,
		logger: logger,
		hash:   func(plain string) (string, error) { return auth.HashPassword(plain, auth.SchemeBcrypt) },
	}
}

// WithPermissions gates user management on users.view and users.edit
// instead of the admin roles.
func (s *Service) WithPermissions(src authz.PermissionSource) *Service {
	s.perms = src
	return s
}

// ListQuery is the caller-supplied listing request.
type ListQuery struct {
	ParishID *uuid.UUID
	Limit    int
	Offset   int
}

// ListUsers returns accounts the admin manages. A super admin without a
// parish filter sees every account.
func (s *Service) ListUsers(ctx context.Context, p authz.Principal, q ListQuery) ([]User, error) {
	if err := authz.RequirePermission(ctx, s.perms, p, shared.PermUsersView); err != nil {
		return nil, err
	}
	filter := ListFilter{ParishID: q.ParishID, Limit: q.Limit, Offset: q.Offset}
	if !p.IsSuperAdmin() {
		parishID, err := authz.ResolveParishID(p, q.ParishID)
		if err != nil {
			return nil, err
		}
		filter.ParishID = &parishID
	}
	return s.repo.ListUsers(ctx, filter)
}

// CreateUser adds an account. A parish admin can only add non-super users to
// their own parish.
func (s *Service) CreateUser(ctx context.Context, p authz.Principal, in CreateInput) (User, error) {
	if err := authz.RequirePermission(ctx, s.perms, p, shared.PermUsersEdit); err != nil {
		return User{}, err
	}
	in = in.normalized()
	if !in.Role.Valid() {
		return User{}, shared.BadRequest("unknown role")
	}
	parishID := in.ParishID
	if p.IsSuperAdmin() {
		if in.Role != authz.RoleSuperAdmin && parishID == nil {
			return User{}, shared.BadRequest(authz.MsgParishRequired)
		}
	} else {
		if in.Role == authz.RoleSuperAdmin {
			return User{}, shared.Forbidden("Only a super admin can create super admins")
		}
		resolved, err := authz.ResolveParishID(p, in.ParishID)
		if err != nil {
			return User{}, err
		}
		parishID = &resolved
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}
	created, err := s.repo.CreateUser(ctx, NewUser{
		User: User{
			ID:          uuid.New(),
			ParishID:    parishID,
			Username:    in.Username,
			Email:       in.Email,
			FullName:    in.FullName,
			PhoneNumber: in.PhoneNumber,
			Role:        in.Role,
			IsActive:    true,
		},
		PasswordHash: hashed,
	})
	if err != nil {
		return User{}, err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "CREATE", "app_user", created.ID, nil, created))
	return created, nil
}

// DeleteUser removes an account the admin manages. Nobody can delete themselves.
func (s *Service) DeleteUser(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.RequirePermission(ctx, s.perms, p, shared.PermUsersEdit); err != nil {
		return err
	}
	if id == p.UserID {
		return shared.BadRequest("You cannot delete your own account")
	}
	if _, err := authz.ReadScope(p); err != nil {
		return err
	}
	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsSuperAdmin() {
		if existing.ParishID == nil || existing.Role == authz.RoleSuperAdmin {
			return shared.Forbidden(authz.MsgCrossParish)
		}
		if err := authz.RequireParishAccess(p, *existing.ParishID); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, authz.AuditEntry(p, "DELETE", "app_user", id, existing, nil))
	return nil
}
