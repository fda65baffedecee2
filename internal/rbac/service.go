package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Service orchestrates role, permission and override operations.
type Service struct {
	repo   Repository
	cache  *Cache
	audit  shared.AuditRecorder
	logger *slog.Logger
	now    func() time.Time
	loads  singleflight.Group

	genMu sync.Mutex
	epoch uint64
	gens  map[uuid.UUID]uint64
}

// NewService constructs a Service. cache and audit may be nil.
func NewService(repo Repository, cache *Cache, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger, now: time.Now, gens: map[uuid.UUID]uint64{}}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// EffectivePermissions returns role permissions united with active, non-expired overrides.
func (s *Service) EffectivePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	stamp, err := s.cache.Stamp(ctx, userID)
	if err != nil {
		s.logger.Warn("rbac cache stamp", slog.Any("error", err))
		stamp = ""
	}
	if perms, ok, err := s.cache.Get(ctx, stamp); err != nil {
		s.logger.Warn("rbac cache read", slog.Any("error", err))
	} else if ok {
		return perms, nil
	}
	v, err, _ := s.loads.Do(s.loadKey(userID, stamp), func() (interface{}, error) {
		return s.loadEffective(ctx, userID, stamp)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// loadKey keeps callers that arrive after an invalidation out of a load that
// started before it.
func (s *Service) loadKey(userID uuid.UUID, stamp string) string {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return fmt.Sprintf("%s:%d:%d:%s", userID, s.epoch, s.gens[userID], stamp)
}

func (s *Service) loadEffective(ctx context.Context, userID uuid.UUID, stamp string) ([]string, error) {
	var (
		roleKeys  []string
		overrides []Override
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roleKeys, err = s.repo.UserRolePermissionKeys(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = s.repo.ListOverrides(gctx, OverrideFilter{UserID: &userID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	perms, ttl := mergeEffective(roleKeys, overrides, now)
	if ttl == 0 || ttl > s.cache.TTL() {
		ttl = s.cache.TTL()
	}
	if err := s.cache.Set(ctx, stamp, perms, ttl); err != nil {
		s.logger.Warn("rbac cache write", slog.Any("error", err))
	}
	return perms, nil
}

// mergeEffective unions the sources and reports how long the result stays
// valid; zero means no override expires.
func mergeEffective(roleKeys []string, overrides []Override, now time.Time) ([]string, time.Duration) {
	set := make(map[string]struct{}, len(roleKeys)+len(overrides))
	for _, key := range roleKeys {
		set[strings.ToLower(key)] = struct{}{}
	}
	var ttl time.Duration
	for _, o := range overrides {
		if !o.EffectiveAt(now) {
			continue
		}
		set[strings.ToLower(o.PermissionKey)] = struct{}{}
		if o.ExpiresAt != nil {
			if left := o.ExpiresAt.Sub(now); ttl == 0 || left < ttl {
				ttl = left
			}
		}
	}
	perms := make([]string, 0, len(set))
	for key := range set {
		perms = append(perms, key)
	}
	sort.Strings(perms)
	return perms, ttl
}

// UserPermissions is the effective set alongside the overrides that shaped it.
type UserPermissions struct {
	UserID      uuid.UUID  `json:"user_id"`
	Permissions []string   `json:"permissions"`
	Overrides   []Override `json:"overrides"`
}

// DescribeUser returns the effective permissions of a user.
func (s *Service) DescribeUser(ctx context.Context, admin authz.Principal, userID uuid.UUID) (UserPermissions, error) {
	if err := s.requireSameParish(ctx, admin, userID); err != nil {
		return UserPermissions{}, err
	}
	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return UserPermissions{}, err
	}
	overrides, err := s.repo.ListOverrides(ctx, OverrideFilter{UserID: &userID, ActiveOnly: true})
	if err != nil {
		return UserPermissions{}, err
	}
	return UserPermissions{UserID: userID, Permissions: perms, Overrides: nonNil(overrides)}, nil
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context, group string) ([]Permission, error) {
	return s.repo.ListPermissions(ctx, strings.TrimSpace(group))
}

// ListRoles returns every role with its permissions.
func (s *Service) ListRoles(ctx context.Context) ([]RoleWithPermissions, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleWithPermissions, len(roles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, role := range roles {
		g.Go(func() error {
			perms, err := s.repo.RolePermissions(gctx, role.ID)
			if err != nil {
				return err
			}
			out[i] = RoleWithPermissions{Role: role, Permissions: perms}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRole fetches a role and its permissions.
func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (RoleWithPermissions, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return RoleWithPermissions{}, err
	}
	perms, err := s.repo.RolePermissions(ctx, id)
	if err != nil {
		return RoleWithPermissions{}, err
	}
	return RoleWithPermissions{Role: role, Permissions: perms}, nil
}

// CreateRole inserts a custom role. is_system is always false.
func (s *Service) CreateRole(ctx context.Context, admin authz.Principal, in CreateRoleInput) (RoleWithPermissions, error) {
	if err := s.authorize(ctx, admin, shared.PermRolesEdit); err != nil {
		return RoleWithPermissions{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.Name == "" || in.DisplayName == "" {
		return RoleWithPermissions{}, shared.BadRequest("role_name and display_name are required")
	}
	role, err := s.repo.CreateRole(ctx, in)
	if err != nil {
		return RoleWithPermissions{}, err
	}
	s.record(ctx, admin, "CREATE", "custom_role", role.ID, nil, role)
	return s.GetRole(ctx, role.ID)
}

// UpdateRole edits display metadata. The role name never changes.
func (s *Service) UpdateRole(ctx context.Context, admin authz.Principal, id uuid.UUID, in UpdateRoleInput) (Role, error) {
	if err := s.authorize(ctx, admin, shared.PermRolesEdit); err != nil {
		return Role{}, err
	}
	before, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	after, err := s.repo.UpdateRole(ctx, id, in)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, admin, "UPDATE", "custom_role", id, before, after)
	return after, nil
}

// DeleteRole hard-deletes a custom role. System roles are protected.
func (s *Service) DeleteRole(ctx context.Context, admin authz.Principal, id uuid.UUID) error {
	if err := s.authorize(ctx, admin, shared.PermRolesEdit); err != nil {
		return err
	}
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return shared.Forbidden("Cannot delete system role")
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	s.record(ctx, admin, "DELETE", "custom_role", id, role, nil)
	return nil
}

// SetRolePermissions replaces the entire permission set of a role.
func (s *Service) SetRolePermissions(ctx context.Context, admin authz.Principal, roleID uuid.UUID, permissionIDs []uuid.UUID) ([]Permission, error) {
	if err := s.authorize(ctx, admin, shared.PermRolesEdit); err != nil {
		return nil, err
	}
	before, err := s.repo.RolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceRolePermissions(ctx, roleID, uniqueIDs(permissionIDs)); err != nil {
		return nil, err
	}
	s.bump(ctx)
	after, err := s.repo.RolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, admin, "UPDATE", "role_permission", roleID, permissionKeys(before), permissionKeys(after))
	return after, nil
}

// Grant upserts overrides for a user and returns the user's active overrides.
func (s *Service) Grant(ctx context.Context, admin authz.Principal, in GrantInput) ([]Override, error) {
	if err := s.authorize(ctx, admin, shared.PermOverridesEdit); err != nil {
		return nil, err
	}
	if len(in.PermissionIDs) == 0 {
		return nil, shared.BadRequest("permission_ids is required")
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return nil, shared.BadRequest("expires_at must be in the future")
	}
	if err := s.requireSameParish(ctx, admin, in.UserID); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertOverrides(ctx, in.UserID, admin.UserID, uniqueIDs(in.PermissionIDs), in.Reason, in.ExpiresAt); err != nil {
		return nil, err
	}
	s.invalidate(ctx, in.UserID)
	s.record(ctx, admin, "GRANT", "user_permission_override", in.UserID, nil, in)
	overrides, err := s.repo.ListOverrides(ctx, OverrideFilter{UserID: &in.UserID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return nonNil(overrides), nil
}

// Revoke deactivates the user's overrides for the given permissions.
func (s *Service) Revoke(ctx context.Context, admin authz.Principal, in RevokeInput) error {
	if err := s.authorize(ctx, admin, shared.PermOverridesEdit); err != nil {
		return err
	}
	if err := s.requireSameParish(ctx, admin, in.UserID); err != nil {
		return err
	}
	if len(in.PermissionIDs) == 0 {
		return nil
	}
	if err := s.repo.DeactivateOverrides(ctx, in.UserID, uniqueIDs(in.PermissionIDs)); err != nil {
		return err
	}
	s.invalidate(ctx, in.UserID)
	s.record(ctx, admin, "REVOKE", "user_permission_override", in.UserID, in, nil)
	return nil
}

// RevokeByID deactivates a single override.
func (s *Service) RevokeByID(ctx context.Context, admin authz.Principal, overrideID uuid.UUID) error {
	if err := s.authorize(ctx, admin, shared.PermOverridesEdit); err != nil {
		return err
	}
	owner, err := s.repo.OverrideOwner(ctx, overrideID)
	if err != nil {
		return err
	}
	if err := s.requireSameParish(ctx, admin, owner); err != nil {
		return err
	}
	userID, err := s.repo.DeactivateOverride(ctx, overrideID)
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.record(ctx, admin, "REVOKE", "user_permission_override", overrideID, nil, nil)
	return nil
}

// ListOverrides lists overrides, scoped to the admin's parish for non super admins.
func (s *Service) ListOverrides(ctx context.Context, admin authz.Principal, filter OverrideFilter) ([]Override, error) {
	if filter.UserID != nil {
		if err := s.requireSameParish(ctx, admin, *filter.UserID); err != nil {
			return nil, err
		}
	}
	overrides, err := s.repo.ListOverrides(ctx, filter)
	if err != nil {
		return nil, err
	}
	if admin.IsSuperAdmin() || filter.UserID != nil {
		return nonNil(overrides), nil
	}
	scoped := make([]Override, 0, len(overrides))
	for _, o := range overrides {
		if s.requireSameParish(ctx, admin, o.UserID) == nil {
			scoped = append(scoped, o)
		}
	}
	return scoped, nil
}

// SweepExpired marks elapsed overrides inactive.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.bump(ctx)
	}
	return n, nil
}

// authorize admits callers whose effective permissions carry key, so an
// override can hand a single admin action to a non admin.
func (s *Service) authorize(ctx context.Context, p authz.Principal, key string) error {
	return authz.RequirePermission(ctx, s, p, key)
}

// requireSameParish keeps parish admins inside their own parish.
func (s *Service) requireSameParish(ctx context.Context, admin authz.Principal, userID uuid.UUID) error {
	if admin.IsSuperAdmin() || admin.UserID == userID {
		return nil
	}
	parishID, err := s.repo.UserParish(ctx, userID)
	if err != nil {
		return err
	}
	if parishID == nil || admin.ParishID == nil || *parishID != *admin.ParishID {
		return shared.Forbidden(authz.MsgCrossParish)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	s.genMu.Lock()
	s.gens[userID]++
	s.genMu.Unlock()
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("rbac cache invalidate", slog.String("user_id", userID.String()), slog.Any("error", err))
	}
}

func (s *Service) bump(ctx context.Context) {
	s.genMu.Lock()
	s.epoch++
	s.genMu.Unlock()
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("rbac cache bump", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, admin authz.Principal, action, table string, recordID uuid.UUID, oldValues, newValues any) {
	entry := authz.AuditEntry(admin, action, table, recordID, oldValues, newValues)
	entry.At = s.now()
	shared.RecordBestEffort(ctx, s.audit, s.logger, entry)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func permissionKeys(perms []Permission) []string {
	keys := make([]string, len(perms))
	for i, p := range perms {
		keys[i] = p.Key
	}
	return keys
}

func nonNil(overrides []Override) []Override {
	if overrides == nil {
		return []Override{}
	}
	return overrides
}
