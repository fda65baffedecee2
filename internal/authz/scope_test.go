package authz_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestResolveParishIDSuperAdmin(t *testing.T) {
	home := uuid.New()
	other := uuid.New()

	p := authz.Principal{UserID: uuid.New(), Role: authz.RoleSuperAdmin, ParishID: &home}
	got, err := authz.ResolveParishID(p, ptr(other))
	require.NoError(t, err)
	assert.Equal(t, other, got)

	got, err = authz.ResolveParishID(p, nil)
	require.NoError(t, err)
	assert.Equal(t, home, got)

	p.ParishID = nil
	_, err = authz.ResolveParishID(p, nil)
	assert.ErrorIs(t, err, shared.ErrBadRequest)
	assert.EqualError(t, err, authz.MsgParishRequired)
}

func TestResolveParishIDScopedRoles(t *testing.T) {
	home := uuid.New()
	for _, role := range []authz.Role{authz.RoleParishAdmin, authz.RoleAccountant, authz.RoleSecretary, authz.RoleViewer} {
		p := authz.Principal{UserID: uuid.New(), Role: role, ParishID: &home}

		got, err := authz.ResolveParishID(p, nil)
		require.NoError(t, err, role)
		assert.Equal(t, home, got)

		got, err = authz.ResolveParishID(p, ptr(home))
		require.NoError(t, err, role)
		assert.Equal(t, home, got)

		_, err = authz.ResolveParishID(p, ptr(uuid.New()))
		assert.ErrorIs(t, err, shared.ErrForbidden, role)
		assert.EqualError(t, err, authz.MsgCrossParish)

		unassigned := authz.Principal{UserID: uuid.New(), Role: role}
		_, err = authz.ResolveParishID(unassigned, ptr(home))
		assert.ErrorIs(t, err, shared.ErrForbidden, role)
		assert.EqualError(t, err, authz.MsgNoParish)
	}
}

func TestRoleGates(t *testing.T) {
	cases := []struct {
		role                   authz.Role
		write, finance, admin bool
	}{
		{authz.RoleSuperAdmin, true, true, true},
		{authz.RoleParishAdmin, true, true, true},
		{authz.RoleAccountant, true, true, false},
		{authz.RoleSecretary, true, false, false},
		{authz.RoleViewer, false, false, false},
	}
	for _, tc := range cases {
		p := authz.Principal{Role: tc.role}
		assert.Equal(t, tc.write, authz.RequireWrite(p) == nil, "write %s", tc.role)
		assert.Equal(t, tc.finance, authz.RequireFinance(p) == nil, "finance %s", tc.role)
		assert.Equal(t, tc.admin, authz.RequireAdmin(p) == nil, "admin %s", tc.role)
	}
	assert.ErrorIs(t, authz.RequireWrite(authz.Principal{Role: authz.RoleViewer}), shared.ErrForbidden)
}

func TestRequireParishAccess(t *testing.T) {
	home := uuid.New()
	assert.NoError(t, authz.RequireParishAccess(authz.Principal{Role: authz.RoleSuperAdmin}, uuid.New()))
	assert.NoError(t, authz.RequireParishAccess(authz.Principal{Role: authz.RoleSecretary, ParishID: &home}, home))
	assert.ErrorIs(t, authz.RequireParishAccess(authz.Principal{Role: authz.RoleSecretary, ParishID: &home}, uuid.New()), shared.ErrForbidden)
}

func TestParseRole(t *testing.T) {
	r, err := authz.ParseRole("parish_admin")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleParishAdmin, r)

	_, err = authz.ParseRole("BISHOP")
	assert.Error(t, err)
}

func TestPrincipalContext(t *testing.T) {
	_, err := authz.MustPrincipal(context.Background())
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	want := authz.Principal{UserID: uuid.New(), Role: authz.RoleViewer}
	got, err := authz.MustPrincipal(authz.ContextWithPrincipal(context.Background(), want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadScope(t *testing.T) {
	home := uuid.New()

	scope, err := authz.ReadScope(authz.Principal{Role: authz.RoleSuperAdmin, ParishID: &home})
	require.NoError(t, err)
	assert.Nil(t, scope)

	scope, err = authz.ReadScope(authz.Principal{Role: authz.RoleViewer, ParishID: &home})
	require.NoError(t, err)
	require.NotNil(t, scope)
	assert.Equal(t, home, *scope)

	_, err = authz.ReadScope(authz.Principal{Role: authz.RoleSecretary})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.EqualError(t, err, authz.MsgNoParish)
}

type fixedGrants map[uuid.UUID][]string

func (g fixedGrants) EffectivePermissions(_ context.Context, id uuid.UUID) ([]string, error) {
	return g[id], nil
}

func TestRequirePermission(t *testing.T) {
	ctx := context.Background()
	home := uuid.New()
	accountant := authz.Principal{UserID: uuid.New(), Role: authz.RoleAccountant, ParishID: &home}
	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home}
	super := authz.Principal{UserID: uuid.New(), Role: authz.RoleSuperAdmin}
	grants := fixedGrants{accountant.UserID: {"Roles.Edit"}}

	require.NoError(t, authz.RequirePermission(ctx, grants, accountant, "roles.edit"))
	assert.ErrorIs(t, authz.RequirePermission(ctx, grants, accountant, "users.edit"), shared.ErrForbidden)
	assert.ErrorIs(t, authz.RequirePermission(ctx, grants, admin, "roles.edit"), shared.ErrForbidden)
	require.NoError(t, authz.RequirePermission(ctx, grants, super, "roles.edit"))

	require.NoError(t, authz.RequirePermission(ctx, nil, admin, "roles.edit"))
	assert.ErrorIs(t, authz.RequirePermission(ctx, nil, accountant, "roles.edit"), shared.ErrForbidden)
}
