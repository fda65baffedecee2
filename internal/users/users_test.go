package users

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctus-app/sanctus/internal/auth"
	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

type fakeRepo struct {
	users      map[uuid.UUID]User
	hashes     map[uuid.UUID]string
	lastFilter ListFilter
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[uuid.UUID]User{}, hashes: map[uuid.UUID]string{}}
}

func (f *fakeRepo) ListUsers(_ context.Context, filter ListFilter) ([]User, error) {
	f.lastFilter = filter
	out := []User{}
	for _, u := range f.users {
		if filter.ParishID == nil || (u.ParishID != nil && *u.ParishID == *filter.ParishID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetUser(_ context.Context, id uuid.UUID) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, shared.NotFound("User not found")
	}
	return u, nil
}

func (f *fakeRepo) CreateUser(_ context.Context, u NewUser) (User, error) {
	f.users[u.ID] = u.User
	f.hashes[u.ID] = u.PasswordHash
	return u.User, nil
}

func (f *fakeRepo) DeleteUser(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func newTestService(repo *fakeRepo) *Service {
	svc := NewService(repo, nil, nil)
	svc.hash = func(plain string) (string, error) { return auth.HashPassword(plain, auth.SchemePBKDF2) }
	return svc
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	home := uuid.New()
	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home}

	created, err := svc.CreateUser(context.Background(), admin, CreateInput{
		Username: " grace ",
		Email:    "Grace@Example.org",
		Password: "s3cret-pass",
		FullName: "Grace Achieng",
		Role:     authz.RoleAccountant,
	})
	require.NoError(t, err)
	assert.Equal(t, "grace", created.Username)
	assert.Equal(t, "grace@example.org", created.Email)
	require.NotNil(t, created.ParishID)
	assert.Equal(t, home, *created.ParishID)
	assert.NotEqual(t, "s3cret-pass", repo.hashes[created.ID])
	assert.True(t, auth.VerifyPassword("s3cret-pass", repo.hashes[created.ID]))
}

func TestParishAdminCannotCreateSuperAdminOrCrossParish(t *testing.T) {
	svc := newTestService(newFakeRepo())
	home, other := uuid.New(), uuid.New()
	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home}
	in := CreateInput{Username: "boss", Email: "b@example.org", Password: "password1", FullName: "B", Role: authz.RoleSuperAdmin}

	_, err := svc.CreateUser(context.Background(), admin, in)
	require.ErrorIs(t, err, shared.ErrForbidden)

	in.Role = authz.RoleSecretary
	in.ParishID = &other
	_, err = svc.CreateUser(context.Background(), admin, in)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSuperAdminCreateRules(t *testing.T) {
	svc := newTestService(newFakeRepo())
	super := authz.Principal{UserID: uuid.New(), Role: authz.RoleSuperAdmin}
	in := CreateInput{Username: "clerk", Email: "c@example.org", Password: "password1", FullName: "C", Role: authz.RoleSecretary}

	_, err := svc.CreateUser(context.Background(), super, in)
	require.ErrorIs(t, err, shared.ErrBadRequest)

	in.Role = authz.Role("BISHOP")
	_, err = svc.CreateUser(context.Background(), super, in)
	require.ErrorIs(t, err, shared.ErrBadRequest)

	in.Role = authz.RoleSuperAdmin
	created, err := svc.CreateUser(context.Background(), super, in)
	require.NoError(t, err)
	assert.Nil(t, created.ParishID)
}

func TestListUsersScoping(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	home := uuid.New()

	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home}
	_, err := svc.ListUsers(context.Background(), admin, ListQuery{})
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.ParishID)
	assert.Equal(t, home, *repo.lastFilter.ParishID)

	super := authz.Principal{UserID: uuid.New(), Role: authz.RoleSuperAdmin}
	_, err = svc.ListUsers(context.Background(), super, ListQuery{})
	require.NoError(t, err)
	assert.Nil(t, repo.lastFilter.ParishID)

	accountant := authz.Principal{UserID: uuid.New(), Role: authz.RoleAccountant, ParishID: &home}
	_, err = svc.ListUsers(context.Background(), accountant, ListQuery{})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDeleteUserRules(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	home, other := uuid.New(), uuid.New()
	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home}

	mine := User{ID: uuid.New(), ParishID: &home, Role: authz.RoleViewer}
	theirs := User{ID: uuid.New(), ParishID: &other, Role: authz.RoleViewer}
	root := User{ID: uuid.New(), Role: authz.RoleSuperAdmin}
	for _, u := range []User{mine, theirs, root} {
		repo.users[u.ID] = u
	}

	require.ErrorIs(t, svc.DeleteUser(context.Background(), admin, theirs.ID), shared.ErrForbidden)
	require.ErrorIs(t, svc.DeleteUser(context.Background(), admin, root.ID), shared.ErrForbidden)
	require.ErrorIs(t, svc.DeleteUser(context.Background(), admin, admin.UserID), shared.ErrBadRequest)
	require.NoError(t, svc.DeleteUser(context.Background(), admin, mine.ID))
	assert.NotContains(t, repo.users, mine.ID)
}

func TestCreateUserHandlerValidates(t *testing.T) {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := authz.Principal{UserID: uuid.New(), Role: authz.RoleSuperAdmin}
			next.ServeHTTP(w, req.WithContext(authz.ContextWithPrincipal(req.Context(), p)))
		})
	})
	NewHandler(nil, newTestService(newFakeRepo())).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(`{"username":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body := `{"username":"root2","email":"root2@example.org","password":"longenough","full_name":"Root","role":"SUPER_ADMIN"}`
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
}

type grantTable map[uuid.UUID][]string

func (g grantTable) EffectivePermissions(_ context.Context, id uuid.UUID) ([]string, error) {
	return g[id], nil
}

func TestUserManagementFollowsGrants(t *testing.T) {
	repo := newFakeRepo()
	home := uuid.New()
	secretary := authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary, ParishID: &home}
	svc := newTestService(repo).WithPermissions(grantTable{secretary.UserID: {shared.PermUsersView}})
	repo.users[secretary.UserID] = User{ID: secretary.UserID, ParishID: &home, Role: authz.RoleSecretary}

	list, err := svc.ListUsers(context.Background(), secretary, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	require.NotNil(t, repo.lastFilter.ParishID)
	assert.Equal(t, home, *repo.lastFilter.ParishID)

	_, err = svc.CreateUser(context.Background(), secretary, CreateInput{
		Username: "peter", Email: "peter@example.org", Password: "s3cret-pass", FullName: "Peter", Role: authz.RoleViewer,
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDeleteUserParishlessCallerForbidden(t *testing.T) {
	repo := newFakeRepo()
	drifter := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin}
	svc := newTestService(repo).WithPermissions(grantTable{drifter.UserID: {shared.PermUsersEdit}})

	require.ErrorIs(t, svc.DeleteUser(context.Background(), drifter, uuid.New()), shared.ErrForbidden)
}
