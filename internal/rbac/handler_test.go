package rbac

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctus-app/sanctus/internal/authz"
)

func newRBACRouter(f *fixture, principal authz.Principal, granted ...string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authz.ContextWithPrincipal(req.Context(), principal)))
		})
	})
	NewHandler(nil, f.svc, Middleware{Service: staticPermissions{perms: granted}}).MountRoutes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerGrantAndRevoke(t *testing.T) {
	f := newFixture(t)
	h := newRBACRouter(f, f.admin, "overrides.edit")

	rec := doJSON(t, h, http.MethodPost, "/overrides", map[string]any{
		"user_id":        f.member,
		"permission_ids": []uuid.UUID{f.extraPerm.ID},
		"reason":         "covering the treasurer",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var active []Override
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	require.Len(t, active, 1)
	assert.Equal(t, "finance.approve", active[0].PermissionKey)

	rec = doJSON(t, h, http.MethodPost, "/overrides/revoke", map[string]any{
		"user_id":        f.member,
		"permission_ids": []uuid.UUID{f.extraPerm.ID},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/overrides/"+active[0].ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlerGrantValidation(t *testing.T) {
	f := newFixture(t)
	h := newRBACRouter(f, f.admin, "overrides.edit")
	rec := doJSON(t, h, http.MethodPost, "/overrides", map[string]any{"user_id": f.member})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerPermissionGate(t *testing.T) {
	f := newFixture(t)
	h := newRBACRouter(f, f.admin, "roles.view")
	rec := doJSON(t, h, http.MethodPost, "/overrides", map[string]any{
		"user_id":        f.member,
		"permission_ids": []uuid.UUID{f.extraPerm.ID},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerDeleteSystemRole(t *testing.T) {
	f := newFixture(t)
	h := newRBACRouter(f, f.admin, "roles.edit")
	rec := doJSON(t, h, http.MethodDelete, "/roles/"+f.secretary.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerSetRolePermissions(t *testing.T) {
	f := newFixture(t)
	h := newRBACRouter(f, f.admin, "roles.edit", "roles.view")
	rec := doJSON(t, h, http.MethodPut, "/roles/"+f.secretary.ID.String()+"/permissions", map[string]any{
		"permission_ids": []uuid.UUID{f.extraPerm.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var perms []Permission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &perms))
	require.Len(t, perms, 1)
	assert.Equal(t, "finance.approve", perms[0].Key)

	rec = doJSON(t, h, http.MethodGet, "/roles/"+f.secretary.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerUserPermissions(t *testing.T) {
	f := newFixture(t)
	h := newRBACRouter(f, f.admin, "users.view")
	rec := doJSON(t, h, http.MethodGet, "/users/"+f.member.String()+"/permissions", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary UserPermissions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, []string{"members.view"}, summary.Permissions)
	assert.Empty(t, summary.Overrides)
}

func TestHandlerCatalogReadsNeedOnlyAuthentication(t *testing.T) {
	f := newFixture(t)
	viewer := authz.Principal{UserID: uuid.New(), Role: authz.RoleViewer, ParishID: &f.parish}
	h := newRBACRouter(f, viewer)

	for _, path := range []string{"/permissions", "/roles", "/roles/" + f.secretary.ID.String()} {
		rec := doJSON(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	rec := doJSON(t, h, http.MethodPost, "/roles", map[string]any{"role_name": "X", "display_name": "X"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
