package parishes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

type fakeRepo struct {
	rows       map[uuid.UUID]Parish
	lastFilter ListFilter
}

func newFakeRepo(parishes ...Parish) *fakeRepo {
	f := &fakeRepo{rows: map[uuid.UUID]Parish{}}
	for _, p := range parishes {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakeRepo) ListDioceses(context.Context) ([]Diocese, error) {
	return []Diocese{{ID: uuid.New(), DioceseCode: "NBO", DioceseName: "Nairobi"}}, nil
}

func (f *fakeRepo) List(_ context.Context, filter ListFilter) ([]Parish, error) {
	f.lastFilter = filter
	out := []Parish{}
	for id, p := range f.rows {
		if filter.ParishID == nil || *filter.ParishID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (Parish, error) {
	p, ok := f.rows[id]
	if !ok {
		return Parish{}, shared.NotFound("Parish not found")
	}
	return p, nil
}

func (f *fakeRepo) Create(_ context.Context, p Parish) (Parish, error) {
	f.rows[p.ID] = p
	return p, nil
}

func (f *fakeRepo) Update(_ context.Context, p Parish) (Parish, error) {
	f.rows[p.ID] = p
	return p, nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeRepo) SetLogoURL(_ context.Context, id uuid.UUID, url string) error {
	p := f.rows[id]
	p.LogoURL = &url
	f.rows[id] = p
	return nil
}

func parish(name string) Parish {
	return Parish{ID: uuid.New(), DioceseID: uuid.New(), ParishCode: strings.ToUpper(name[:3]), ParishName: name, IsActive: true}
}

func TestListConfinesNonSuperAdmin(t *testing.T) {
	home, other := parish("Holy Family"), parish("St Jude")
	repo := newFakeRepo(home, other)
	svc := NewService(repo, nil, nil)

	viewer := authz.Principal{UserID: uuid.New(), Role: authz.RoleViewer, ParishID: &home.ID}
	list, err := svc.List(context.Background(), viewer, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, home.ID, list[0].ID)

	super := authz.Principal{UserID: uuid.New(), Role: authz.RoleSuperAdmin}
	list, err = svc.List(context.Background(), super, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Nil(t, repo.lastFilter.ParishID)

	_, err = svc.List(context.Background(), authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary}, ListQuery{})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestGetRejectsOtherParish(t *testing.T) {
	home, other := parish("Holy Family"), parish("St Jude")
	svc := NewService(newFakeRepo(home, other), nil, nil)
	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home.ID}

	_, err := svc.Get(context.Background(), admin, other.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	got, err := svc.Get(context.Background(), admin, home.ID)
	require.NoError(t, err)
	assert.Equal(t, "Holy Family", got.ParishName)
}

func TestCreateAndDeleteNeedSuperAdmin(t *testing.T) {
	home := parish("Holy Family")
	repo := newFakeRepo(home)
	svc := NewService(repo, nil, nil)
	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home.ID}
	in := CreateInput{DioceseID: uuid.New(), ParishCode: " stj ", ParishName: "St Jude"}

	_, err := svc.Create(context.Background(), admin, in)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.ErrorIs(t, svc.Delete(context.Background(), admin, home.ID), shared.ErrForbidden)

	super := authz.Principal{UserID: uuid.New(), Role: authz.RoleSuperAdmin}
	created, err := svc.Create(context.Background(), super, in)
	require.NoError(t, err)
	assert.Equal(t, "STJ", created.ParishCode)
	assert.True(t, created.IsActive)
	require.NoError(t, svc.Delete(context.Background(), super, created.ID))
}

func TestUpdateByParishAdmin(t *testing.T) {
	home := parish("Holy Family")
	svc := NewService(newFakeRepo(home), nil, nil)
	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home.ID}

	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"priest_name":"Fr. Kamau","timezone":"Africa/Nairobi"}`), &p))
	updated, err := svc.Update(context.Background(), admin, home.ID, p)
	require.NoError(t, err)
	require.NotNil(t, updated.PriestName)
	assert.Equal(t, "Fr. Kamau", *updated.PriestName)
	assert.Equal(t, home.ParishCode, updated.ParishCode)

	require.NoError(t, json.Unmarshal([]byte(`{"timezone":"Mars/Olympus"}`), &p))
	_, err = svc.Update(context.Background(), admin, home.ID, p)
	require.ErrorIs(t, err, shared.ErrBadRequest)

	secretary := authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary, ParishID: &home.ID}
	_, err = svc.Update(context.Background(), secretary, home.ID, Patch{})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestHandlerListDioceses(t *testing.T) {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := authz.Principal{UserID: uuid.New(), Role: authz.RoleViewer}
			next.ServeHTTP(w, req.WithContext(authz.ContextWithPrincipal(req.Context(), p)))
		})
	})
	NewHandler(nil, NewService(newFakeRepo(), nil, nil)).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dioceses", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"diocese_code":"NBO"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/parishes/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
