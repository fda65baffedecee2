package community

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
	"github.com/sanctus-app/sanctus/internal/members"
	"github.com/sanctus-app/sanctus/internal/shared"
)

type fakeRepo struct {
	clusters map[uuid.UUID]Cluster
	sccs     map[uuid.UUID]SCC
	families map[uuid.UUID]Family
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{clusters: map[uuid.UUID]Cluster{}, sccs: map[uuid.UUID]SCC{}, families: map[uuid.UUID]Family{}}
}

func inScope(owner uuid.UUID, scope *uuid.UUID) bool { return scope == nil || owner == *scope }

func sameParent(parent *uuid.UUID, want *uuid.UUID) bool {
	return want == nil || (parent != nil && *parent == *want)
}

func (f *fakeRepo) ListClusters(_ context.Context, filter ListFilter) ([]Cluster, error) {
	out := []Cluster{}
	for _, c := range f.clusters {
		if c.ParishID == filter.ParishID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetCluster(_ context.Context, id uuid.UUID, scope *uuid.UUID) (Cluster, error) {
	c, ok := f.clusters[id]
	if !ok || !inScope(c.ParishID, scope) {
		return Cluster{}, shared.NotFound("Cluster not found")
	}
	return c, nil
}

func (f *fakeRepo) CreateCluster(_ context.Context, c Cluster) (Cluster, error) {
	f.clusters[c.ID] = c
	return c, nil
}

func (f *fakeRepo) UpdateCluster(_ context.Context, c Cluster) (Cluster, error) {
	f.clusters[c.ID] = c
	return c, nil
}

func (f *fakeRepo) DeleteCluster(_ context.Context, id uuid.UUID) error {
	delete(f.clusters, id)
	return nil
}

func (f *fakeRepo) ListSCCs(_ context.Context, filter ListFilter) ([]SCC, error) {
	out := []SCC{}
	for _, s := range f.sccs {
		if s.ParishID == filter.ParishID && sameParent(s.ClusterID, filter.ParentID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetSCC(_ context.Context, id uuid.UUID, scope *uuid.UUID) (SCC, error) {
	s, ok := f.sccs[id]
	if !ok || !inScope(s.ParishID, scope) {
		return SCC{}, shared.NotFound("SCC not found")
	}
	return s, nil
}

func (f *fakeRepo) CreateSCC(_ context.Context, s SCC) (SCC, error) {
	f.sccs[s.ID] = s
	return s, nil
}

func (f *fakeRepo) UpdateSCC(_ context.Context, s SCC) (SCC, error) {
	f.sccs[s.ID] = s
	return s, nil
}

func (f *fakeRepo) DeleteSCC(_ context.Context, id uuid.UUID) error {
	delete(f.sccs, id)
	return nil
}

func (f *fakeRepo) ListFamilies(_ context.Context, filter ListFilter) ([]Family, error) {
	out := []Family{}
	for _, fam := range f.families {
		if fam.ParishID == filter.ParishID && sameParent(fam.SCCID, filter.ParentID) {
			out = append(out, fam)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetFamily(_ context.Context, id uuid.UUID, scope *uuid.UUID) (Family, error) {
	fam, ok := f.families[id]
	if !ok || !inScope(fam.ParishID, scope) {
		return Family{}, shared.NotFound("Family not found")
	}
	return fam, nil
}

func (f *fakeRepo) CreateFamily(_ context.Context, fam Family) (Family, error) {
	f.families[fam.ID] = fam
	return fam, nil
}

func (f *fakeRepo) UpdateFamily(_ context.Context, fam Family) (Family, error) {
	f.families[fam.ID] = fam
	return fam, nil
}

func (f *fakeRepo) DeleteFamily(_ context.Context, id uuid.UUID) error {
	delete(f.families, id)
	return nil
}

type memberDirectory map[uuid.UUID]uuid.UUID

func (d memberDirectory) Get(_ context.Context, id uuid.UUID, scope *uuid.UUID) (members.Member, error) {
	parish, ok := d[id]
	if !ok || !inScope(parish, scope) {
		return members.Member{}, shared.NotFound("Member not found")
	}
	return members.Member{ID: id, ParishID: parish}, nil
}

func secretaryOf(parish uuid.UUID) authz.Principal {
	return authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary, ParishID: &parish}
}

func TestCreateSCCRejectsClusterOfAnotherParish(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil)
	home, other := uuid.New(), uuid.New()
	ctx := context.Background()

	foreign, err := svc.CreateCluster(ctx, secretaryOf(other), CreateClusterInput{ClusterCode: "C1", ClusterName: "Kibera"})
	require.NoError(t, err)

	_, err = svc.CreateSCC(ctx, secretaryOf(home), CreateSCCInput{ClusterID: &foreign.ID, SCCCode: "S1", SCCName: "St Anne"})
	require.ErrorIs(t, err, shared.ErrBadRequest)
	assert.Empty(t, repo.sccs)

	own, err := svc.CreateCluster(ctx, secretaryOf(home), CreateClusterInput{ClusterCode: "C1", ClusterName: "Lavington"})
	require.NoError(t, err)
	created, err := svc.CreateSCC(ctx, secretaryOf(home), CreateSCCInput{ClusterID: &own.ID, SCCCode: "S1", SCCName: "St Anne"})
	require.NoError(t, err)
	assert.Equal(t, home, created.ParishID)
}

func TestFamilyHeadMustBelongToParish(t *testing.T) {
	repo := newFakeRepo()
	home, other := uuid.New(), uuid.New()
	ownHead, foreignHead := uuid.New(), uuid.New()
	svc := NewService(repo, memberDirectory{ownHead: home, foreignHead: other}, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateFamily(ctx, secretaryOf(home), CreateFamilyInput{FamilyCode: "F1", FamilyName: "Mwangi", HeadOfFamilyID: &foreignHead})
	require.ErrorIs(t, err, shared.ErrBadRequest)

	fam, err := svc.CreateFamily(ctx, secretaryOf(home), CreateFamilyInput{FamilyCode: "F1", FamilyName: "Mwangi", HeadOfFamilyID: &ownHead})
	require.NoError(t, err)
	require.NotNil(t, fam.IsActive)
	assert.True(t, *fam.IsActive)
}

func TestCommunityLookupsAreScoped(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil)
	home, other := uuid.New(), uuid.New()
	ctx := context.Background()
	theirs, err := svc.CreateFamily(ctx, secretaryOf(other), CreateFamilyInput{FamilyCode: "F9", FamilyName: "Otieno"})
	require.NoError(t, err)

	_, err = svc.GetFamily(ctx, secretaryOf(home), theirs.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	err = svc.DeleteFamily(ctx, secretaryOf(home), theirs.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, repo.families, theirs.ID)

	drifter := authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary}
	_, err = svc.GetCluster(ctx, drifter, uuid.New())
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.ListFamilies(ctx, secretaryOf(home), ListQuery{ParishID: &other})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestViewerCannotWriteCommunities(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil)
	home := uuid.New()
	viewer := authz.Principal{UserID: uuid.New(), Role: authz.RoleViewer, ParishID: &home}

	_, err := svc.CreateCluster(context.Background(), viewer, CreateClusterInput{ClusterCode: "C1", ClusterName: "North"})
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, repo.clusters)
}

func TestSCCPatchValidatesMeetingTime(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil)
	home := uuid.New()
	ctx := context.Background()
	scc, err := svc.CreateSCC(ctx, secretaryOf(home), CreateSCCInput{SCCCode: "S1", SCCName: "St Anne"})
	require.NoError(t, err)

	var bad SCCPatch
	require.NoError(t, json.Unmarshal([]byte(`{"meeting_time":"half past six"}`), &bad))
	_, err = svc.UpdateSCC(ctx, secretaryOf(home), scc.ID, bad)
	require.ErrorIs(t, err, shared.ErrBadRequest)

	var good SCCPatch
	require.NoError(t, json.Unmarshal([]byte(`{"meeting_time":"18:30","leader_name":null,"meeting_day":"Thursday"}`), &good))
	updated, err := svc.UpdateSCC(ctx, secretaryOf(home), scc.ID, good)
	require.NoError(t, err)
	require.NotNil(t, updated.MeetingTime)
	assert.Equal(t, "18:30", *updated.MeetingTime)
	assert.Equal(t, "St Anne", updated.SCCName)
}

func TestHandlerListsFamiliesOfOneSCC(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil)
	home := uuid.New()
	ctx := context.Background()
	scc, err := svc.CreateSCC(ctx, secretaryOf(home), CreateSCCInput{SCCCode: "S1", SCCName: "St Anne"})
	require.NoError(t, err)
	_, err = svc.CreateFamily(ctx, secretaryOf(home), CreateFamilyInput{SCCID: &scc.ID, FamilyCode: "F1", FamilyName: "Mwangi"})
	require.NoError(t, err)
	_, err = svc.CreateFamily(ctx, secretaryOf(home), CreateFamilyInput{FamilyCode: "F2", FamilyName: "Otieno"})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authz.ContextWithPrincipal(req.Context(), secretaryOf(home))))
		})
	})
	NewHandler(nil, svc).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/families?scc_id="+scc.ID.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got []Family
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Mwangi", got[0].FamilyName)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/clusters", strings.NewReader(`{"cluster_code":"C1"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/clusters", strings.NewReader(`{"cluster_code":"C1","cluster_name":"North"}`)))
	assert.Equal(t, http.StatusCreated, rr.Code)
}
