package members

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

func strp(s string) *string { return &s }

func sampleMember(parish uuid.UUID) Member {
	g := GenderFemale
	active := true
	return Member{
		ID:          uuid.New(),
		ParishID:    parish,
		MemberCode:  "M-001",
		FirstName:   "Agnes",
		MiddleName:  strp("Wanjiru"),
		LastName:    "Mwangi",
		DateOfBirth: pgtype.Date{Time: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), Valid: true},
		Gender:      &g,
		Email:       strp("agnes@example.org"),
		IsActive:    &active,
	}
}

func decodePatch(t *testing.T, raw string) Patch {
	t.Helper()
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func TestApplyKeepsAbsentFields(t *testing.T) {
	existing := sampleMember(uuid.New())
	got := Apply(existing, decodePatch(t, `{}`))
	assert.Equal(t, existing, got)
}

func TestApplySetsAndClears(t *testing.T) {
	existing := sampleMember(uuid.New())
	got := Apply(existing, decodePatch(t, `{"first_name":"Agatha","middle_name":null,"email":null,"occupation":"Teacher","date_of_birth":null}`))

	assert.Equal(t, "Agatha", got.FirstName)
	assert.Nil(t, got.MiddleName)
	assert.Nil(t, got.Email)
	require.NotNil(t, got.Occupation)
	assert.Equal(t, "Teacher", *got.Occupation)
	assert.False(t, got.DateOfBirth.Valid)
	assert.Equal(t, existing.LastName, got.LastName)
	assert.Equal(t, existing.ID, got.ID)
	assert.Equal(t, existing.ParishID, got.ParishID)
}

func TestApplyNullOnRequiredFieldKeepsValue(t *testing.T) {
	existing := sampleMember(uuid.New())
	got := Apply(existing, decodePatch(t, `{"last_name":null}`))
	assert.Equal(t, "Mwangi", got.LastName)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	existing := sampleMember(uuid.New())
	before := *existing.MiddleName
	_ = Apply(existing, decodePatch(t, `{"middle_name":"Njeri"}`))
	assert.Equal(t, before, *existing.MiddleName)
}

func TestValidateRejectsUnknownEnum(t *testing.T) {
	m := sampleMember(uuid.New())
	bad := Gender("OTHER")
	m.Gender = &bad
	require.Error(t, m.Validate())
}

type fakeRepo struct {
	rows    map[uuid.UUID]Member
	deleted map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uuid.UUID]Member{}, deleted: map[uuid.UUID]bool{}}
}

func (f *fakeRepo) List(_ context.Context, filter ListFilter) ([]Member, error) {
	out := []Member{}
	for id, m := range f.rows {
		if !f.deleted[id] && m.ParishID == filter.ParishID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID, scope *uuid.UUID) (Member, error) {
	m, ok := f.rows[id]
	if !ok || f.deleted[id] || (scope != nil && m.ParishID != *scope) {
		return Member{}, shared.NotFound("Member not found")
	}
	return m, nil
}

func (f *fakeRepo) Create(_ context.Context, m Member) (Member, error) {
	f.rows[m.ID] = m
	return m, nil
}

func (f *fakeRepo) Update(_ context.Context, m Member) (Member, error) {
	f.rows[m.ID] = m
	return m, nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok || f.deleted[id] {
		return shared.NotFound("Member not found")
	}
	f.deleted[id] = true
	return nil
}

func (f *fakeRepo) SetPhotoURL(_ context.Context, id uuid.UUID, url string) error {
	m := f.rows[id]
	m.PhotoURL = &url
	f.rows[id] = m
	return nil
}

func (f *fakeRepo) InsertIfAbsent(context.Context, Member) error             { return nil }
func (f *fakeRepo) Overwrite(context.Context, Member, *uuid.UUID) error      { return nil }
func (f *fakeRepo) MarkDeleted(context.Context, uuid.UUID, *uuid.UUID) error { return nil }

func TestServiceScopesToOwnParish(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, shared.NopAuditRecorder{}, nil)
	home, other := uuid.New(), uuid.New()
	mine := sampleMember(home)
	theirs := sampleMember(other)
	repo.rows[mine.ID] = mine
	repo.rows[theirs.ID] = theirs

	secretary := authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary, ParishID: &home}
	ctx := context.Background()

	list, err := svc.List(ctx, secretary, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = svc.List(ctx, secretary, ListQuery{ParishID: &other})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Get(ctx, secretary, theirs.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	err = svc.Delete(ctx, secretary, theirs.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.False(t, repo.deleted[theirs.ID])
}

func TestServiceForeignAndMissingLookLikeNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	home := uuid.New()
	foreign := sampleMember(uuid.New())
	repo.rows[foreign.ID] = foreign
	secretary := authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary, ParishID: &home}

	_, errForeign := svc.Get(context.Background(), secretary, foreign.ID)
	_, errMissing := svc.Get(context.Background(), secretary, uuid.New())
	require.ErrorIs(t, errForeign, shared.ErrNotFound)
	require.ErrorIs(t, errMissing, shared.ErrNotFound)
	assert.Equal(t, errMissing.Error(), errForeign.Error())
}

func TestServiceParishlessCallerForbiddenBeforeLookup(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	m := sampleMember(uuid.New())
	repo.rows[m.ID] = m
	drifter := authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary}

	_, err := svc.Get(context.Background(), drifter, uuid.New())
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.Get(context.Background(), drifter, m.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestServiceViewerIsReadOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	home := uuid.New()
	viewer := authz.Principal{UserID: uuid.New(), Role: authz.RoleViewer, ParishID: &home}

	_, err := svc.Create(context.Background(), viewer, CreateInput{MemberCode: "M-9", FirstName: "A", LastName: "B"})
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, repo.rows)
}

func TestServiceCreateBindsResolvedParish(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	home := uuid.New()
	secretary := authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary, ParishID: &home}

	created, err := svc.Create(context.Background(), secretary, CreateInput{MemberCode: "M-9", FirstName: "Peter", LastName: "Otieno"})
	require.NoError(t, err)
	assert.Equal(t, home, created.ParishID)
	require.NotNil(t, created.IsActive)
	assert.True(t, *created.IsActive)
}

func TestServiceSuperAdminNeedsParish(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil)
	super := authz.Principal{UserID: uuid.New(), Role: authz.RoleSuperAdmin}
	_, err := svc.List(context.Background(), super, ListQuery{})
	require.ErrorIs(t, err, shared.ErrBadRequest)
}

func TestServiceDeletedMemberIsNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	home := uuid.New()
	m := sampleMember(home)
	repo.rows[m.ID] = m
	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home}

	require.NoError(t, svc.Delete(context.Background(), admin, m.ID))
	_, err := svc.Get(context.Background(), admin, m.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	list, err := svc.List(context.Background(), admin, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
