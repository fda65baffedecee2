package uploads

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/members"
	"github.com/sanctus-app/sanctus/internal/parishes"
	"github.com/sanctus-app/sanctus/internal/shared"
)

type fakeParishes struct {
	logos map[uuid.UUID]string
}

func (f *fakeParishes) Get(_ context.Context, p authz.Principal, id uuid.UUID) (parishes.Parish, error) {
	if err := authz.RequireParishAccess(p, id); err != nil {
		return parishes.Parish{}, err
	}
	return parishes.Parish{ID: id}, nil
}

func (f *fakeParishes) SetLogo(_ context.Context, _ authz.Principal, id uuid.UUID, url string) error {
	f.logos[id] = url
	return nil
}

type fakeMembers struct {
	parish uuid.UUID
	photos map[uuid.UUID]string
}

func (f *fakeMembers) Get(_ context.Context, p authz.Principal, id uuid.UUID) (members.Member, error) {
	if err := authz.RequireParishAccess(p, f.parish); err != nil {
		return members.Member{}, err
	}
	return members.Member{ID: id, ParishID: f.parish}, nil
}

func (f *fakeMembers) SetPhoto(_ context.Context, _ authz.Principal, id uuid.UUID, url string) error {
	f.photos[id] = url
	return nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

type harness struct {
	dir      string
	parishes *fakeParishes
	members  *fakeMembers
	svc      *Service
}

func newHarness(t *testing.T, home uuid.UUID, maxBytes int64) harness {
	dir := t.TempDir()
	h := harness{
		dir:      dir,
		parishes: &fakeParishes{logos: map[uuid.UUID]string{}},
		members:  &fakeMembers{parish: home, photos: map[uuid.UUID]string{}},
	}
	h.svc = NewService(NewDiskStore(dir, "/uploads"), h.parishes, h.members, maxBytes, nil)
	return h
}

func TestParishLogoStoredAndRecorded(t *testing.T) {
	home := uuid.New()
	h := newHarness(t, home, 0)
	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home}

	url, err := h.svc.ParishLogo(context.Background(), admin, home, "Logo.PNG", pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/parishes/"+home.String()+".png", url)
	assert.Equal(t, url, h.parishes.logos[home])
	_, err = os.Stat(filepath.Join(h.dir, "parishes", home.String()+".png"))
	require.NoError(t, err)
}

func TestUploadRejections(t *testing.T) {
	home, other := uuid.New(), uuid.New()
	h := newHarness(t, home, 64)
	admin := authz.Principal{UserID: uuid.New(), Role: authz.RoleParishAdmin, ParishID: &home}
	ctx := context.Background()

	_, err := h.svc.ParishLogo(ctx, admin, other, "logo.png", pngBytes(t))
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = h.svc.MemberPhoto(ctx, admin, uuid.New(), "photo.svg", []byte("<svg/>"))
	require.ErrorIs(t, err, shared.ErrBadRequest)

	_, err = h.svc.MemberPhoto(ctx, admin, uuid.New(), "photo.jpg", []byte("#!/bin/sh\necho hi\n"))
	require.ErrorIs(t, err, shared.ErrBadRequest)

	_, err = h.svc.MemberPhoto(ctx, admin, uuid.New(), "photo.png", bytes.Repeat([]byte{1}, 65))
	require.ErrorIs(t, err, shared.ErrBadRequest)

	viewer := authz.Principal{UserID: uuid.New(), Role: authz.RoleViewer, ParishID: &home}
	_, err = h.svc.MemberPhoto(ctx, viewer, uuid.New(), "photo.png", pngBytes(t))
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, h.members.photos)
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	store := NewDiskStore(t.TempDir(), "")
	_, err := store.Put("members", "../escape.png", []byte("x"))
	require.Error(t, err)
}

func TestMemberPhotoEndpointAndStaticServe(t *testing.T) {
	home := uuid.New()
	h := newHarness(t, home, 0)
	secretary := authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary, ParishID: &home}
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(authz.ContextWithPrincipal(req.Context(), secretary)))
			})
		})
		NewHandler(nil, h.svc).MountRoutes(r)
	})
	r.Handle("/uploads/*", NewDiskStore(h.dir, "/uploads").Handler())

	memberID := uuid.New()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("photo", "me.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads/members/"+memberID.String()+"/photo", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	want := "/uploads/members/" + memberID.String() + ".png"
	assert.JSONEq(t, `{"url":"`+want+`"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, want, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/members/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
