// Package uploads stores parish logos and member photos on local disk.
package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/members"
	"github.com/sanctus-app/sanctus/internal/parishes"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// DefaultMaxBytes is the per-file size limit.
const DefaultMaxBytes = 5 << 20

var (
	logoExtensions  = []string{"jpg", "jpeg", "png", "gif", "webp", "svg"}
	photoExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
)

// ParishLogos is the part of the parish service uploads rely on.
type ParishLogos interface {
	Get(ctx context.Context, p authz.Principal, id uuid.UUID) (parishes.Parish, error)
	SetLogo(ctx context.Context, p authz.Principal, id uuid.UUID, url string) error
}

// MemberPhotos is the part of the member service uploads rely on.
type MemberPhotos interface {
	Get(ctx context.Context, p authz.Principal, id uuid.UUID) (members.Member, error)
	SetPhoto(ctx context.Context, p authz.Principal, id uuid.UUID, url string) error
}

// Blobs persists file bytes and returns a public URL.
type Blobs interface {
	Put(subdir, name string, data []byte) (string, error)
}

// Service validates images and records where they were stored.
type Service struct {
	blobs    Blobs
	parishes ParishLogos
	members  MemberPhotos
	maxBytes int64
	logger   *slog.Logger
}

// NewService constructs the upload service. maxBytes <= 0 selects DefaultMaxBytes.
func NewService(blobs Blobs, parishes ParishLogos, members MemberPhotos, maxBytes int64, logger *slog.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{blobs: blobs, parishes: parishes, members: members, maxBytes: maxBytes, logger: logger}
}

// MaxBytes reports the per-file limit.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// ParishLogo stores a new logo for a parish the admin manages.
func (s *Service) ParishLogo(ctx context.Context, p authz.Principal, parishID uuid.UUID, filename string, data []byte) (string, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return "", err
	}
	if _, err := s.parishes.Get(ctx, p, parishID); err != nil {
		return "", err
	}
	ext, err := s.checkImage(filename, data, logoExtensions)
	if err != nil {
		return "", err
	}
	url, err := s.blobs.Put("parishes", parishID.String()+"."+ext, data)
	if err != nil {
		return "", err
	}
	if err := s.parishes.SetLogo(ctx, p, parishID, url); err != nil {
		return "", err
	}
	return url, nil
}

// MemberPhoto stores a new photo for a member in the caller's scope.
func (s *Service) MemberPhoto(ctx context.Context, p authz.Principal, memberID uuid.UUID, filename string, data []byte) (string, error) {
	if err := authz.RequireWrite(p); err != nil {
		return "", err
	}
	if _, err := s.members.Get(ctx, p, memberID); err != nil {
		return "", err
	}
	ext, err := s.checkImage(filename, data, photoExtensions)
	if err != nil {
		return "", err
	}
	url, err := s.blobs.Put("members", memberID.String()+"."+ext, data)
	if err != nil {
		return "", err
	}
	if err := s.members.SetPhoto(ctx, p, memberID, url); err != nil {
		return "", err
	}
	return url, nil
}

// checkImage enforces the extension allow-list, the size limit and that the
// bytes really are an image.
func (s *Service) checkImage(filename string, data []byte, allowed []string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !slices.Contains(allowed, ext) {
		return "", shared.BadRequest(fmt.Sprintf("Invalid file type. Allowed: %s", strings.Join(allowed, ", ")))
	}
	if len(data) == 0 {
		return "", shared.BadRequest("No file provided")
	}
	if int64(len(data)) > s.maxBytes {
		return "", shared.BadRequest(fmt.Sprintf("File too large. Maximum size is %dMB", s.maxBytes>>20))
	}
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", shared.BadRequest("File content is not an image")
	}
	return ext, nil
}
