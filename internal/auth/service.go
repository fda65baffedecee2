package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenIssuer
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login validates credentials and issues an access token. Every failure mode
// that concerns the credentials collapses to ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (LoginResult, error) {
	user, err := s.repo.FindByLogin(ctx, strings.TrimSpace(usernameOrEmail))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return LoginResult{}, shared.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !user.IsActive || !VerifyPassword(password, user.PasswordHash) {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role, user.ParishID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: ProfileOf(user)}, nil
}

// Me loads the profile of the authenticated user.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (Profile, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Profile{}, shared.NotFound("user not found")
		}
		return Profile{}, err
	}
	return ProfileOf(user), nil
}
