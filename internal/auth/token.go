package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// DefaultTokenTTL is the fixed lifetime of an access token.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the signed token body: sub, role, parish_id and exp.
type Claims struct {
	jwt.RegisteredClaims
	Role     authz.Role `json:"role"`
	ParishID *uuid.UUID `json:"parish_id"`
}

// TokenConfig is injected from application config.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
}

// TokenIssuer signs and validates HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer; an empty secret is rejected.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: jwt secret must be provided")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: cfg.Secret, ttl: ttl, now: time.Now}, nil
}

// WithClock overrides the time source.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

// Issue signs a token for the given identity.
func (i *TokenIssuer) Issue(userID uuid.UUID, role authz.Role, parishID *uuid.UUID) (string, time.Time, error) {
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("auth: issue: invalid role %q", role)
	}
	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:     role,
		ParishID: parishID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate verifies signature and expiry and returns the embedded principal.
func (i *TokenIssuer) Validate(token string) (authz.Principal, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return authz.Principal{}, shared.Unauthenticated("Invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || !claims.Role.Valid() {
		return authz.Principal{}, shared.Unauthenticated("Invalid token")
	}
	return authz.Principal{UserID: userID, Role: claims.Role, ParishID: claims.ParishID}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", shared.Unauthenticated("Missing authorization header")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", shared.Unauthenticated("Invalid authorization header")
	}
	return strings.TrimSpace(token), nil
}
