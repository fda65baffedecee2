package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Scheme names accepted by HashPassword.
const (
	SchemeBcrypt = "bcrypt"
	SchemePBKDF2 = "pbkdf2_sha256"
)

const (
	pbkdf2Prefix     = SchemePBKDF2 + "$"
	pbkdf2KeyLen     = 32
	pbkdf2Iterations = 600000
)

type passwordScheme struct {
	name   string
	match  func(stored string) bool
	verify func(plain, stored string) bool
	hash   func(plain string) (string, error)
}

// schemes is consulted in order; the first matching prefix wins.
var schemes = []passwordScheme{
	{
		name:   SchemePBKDF2,
		match:  func(stored string) bool { return strings.HasPrefix(stored, pbkdf2Prefix) },
		verify: verifyPBKDF2,
		hash:   hashPBKDF2,
	},
	{
		name: SchemeBcrypt,
		match: func(stored string) bool {
			return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
		},
		verify: func(plain, stored string) bool {
			return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
		},
		hash: func(plain string) (string, error) {
			out, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
			return string(out), err
		},
	},
}

// VerifyPassword checks plain against a stored hash in any supported scheme.
// Unknown or malformed hashes never verify.
func VerifyPassword(plain, stored string) bool {
	for _, s := range schemes {
		if s.match(stored) {
			return s.verify(plain, stored)
		}
	}
	return false
}

// HashPassword produces a stored hash using the named scheme.
func HashPassword(plain, scheme string) (string, error) {
	for _, s := range schemes {
		if s.name == scheme {
			return s.hash(plain)
		}
	}
	return "", fmt.Errorf("auth: unknown password scheme %q", scheme)
}

// verifyPBKDF2 handles pbkdf2_sha256$<iterations>$<salt>$<base64 digest>.
// The salt is used as its literal bytes.
func verifyPBKDF2(plain, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 4 {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(expected) != pbkdf2KeyLen {
		return false
	}
	derived := pbkdf2.Key([]byte(plain), []byte(parts[2]), iterations, pbkdf2KeyLen, sha256.New)
	return subtle.ConstantTimeCompare(derived, expected) == 1
}

func hashPBKDF2(plain string) (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: salt: %w", err)
	}
	salt := base64.RawURLEncoding.EncodeToString(buf)
	derived := pbkdf2.Key([]byte(plain), []byte(salt), pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return fmt.Sprintf("%s%d$%s$%s", pbkdf2Prefix, pbkdf2Iterations, salt, base64.StdEncoding.EncodeToString(derived)), nil
}
