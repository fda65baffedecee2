package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sanctus-app/sanctus/internal/auth"
)

const knownPBKDF2 = "pbkdf2_sha256$1000$parishsalt$fteurMCtbRoGzpqdWmVY+vqZhiNAirEU1pcMDtZUOrM="

func TestVerifyPasswordPBKDF2(t *testing.T) {
	assert.True(t, auth.VerifyPassword("Passw0rd!", knownPBKDF2))
	assert.False(t, auth.VerifyPassword("passw0rd!", knownPBKDF2))
}

func TestVerifyPasswordBcrypt(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, auth.VerifyPassword("correctpass", string(hashed)))
	assert.False(t, auth.VerifyPassword("wrongpass", string(hashed)))
}

func TestVerifyPasswordRejectsMalformed(t *testing.T) {
	for _, stored := range []string{
		"",
		"plaintext",
		"pbkdf2_sha256$1000$salt",
		"pbkdf2_sha256$abc$parishsalt$fteurMCtbRoGzpqdWmVY+vqZhiNAirEU1pcMDtZUOrM=",
		"pbkdf2_sha256$0$parishsalt$fteurMCtbRoGzpqdWmVY+vqZhiNAirEU1pcMDtZUOrM=",
		"pbkdf2_sha256$1000$parishsalt$not-base64!",
		"$2b$10$tooShort",
		"md5$abc",
	} {
		assert.False(t, auth.VerifyPassword("Passw0rd!", stored), stored)
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	for _, scheme := range []string{auth.SchemeBcrypt, auth.SchemePBKDF2} {
		hashed, err := auth.HashPassword("s3cret-pass", scheme)
		require.NoError(t, err, scheme)
		assert.True(t, auth.VerifyPassword("s3cret-pass", hashed), scheme)
		assert.False(t, auth.VerifyPassword("other", hashed), scheme)
	}
	hashed, err := auth.HashPassword("x", auth.SchemePBKDF2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hashed, "pbkdf2_sha256$600000$"))

	_, err = auth.HashPassword("x", "argon2")
	assert.Error(t, err)
}
