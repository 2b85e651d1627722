package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := HashCredential("segredo-forte")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	assert.NoError(t, VerifyCredential(encoded, "segredo-forte"))
	assert.ErrorIs(t, VerifyCredential(encoded, "errado"), ErrMismatch)
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, err := HashCredential("mesma-senha")
	require.NoError(t, err)
	b, err := HashCredential("mesma-senha")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerify_MalformedHash(t *testing.T) {
	assert.ErrorIs(t, VerifyCredential("plaintext", "x"), ErrBadHashFormat)
	assert.ErrorIs(t, VerifyCredential("$bcrypt$x$y$z$w", "x"), ErrBadHashFormat)
	assert.ErrorIs(t, VerifyCredential("", "x"), ErrBadHashFormat)
}
