package hasher

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	hash, err := HashPassword([]byte("open sesame"))
	require.NoError(t, err)

	assert.True(t, PasswordCorrect("open sesame", hash))
	assert.False(t, PasswordCorrect("open", hash))
	assert.False(t, PasswordCorrect("open sesame", "not-a-hash"))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(32)
	require.NoError(t, err)
	b, err := GenerateToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.URLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword(nil)
	assert.ErrorIs(t, err, ErrEmptyPassword)
	assert.False(t, PasswordCorrect("", ""))
}
