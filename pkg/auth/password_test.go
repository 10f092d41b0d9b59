package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.NoError(t, ComparePassword(hash, "pw123456"))
	assert.Error(t, ComparePassword(hash, "pw1234567"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("pw1234"))
	assert.Error(t, ValidatePassword("pw"))
	assert.Error(t, ValidatePassword(strings.Repeat("a", MaxPasswordLen+1)))
	assert.NoError(t, ValidatePassword(strings.Repeat("a", MaxPasswordLen)))
}

func TestGenerateSessionToken(t *testing.T) {
	a, err := GenerateSessionToken()
	require.NoError(t, err)
	b, err := GenerateSessionToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	// 32 bytes base64url without padding.
	assert.Len(t, a, 43)
	assert.NotContains(t, a, "=")
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}
