package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$04$"))

	assert.True(t, h.Verify(hash, "secret1"))
	assert.False(t, h.Verify(hash, "secret2"))
	assert.False(t, h.Verify("not-a-hash", "secret1"))
}

func TestHashIsSalted(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)
	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashRejectsLongInput(t *testing.T) {
	_, err := NewBcrypt(bcrypt.MinCost).Hash(strings.Repeat("x", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNewBcryptClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(1).Cost)
	assert.Equal(t, 12, NewBcrypt(12).Cost)
}

func TestVerifyRejectsLongInputWithMatchingPrefix(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)
	pw := strings.Repeat("a", MaxPasswordBytes)
	hash, err := h.Hash(pw)
	require.NoError(t, err)

	assert.True(t, h.Verify(hash, pw))
	assert.False(t, h.Verify(hash, pw+"suffix"))
}
