package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	h := NewArgon2Hasher()

	encoded, err := h.Hash("482913")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	ok, err := h.Verify("482913", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("000000", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Hasher_SaltedHashesDiffer(t *testing.T) {
	h := NewArgon2Hasher()

	a, err := h.Hash("482913")
	require.NoError(t, err)
	b, err := h.Hash("482913")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestArgon2Hasher_Verify_MalformedHash(t *testing.T) {
	h := NewArgon2Hasher()

	cases := []string{
		"",
		"plainhash",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
	}
	for _, c := range cases {
		ok, err := h.Verify("482913", c)
		assert.False(t, ok)
		assert.Error(t, err)
	}
}

func TestGenerateOTP(t *testing.T) {
	code, err := generateOTP(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}

	_, err = generateOTP(0)
	assert.Error(t, err)
}
