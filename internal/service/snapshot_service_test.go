package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/ejuuz/wallet-service/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Valid 32-byte key in hex (64 chars)
const testSnapshotKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	return appErr.Code
}

func TestSnapshotService_NewInvalidKey(t *testing.T) {
	_, err := NewSnapshotService("shortkey")
	require.Error(t, err)
	assert.Equal(t, "SYS_002", appErrCode(t, err))

	_, err = NewSnapshotService("zz" + testSnapshotKey[2:])
	require.Error(t, err)
	assert.Equal(t, "SYS_002", appErrCode(t, err))
}

func TestSnapshotService_RoundTrip(t *testing.T) {
	svc, err := NewSnapshotService(testSnapshotKey)
	require.NoError(t, err)

	for _, plaintext := range []string{"150.00", "0", "-1.50", "", "balance with spaces"} {
		opaque, err := svc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, opaque)

		decrypted, err := svc.Decrypt(opaque)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestSnapshotService_SaltEmbedded(t *testing.T) {
	svc, err := NewSnapshotService(testSnapshotKey)
	require.NoError(t, err)

	opaque, err := svc.Encrypt("100.00")
	require.NoError(t, err)

	parts := strings.SplitN(opaque, ":", 2)
	require.Len(t, parts, 2, "output should be salt:ciphertext")
	assert.Len(t, parts[0], 24, "12-byte GCM nonce in hex")
}

func TestSnapshotService_DifferentSalts(t *testing.T) {
	svc, err := NewSnapshotService(testSnapshotKey)
	require.NoError(t, err)

	c1, err := svc.Encrypt("75.00")
	require.NoError(t, err)
	c2, err := svc.Encrypt("75.00")
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2, "same plaintext should produce different output due to random salt")

	d1, _ := svc.Decrypt(c1)
	d2, _ := svc.Decrypt(c2)
	assert.Equal(t, d1, d2)
}

func TestSnapshotService_TamperedCiphertext(t *testing.T) {
	svc, err := NewSnapshotService(testSnapshotKey)
	require.NoError(t, err)

	opaque, err := svc.Encrypt("secret")
	require.NoError(t, err)

	tampered := opaque[:len(opaque)-2] + "ff"
	_, err = svc.Decrypt(tampered)
	require.Error(t, err)
	assert.Equal(t, "SYS_003", appErrCode(t, err))
}

func TestSnapshotService_WrongKey(t *testing.T) {
	svc1, _ := NewSnapshotService(testSnapshotKey)
	otherKey := "abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789"
	svc2, _ := NewSnapshotService(otherKey)

	opaque, err := svc1.Encrypt("balance_100")
	require.NoError(t, err)

	_, err = svc2.Decrypt(opaque)
	assert.Error(t, err)
}

func TestSnapshotService_Malformed(t *testing.T) {
	svc, _ := NewSnapshotService(testSnapshotKey)

	for _, bad := range []string{
		"no-separator",
		"nothex:abcdef",
		"abcdef:nothex",
		"abcd:abcdef", // salt too short
		"",
	} {
		_, err := svc.Decrypt(bad)
		require.Error(t, err, "input %q", bad)
		assert.Equal(t, "SYS_003", appErrCode(t, err))
	}
}
