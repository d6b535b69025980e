package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/ejuuz/wallet-service/pkg/apperror"
)

// SnapshotService implements ports.SnapshotCodec using AES-256-GCM.
// Output format: hex(salt) + ":" + hex(ciphertext), where the salt is
// the per-call GCM nonce. GCM authenticates the ciphertext, so a
// tampered snapshot fails to decrypt instead of decoding to garbage.
type SnapshotService struct {
	key []byte // 32-byte key for AES-256
}

// NewSnapshotService creates a new snapshot codec.
// hexKey must be a 64-character hex string (32 bytes decoded).
func NewSnapshotService(hexKey string) (*SnapshotService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, apperror.ErrCryptoConfig(fmt.Errorf("decoding snapshot key: %w", err))
	}
	if len(key) != 32 {
		return nil, apperror.ErrCryptoConfig(fmt.Errorf("snapshot key must be 32 bytes, got %d", len(key)))
	}
	return &SnapshotService{key: key}, nil
}

// Encrypt encrypts plaintext, returning "salt:ciphertext" in hex.
func (s *SnapshotService) Encrypt(plaintext string) (string, error) {
	aesGCM, err := s.newGCM()
	if err != nil {
		return "", err
	}

	salt := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", apperror.ErrCryptoConfig(fmt.Errorf("generating salt: %w", err))
	}

	ciphertext := aesGCM.Seal(nil, salt, []byte(plaintext), nil)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt recovers the plaintext from a "salt:ciphertext" encoding.
func (s *SnapshotService) Decrypt(opaque string) (string, error) {
	saltHex, ciphertextHex, ok := strings.Cut(opaque, ":")
	if !ok {
		return "", apperror.ErrDecode(fmt.Errorf("missing salt separator"))
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", apperror.ErrDecode(fmt.Errorf("decoding salt: %w", err))
	}
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", apperror.ErrDecode(fmt.Errorf("decoding ciphertext: %w", err))
	}

	aesGCM, err := s.newGCM()
	if err != nil {
		return "", err
	}
	if len(salt) != aesGCM.NonceSize() {
		return "", apperror.ErrDecode(fmt.Errorf("salt must be %d bytes, got %d", aesGCM.NonceSize(), len(salt)))
	}

	plaintext, err := aesGCM.Open(nil, salt, ciphertext, nil)
	if err != nil {
		return "", apperror.ErrDecode(fmt.Errorf("opening ciphertext: %w", err))
	}
	return string(plaintext), nil
}

func (s *SnapshotService) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, apperror.ErrCryptoConfig(fmt.Errorf("creating cipher: %w", err))
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperror.ErrCryptoConfig(fmt.Errorf("creating GCM: %w", err))
	}
	return aesGCM, nil
}
