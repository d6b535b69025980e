package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// OTPStore implements ports.OTPStore using Redis with per-key TTL.
// Only the argon2 hash of a code is ever stored.
type OTPStore struct {
	client *goredis.Client
	prefix string
}

// NewOTPStore creates a new Redis-backed OTP store.
func NewOTPStore(client *goredis.Client) *OTPStore {
	return &OTPStore{
		client: client,
		prefix: "otp:",
	}
}

// Put stores a hashed code, replacing any outstanding one for the account.
func (s *OTPStore) Put(ctx context.Context, accountID string, hashedCode string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+accountID, hashedCode, ttl).Err(); err != nil {
		return fmt.Errorf("redis otp put: %w", err)
	}
	return nil
}

// Get retrieves the hashed code for an account.
// Returns "" if none is outstanding (absent or expired).
func (s *OTPStore) Get(ctx context.Context, accountID string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+accountID).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis otp get: %w", err)
	}
	return val, nil
}

// Delete removes the outstanding code after successful verification.
func (s *OTPStore) Delete(ctx context.Context, accountID string) error {
	if err := s.client.Del(ctx, s.prefix+accountID).Err(); err != nil {
		return fmt.Errorf("redis otp delete: %w", err)
	}
	return nil
}
