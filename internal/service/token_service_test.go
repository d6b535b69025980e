package service

import (
	"testing"
	"time"

	"github.com/ejuuz/wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "wallet-service")

	ref := domain.AccountRef{ID: uuid.New(), Type: domain.AccountTypeCustomer}

	token, expiresAt, err := svc.Generate(ref, "0901234567")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.True(t, claims.Account.Equal(ref))
	assert.Equal(t, "0901234567", claims.PaymentID)
}

func TestJWTTokenService_Validate_WrongSecret(t *testing.T) {
	svc := NewJWTTokenService("secret-a", time.Hour, "wallet-service")
	other := NewJWTTokenService("secret-b", time.Hour, "wallet-service")

	ref := domain.AccountRef{ID: uuid.New(), Type: domain.AccountTypeMerchant}
	token, _, err := svc.Generate(ref, "merchant-7")
	require.NoError(t, err)

	claims, err := other.Validate(token)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestJWTTokenService_Validate_Expired(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", -time.Minute, "wallet-service")

	ref := domain.AccountRef{ID: uuid.New(), Type: domain.AccountTypeCustomer}
	token, _, err := svc.Generate(ref, "0901234567")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestJWTTokenService_Validate_Garbage(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "wallet-service")

	claims, err := svc.Validate("not.a.token")
	assert.Nil(t, claims)
	assert.Error(t, err)
}
