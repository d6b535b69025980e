package service

import (
	"context"
	"testing"
	"time"

	"github.com/ejuuz/wallet-service/internal/core/domain"
	"github.com/ejuuz/wallet-service/internal/core/ports"
	"github.com/ejuuz/wallet-service/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc         *AuthServiceImpl
	accountRepo *mocks.MockAccountRepository
	otpStore    *mocks.MockOTPStore
	tokens      *mocks.MockTokenService
	notifier    *mocks.MockNotifier
	hasher      *Argon2Hasher
	ctrl        *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		otpStore:    mocks.NewMockOTPStore(ctrl),
		tokens:      mocks.NewMockTokenService(ctrl),
		notifier:    mocks.NewMockNotifier(ctrl),
		hasher:      NewArgon2Hasher(),
		ctrl:        ctrl,
	}
	d.svc = NewAuthService(
		d.accountRepo, d.otpStore, d.hasher, d.tokens,
		d.notifier, 5*time.Minute, 6, zerolog.Nop(),
	)
	return d
}

func TestAuthService_RequestOTP_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	account := &domain.Account{
		ID:        uuid.New(),
		Type:      domain.AccountTypeCustomer,
		PaymentID: "0901234567",
	}

	d.accountRepo.EXPECT().FindByPaymentID(ctx, "0901234567").Return(account, nil)
	d.otpStore.EXPECT().Put(ctx, account.ID.String(), gomock.Any(), 5*time.Minute).DoAndReturn(
		func(_ context.Context, _ string, hashedCode string, _ time.Duration) error {
			// The store must only ever see the hash.
			assert.Contains(t, hashedCode, "$argon2id$")
			return nil
		})
	d.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event ports.Event) error {
			assert.Equal(t, ports.EventOTPIssued, event.Kind)
			assert.Equal(t, account.ID, event.AccountID)
			assert.Contains(t, event.Message, "verification code")
			return nil
		})

	err := d.svc.RequestOTP(ctx, "0901234567")
	require.NoError(t, err)
}

func TestAuthService_RequestOTP_UnknownPaymentID(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.accountRepo.EXPECT().FindByPaymentID(ctx, "ghost").Return(nil, nil)

	err := d.svc.RequestOTP(ctx, "ghost")
	assertAppError(t, err, "WAL_004")
}

func TestAuthService_RequestOTP_DeliveryFailureIgnored(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	account := &domain.Account{ID: uuid.New(), Type: domain.AccountTypeCustomer, PaymentID: "0901234567"}

	d.accountRepo.EXPECT().FindByPaymentID(ctx, "0901234567").Return(account, nil)
	d.otpStore.EXPECT().Put(ctx, account.ID.String(), gomock.Any(), 5*time.Minute).Return(nil)
	d.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(assert.AnError)

	// Delivery problems are logged, not surfaced.
	err := d.svc.RequestOTP(ctx, "0901234567")
	require.NoError(t, err)
}

func TestAuthService_VerifyOTP_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	account := &domain.Account{
		ID:        uuid.New(),
		Type:      domain.AccountTypeCustomer,
		PaymentID: "0901234567",
	}
	hashed, err := d.hasher.Hash("482913")
	require.NoError(t, err)
	expiry := time.Now().Add(time.Hour)

	d.accountRepo.EXPECT().FindByPaymentID(ctx, "0901234567").Return(account, nil)
	d.otpStore.EXPECT().Get(ctx, account.ID.String()).Return(hashed, nil)
	d.otpStore.EXPECT().Delete(ctx, account.ID.String()).Return(nil)
	d.tokens.EXPECT().Generate(account.Ref(), "0901234567").Return("signed.jwt", expiry, nil)

	token, expiresAt, err := d.svc.VerifyOTP(ctx, "0901234567", "482913")
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt", token)
	assert.Equal(t, expiry, expiresAt)
}

func TestAuthService_VerifyOTP_WrongCode(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	account := &domain.Account{ID: uuid.New(), Type: domain.AccountTypeCustomer, PaymentID: "0901234567"}
	hashed, err := d.hasher.Hash("482913")
	require.NoError(t, err)

	d.accountRepo.EXPECT().FindByPaymentID(ctx, "0901234567").Return(account, nil)
	d.otpStore.EXPECT().Get(ctx, account.ID.String()).Return(hashed, nil)
	// The stored code survives a failed attempt.

	token, _, err := d.svc.VerifyOTP(ctx, "0901234567", "000000")
	assert.Empty(t, token)
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_VerifyOTP_ExpiredOrMissingCode(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	account := &domain.Account{ID: uuid.New(), Type: domain.AccountTypeCustomer, PaymentID: "0901234567"}

	d.accountRepo.EXPECT().FindByPaymentID(ctx, "0901234567").Return(account, nil)
	d.otpStore.EXPECT().Get(ctx, account.ID.String()).Return("", nil)

	token, _, err := d.svc.VerifyOTP(ctx, "0901234567", "482913")
	assert.Empty(t, token)
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_VerifyOTP_UnknownPaymentID(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.accountRepo.EXPECT().FindByPaymentID(ctx, "ghost").Return(nil, nil)

	// Unknown identifiers read the same as a wrong code.
	token, _, err := d.svc.VerifyOTP(ctx, "ghost", "482913")
	assert.Empty(t, token)
	assertAppError(t, err, "AUTH_001")
}
