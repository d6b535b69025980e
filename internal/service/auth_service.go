package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ejuuz/wallet-service/internal/core/ports"
	"github.com/ejuuz/wallet-service/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService. Login is a two-step
// OTP flow keyed on the payment identifier: a hashed one-time code is
// held in the OTP store until verified, then exchanged for a JWT.
type AuthServiceImpl struct {
	accountRepo ports.AccountRepository
	otpStore    ports.OTPStore
	hasher      *Argon2Hasher
	tokens      ports.TokenService
	notifier    ports.Notifier
	otpTTL      time.Duration
	otpDigits   int
	log         zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	accountRepo ports.AccountRepository,
	otpStore ports.OTPStore,
	hasher *Argon2Hasher,
	tokens ports.TokenService,
	notifier ports.Notifier,
	otpTTL time.Duration,
	otpDigits int,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		otpStore:    otpStore,
		hasher:      hasher,
		tokens:      tokens,
		notifier:    notifier,
		otpTTL:      otpTTL,
		otpDigits:   otpDigits,
		log:         log,
	}
}

// RequestOTP issues a fresh verification code for the account behind
// the payment identifier. Only the Argon2id hash is stored; the clear
// code leaves the service exclusively through the notifier.
func (s *AuthServiceImpl) RequestOTP(ctx context.Context, paymentID string) error {
	account, err := s.accountRepo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return wrapStorage("resolve payment id", err)
	}
	if account == nil {
		return apperror.ErrRecipientNotFound()
	}

	code, err := generateOTP(s.otpDigits)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("generating code: %w", err))
	}
	hashed, err := s.hasher.Hash(code)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hashing code: %w", err))
	}

	if err := s.otpStore.Put(ctx, account.ID.String(), hashed, s.otpTTL); err != nil {
		return apperror.ErrStorage(fmt.Errorf("storing code: %w", err))
	}

	if s.notifier != nil {
		event := ports.Event{
			Kind:      ports.EventOTPIssued,
			AccountID: account.ID,
			Message:   fmt.Sprintf("Your verification code is %s", code),
			At:        time.Now().UTC(),
		}
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("account_id", account.ID.String()).Msg("OTP delivery failed")
		}
	}

	s.log.Info().Str("account_id", account.ID.String()).Msg("verification code issued")
	return nil
}

// VerifyOTP checks a submitted code and, on success, consumes it and
// returns a signed session token. Unknown payment identifiers and bad
// codes are indistinguishable to the caller.
func (s *AuthServiceImpl) VerifyOTP(ctx context.Context, paymentID string, code string) (string, time.Time, error) {
	account, err := s.accountRepo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return "", time.Time{}, wrapStorage("resolve payment id", err)
	}
	if account == nil {
		return "", time.Time{}, apperror.ErrInvalidOTP()
	}

	hashed, err := s.otpStore.Get(ctx, account.ID.String())
	if err != nil {
		return "", time.Time{}, apperror.ErrStorage(fmt.Errorf("loading code: %w", err))
	}
	if hashed == "" {
		return "", time.Time{}, apperror.ErrInvalidOTP()
	}

	ok, err := s.hasher.Verify(code, hashed)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verifying code: %w", err))
	}
	if !ok {
		return "", time.Time{}, apperror.ErrInvalidOTP()
	}

	// A code is single-use regardless of remaining TTL.
	if err := s.otpStore.Delete(ctx, account.ID.String()); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID.String()).Msg("failed to consume verification code")
	}

	token, expiresAt, err := s.tokens.Generate(account.Ref(), account.PaymentID)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("issuing token: %w", err))
	}

	s.log.Info().Str("account_id", account.ID.String()).Msg("login verified")
	return token, expiresAt, nil
}

// generateOTP returns a uniformly random numeric code of the given
// number of digits, zero-padded.
func generateOTP(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("digit count must be positive, got %d", digits)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
