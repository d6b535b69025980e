package ports

import (
	"context"
	"time"

	"github.com/ejuuz/wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

// SnapshotCodec produces opaque keyed encodings of wallet balances for
// tamper-evident transaction snapshots. decrypt(encrypt(x)) == x.
type SnapshotCodec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(opaque string) (string, error)
}

// TokenService handles JWT session token operations.
type TokenService interface {
	Generate(ref domain.AccountRef, paymentID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Account   domain.AccountRef
	PaymentID string
}

// OTPStore holds hashed verification codes with a TTL.
type OTPStore interface {
	Put(ctx context.Context, accountID string, hashedCode string, ttl time.Duration) error
	Get(ctx context.Context, accountID string) (string, error) // empty if absent/expired
	Delete(ctx context.Context, accountID string) error
}

// IdempotencyCache short-circuits replayed money-movement requests.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Event is a fire-and-forget notification about a completed operation.
type Event struct {
	Kind      string    `json:"kind"`
	AccountID uuid.UUID `json:"account_id"`
	Amount    string    `json:"amount,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Event kinds emitted by the services.
const (
	EventWalletCredit   = "wallet.credit"
	EventWalletDebit    = "wallet.debit"
	EventWalletTransfer = "wallet.transfer"
	EventOrderPayment   = "order.payment"
	EventOTPIssued      = "auth.otp"
)

// Notifier delivers events to downstream systems. Delivery failure
// must never roll back a completed ledger operation.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// --- Service Ports (Business Logic) ---

// LedgerResult is the outcome of a single-account money movement.
type LedgerResult struct {
	NewBalance  decimal.Decimal           `json:"new_balance"`
	Transaction *domain.WalletTransaction `json:"transaction"`
}

// CreditRequest adds money to an account.
type CreditRequest struct {
	Account   domain.AccountRef
	Amount    decimal.Decimal
	ClientRef string // optional idempotency reference
}

// DebitRequest withdraws money from an account.
type DebitRequest struct {
	Account   domain.AccountRef
	Amount    decimal.Decimal
	ClientRef string
}

// TransferRequest moves money to the account resolved from ToPaymentID.
type TransferRequest struct {
	From        domain.AccountRef
	ToPaymentID string
	Amount      decimal.Decimal
	ClientRef   string
}

// LedgerService is the sole authority for mutating account balances.
type LedgerService interface {
	Credit(ctx context.Context, req CreditRequest) (*LedgerResult, error)
	Debit(ctx context.Context, req DebitRequest) (*LedgerResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*domain.WalletTransaction, error)
	ListTransactions(ctx context.Context, ref domain.AccountRef, typeFilter *domain.WalletTransactionType) ([]domain.WalletTransaction, error)
}

// CheckoutResult is the outcome of a successful order placement.
type CheckoutResult struct {
	Orders      []domain.Order           `json:"orders"`
	Transaction *domain.OrderTransaction `json:"transaction"`
}

// CheckoutService converts a cart into one customer debit plus one or
// more merchant credits as a single unit of work.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, customerID uuid.UUID, items []domain.CartItem) (*CheckoutResult, error)
}

// AuthService drives the OTP login flow. Code delivery goes through the
// Notifier; this service never talks to an SMS provider directly.
type AuthService interface {
	RequestOTP(ctx context.Context, paymentID string) error
	VerifyOTP(ctx context.Context, paymentID string, code string) (string, time.Time, error) // token, expiry
}
