package ports

import (
	"context"

	"github.com/ejuuz/wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking; nothing outside those blocks may write balances.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByRef(ctx context.Context, ref domain.AccountRef) (*domain.Account, error)
	GetByRefForUpdate(ctx context.Context, tx pgx.Tx, ref domain.AccountRef) (*domain.Account, error)
	// FindByPaymentID resolves a payment identifier to an account,
	// probing the Customer namespace before Merchant; first match wins.
	FindByPaymentID(ctx context.Context, paymentID string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, ref domain.AccountRef, encryptedBalance string) error
}

// WalletTransactionRepository is the append-only wallet ledger record store.
type WalletTransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.WalletTransaction) error
	// ListByAccount returns transactions where the account appears as
	// either party, newest first. typeFilter narrows by movement kind.
	ListByAccount(ctx context.Context, ref domain.AccountRef, typeFilter *domain.WalletTransactionType) ([]domain.WalletTransaction, error)
}

// OrderTransactionRepository persists order-payment records.
type OrderTransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.OrderTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderTransaction, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.OrderTransaction, error)
	// UpdateStatus moves a PENDING record to a terminal state. Amounts
	// and snapshots are frozen at creation and never updated.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderTransactionStatus) error
}

// OrderRepository persists per-merchant order rows created at checkout.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Order, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
