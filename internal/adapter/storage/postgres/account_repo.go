package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ejuuz/wallet-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, account_type, payment_id, display_name, encrypted_balance, created_at, updated_at`

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, account_type, payment_id, display_name, encrypted_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Type, a.PaymentID, a.DisplayName, a.EncryptedBalance,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByRef fetches an account by (id, type) without locking.
func (r *AccountRepo) GetByRef(ctx context.Context, ref domain.AccountRef) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND account_type = $2`

	return scanAccount(r.pool.QueryRow(ctx, query, ref.ID, ref.Type))
}

// GetByRefForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByRefForUpdate(ctx context.Context, tx pgx.Tx, ref domain.AccountRef) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND account_type = $2 FOR UPDATE`

	return scanAccount(tx.QueryRow(ctx, query, ref.ID, ref.Type))
}

// FindByPaymentID resolves a payment identifier to an account, probing
// the Customer namespace before Merchant. First match wins.
func (r *AccountRepo) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE payment_id = $1 AND account_type = $2`

	for _, accountType := range []domain.AccountType{domain.AccountTypeCustomer, domain.AccountTypeMerchant} {
		a, err := scanAccount(r.pool.QueryRow(ctx, query, paymentID, accountType))
		if err != nil {
			return nil, err
		}
		if a != nil {
			return a, nil
		}
	}
	return nil, nil
}

// UpdateBalance updates an account's encrypted balance within a transaction.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, ref domain.AccountRef, encryptedBalance string) error {
	query := `UPDATE accounts SET encrypted_balance = $1, updated_at = NOW() WHERE id = $2 AND account_type = $3`

	tag, err := tx.Exec(ctx, query, encryptedBalance, ref.ID, ref.Type)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", ref)
	}
	return nil
}

// scanAccount scans a single row into an Account.
func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.Type, &a.PaymentID, &a.DisplayName, &a.EncryptedBalance,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
