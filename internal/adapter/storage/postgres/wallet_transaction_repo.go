package postgres

import (
	"context"
	"fmt"

	"github.com/ejuuz/wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletTransactionRepo implements ports.WalletTransactionRepository.
// Records are append-only: there is no update or delete path.
type WalletTransactionRepo struct {
	pool Pool
}

// NewWalletTransactionRepo creates a new WalletTransactionRepo.
func NewWalletTransactionRepo(pool Pool) *WalletTransactionRepo {
	return &WalletTransactionRepo{pool: pool}
}

// Create inserts a wallet transaction within a database transaction,
// so the record becomes visible atomically with its balance mutation.
func (r *WalletTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.WalletTransaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid wallet transaction: %w", err)
	}

	var fromID, toID *uuid.UUID
	var fromType, toType *domain.AccountType
	if t.From != nil {
		fromID, fromType = &t.From.ID, &t.From.Type
	}
	if t.To != nil {
		toID, toType = &t.To.ID, &t.To.Type
	}

	query := `INSERT INTO wallet_transactions (id, transaction_type, amount, from_id, from_type, to_id, to_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.Type, t.Amount, fromID, fromType, toID, toType, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

// ListByAccount fetches transactions where the account appears as
// either party, newest first, optionally narrowed by type.
func (r *WalletTransactionRepo) ListByAccount(ctx context.Context, ref domain.AccountRef, typeFilter *domain.WalletTransactionType) ([]domain.WalletTransaction, error) {
	query := `SELECT id, transaction_type, amount, from_id, from_type, to_id, to_type, created_at
		FROM wallet_transactions
		WHERE ((from_id = $1 AND from_type = $2) OR (to_id = $1 AND to_type = $2))`
	args := []any{ref.ID, ref.Type}

	if typeFilter != nil {
		query += ` AND transaction_type = $3`
		args = append(args, *typeFilter)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.WalletTransaction
	for rows.Next() {
		t := domain.WalletTransaction{}
		var fromID, toID *uuid.UUID
		var fromType, toType *domain.AccountType
		err := rows.Scan(&t.ID, &t.Type, &t.Amount, &fromID, &fromType, &toID, &toType, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan wallet transaction row: %w", err)
		}
		if fromID != nil && fromType != nil {
			t.From = &domain.AccountRef{ID: *fromID, Type: *fromType}
		}
		if toID != nil && toType != nil {
			t.To = &domain.AccountRef{ID: *toID, Type: *toType}
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet transaction rows: %w", err)
	}
	return txns, nil
}
