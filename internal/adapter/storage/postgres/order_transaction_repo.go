package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ejuuz/wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderTransactionRepo implements ports.OrderTransactionRepository.
// The per-merchant breakdown is stored as JSONB; snapshots inside it
// are already encrypted by the snapshot codec before they get here.
type OrderTransactionRepo struct {
	pool Pool
}

// NewOrderTransactionRepo creates a new OrderTransactionRepo.
func NewOrderTransactionRepo(pool Pool) *OrderTransactionRepo {
	return &OrderTransactionRepo{pool: pool}
}

const orderTxColumns = `id, customer_id, merchant_details, order_group_id, customer_wallet_snapshot, total_amount, status, transaction_type, created_at`

// Create inserts an order transaction within a database transaction.
func (r *OrderTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.OrderTransaction) error {
	details, err := json.Marshal(t.MerchantDetails)
	if err != nil {
		return fmt.Errorf("marshal merchant details: %w", err)
	}

	query := `INSERT INTO order_transactions (` + orderTxColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, query,
		t.ID, t.CustomerID, details, t.OrderGroupID, t.CustomerWalletSnapshot,
		t.TotalAmount, t.Status, t.TransactionType, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order transaction: %w", err)
	}
	return nil
}

// GetByID fetches an order transaction by UUID.
func (r *OrderTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderTransaction, error) {
	query := `SELECT ` + orderTxColumns + ` FROM order_transactions WHERE id = $1`

	t, err := scanOrderTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListByCustomer fetches a customer's order transactions, newest first.
func (r *OrderTransactionRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.OrderTransaction, error) {
	query := `SELECT ` + orderTxColumns + ` FROM order_transactions
		WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list order transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.OrderTransaction
	for rows.Next() {
		t, err := scanOrderTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order transaction rows: %w", err)
	}
	return txns, nil
}

// UpdateStatus moves a PENDING transaction to a terminal status.
func (r *OrderTransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderTransactionStatus) error {
	query := `UPDATE order_transactions SET status = $1 WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, status, id, domain.OrderTransactionPending)
	if err != nil {
		return fmt.Errorf("update order transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order transaction not pending: %s", id)
	}
	return nil
}

// scanOrderTransaction scans a single row into an OrderTransaction.
func scanOrderTransaction(row pgx.Row) (*domain.OrderTransaction, error) {
	t := &domain.OrderTransaction{}
	var details []byte
	var createdAt time.Time
	err := row.Scan(
		&t.ID, &t.CustomerID, &details, &t.OrderGroupID, &t.CustomerWalletSnapshot,
		&t.TotalAmount, &t.Status, &t.TransactionType, &createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan order transaction: %w", err)
	}
	t.CreatedAt = createdAt
	if err := json.Unmarshal(details, &t.MerchantDetails); err != nil {
		return nil, fmt.Errorf("unmarshal merchant details: %w", err)
	}
	return t, nil
}
