package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out the pgx transactions that scope every balance
// mutation. Services hold the tx for one unit of work: locked reads,
// balance writes and record inserts all ride on it.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor on top of the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction with default isolation. Contention between
// concurrent units of work is handled by the FOR UPDATE row locks
// taken inside, not by a stricter isolation level.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
