package integration

import (
	"context"
	"fmt"
	"sync"

	"github.com/ejuuz/wallet-service/internal/core/domain"
	"github.com/ejuuz/wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account // keyed by ref.String()
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.Ref().String()] = a
	return nil
}

func (r *inMemoryAccountRepo) GetByRef(ctx context.Context, ref domain.AccountRef) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[ref.String()]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *inMemoryAccountRepo) GetByRefForUpdate(ctx context.Context, tx pgx.Tx, ref domain.AccountRef) (*domain.Account, error) {
	return r.GetByRef(ctx, ref)
}

func (r *inMemoryAccountRepo) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, accountType := range []domain.AccountType{domain.AccountTypeCustomer, domain.AccountTypeMerchant} {
		for _, a := range r.accounts {
			if a.PaymentID == paymentID && a.Type == accountType {
				copied := *a
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (r *inMemoryAccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, ref domain.AccountRef, encryptedBalance string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[ref.String()]
	if !ok {
		return fmt.Errorf("account not found: %s", ref)
	}
	a.EncryptedBalance = encryptedBalance
	return nil
}

// --- In-Memory Wallet Transaction Repo ---

type inMemoryWalletTxRepo struct {
	mu           sync.RWMutex
	transactions []domain.WalletTransaction
}

func newInMemoryWalletTxRepo() *inMemoryWalletTxRepo {
	return &inMemoryWalletTxRepo{}
}

func (r *inMemoryWalletTxRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.WalletTransaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, *t)
	return nil
}

func (r *inMemoryWalletTxRepo) ListByAccount(ctx context.Context, ref domain.AccountRef, typeFilter *domain.WalletTransactionType) ([]domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WalletTransaction
	// Insertion order approximates creation time; newest first.
	for i := len(r.transactions) - 1; i >= 0; i-- {
		t := r.transactions[i]
		party := (t.From != nil && t.From.Equal(ref)) || (t.To != nil && t.To.Equal(ref))
		if !party {
			continue
		}
		if typeFilter != nil && t.Type != *typeFilter {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu     sync.RWMutex
	orders []domain.Order
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, *o)
	return nil
}

func (r *inMemoryOrderRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Order
	for _, o := range r.orders {
		if o.GroupID == groupID {
			result = append(result, o)
		}
	}
	return result, nil
}

// --- In-Memory Order Transaction Repo ---

type inMemoryOrderTxRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.OrderTransaction
}

func newInMemoryOrderTxRepo() *inMemoryOrderTxRepo {
	return &inMemoryOrderTxRepo{transactions: make(map[uuid.UUID]*domain.OrderTransaction)}
}

func (r *inMemoryOrderTxRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.OrderTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *t
	r.transactions[t.ID] = &copied
	return nil
}

func (r *inMemoryOrderTxRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (r *inMemoryOrderTxRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.OrderTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.OrderTransaction
	for _, t := range r.transactions {
		if t.CustomerID == customerID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (r *inMemoryOrderTxRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderTransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return fmt.Errorf("order transaction not found: %s", id)
	}
	if t.Status != domain.OrderTransactionPending {
		return fmt.Errorf("order transaction not pending: %s", id)
	}
	t.Status = status
	return nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes units of work with a process-wide
// mutex, standing in for row-level locks. Debits that race therefore
// see each other's writes, which keeps the concurrency tests exact.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	tx := &memTx{}
	tx.release = func() { t.mu.Unlock() }
	return tx, nil
}

// memTx is a pgx.Tx that only tracks the transactor's lock. Commit and
// the deferred Rollback both fire; the lock is released exactly once.
type memTx struct {
	once    sync.Once
	release func()
}

func (t *memTx) done() {
	t.once.Do(t.release)
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// --- Capturing Notifier ---

type captureNotifier struct {
	mu     sync.Mutex
	events []ports.Event
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{}
}

func (n *captureNotifier) Notify(ctx context.Context, event ports.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *captureNotifier) Events() []ports.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ports.Event, len(n.events))
	copy(out, n.events)
	return out
}

// LastByKind returns the newest captured event of the given kind.
func (n *captureNotifier) LastByKind(kind string) (ports.Event, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.events) - 1; i >= 0; i-- {
		if n.events[i].Kind == kind {
			return n.events[i], true
		}
	}
	return ports.Event{}, false
}
