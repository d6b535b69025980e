package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ejuuz/wallet-service/internal/core/domain"
	"github.com/ejuuz/wallet-service/internal/core/ports"
	"github.com/ejuuz/wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	idempotencyTTL = 24 * time.Hour

	// Serialization conflicts and deadlocks are the only storage
	// failures worth retrying; business errors never are.
	maxStorageAttempts = 3
)

// retryableStorageErr reports whether err is a transient conflict
// (SQLSTATE 40001 serialization_failure or 40P01 deadlock_detected).
func retryableStorageErr(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// LedgerServiceImpl implements ports.LedgerService with pessimistic
// locking. Every mutation runs as one database transaction covering the
// balance write and the wallet-transaction record, so a reader never
// sees one without the other.
type LedgerServiceImpl struct {
	accountRepo ports.AccountRepository
	txRepo      ports.WalletTransactionRepository
	idempCache  ports.IdempotencyCache
	codec       ports.SnapshotCodec
	transactor  ports.DBTransactor
	notifier    ports.Notifier
	log         zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	txRepo ports.WalletTransactionRepository,
	idempCache ports.IdempotencyCache,
	codec ports.SnapshotCodec,
	transactor ports.DBTransactor,
	notifier ports.Notifier,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		idempCache:  idempCache,
		codec:       codec,
		transactor:  transactor,
		notifier:    notifier,
		log:         log,
	}
}

// Credit atomically increases an account balance and records an ADD
// wallet transaction.
func (s *LedgerServiceImpl) Credit(ctx context.Context, req ports.CreditRequest) (*ports.LedgerResult, error) {
	if req.Amount.Sign() <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	idempKey := buildIdempotencyKey("credit", req.Account, req.ClientRef)
	if cached := s.checkIdempotency(ctx, idempKey); cached != nil {
		return unmarshalCachedResult(cached)
	}

	var result *ports.LedgerResult
	err := s.withStorageRetry(ctx, func() error {
		var err error
		result, err = s.creditOnce(ctx, req.Account, req.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.rememberIdempotency(ctx, idempKey, result)
	s.notify(ctx, ports.Event{
		Kind:      ports.EventWalletCredit,
		AccountID: req.Account.ID,
		Amount:    req.Amount.String(),
		At:        time.Now().UTC(),
	})

	s.log.Info().
		Str("account", req.Account.String()).
		Str("amount", req.Amount.String()).
		Str("tx_id", result.Transaction.ID.String()).
		Msg("wallet credited")

	return result, nil
}

func (s *LedgerServiceImpl) creditOnce(ctx context.Context, ref domain.AccountRef, amount decimal.Decimal) (*ports.LedgerResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByRefForUpdate(ctx, dbTx, ref)
	if err != nil {
		return nil, wrapStorage("lock account", err)
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	balance, err := s.decryptBalance(account)
	if err != nil {
		return nil, err
	}

	newBalance := balance.Add(amount)
	if err := s.writeBalance(ctx, dbTx, ref, newBalance); err != nil {
		return nil, err
	}

	txn := &domain.WalletTransaction{
		ID:        uuid.New(),
		Type:      domain.WalletTransactionAdd,
		Amount:    amount,
		To:        &ref,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, wrapStorage("create wallet transaction", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, wrapStorage("commit tx", err)
	}

	return &ports.LedgerResult{NewBalance: newBalance, Transaction: txn}, nil
}

// Debit atomically decreases an account balance and records a WITHDRAW
// wallet transaction. The balance is never allowed below zero; a short
// account fails the whole operation untouched.
func (s *LedgerServiceImpl) Debit(ctx context.Context, req ports.DebitRequest) (*ports.LedgerResult, error) {
	if req.Amount.Sign() <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	idempKey := buildIdempotencyKey("debit", req.Account, req.ClientRef)
	if cached := s.checkIdempotency(ctx, idempKey); cached != nil {
		return unmarshalCachedResult(cached)
	}

	var result *ports.LedgerResult
	err := s.withStorageRetry(ctx, func() error {
		var err error
		result, err = s.debitOnce(ctx, req.Account, req.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.rememberIdempotency(ctx, idempKey, result)
	s.notify(ctx, ports.Event{
		Kind:      ports.EventWalletDebit,
		AccountID: req.Account.ID,
		Amount:    req.Amount.String(),
		At:        time.Now().UTC(),
	})

	s.log.Info().
		Str("account", req.Account.String()).
		Str("amount", req.Amount.String()).
		Str("tx_id", result.Transaction.ID.String()).
		Msg("wallet debited")

	return result, nil
}

func (s *LedgerServiceImpl) debitOnce(ctx context.Context, ref domain.AccountRef, amount decimal.Decimal) (*ports.LedgerResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByRefForUpdate(ctx, dbTx, ref)
	if err != nil {
		return nil, wrapStorage("lock account", err)
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	balance, err := s.decryptBalance(account)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, apperror.ErrInsufficientBalance()
	}

	newBalance := balance.Sub(amount)
	if err := s.writeBalance(ctx, dbTx, ref, newBalance); err != nil {
		return nil, err
	}

	txn := &domain.WalletTransaction{
		ID:        uuid.New(),
		Type:      domain.WalletTransactionWithdraw,
		Amount:    amount,
		From:      &ref,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, wrapStorage("create wallet transaction", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, wrapStorage("commit tx", err)
	}

	return &ports.LedgerResult{NewBalance: newBalance, Transaction: txn}, nil
}

// Transfer resolves the recipient from a payment identifier, then
// atomically debits the sender and credits the recipient, recording a
// single TRANSFER wallet transaction for both parties. The debit and
// credit either both apply or neither.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.WalletTransaction, error) {
	if req.Amount.Sign() <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	recipient, err := s.accountRepo.FindByPaymentID(ctx, req.ToPaymentID)
	if err != nil {
		return nil, wrapStorage("resolve recipient", err)
	}
	if recipient == nil {
		return nil, apperror.ErrRecipientNotFound()
	}
	to := recipient.Ref()
	if to.Equal(req.From) {
		return nil, apperror.ErrSameAccount()
	}

	idempKey := buildIdempotencyKey("transfer", req.From, req.ClientRef)
	if cached := s.checkIdempotency(ctx, idempKey); cached != nil {
		txn := &domain.WalletTransaction{}
		if err := json.Unmarshal(cached, txn); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("unmarshal cached transfer: %w", err))
		}
		return txn, nil
	}

	var txn *domain.WalletTransaction
	err = s.withStorageRetry(ctx, func() error {
		var err error
		txn, err = s.transferOnce(ctx, req.From, to, req.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	if req.ClientRef != "" {
		if data, err := json.Marshal(txn); err == nil {
			if err := s.idempCache.Set(ctx, idempKey, data, idempotencyTTL); err != nil {
				s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency entry")
			}
		}
	}

	s.notify(ctx, ports.Event{
		Kind:      ports.EventWalletTransfer,
		AccountID: to.ID,
		Amount:    req.Amount.String(),
		Message:   "transfer received",
		At:        time.Now().UTC(),
	})

	s.log.Info().
		Str("from", req.From.String()).
		Str("to", to.String()).
		Str("amount", req.Amount.String()).
		Str("tx_id", txn.ID.String()).
		Msg("wallet transfer completed")

	return txn, nil
}

func (s *LedgerServiceImpl) transferOnce(ctx context.Context, from, to domain.AccountRef, amount decimal.Decimal) (*domain.WalletTransaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock both accounts in a deterministic order so two opposing
	// transfers cannot deadlock on each other.
	locked := make(map[domain.AccountRef]*domain.Account, 2)
	for _, ref := range lockOrder(from, to) {
		account, err := s.accountRepo.GetByRefForUpdate(ctx, dbTx, ref)
		if err != nil {
			return nil, wrapStorage("lock account", err)
		}
		locked[ref] = account
	}

	sender := locked[from]
	if sender == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	receiver := locked[to]
	if receiver == nil {
		return nil, apperror.ErrRecipientNotFound()
	}

	senderBalance, err := s.decryptBalance(sender)
	if err != nil {
		return nil, err
	}
	if senderBalance.LessThan(amount) {
		return nil, apperror.ErrInsufficientBalance()
	}
	receiverBalance, err := s.decryptBalance(receiver)
	if err != nil {
		return nil, err
	}

	if err := s.writeBalance(ctx, dbTx, from, senderBalance.Sub(amount)); err != nil {
		return nil, err
	}
	if err := s.writeBalance(ctx, dbTx, to, receiverBalance.Add(amount)); err != nil {
		return nil, err
	}

	txn := &domain.WalletTransaction{
		ID:        uuid.New(),
		Type:      domain.WalletTransactionTransfer,
		Amount:    amount,
		From:      &from,
		To:        &to,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, wrapStorage("create wallet transaction", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, wrapStorage("commit tx", err)
	}

	return txn, nil
}

// ListTransactions returns every wallet transaction the account took
// part in, newest first, optionally filtered by movement type.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, ref domain.AccountRef, typeFilter *domain.WalletTransactionType) ([]domain.WalletTransaction, error) {
	txns, err := s.txRepo.ListByAccount(ctx, ref, typeFilter)
	if err != nil {
		return nil, wrapStorage("list transactions", err)
	}
	return txns, nil
}

// --- helpers ---

// decryptBalance recovers the plaintext decimal balance of an account.
// A snapshot that fails to decode is surfaced as-is; the ledger never
// substitutes a zero balance for an unreadable one.
func (s *LedgerServiceImpl) decryptBalance(account *domain.Account) (decimal.Decimal, error) {
	plaintext, err := s.codec.Decrypt(account.EncryptedBalance)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := decimal.NewFromString(plaintext)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("parse balance: %w", err))
	}
	return balance, nil
}

func (s *LedgerServiceImpl) writeBalance(ctx context.Context, dbTx pgx.Tx, ref domain.AccountRef, balance decimal.Decimal) error {
	encrypted, err := s.codec.Encrypt(balance.String())
	if err != nil {
		return err
	}
	if err := s.accountRepo.UpdateBalance(ctx, dbTx, ref, encrypted); err != nil {
		return wrapStorage("update balance", err)
	}
	return nil
}

// withStorageRetry runs op, retrying only transient storage conflicts.
func (s *LedgerServiceImpl) withStorageRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxStorageAttempts; attempt++ {
		err = op()
		if err == nil || !retryableStorageErr(err) {
			return err
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("transient storage conflict, retrying")
		select {
		case <-ctx.Done():
			return apperror.ErrStorage(ctx.Err())
		default:
		}
	}
	return err
}

func (s *LedgerServiceImpl) checkIdempotency(ctx context.Context, key string) []byte {
	if key == "" || s.idempCache == nil {
		return nil
	}
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency check failed, falling through")
		return nil
	}
	return cached
}

func (s *LedgerServiceImpl) rememberIdempotency(ctx context.Context, key string, result *ports.LedgerResult) {
	if key == "" || s.idempCache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.idempCache.Set(ctx, key, data, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency entry")
	}
}

// notify is fire-and-forget: a failed delivery never rolls back the
// completed ledger operation.
func (s *LedgerServiceImpl) notify(ctx context.Context, event ports.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("kind", event.Kind).Msg("notifier delivery failed")
	}
}

func buildIdempotencyKey(op string, ref domain.AccountRef, clientRef string) string {
	if clientRef == "" {
		return ""
	}
	return op + ":" + ref.String() + ":" + clientRef
}

func unmarshalCachedResult(data []byte) (*ports.LedgerResult, error) {
	result := &ports.LedgerResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached result: %w", err))
	}
	return result, nil
}

// lockOrder returns the two refs sorted by (type, id) so every
// transaction acquires row locks in the same global order.
func lockOrder(a, b domain.AccountRef) []domain.AccountRef {
	if a.Type < b.Type || (a.Type == b.Type && a.ID.String() < b.ID.String()) {
		return []domain.AccountRef{a, b}
	}
	return []domain.AccountRef{b, a}
}

func wrapStorage(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.ErrStorage(fmt.Errorf("%s: %w", op, err))
}
