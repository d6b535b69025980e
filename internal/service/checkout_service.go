package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ejuuz/wallet-service/internal/core/domain"
	"github.com/ejuuz/wallet-service/internal/core/ports"
	"github.com/ejuuz/wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// merchantCharge is one merchant's aggregated share of a cart, in
// first-seen cart order.
type merchantCharge struct {
	MerchantID uuid.UUID
	Amount     decimal.Decimal
}

// CheckoutServiceImpl implements ports.CheckoutService. An order
// payment debits the customer once and credits every merchant in the
// cart inside a single database transaction; the per-party balance
// snapshots and the order rows commit with it or not at all.
type CheckoutServiceImpl struct {
	accountRepo ports.AccountRepository
	orderRepo   ports.OrderRepository
	orderTxRepo ports.OrderTransactionRepository
	codec       ports.SnapshotCodec
	transactor  ports.DBTransactor
	notifier    ports.Notifier
	log         zerolog.Logger
}

// NewCheckoutService creates a new CheckoutServiceImpl.
func NewCheckoutService(
	accountRepo ports.AccountRepository,
	orderRepo ports.OrderRepository,
	orderTxRepo ports.OrderTransactionRepository,
	codec ports.SnapshotCodec,
	transactor ports.DBTransactor,
	notifier ports.Notifier,
	log zerolog.Logger,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		accountRepo: accountRepo,
		orderRepo:   orderRepo,
		orderTxRepo: orderTxRepo,
		codec:       codec,
		transactor:  transactor,
		notifier:    notifier,
		log:         log,
	}
}

// PlaceOrder converts a cart into one customer debit plus one credit
// per merchant, all-or-nothing.
func (s *CheckoutServiceImpl) PlaceOrder(ctx context.Context, customerID uuid.UUID, items []domain.CartItem) (*ports.CheckoutResult, error) {
	charges, total := aggregateCart(items)
	if len(charges) == 0 || total.Sign() <= 0 {
		return nil, apperror.ErrEmptyOrder()
	}

	customerRef := domain.AccountRef{ID: customerID, Type: domain.AccountTypeCustomer}
	customer, err := s.accountRepo.GetByRef(ctx, customerRef)
	if err != nil {
		return nil, wrapStorage("load customer", err)
	}
	if customer == nil {
		return nil, apperror.ErrUnknownCustomer()
	}
	for _, charge := range charges {
		merchant, err := s.accountRepo.GetByRef(ctx, domain.AccountRef{ID: charge.MerchantID, Type: domain.AccountTypeMerchant})
		if err != nil {
			return nil, wrapStorage("load merchant", err)
		}
		if merchant == nil {
			return nil, apperror.ErrUnknownMerchant(charge.MerchantID.String())
		}
	}

	var result *ports.CheckoutResult
	err = s.withStorageRetry(ctx, func() error {
		var err error
		result, err = s.placeOrderOnce(ctx, customerRef, charges, total)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, ports.Event{
		Kind:      ports.EventOrderPayment,
		AccountID: customerID,
		Amount:    total.String(),
		Message:   fmt.Sprintf("order placed across %d merchant(s)", len(charges)),
		At:        time.Now().UTC(),
	})

	s.log.Info().
		Str("customer_id", customerID.String()).
		Str("total", total.String()).
		Int("merchants", len(charges)).
		Str("order_tx_id", result.Transaction.ID.String()).
		Msg("order payment completed")

	return result, nil
}

func (s *CheckoutServiceImpl) placeOrderOnce(ctx context.Context, customerRef domain.AccountRef, charges []merchantCharge, total decimal.Decimal) (*ports.CheckoutResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	refs := make([]domain.AccountRef, 0, len(charges)+1)
	refs = append(refs, customerRef)
	for _, charge := range charges {
		refs = append(refs, domain.AccountRef{ID: charge.MerchantID, Type: domain.AccountTypeMerchant})
	}
	sortRefs(refs)

	locked := make(map[domain.AccountRef]*domain.Account, len(refs))
	for _, ref := range refs {
		account, err := s.accountRepo.GetByRefForUpdate(ctx, dbTx, ref)
		if err != nil {
			return nil, wrapStorage("lock account", err)
		}
		if account == nil {
			if ref.Type == domain.AccountTypeCustomer {
				return nil, apperror.ErrUnknownCustomer()
			}
			return nil, apperror.ErrUnknownMerchant(ref.ID.String())
		}
		locked[ref] = account
	}

	customerBalance, err := s.decryptBalance(locked[customerRef])
	if err != nil {
		return nil, err
	}
	if customerBalance.LessThan(total) {
		return nil, apperror.ErrInsufficientBalance()
	}

	// Debit the customer and snapshot the post-debit balance.
	customerSnapshot, err := s.applyBalance(ctx, dbTx, customerRef, customerBalance.Sub(total))
	if err != nil {
		return nil, err
	}

	// Credit each merchant and capture a post-credit snapshot.
	details := make([]domain.MerchantDetail, 0, len(charges))
	for _, charge := range charges {
		ref := domain.AccountRef{ID: charge.MerchantID, Type: domain.AccountTypeMerchant}
		balance, err := s.decryptBalance(locked[ref])
		if err != nil {
			return nil, err
		}
		snapshot, err := s.applyBalance(ctx, dbTx, ref, balance.Add(charge.Amount))
		if err != nil {
			return nil, err
		}
		details = append(details, domain.MerchantDetail{
			MerchantID:             charge.MerchantID,
			Amount:                 charge.Amount,
			MerchantWalletSnapshot: snapshot,
		})
	}

	now := time.Now().UTC()
	groupID := uuid.New()
	orders := make([]domain.Order, 0, len(charges))
	for _, charge := range charges {
		order := domain.Order{
			ID:          uuid.New(),
			GroupID:     groupID,
			CustomerID:  customerRef.ID,
			MerchantID:  charge.MerchantID,
			TotalAmount: charge.Amount,
			Status:      domain.OrderStatusPlaced,
			CreatedAt:   now,
		}
		if err := s.orderRepo.Create(ctx, dbTx, &order); err != nil {
			return nil, wrapStorage("create order", err)
		}
		orders = append(orders, order)
	}

	orderTx := &domain.OrderTransaction{
		ID:                     uuid.New(),
		CustomerID:             customerRef.ID,
		MerchantDetails:        details,
		OrderGroupID:           &groupID,
		CustomerWalletSnapshot: customerSnapshot,
		TotalAmount:            total,
		Status:                 domain.OrderTransactionCompleted,
		TransactionType:        domain.OrderTransactionTypePayment,
		CreatedAt:              now,
	}
	if err := s.orderTxRepo.Create(ctx, dbTx, orderTx); err != nil {
		return nil, wrapStorage("create order transaction", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, wrapStorage("commit tx", err)
	}

	return &ports.CheckoutResult{Orders: orders, Transaction: orderTx}, nil
}

func (s *CheckoutServiceImpl) decryptBalance(account *domain.Account) (decimal.Decimal, error) {
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

// applyBalance encrypts and persists a new balance, returning the
// snapshot that went to storage.
func (s *CheckoutServiceImpl) applyBalance(ctx context.Context, dbTx pgx.Tx, ref domain.AccountRef, balance decimal.Decimal) (string, error) {
	encrypted, err := s.codec.Encrypt(balance.String())
	if err != nil {
		return "", err
	}
	if err := s.accountRepo.UpdateBalance(ctx, dbTx, ref, encrypted); err != nil {
		return "", wrapStorage("update balance", err)
	}
	return encrypted, nil
}

func (s *CheckoutServiceImpl) withStorageRetry(ctx context.Context, op func() error) error {
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

func (s *CheckoutServiceImpl) notify(ctx context.Context, event ports.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("kind", event.Kind).Msg("notifier delivery failed")
	}
}

// aggregateCart groups cart lines by merchant in first-seen order,
// dropping non-positive lines, and returns the grand total.
func aggregateCart(items []domain.CartItem) ([]merchantCharge, decimal.Decimal) {
	index := make(map[uuid.UUID]int)
	charges := make([]merchantCharge, 0, len(items))
	total := decimal.Zero

	for _, item := range items {
		subtotal := item.Subtotal()
		if item.Quantity <= 0 || subtotal.Sign() <= 0 {
			continue
		}
		if i, ok := index[item.MerchantID]; ok {
			charges[i].Amount = charges[i].Amount.Add(subtotal)
		} else {
			index[item.MerchantID] = len(charges)
			charges = append(charges, merchantCharge{MerchantID: item.MerchantID, Amount: subtotal})
		}
		total = total.Add(subtotal)
	}
	return charges, total
}

// sortRefs orders account refs by (type, id), the global lock order.
func sortRefs(refs []domain.AccountRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Type != refs[j].Type {
			return refs[i].Type < refs[j].Type
		}
		return refs[i].ID.String() < refs[j].ID.String()
	})
}
