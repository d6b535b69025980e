package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ejuuz/wallet-service/internal/core/domain"
	"github.com/ejuuz/wallet-service/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type checkoutTestDeps struct {
	svc         *CheckoutServiceImpl
	accountRepo *mocks.MockAccountRepository
	orderRepo   *mocks.MockOrderRepository
	orderTxRepo *mocks.MockOrderTransactionRepository
	codec       *mocks.MockSnapshotCodec
	transactor  *mocks.MockDBTransactor
	notifier    *mocks.MockNotifier
	ctrl        *gomock.Controller
}

func setupCheckoutService(t *testing.T) *checkoutTestDeps {
	ctrl := gomock.NewController(t)
	d := &checkoutTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		orderRepo:   mocks.NewMockOrderRepository(ctrl),
		orderTxRepo: mocks.NewMockOrderTransactionRepository(ctrl),
		codec:       mocks.NewMockSnapshotCodec(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		notifier:    mocks.NewMockNotifier(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewCheckoutService(
		d.accountRepo, d.orderRepo, d.orderTxRepo,
		d.codec, d.transactor, d.notifier, zerolog.Nop(),
	)
	return d
}

func merchantAccount(id uuid.UUID, encBalance string) *domain.Account {
	return &domain.Account{ID: id, Type: domain.AccountTypeMerchant, EncryptedBalance: encBalance}
}

func TestCheckoutService_PlaceOrder_SplitsAcrossMerchants(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	merchantA := uuid.New()
	merchantB := uuid.New()
	tx := &mockTx{}

	items := []domain.CartItem{
		{MerchantID: merchantA, ProductID: uuid.New(), UnitPrice: dec("10"), Quantity: 2}, // 20
		{MerchantID: merchantB, ProductID: uuid.New(), UnitPrice: dec("15"), Quantity: 1}, // 15
		{MerchantID: merchantA, ProductID: uuid.New(), UnitPrice: dec("5"), Quantity: 1},  // merchant A again: 25 total
	}

	custRef := domain.AccountRef{ID: customerID, Type: domain.AccountTypeCustomer}
	refA := domain.AccountRef{ID: merchantA, Type: domain.AccountTypeMerchant}
	refB := domain.AccountRef{ID: merchantB, Type: domain.AccountTypeMerchant}

	// Pre-flight existence checks.
	d.accountRepo.EXPECT().GetByRef(ctx, custRef).Return(&domain.Account{ID: customerID, Type: domain.AccountTypeCustomer}, nil)
	d.accountRepo.EXPECT().GetByRef(ctx, refA).Return(merchantAccount(merchantA, "enc_a"), nil)
	d.accountRepo.EXPECT().GetByRef(ctx, refB).Return(merchantAccount(merchantB, "enc_b"), nil)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByRefForUpdate(ctx, tx, custRef).Return(&domain.Account{
		ID: customerID, Type: domain.AccountTypeCustomer, EncryptedBalance: "enc_100",
	}, nil)
	d.accountRepo.EXPECT().GetByRefForUpdate(ctx, tx, refA).Return(merchantAccount(merchantA, "enc_5"), nil)
	d.accountRepo.EXPECT().GetByRefForUpdate(ctx, tx, refB).Return(merchantAccount(merchantB, "enc_0"), nil)

	// Customer: 100 - 40 = 60.
	d.codec.EXPECT().Decrypt("enc_100").Return("100", nil)
	d.codec.EXPECT().Encrypt("60").Return("enc_60", nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, custRef, "enc_60").Return(nil)
	// Merchant A: 5 + 25 = 30.
	d.codec.EXPECT().Decrypt("enc_5").Return("5", nil)
	d.codec.EXPECT().Encrypt("30").Return("enc_30", nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, refA, "enc_30").Return(nil)
	// Merchant B: 0 + 15 = 15.
	d.codec.EXPECT().Decrypt("enc_0").Return("0", nil)
	d.codec.EXPECT().Encrypt("15").Return("enc_15", nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, refB, "enc_15").Return(nil)

	d.orderRepo.EXPECT().Create(ctx, tx, gomock.Any()).Times(2).Return(nil)
	d.orderTxRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, ot *domain.OrderTransaction) error {
			assert.Equal(t, customerID, ot.CustomerID)
			assert.Equal(t, domain.OrderTransactionCompleted, ot.Status)
			assert.Equal(t, domain.OrderTransactionTypePayment, ot.TransactionType)
			assert.Equal(t, "enc_60", ot.CustomerWalletSnapshot)
			require.Len(t, ot.MerchantDetails, 2)
			assert.Equal(t, merchantA, ot.MerchantDetails[0].MerchantID)
			assert.True(t, ot.MerchantDetails[0].Amount.Equal(dec("25")))
			assert.Equal(t, "enc_30", ot.MerchantDetails[0].MerchantWalletSnapshot)
			assert.Equal(t, merchantB, ot.MerchantDetails[1].MerchantID)
			assert.True(t, ot.MerchantDetails[1].Amount.Equal(dec("15")))
			assert.True(t, ot.TotalAmount.Equal(ot.DetailTotal()))
			require.NotNil(t, ot.OrderGroupID)
			return nil
		})
	d.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

	result, err := d.svc.PlaceOrder(ctx, customerID, items)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Orders, 2)
	assert.Equal(t, result.Orders[0].GroupID, result.Orders[1].GroupID)
	assert.True(t, result.Transaction.TotalAmount.Equal(dec("40")))
}

func TestCheckoutService_PlaceOrder_EmptyCart(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	result, err := d.svc.PlaceOrder(context.Background(), uuid.New(), nil)
	assert.Nil(t, result)
	assertAppError(t, err, "ORD_001")
}

func TestCheckoutService_PlaceOrder_ZeroQuantityLinesDropped(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	items := []domain.CartItem{
		{MerchantID: uuid.New(), ProductID: uuid.New(), UnitPrice: dec("10"), Quantity: 0},
	}

	result, err := d.svc.PlaceOrder(context.Background(), uuid.New(), items)
	assert.Nil(t, result)
	assertAppError(t, err, "ORD_001")
}

func TestCheckoutService_PlaceOrder_UnknownCustomer(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	custRef := domain.AccountRef{ID: customerID, Type: domain.AccountTypeCustomer}

	d.accountRepo.EXPECT().GetByRef(ctx, custRef).Return(nil, nil)

	items := []domain.CartItem{
		{MerchantID: uuid.New(), ProductID: uuid.New(), UnitPrice: dec("10"), Quantity: 1},
	}
	result, err := d.svc.PlaceOrder(ctx, customerID, items)
	assert.Nil(t, result)
	assertAppError(t, err, "ORD_002")
}

func TestCheckoutService_PlaceOrder_UnknownMerchant(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	merchantID := uuid.New()
	custRef := domain.AccountRef{ID: customerID, Type: domain.AccountTypeCustomer}
	merchRef := domain.AccountRef{ID: merchantID, Type: domain.AccountTypeMerchant}

	d.accountRepo.EXPECT().GetByRef(ctx, custRef).Return(&domain.Account{ID: customerID, Type: domain.AccountTypeCustomer}, nil)
	d.accountRepo.EXPECT().GetByRef(ctx, merchRef).Return(nil, nil)

	items := []domain.CartItem{
		{MerchantID: merchantID, ProductID: uuid.New(), UnitPrice: dec("10"), Quantity: 1},
	}
	result, err := d.svc.PlaceOrder(ctx, customerID, items)
	assert.Nil(t, result)
	assertAppError(t, err, "ORD_003")
}

func TestCheckoutService_PlaceOrder_InsufficientBalance(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	merchantID := uuid.New()
	tx := &mockTx{}
	custRef := domain.AccountRef{ID: customerID, Type: domain.AccountTypeCustomer}
	merchRef := domain.AccountRef{ID: merchantID, Type: domain.AccountTypeMerchant}

	d.accountRepo.EXPECT().GetByRef(ctx, custRef).Return(&domain.Account{ID: customerID, Type: domain.AccountTypeCustomer}, nil)
	d.accountRepo.EXPECT().GetByRef(ctx, merchRef).Return(merchantAccount(merchantID, "enc_0"), nil)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByRefForUpdate(ctx, tx, custRef).Return(&domain.Account{
		ID: customerID, Type: domain.AccountTypeCustomer, EncryptedBalance: "enc_10",
	}, nil)
	d.accountRepo.EXPECT().GetByRefForUpdate(ctx, tx, merchRef).Return(merchantAccount(merchantID, "enc_0"), nil)
	d.codec.EXPECT().Decrypt("enc_10").Return("10", nil)
	// No balance writes, no order rows: nothing commits.

	items := []domain.CartItem{
		{MerchantID: merchantID, ProductID: uuid.New(), UnitPrice: dec("100"), Quantity: 1},
	}
	result, err := d.svc.PlaceOrder(ctx, customerID, items)
	assert.Nil(t, result)
	assertAppError(t, err, "WAL_002")
}

func TestCheckoutService_PlaceOrder_MerchantCreditFailureAborts(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	merchantID := uuid.New()
	tx := &mockTx{}
	custRef := domain.AccountRef{ID: customerID, Type: domain.AccountTypeCustomer}
	merchRef := domain.AccountRef{ID: merchantID, Type: domain.AccountTypeMerchant}

	d.accountRepo.EXPECT().GetByRef(ctx, custRef).Return(&domain.Account{ID: customerID, Type: domain.AccountTypeCustomer}, nil)
	d.accountRepo.EXPECT().GetByRef(ctx, merchRef).Return(merchantAccount(merchantID, "enc_0"), nil)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByRefForUpdate(ctx, tx, custRef).Return(&domain.Account{
		ID: customerID, Type: domain.AccountTypeCustomer, EncryptedBalance: "enc_100",
	}, nil)
	d.accountRepo.EXPECT().GetByRefForUpdate(ctx, tx, merchRef).Return(merchantAccount(merchantID, "enc_0"), nil)
	d.codec.EXPECT().Decrypt("enc_100").Return("100", nil)
	d.codec.EXPECT().Encrypt("50").Return("enc_50", nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, custRef, "enc_50").Return(nil)
	d.codec.EXPECT().Decrypt("enc_0").Return("0", nil)
	d.codec.EXPECT().Encrypt("50").Return("enc_m50", nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, merchRef, "enc_m50").Return(errors.New("write failed"))
	// The deferred rollback discards the customer debit too.

	items := []domain.CartItem{
		{MerchantID: merchantID, ProductID: uuid.New(), UnitPrice: dec("50"), Quantity: 1},
	}
	result, err := d.svc.PlaceOrder(ctx, customerID, items)
	assert.Nil(t, result)
	assertAppError(t, err, "SYS_001")
}

func TestAggregateCart(t *testing.T) {
	merchantA := uuid.New()
	merchantB := uuid.New()

	items := []domain.CartItem{
		{MerchantID: merchantB, UnitPrice: dec("3"), Quantity: 1},
		{MerchantID: merchantA, UnitPrice: dec("2"), Quantity: 2},
		{MerchantID: merchantB, UnitPrice: dec("1"), Quantity: 0}, // dropped
		{MerchantID: merchantB, UnitPrice: dec("4"), Quantity: 1},
	}

	charges, total := aggregateCart(items)
	require.Len(t, charges, 2)
	// First-seen order is preserved.
	assert.Equal(t, merchantB, charges[0].MerchantID)
	assert.True(t, charges[0].Amount.Equal(dec("7")))
	assert.Equal(t, merchantA, charges[1].MerchantID)
	assert.True(t, charges[1].Amount.Equal(dec("4")))
	assert.True(t, total.Equal(dec("11")))
}
