package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order row.
type OrderStatus string

const (
	OrderStatusPlaced OrderStatus = "PLACED"
	OrderStatusFailed OrderStatus = "FAILED"
)

// CartItem is a single purchasable line at checkout.
type CartItem struct {
	MerchantID uuid.UUID       `json:"merchant_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
}

// Subtotal returns unit price times quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is one merchant's share of a checkout. A checkout spanning N
// merchants produces N orders linked by GroupID.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	GroupID     uuid.UUID       `json:"group_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	MerchantID  uuid.UUID       `json:"merchant_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderTransactionStatus is the lifecycle state of an order payment.
type OrderTransactionStatus string

const (
	OrderTransactionPending   OrderTransactionStatus = "PENDING"
	OrderTransactionCompleted OrderTransactionStatus = "COMPLETED"
	OrderTransactionFailed    OrderTransactionStatus = "FAILED"
)

// OrderTransactionType names the only order-payment record kind.
const OrderTransactionTypePayment = "ORDER_PAYMENT"

// MerchantDetail is one merchant's slice of an order payment, with the
// merchant's post-credit balance captured as an encrypted snapshot.
type MerchantDetail struct {
	MerchantID             uuid.UUID       `json:"merchant_id"`
	Amount                 decimal.Decimal `json:"amount"`
	MerchantWalletSnapshot string          `json:"merchant_wallet_snapshot"`
}

// OrderTransaction records a customer's payment split across one or
// more merchants for a single checkout. Amounts and snapshots are
// frozen at creation; only Status may change until terminal.
type OrderTransaction struct {
	ID                     uuid.UUID              `json:"id"`
	CustomerID             uuid.UUID              `json:"customer_id"`
	MerchantDetails        []MerchantDetail       `json:"merchant_details"`
	OrderGroupID           *uuid.UUID             `json:"order_group_id,omitempty"`
	CustomerWalletSnapshot string                 `json:"customer_wallet_snapshot"`
	TotalAmount            decimal.Decimal        `json:"total_amount"`
	Status                 OrderTransactionStatus `json:"status"`
	TransactionType        string                 `json:"transaction_type"`
	CreatedAt              time.Time              `json:"created_at"`
}

// IsTerminal returns true once the payment reached a final state.
func (t *OrderTransaction) IsTerminal() bool {
	return t.Status == OrderTransactionCompleted || t.Status == OrderTransactionFailed
}

// DetailTotal sums the per-merchant amounts. The invariant
// TotalAmount == DetailTotal() holds at creation time.
func (t *OrderTransaction) DetailTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, d := range t.MerchantDetails {
		sum = sum.Add(d.Amount)
	}
	return sum
}
