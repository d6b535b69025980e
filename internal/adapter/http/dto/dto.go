package dto

import (
	"time"

	"github.com/ejuuz/wallet-service/internal/core/domain"
	"github.com/ejuuz/wallet-service/internal/core/ports"
)

// RequestOTPRequest is the request body for requesting a login code.
type RequestOTPRequest struct {
	PaymentID string `json:"payment_id" binding:"required,max=100"`
}

// VerifyOTPRequest is the request body for exchanging a code for a token.
type VerifyOTPRequest struct {
	PaymentID string `json:"payment_id" binding:"required,max=100"`
	Code      string `json:"code" binding:"required,min=4,max=10"`
}

// LoginResponse is the response body for a verified login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// AmountRequest is the request body for add and withdraw operations.
// Amounts travel as decimal strings to avoid float rounding on the wire.
type AmountRequest struct {
	Amount    string `json:"amount" binding:"required,max=32"`
	ClientRef string `json:"client_ref,omitempty" binding:"max=100"`
}

// TransferRequest is the request body for wallet-to-wallet transfers.
type TransferRequest struct {
	ToPaymentID string `json:"to_payment_id" binding:"required,max=100"`
	Amount      string `json:"amount" binding:"required,max=32"`
	ClientRef   string `json:"client_ref,omitempty" binding:"max=100"`
}

// CartItemRequest is a single cart line at checkout.
type CartItemRequest struct {
	MerchantID string `json:"merchant_id" binding:"required,uuid"`
	ProductID  string `json:"product_id" binding:"required,uuid"`
	UnitPrice  string `json:"unit_price" binding:"required,max=32"`
	Quantity   int    `json:"quantity" binding:"required"`
}

// PlaceOrderRequest is the request body for order checkout.
type PlaceOrderRequest struct {
	Items []CartItemRequest `json:"items" binding:"required,dive"`
}

// AccountRefResponse identifies one party of a wallet transaction.
type AccountRefResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// WalletTransactionResponse is the wire form of a ledger record.
type WalletTransactionResponse struct {
	ID        string              `json:"id"`
	Type      string              `json:"type"`
	Amount    string              `json:"amount"`
	From      *AccountRefResponse `json:"from,omitempty"`
	To        *AccountRefResponse `json:"to,omitempty"`
	CreatedAt string              `json:"created_at"`
}

// LedgerResultResponse is the response body for add and withdraw.
type LedgerResultResponse struct {
	NewBalance  string                    `json:"new_balance"`
	Transaction WalletTransactionResponse `json:"transaction"`
}

// TransactionListResponse wraps a wallet's transaction history.
type TransactionListResponse struct {
	Items []WalletTransactionResponse `json:"items"`
	Total int                         `json:"total"`
}

// OrderResponse is one merchant's order row from a checkout.
type OrderResponse struct {
	ID          string `json:"id"`
	GroupID     string `json:"group_id"`
	MerchantID  string `json:"merchant_id"`
	TotalAmount string `json:"total_amount"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// MerchantDetailResponse is one merchant's slice of an order payment.
type MerchantDetailResponse struct {
	MerchantID string `json:"merchant_id"`
	Amount     string `json:"amount"`
	Snapshot   string `json:"snapshot"`
}

// OrderTransactionResponse is the payment record of a checkout.
type OrderTransactionResponse struct {
	ID              string                   `json:"id"`
	CustomerID      string                   `json:"customer_id"`
	OrderGroupID    string                   `json:"order_group_id,omitempty"`
	TotalAmount     string                   `json:"total_amount"`
	Status          string                   `json:"status"`
	TransactionType string                   `json:"transaction_type"`
	Snapshot        string                   `json:"snapshot"`
	MerchantDetails []MerchantDetailResponse `json:"merchant_details"`
	CreatedAt       string                   `json:"created_at"`
}

// CheckoutResponse is the response body for a placed order.
type CheckoutResponse struct {
	Orders      []OrderResponse          `json:"orders"`
	Transaction OrderTransactionResponse `json:"transaction"`
}

// --- converters ---

func refResponse(ref *domain.AccountRef) *AccountRefResponse {
	if ref == nil {
		return nil
	}
	return &AccountRefResponse{ID: ref.ID.String(), Type: string(ref.Type)}
}

// FromWalletTransaction converts a domain record to its wire form.
func FromWalletTransaction(t *domain.WalletTransaction) WalletTransactionResponse {
	return WalletTransactionResponse{
		ID:        t.ID.String(),
		Type:      string(t.Type),
		Amount:    t.Amount.String(),
		From:      refResponse(t.From),
		To:        refResponse(t.To),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

// FromLedgerResult converts a ledger outcome to its wire form.
func FromLedgerResult(r *ports.LedgerResult) LedgerResultResponse {
	return LedgerResultResponse{
		NewBalance:  r.NewBalance.String(),
		Transaction: FromWalletTransaction(r.Transaction),
	}
}

// FromOrder converts an order row to its wire form.
func FromOrder(o domain.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID.String(),
		GroupID:     o.GroupID.String(),
		MerchantID:  o.MerchantID.String(),
		TotalAmount: o.TotalAmount.String(),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
}

// FromOrderTransaction converts a payment record to its wire form.
func FromOrderTransaction(t *domain.OrderTransaction) OrderTransactionResponse {
	details := make([]MerchantDetailResponse, 0, len(t.MerchantDetails))
	for _, d := range t.MerchantDetails {
		details = append(details, MerchantDetailResponse{
			MerchantID: d.MerchantID.String(),
			Amount:     d.Amount.String(),
			Snapshot:   d.MerchantWalletSnapshot,
		})
	}
	resp := OrderTransactionResponse{
		ID:              t.ID.String(),
		CustomerID:      t.CustomerID.String(),
		TotalAmount:     t.TotalAmount.String(),
		Status:          string(t.Status),
		TransactionType: t.TransactionType,
		Snapshot:        t.CustomerWalletSnapshot,
		MerchantDetails: details,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
	}
	if t.OrderGroupID != nil {
		resp.OrderGroupID = t.OrderGroupID.String()
	}
	return resp
}

// FromCheckoutResult converts a checkout outcome to its wire form.
func FromCheckoutResult(r *ports.CheckoutResult) CheckoutResponse {
	orders := make([]OrderResponse, 0, len(r.Orders))
	for _, o := range r.Orders {
		orders = append(orders, FromOrder(o))
	}
	return CheckoutResponse{
		Orders:      orders,
		Transaction: FromOrderTransaction(r.Transaction),
	}
}
