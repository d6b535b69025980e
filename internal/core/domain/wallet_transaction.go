package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletTransactionType represents the kind of money movement.
type WalletTransactionType string

const (
	WalletTransactionAdd      WalletTransactionType = "ADD"
	WalletTransactionWithdraw WalletTransactionType = "WITHDRAW"
	WalletTransactionTransfer WalletTransactionType = "TRANSFER"
)

var (
	ErrMissingParty   = errors.New("wallet transaction is missing a party")
	ErrUnexpectedParty = errors.New("wallet transaction has an unexpected party")
	ErrSameParty      = errors.New("transfer parties must differ")
	ErrNonPositive    = errors.New("amount must be positive")
)

// WalletTransaction is the immutable record of a single money movement.
// ADD carries only To, WITHDRAW only From, TRANSFER both.
// It is created in the same atomic unit as the balance mutation it
// represents and never updated afterwards.
type WalletTransaction struct {
	ID        uuid.UUID             `json:"id"`
	Type      WalletTransactionType `json:"transaction_type"`
	Amount    decimal.Decimal       `json:"amount"`
	From      *AccountRef           `json:"from,omitempty"`
	To        *AccountRef           `json:"to,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// Validate checks the party-shape invariant for the transaction type.
func (t *WalletTransaction) Validate() error {
	if t.Amount.Sign() <= 0 {
		return ErrNonPositive
	}
	switch t.Type {
	case WalletTransactionAdd:
		if t.To == nil {
			return ErrMissingParty
		}
		if t.From != nil {
			return ErrUnexpectedParty
		}
	case WalletTransactionWithdraw:
		if t.From == nil {
			return ErrMissingParty
		}
		if t.To != nil {
			return ErrUnexpectedParty
		}
	case WalletTransactionTransfer:
		if t.From == nil || t.To == nil {
			return ErrMissingParty
		}
		if t.From.Equal(*t.To) {
			return ErrSameParty
		}
	default:
		return errors.New("unknown wallet transaction type")
	}
	return nil
}

// Involves reports whether the account appears as either party.
func (t *WalletTransaction) Involves(ref AccountRef) bool {
	if t.From != nil && t.From.Equal(ref) {
		return true
	}
	return t.To != nil && t.To.Equal(ref)
}
