package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountType distinguishes the two account namespaces.
type AccountType string

const (
	AccountTypeCustomer AccountType = "CUSTOMER"
	AccountTypeMerchant AccountType = "MERCHANT"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == AccountTypeCustomer || t == AccountTypeMerchant
}

// AccountRef identifies an account by (id, type). The pair is resolved
// once at the boundary and passed through the ledger unchanged.
type AccountRef struct {
	ID   uuid.UUID   `json:"id"`
	Type AccountType `json:"type"`
}

// Equal reports whether two refs point at the same account.
func (r AccountRef) Equal(other AccountRef) bool {
	return r.ID == other.ID && r.Type == other.Type
}

func (r AccountRef) String() string {
	return string(r.Type) + ":" + r.ID.String()
}

// Account holds a wallet balance for a customer or merchant.
// The balance is stored encrypted; only the snapshot codec holding the
// service key can recover the plaintext decimal value.
type Account struct {
	ID               uuid.UUID   `json:"id"`
	Type             AccountType `json:"type"`
	PaymentID        string      `json:"payment_id"` // external transfer identifier (e.g. phone number)
	DisplayName      string      `json:"display_name"`
	EncryptedBalance string      `json:"-"` // never expose raw
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Ref returns the account's reference pair.
func (a *Account) Ref() AccountRef {
	return AccountRef{ID: a.ID, Type: a.Type}
}
