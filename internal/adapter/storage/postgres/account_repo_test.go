package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ejuuz/wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(accountType domain.AccountType) *domain.Account {
	return &domain.Account{
		ID:               uuid.New(),
		Type:             accountType,
		PaymentID:        "0901234567",
		DisplayName:      "Test Account",
		EncryptedBalance: "aes_encrypted_balance_data",
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
}

func accountColumnNames() []string {
	return []string{"id", "account_type", "payment_id", "display_name", "encrypted_balance", "created_at", "updated_at"}
}

func accountRow(a *domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumnNames()).AddRow(
		a.ID, a.Type, a.PaymentID, a.DisplayName, a.EncryptedBalance,
		a.CreatedAt, a.UpdatedAt,
	)
}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(domain.AccountTypeCustomer)

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.ID, a.Type, a.PaymentID, a.DisplayName, a.EncryptedBalance,
			a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByRef(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(domain.AccountTypeCustomer)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id").
		WithArgs(a.ID, a.Type).
		WillReturnRows(accountRow(a))

	result, err := repo.GetByRef(context.Background(), a.Ref())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)
	assert.Equal(t, a.EncryptedBalance, result.EncryptedBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByRef_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	ref := domain.AccountRef{ID: uuid.New(), Type: domain.AccountTypeMerchant}

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id").
		WithArgs(ref.ID, ref.Type).
		WillReturnRows(pgxmock.NewRows(accountColumnNames()))

	result, err := repo.GetByRef(context.Background(), ref)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByRefForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(domain.AccountTypeMerchant)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id .+ FOR UPDATE").
		WithArgs(a.ID, a.Type).
		WillReturnRows(accountRow(a))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByRefForUpdate(context.Background(), tx, a.Ref())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_FindByPaymentID_CustomerFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(domain.AccountTypeCustomer)

	// The customer namespace matches; the merchant probe never fires.
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE payment_id").
		WithArgs(a.PaymentID, domain.AccountTypeCustomer).
		WillReturnRows(accountRow(a))

	result, err := repo.FindByPaymentID(context.Background(), a.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.AccountTypeCustomer, result.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_FindByPaymentID_FallsBackToMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(domain.AccountTypeMerchant)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE payment_id").
		WithArgs(a.PaymentID, domain.AccountTypeCustomer).
		WillReturnRows(pgxmock.NewRows(accountColumnNames()))
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE payment_id").
		WithArgs(a.PaymentID, domain.AccountTypeMerchant).
		WillReturnRows(accountRow(a))

	result, err := repo.FindByPaymentID(context.Background(), a.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.AccountTypeMerchant, result.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_FindByPaymentID_NoMatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE payment_id").
		WithArgs("ghost", domain.AccountTypeCustomer).
		WillReturnRows(pgxmock.NewRows(accountColumnNames()))
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE payment_id").
		WithArgs("ghost", domain.AccountTypeMerchant).
		WillReturnRows(pgxmock.NewRows(accountColumnNames()))

	result, err := repo.FindByPaymentID(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	ref := domain.AccountRef{ID: uuid.New(), Type: domain.AccountTypeCustomer}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET encrypted_balance").
		WithArgs("new_encrypted_balance", ref.ID, ref.Type).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, ref, "new_encrypted_balance")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalance_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	ref := domain.AccountRef{ID: uuid.New(), Type: domain.AccountTypeCustomer}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET encrypted_balance").
		WithArgs("enc_bal", ref.ID, ref.Type).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, ref, "enc_bal")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
