package db

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vertexbank/backend/internal/models"
)

func newAccount(userID uuid.UUID, number string, balance int64) *models.Account {
	return &models.Account{
		UserID:        userID,
		AccountNumber: number,
		Balance:       decimal.NewFromInt(balance),
		Currency:      models.Naira,
		AccountType:   models.Savings,
		Status:        models.Inactive,
	}
}

var seedCounter int64

func seedAccount(t *testing.T, store *Memory, balance int64) *models.Account {
	t.Helper()
	number := fmt.Sprintf("%010d", atomic.AddInt64(&seedCounter, 1))
	account := newAccount(uuid.New(), number, balance)
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func TestCreateAccountDuplicateOwnerKey(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.CreateAccount(ctx, newAccount(userID, "0000000001", 0)))

	err := store.CreateAccount(ctx, newAccount(userID, "0000000002", 0))
	assert.ErrorIs(t, err, ErrDuplicateAccount)

	// same user, different type is a different key
	other := newAccount(userID, "0000000003", 0)
	other.AccountType = models.Current
	assert.NoError(t, store.CreateAccount(ctx, other))
}

func TestCreateAccountDuplicateNumber(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.CreateAccount(ctx, newAccount(uuid.New(), "0000000001", 0)))

	err := store.CreateAccount(ctx, newAccount(uuid.New(), "0000000001", 0))
	assert.ErrorIs(t, err, ErrDuplicateAccountNumber)
}

func TestRecordDeposit(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	account := seedAccount(t, store, 0)

	tx := &models.Transaction{
		Amount:          decimal.NewFromFloat(25.50),
		Type:            models.Deposit,
		ReceiverAccount: account.AccountNumber,
	}
	require.NoError(t, store.RecordTransaction(ctx, tx))
	assert.Equal(t, models.Completed, tx.Status)

	got, err := store.AccountByNumber(ctx, account.AccountNumber)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromFloat(25.50)))
}

func TestRecordWithdrawalInsufficientFunds(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	account := seedAccount(t, store, 30)

	tx := &models.Transaction{
		Amount:        decimal.NewFromInt(50),
		Type:          models.Withdrawal,
		SenderAccount: account.AccountNumber,
	}
	// insufficient funds is a recorded failed transaction, not an error
	require.NoError(t, store.RecordTransaction(ctx, tx))
	assert.Equal(t, models.Failed, tx.Status)

	got, err := store.AccountByNumber(ctx, account.AccountNumber)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(30)), "failed withdrawal must not touch the balance")

	// the failed transaction is visible in history
	history, err := store.TransactionsByAccount(ctx, account.AccountNumber, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.Failed, history[0].Status)
}

func TestRecordTransfer(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	x := seedAccount(t, store, 100)
	y := seedAccount(t, store, 0)

	tx := &models.Transaction{
		Amount:          decimal.NewFromInt(40),
		Type:            models.Transfer,
		SenderAccount:   x.AccountNumber,
		ReceiverAccount: y.AccountNumber,
	}
	require.NoError(t, store.RecordTransaction(ctx, tx))
	assert.Equal(t, models.Completed, tx.Status)

	gotX, err := store.AccountByNumber(ctx, x.AccountNumber)
	require.NoError(t, err)
	gotY, err := store.AccountByNumber(ctx, y.AccountNumber)
	require.NoError(t, err)

	assert.True(t, gotX.Balance.Equal(decimal.NewFromInt(60)))
	assert.True(t, gotY.Balance.Equal(decimal.NewFromInt(40)))
}

func TestRecordInterest(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	account := seedAccount(t, store, 10)

	tx := &models.Transaction{
		Amount:          decimal.NewFromFloat(0.15),
		Type:            models.Interest,
		ReceiverAccount: account.AccountNumber,
	}
	require.NoError(t, store.RecordTransaction(ctx, tx))
	assert.Equal(t, models.Completed, tx.Status)

	got, err := store.AccountByNumber(ctx, account.AccountNumber)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromFloat(10.15)))
}

func TestRecordUnknownAccount(t *testing.T) {
	store := NewMemory()

	tx := &models.Transaction{
		Amount:          decimal.NewFromInt(5),
		Type:            models.Deposit,
		ReceiverAccount: "9999999999",
	}
	err := store.RecordTransaction(context.Background(), tx)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestTerminalStatusImmutable(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	account := seedAccount(t, store, 100)

	tx := &models.Transaction{
		Amount:        decimal.NewFromInt(10),
		Type:          models.Withdrawal,
		SenderAccount: account.AccountNumber,
	}
	require.NoError(t, store.RecordTransaction(ctx, tx))
	require.Equal(t, models.Completed, tx.Status)

	// repeated update attempts never move a terminal status
	assert.ErrorIs(t, store.UpdateTransactionStatus(ctx, tx.ID, models.Failed), ErrTerminalStatus)
	assert.ErrorIs(t, store.UpdateTransactionStatus(ctx, tx.ID, models.Completed), ErrTerminalStatus)

	got, err := store.TransactionByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Completed, got.Status)
}

func TestUpdateTransactionStatusUnknownID(t *testing.T) {
	store := NewMemory()

	// an id that was never recorded is not-found, not terminal
	err := store.UpdateTransactionStatus(context.Background(), uuid.New(), models.Failed)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestTransactionsNewestFirst(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	account := seedAccount(t, store, 0)

	var ids []uuid.UUID
	for i := 1; i <= 3; i++ {
		tx := &models.Transaction{
			Amount:          decimal.NewFromInt(int64(i)),
			Type:            models.Deposit,
			ReceiverAccount: account.AccountNumber,
		}
		require.NoError(t, store.RecordTransaction(ctx, tx))
		ids = append(ids, tx.ID)
	}

	history, err := store.TransactionsByAccount(ctx, account.AccountNumber, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ids[2], history[0].ID)
	assert.Equal(t, ids[1], history[1].ID)
	assert.Equal(t, ids[0], history[2].ID)

	// pagination
	page, err := store.TransactionsByAccount(ctx, account.AccountNumber, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestExecTxRollsBackOnError(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	userID := uuid.New()

	boom := errors.New("boom")
	err := store.ExecTx(ctx, func(st Store) error {
		profile := &models.Profile{
			UserID:        userID,
			FullName:      "Ada Obi",
			Gender:        models.Female,
			MaritalStatus: models.Single,
		}
		if err := st.SaveProfile(ctx, profile); err != nil {
			return err
		}
		if err := st.CreateAccount(ctx, newAccount(userID, "0000000042", 0)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.ProfileByUser(ctx, userID)
	assert.ErrorIs(t, err, ErrProfileNotFound)
	_, err = store.AccountByNumber(ctx, "0000000042")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestExecTxCommits(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	userID := uuid.New()

	err := store.ExecTx(ctx, func(st Store) error {
		return st.CreateAccount(ctx, newAccount(userID, "0000000042", 0))
	})
	require.NoError(t, err)

	got, err := store.AccountByNumber(ctx, "0000000042")
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
}

func TestSetAccountStatus(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	account := seedAccount(t, store, 0)

	require.NoError(t, store.SetAccountStatus(ctx, account.AccountNumber, models.Active))

	got, err := store.AccountByNumber(ctx, account.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, models.Active, got.Status)

	assert.ErrorIs(t, store.SetAccountStatus(ctx, "9999999999", models.Active), ErrAccountNotFound)
}
