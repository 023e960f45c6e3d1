package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vertexbank/backend/internal/models"
)

var (
	// ErrAccountNotFound indicates no account matches the requested key.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound indicates no transaction matches the requested id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrProfileNotFound indicates the user has no stored profile yet.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrDuplicateAccount indicates an account already exists for the
	// (user, currency, account type) key. Raised by the storage-layer
	// uniqueness constraint, so concurrent writers cannot both insert.
	ErrDuplicateAccount = errors.New("account already exists for user, currency and type")

	// ErrDuplicateAccountNumber indicates a collision on the generated
	// account number. Callers retry with a fresh number.
	ErrDuplicateAccountNumber = errors.New("account number already in use")

	// ErrTerminalStatus indicates an attempt to change a transaction that
	// has already reached completed or failed.
	ErrTerminalStatus = errors.New("transaction status is terminal")
)

// Store is the persistence contract of the ledger core. RecordTransaction
// and ExecTx are atomic units: every mutation inside them commits or rolls
// back together, and readers only ever observe committed state.
type Store interface {
	// CreateAccount inserts a new account row. Returns ErrDuplicateAccount
	// when the (user, currency, type) key is taken and
	// ErrDuplicateAccountNumber when the generated number collides.
	CreateAccount(ctx context.Context, account *models.Account) error

	// AccountByOwner looks an account up by its uniqueness key.
	AccountByOwner(ctx context.Context, userID uuid.UUID, currency models.Currency, accountType models.AccountType) (*models.Account, error)

	// AccountByNumber looks an account up by account number.
	AccountByNumber(ctx context.Context, number string) (*models.Account, error)

	// AccountsByUser lists all accounts owned by a user.
	AccountsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error)

	// SetAccountStatus toggles an account's status. Accounts are never
	// hard-deleted; deactivation is the removal path.
	SetAccountStatus(ctx context.Context, number string, status models.AccountStatus) error

	// RecordTransaction applies tx as one atomic step: the pending row is
	// inserted, the affected balances are checked and mutated under row
	// locks, and the row is moved to completed or failed before commit.
	// Insufficient funds is not an error: the transaction comes back with
	// status failed and no balance is touched.
	RecordTransaction(ctx context.Context, tx *models.Transaction) error

	// UpdateTransactionStatus moves a pending transaction to a terminal
	// status. Returns ErrTerminalStatus if the row already left pending.
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error

	// TransactionByID fetches a single transaction.
	TransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)

	// TransactionsByAccount lists transactions touching an account,
	// newest first.
	TransactionsByAccount(ctx context.Context, number string, limit, offset int) ([]*models.Transaction, error)

	// SaveProfile upserts a user's profile.
	SaveProfile(ctx context.Context, profile *models.Profile) error

	// ProfileByUser fetches a user's profile. Returns ErrProfileNotFound
	// when absent.
	ProfileByUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error)

	// ExecTx runs fn against a transaction-scoped Store. If fn returns an
	// error every mutation it performed is rolled back.
	ExecTx(ctx context.Context, fn func(Store) error) error
}
