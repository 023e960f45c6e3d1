package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/vertexbank/backend/internal/models"
)

// Postgres.go handles PostgreSQL database operations
type Postgres struct {
	db *sql.DB
	tx *sql.Tx // non-nil when this store is scoped to an open transaction
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// creates a new Postgres instance
func NewPostgres(connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) q() querier {
	if p.tx != nil {
		return p.tx
	}
	return p.db
}

// initialize the database schema
func (p *Postgres) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		account_number VARCHAR(20) NOT NULL,
		balance DECIMAL(12, 2) NOT NULL DEFAULT 0.00 CHECK (balance >= 0),
		currency VARCHAR(20) NOT NULL,
		account_type VARCHAR(20) NOT NULL,
		account_status VARCHAR(10) NOT NULL DEFAULT 'in-active',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT accounts_number_key UNIQUE (account_number),
		CONSTRAINT accounts_owner_key UNIQUE (user_id, currency, account_type)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		user_id UUID,
		amount DECIMAL(12, 2) NOT NULL CHECK (amount > 0),
		description VARCHAR(500),
		transaction_type VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		sender_id UUID,
		receiver_id UUID,
		sender_account VARCHAR(20) REFERENCES accounts (account_number) ON DELETE SET NULL,
		receiver_account VARCHAR(20) REFERENCES accounts (account_number) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS transactions_created_at_idx
		ON transactions (created_at DESC);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id UUID PRIMARY KEY,
		full_name VARCHAR(100) NOT NULL,
		gender VARCHAR(8) NOT NULL,
		marital_status VARCHAR(20) NOT NULL DEFAULT 'unknown',
		phone_number VARCHAR(30),
		date_of_birth DATE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`

	_, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ExecTx runs fn against a transaction-scoped store. All mutations fn makes
// commit together or roll back together.
func (p *Postgres) ExecTx(ctx context.Context, fn func(Store) error) error {
	if p.tx != nil {
		// already inside a unit of work
		return fn(p)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Postgres{db: p.db, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// creates a new account row. The insert is guarded with ON CONFLICT DO
// NOTHING so a lost uniqueness race never raises a unique violation, which
// would abort an enclosing transaction and poison the fallback re-read.
// Zero affected rows are mapped onto the typed errors the provisioner
// recovers from.
func (p *Postgres) CreateAccount(ctx context.Context, account *models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
	INSERT INTO accounts (id, user_id, account_number, balance, currency, account_type, account_status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT DO NOTHING`

	res, err := p.q().ExecContext(ctx, query,
		account.ID, account.UserID, account.AccountNumber, account.Balance,
		account.Currency, account.AccountType, account.Status,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// a uniqueness constraint fired; the owner key decides which
		_, lookupErr := p.AccountByOwner(ctx, account.UserID, account.Currency, account.AccountType)
		switch {
		case lookupErr == nil:
			return ErrDuplicateAccount
		case errors.Is(lookupErr, ErrAccountNotFound):
			return ErrDuplicateAccountNumber
		default:
			return lookupErr
		}
	}
	return nil
}

// retrieves an account by its (user, currency, type) uniqueness key
func (p *Postgres) AccountByOwner(ctx context.Context, userID uuid.UUID, currency models.Currency, accountType models.AccountType) (*models.Account, error) {
	query := `
	SELECT id, user_id, account_number, balance, currency, account_type, account_status, created_at, updated_at
	FROM accounts
	WHERE user_id = $1 AND currency = $2 AND account_type = $3`

	return p.scanAccount(p.q().QueryRowContext(ctx, query, userID, currency, accountType))
}

// retrieves an account by its account number
func (p *Postgres) AccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	query := `
	SELECT id, user_id, account_number, balance, currency, account_type, account_status, created_at, updated_at
	FROM accounts
	WHERE account_number = $1`

	return p.scanAccount(p.q().QueryRowContext(ctx, query, number))
}

// retrieves every account a user owns
func (p *Postgres) AccountsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error) {
	query := `
	SELECT id, user_id, account_number, balance, currency, account_type, account_status, created_at, updated_at
	FROM accounts
	WHERE user_id = $1
	ORDER BY created_at`

	rows, err := p.q().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.AccountNumber, &a.Balance,
			&a.Currency, &a.AccountType, &a.Status, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

// toggles an account's status
func (p *Postgres) SetAccountStatus(ctx context.Context, number string, status models.AccountStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}

	res, err := p.q().ExecContext(ctx,
		"UPDATE accounts SET account_status = $1, updated_at = $2 WHERE account_number = $3",
		status, time.Now().UTC(), number,
	)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (p *Postgres) scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.UserID, &a.AccountNumber, &a.Balance,
		&a.Currency, &a.AccountType, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// RecordTransaction applies the transaction and its balance effect as one
// database transaction. The row is inserted pending, the affected accounts
// are locked FOR UPDATE in account-number order, and the row reaches
// completed or failed before the commit. No partial state is ever visible.
func (p *Postgres) RecordTransaction(ctx context.Context, tx *models.Transaction) (err error) {
	if p.tx != nil {
		return p.recordIn(ctx, p.tx, tx)
	}

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	if err = p.recordIn(ctx, dbTx, tx); err != nil {
		return err
	}

	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *Postgres) recordIn(ctx context.Context, dbTx *sql.Tx, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.Status = models.Pending
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	if err := tx.Validate(); err != nil {
		return err
	}

	insert := `
	INSERT INTO transactions (id, user_id, amount, description, transaction_type, status, sender_id, receiver_id, sender_account, receiver_account, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := dbTx.ExecContext(ctx, insert,
		tx.ID, nullUUID(tx.UserID), tx.Amount, nullString(tx.Description),
		tx.Type, tx.Status, nullUUID(tx.SenderID), nullUUID(tx.ReceiverID),
		nullString(tx.SenderAccount), nullString(tx.ReceiverAccount),
		tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	// Lock every account the transaction touches, in a fixed order so two
	// concurrent transfers between the same pair cannot deadlock.
	numbers := lockOrder(tx.SenderAccount, tx.ReceiverAccount)
	balances := make(map[string]decimal.Decimal, len(numbers))
	for _, number := range numbers {
		var balance decimal.Decimal
		err := dbTx.QueryRowContext(ctx,
			"SELECT balance FROM accounts WHERE account_number = $1 FOR UPDATE",
			number,
		).Scan(&balance)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to lock account %s: %w", number, err)
		}
		balances[number] = balance
	}

	status := models.Completed
	switch tx.Type {
	case models.Deposit, models.Interest:
		balances[tx.ReceiverAccount] = balances[tx.ReceiverAccount].Add(tx.Amount)
	case models.Withdrawal:
		if balances[tx.SenderAccount].LessThan(tx.Amount) {
			status = models.Failed
		} else {
			balances[tx.SenderAccount] = balances[tx.SenderAccount].Sub(tx.Amount)
		}
	case models.Transfer:
		if balances[tx.SenderAccount].LessThan(tx.Amount) {
			status = models.Failed
		} else {
			balances[tx.SenderAccount] = balances[tx.SenderAccount].Sub(tx.Amount)
			balances[tx.ReceiverAccount] = balances[tx.ReceiverAccount].Add(tx.Amount)
		}
	}

	if status == models.Completed {
		for _, number := range numbers {
			_, err := dbTx.ExecContext(ctx,
				"UPDATE accounts SET balance = $1, updated_at = $2 WHERE account_number = $3",
				balances[number], now, number,
			)
			if err != nil {
				return fmt.Errorf("failed to update balance: %w", err)
			}
		}
	}

	// Guarded on pending so a terminal row can never be rewritten.
	res, err := dbTx.ExecContext(ctx,
		"UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
		status, time.Now().UTC(), tx.ID, models.Pending,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTerminalStatus
	}

	tx.Status = status
	return nil
}

// moves a pending transaction to a terminal status
func (p *Postgres) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}

	res, err := p.q().ExecContext(ctx,
		"UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
		status, time.Now().UTC(), id, models.Pending,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// zero rows means either the id is unknown or the row already settled
		var current models.TransactionStatus
		err := p.q().QueryRowContext(ctx,
			"SELECT status FROM transactions WHERE id = $1", id,
		).Scan(&current)
		if err == sql.ErrNoRows {
			return ErrTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to update transaction status: %w", err)
		}
		return ErrTerminalStatus
	}
	return nil
}

// retrieves a transaction by ID
func (p *Postgres) TransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `
	SELECT id, user_id, amount, description, transaction_type, status, sender_id, receiver_id, sender_account, receiver_account, created_at, updated_at
	FROM transactions
	WHERE id = $1`

	var (
		t                  models.Transaction
		userID, sID, rID   uuid.NullUUID
		desc, sAcct, rAcct sql.NullString
	)
	err := p.q().QueryRowContext(ctx, query, id).Scan(
		&t.ID, &userID, &t.Amount, &desc, &t.Type, &t.Status,
		&sID, &rID, &sAcct, &rAcct, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	t.UserID, t.SenderID, t.ReceiverID = userID.UUID, sID.UUID, rID.UUID
	t.Description, t.SenderAccount, t.ReceiverAccount = desc.String, sAcct.String, rAcct.String
	return &t, nil
}

// retrieves transactions touching an account, newest first
func (p *Postgres) TransactionsByAccount(ctx context.Context, number string, limit, offset int) ([]*models.Transaction, error) {
	query := `
	SELECT id, user_id, amount, description, transaction_type, status, sender_id, receiver_id, sender_account, receiver_account, created_at, updated_at
	FROM transactions
	WHERE sender_account = $1 OR receiver_account = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

	rows, err := p.q().QueryContext(ctx, query, number, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var (
			t                  models.Transaction
			userID, sID, rID   uuid.NullUUID
			desc, sAcct, rAcct sql.NullString
		)
		if err := rows.Scan(
			&t.ID, &userID, &t.Amount, &desc, &t.Type, &t.Status,
			&sID, &rID, &sAcct, &rAcct, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.UserID, t.SenderID, t.ReceiverID = userID.UUID, sID.UUID, rID.UUID
		t.Description, t.SenderAccount, t.ReceiverAccount = desc.String, sAcct.String, rAcct.String
		transactions = append(transactions, &t)
	}
	return transactions, rows.Err()
}

// upserts a user's profile
func (p *Postgres) SaveProfile(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	profile.UpdatedAt = now

	query := `
	INSERT INTO profiles (user_id, full_name, gender, marital_status, phone_number, date_of_birth, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	ON CONFLICT (user_id) DO UPDATE SET
		full_name = EXCLUDED.full_name,
		gender = EXCLUDED.gender,
		marital_status = EXCLUDED.marital_status,
		phone_number = EXCLUDED.phone_number,
		date_of_birth = EXCLUDED.date_of_birth,
		updated_at = EXCLUDED.updated_at`

	_, err := p.q().ExecContext(ctx, query,
		profile.UserID, profile.FullName, profile.Gender, profile.MaritalStatus,
		profile.PhoneNumber, profile.DateOfBirth, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// retrieves a user's profile
func (p *Postgres) ProfileByUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	query := `
	SELECT user_id, full_name, gender, marital_status, phone_number, date_of_birth, created_at, updated_at
	FROM profiles
	WHERE user_id = $1`

	var pr models.Profile
	err := p.q().QueryRowContext(ctx, query, userID).Scan(
		&pr.UserID, &pr.FullName, &pr.Gender, &pr.MaritalStatus,
		&pr.PhoneNumber, &pr.DateOfBirth, &pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &pr, nil
}

func lockOrder(numbers ...string) []string {
	var out []string
	for _, n := range numbers {
		if n != "" {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

var _ Store = (*Postgres)(nil)
