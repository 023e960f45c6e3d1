package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vertexbank/backend/internal/models"
)

// Memory is an in-memory Store used by tests and local runs. It mirrors the
// Postgres semantics: the same uniqueness checks, the same row-level
// atomicity for RecordTransaction, and snapshot rollback for ExecTx.
type Memory struct {
	mu           sync.Mutex
	accounts     map[string]*models.Account // keyed by account number
	ownerIndex   map[string]string          // (user, currency, type) -> account number
	transactions map[uuid.UUID]*models.Transaction
	txOrder      []uuid.UUID // insertion order, oldest first
	profiles     map[uuid.UUID]*models.Profile

	inTx bool // set on the snapshot-scoped copy handed to ExecTx callbacks
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[string]*models.Account),
		ownerIndex:   make(map[string]string),
		transactions: make(map[uuid.UUID]*models.Transaction),
		profiles:     make(map[uuid.UUID]*models.Profile),
	}
}

func ownerKey(userID uuid.UUID, currency models.Currency, accountType models.AccountType) string {
	return userID.String() + "/" + string(currency) + "/" + string(accountType)
}

func (m *Memory) lock() func() {
	if m.inTx {
		// the enclosing ExecTx already holds the root lock
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) CreateAccount(ctx context.Context, account *models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	defer m.lock()()

	if _, exists := m.ownerIndex[ownerKey(account.UserID, account.Currency, account.AccountType)]; exists {
		return ErrDuplicateAccount
	}
	if _, exists := m.accounts[account.AccountNumber]; exists {
		return ErrDuplicateAccountNumber
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := *account
	m.accounts[account.AccountNumber] = &stored
	m.ownerIndex[ownerKey(account.UserID, account.Currency, account.AccountType)] = account.AccountNumber
	return nil
}

func (m *Memory) AccountByOwner(ctx context.Context, userID uuid.UUID, currency models.Currency, accountType models.AccountType) (*models.Account, error) {
	defer m.lock()()

	number, ok := m.ownerIndex[ownerKey(userID, currency, accountType)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copy := *m.accounts[number]
	return &copy, nil
}

func (m *Memory) AccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	defer m.lock()()

	account, ok := m.accounts[number]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copy := *account
	return &copy, nil
}

func (m *Memory) AccountsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error) {
	defer m.lock()()

	var out []*models.Account
	for _, account := range m.accounts {
		if account.UserID == userID {
			copy := *account
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) SetAccountStatus(ctx context.Context, number string, status models.AccountStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}

	defer m.lock()()

	account, ok := m.accounts[number]
	if !ok {
		return ErrAccountNotFound
	}
	account.Status = status
	account.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) RecordTransaction(ctx context.Context, tx *models.Transaction) error {
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

	defer m.lock()()

	for _, number := range lockOrder(tx.SenderAccount, tx.ReceiverAccount) {
		if _, ok := m.accounts[number]; !ok {
			return ErrAccountNotFound
		}
	}

	status := models.Completed
	switch tx.Type {
	case models.Deposit, models.Interest:
		receiver := m.accounts[tx.ReceiverAccount]
		receiver.Balance = receiver.Balance.Add(tx.Amount)
		receiver.UpdatedAt = now
	case models.Withdrawal:
		sender := m.accounts[tx.SenderAccount]
		if sender.Balance.LessThan(tx.Amount) {
			status = models.Failed
		} else {
			sender.Balance = sender.Balance.Sub(tx.Amount)
			sender.UpdatedAt = now
		}
	case models.Transfer:
		sender := m.accounts[tx.SenderAccount]
		receiver := m.accounts[tx.ReceiverAccount]
		if sender.Balance.LessThan(tx.Amount) {
			status = models.Failed
		} else {
			sender.Balance = sender.Balance.Sub(tx.Amount)
			receiver.Balance = receiver.Balance.Add(tx.Amount)
			sender.UpdatedAt = now
			receiver.UpdatedAt = now
		}
	}

	tx.Status = status
	stored := *tx
	m.transactions[tx.ID] = &stored
	m.txOrder = append(m.txOrder, tx.ID)
	return nil
}

func (m *Memory) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}

	defer m.lock()()

	tx, ok := m.transactions[id]
	if !ok {
		return ErrTransactionNotFound
	}
	if tx.Status.Terminal() {
		return ErrTerminalStatus
	}
	tx.Status = status
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) TransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	defer m.lock()()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	copy := *tx
	return &copy, nil
}

func (m *Memory) TransactionsByAccount(ctx context.Context, number string, limit, offset int) ([]*models.Transaction, error) {
	defer m.lock()()

	var out []*models.Transaction
	// newest first
	for i := len(m.txOrder) - 1; i >= 0; i-- {
		tx := m.transactions[m.txOrder[i]]
		if tx.SenderAccount != number && tx.ReceiverAccount != number {
			continue
		}
		copy := *tx
		out = append(out, &copy)
	}

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SaveProfile(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	defer m.lock()()

	now := time.Now().UTC()
	if existing, ok := m.profiles[profile.UserID]; ok {
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	stored := *profile
	m.profiles[profile.UserID] = &stored
	return nil
}

func (m *Memory) ProfileByUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	defer m.lock()()

	profile, ok := m.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	copy := *profile
	return &copy, nil
}

// ExecTx holds the store lock for the whole unit, snapshots the maps, and
// restores the snapshot when fn fails so no partial effect survives.
func (m *Memory) ExecTx(ctx context.Context, fn func(Store) error) error {
	if m.inTx {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	scoped := &Memory{
		accounts:     m.accounts,
		ownerIndex:   m.ownerIndex,
		transactions: m.transactions,
		txOrder:      m.txOrder,
		profiles:     m.profiles,
		inTx:         true,
	}

	if err := fn(scoped); err != nil {
		m.restore(snapshot)
		return err
	}
	m.txOrder = scoped.txOrder
	return nil
}

type memorySnapshot struct {
	accounts     map[string]*models.Account
	ownerIndex   map[string]string
	transactions map[uuid.UUID]*models.Transaction
	txOrder      []uuid.UUID
	profiles     map[uuid.UUID]*models.Profile
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		accounts:     make(map[string]*models.Account, len(m.accounts)),
		ownerIndex:   make(map[string]string, len(m.ownerIndex)),
		transactions: make(map[uuid.UUID]*models.Transaction, len(m.transactions)),
		txOrder:      append([]uuid.UUID(nil), m.txOrder...),
		profiles:     make(map[uuid.UUID]*models.Profile, len(m.profiles)),
	}
	for k, v := range m.accounts {
		copy := *v
		s.accounts[k] = &copy
	}
	for k, v := range m.ownerIndex {
		s.ownerIndex[k] = v
	}
	for k, v := range m.transactions {
		copy := *v
		s.transactions[k] = &copy
	}
	for k, v := range m.profiles {
		copy := *v
		s.profiles[k] = &copy
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.ownerIndex = s.ownerIndex
	m.transactions = s.transactions
	m.txOrder = s.txOrder
	m.profiles = s.profiles
}

var _ Store = (*Memory)(nil)
