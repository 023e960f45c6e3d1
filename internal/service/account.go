package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vertexbank/backend/internal/db"
	"github.com/vertexbank/backend/internal/models"
)

// ErrProvisioningFailed is returned when account creation keeps colliding on
// generated account numbers after the bounded retries.
var ErrProvisioningFailed = errors.New("account provisioning failed")

// attempts at a fresh account number before giving up
const maxNumberAttempts = 3

// NumberGenerator supplies unique formatted account numbers.
type NumberGenerator interface {
	Generate() (string, error)
}

// Publisher announces committed ledger changes. Publishing is fire-and-forget:
// failures are logged and never abort the commit they follow.
type Publisher interface {
	PublishAccountCreated(ctx context.Context, account *models.Account) error
	PublishTransactionRecorded(ctx context.Context, tx *models.Transaction) error
}

// AccountService provisions and reads accounts.
type AccountService struct {
	store   db.Store
	numbers NumberGenerator
	events  Publisher
}

// creates a new AccountService. events may be nil.
func NewAccountService(store db.Store, numbers NumberGenerator, events Publisher) *AccountService {
	return &AccountService{
		store:   store,
		numbers: numbers,
		events:  events,
	}
}

// EnsureAccount returns the user's account for (currency, accountType),
// creating it exactly once if absent. Safe under concurrent callers: the
// storage uniqueness constraint decides the race and the loser re-reads.
func (s *AccountService) EnsureAccount(ctx context.Context, userID uuid.UUID, currency models.Currency, accountType models.AccountType) (*models.Account, bool, error) {
	account, created, err := s.ensureIn(ctx, s.store, userID, currency, accountType)
	if err != nil {
		return nil, false, err
	}

	if created {
		s.announceCreated(ctx, account)
	}
	return account, created, nil
}

// ensureIn runs the get-or-create against st, which may be transaction
// scoped when called from the profile orchestrator. It never publishes;
// callers announce after their unit commits.
func (s *AccountService) ensureIn(ctx context.Context, st db.Store, userID uuid.UUID, currency models.Currency, accountType models.AccountType) (*models.Account, bool, error) {
	if err := currency.Validate(); err != nil {
		return nil, false, err
	}
	if err := accountType.Validate(); err != nil {
		return nil, false, err
	}

	account, err := st.AccountByOwner(ctx, userID, currency, accountType)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, db.ErrAccountNotFound) {
		return nil, false, fmt.Errorf("failed to look up account: %w", err)
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := s.numbers.Generate()
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
		}

		account := &models.Account{
			UserID:        userID,
			AccountNumber: number,
			Balance:       decimal.Zero,
			Currency:      currency,
			AccountType:   accountType,
			Status:        models.Inactive,
		}

		err = st.CreateAccount(ctx, account)
		switch {
		case err == nil:
			return account, true, nil

		case errors.Is(err, db.ErrDuplicateAccount):
			// lost the race: another writer created the row first
			existing, err := st.AccountByOwner(ctx, userID, currency, accountType)
			if err != nil {
				return nil, false, fmt.Errorf("failed to re-read account after conflict: %w", err)
			}
			return existing, false, nil

		case errors.Is(err, db.ErrDuplicateAccountNumber):
			continue

		default:
			return nil, false, err
		}
	}

	return nil, false, fmt.Errorf("%w: account number kept colliding after %d attempts", ErrProvisioningFailed, maxNumberAttempts)
}

func (s *AccountService) announceCreated(ctx context.Context, account *models.Account) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishAccountCreated(ctx, account); err != nil {
		log.Printf("Failed to publish account created event for %s: %v", account.AccountNumber, err)
	}
}

// retrieves an account by account number
func (s *AccountService) GetAccount(ctx context.Context, number string) (*models.Account, error) {
	return s.store.AccountByNumber(ctx, number)
}

// retrieves all of a user's accounts
func (s *AccountService) GetAccountsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error) {
	return s.store.AccountsByUser(ctx, userID)
}

// SetStatus activates or deactivates an account. Deactivation is the only
// removal path; account rows are never deleted.
func (s *AccountService) SetStatus(ctx context.Context, number string, status models.AccountStatus) error {
	return s.store.SetAccountStatus(ctx, number, status)
}
