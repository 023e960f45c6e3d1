package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vertexbank/backend/internal/db"
	"github.com/vertexbank/backend/internal/models"
)

// ProfileService orchestrates profile updates. A successful update also
// guarantees the user holds the default naira savings account; profile
// mutation and account provisioning are one atomic unit.
type ProfileService struct {
	store    db.Store
	accounts *AccountService
	events   Publisher
}

// creates a new ProfileService. events may be nil.
func NewProfileService(store db.Store, accounts *AccountService, events Publisher) *ProfileService {
	return &ProfileService{
		store:    store,
		accounts: accounts,
		events:   events,
	}
}

// ProfileUpdateResult reports which of the two defined outcomes occurred.
// There is no third silent-failure outcome: if provisioning fails the whole
// update fails and the profile mutation rolls back with it.
type ProfileUpdateResult struct {
	Profile        *models.Profile
	Account        *models.Account
	AccountCreated bool
}

// UpdateProfile persists the profile mutation and ensures the default
// account inside one unit of work.
func (s *ProfileService) UpdateProfile(ctx context.Context, profile *models.Profile) (*ProfileUpdateResult, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	var result ProfileUpdateResult
	err := s.store.ExecTx(ctx, func(st db.Store) error {
		if err := st.SaveProfile(ctx, profile); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		account, created, err := s.accounts.ensureIn(ctx, st, profile.UserID, models.Naira, models.Savings)
		if err != nil {
			return err
		}

		result = ProfileUpdateResult{
			Profile:        profile,
			Account:        account,
			AccountCreated: created,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// announce only after the unit committed
	if result.AccountCreated {
		s.accounts.announceCreated(ctx, result.Account)
	}
	return &result, nil
}

// GetProfile retrieves a user's profile
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return s.store.ProfileByUser(ctx, userID)
}
