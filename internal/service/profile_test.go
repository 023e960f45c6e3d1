package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vertexbank/backend/internal/db"
	"github.com/vertexbank/backend/internal/models"
)

func newProfileService(store *db.Memory, generator NumberGenerator, events Publisher) *ProfileService {
	accounts := NewAccountService(store, generator, events)
	return NewProfileService(store, accounts, events)
}

func sampleProfile(userID uuid.UUID) *models.Profile {
	return &models.Profile{
		UserID:        userID,
		FullName:      "Ada Obi",
		Gender:        models.Female,
		MaritalStatus: models.Single,
		PhoneNumber:   "+2348012345678",
	}
}

func TestUpdateProfileCreatesDefaultAccount(t *testing.T) {
	store := db.NewMemory()
	events := &fakePublisher{}
	svc := newProfileService(store, &seqGenerator{}, events)
	ctx := context.Background()
	userID := uuid.New()

	result, err := svc.UpdateProfile(ctx, sampleProfile(userID))
	require.NoError(t, err)
	assert.True(t, result.AccountCreated)
	assert.Equal(t, models.Naira, result.Account.Currency)
	assert.Equal(t, models.Savings, result.Account.AccountType)
	assert.Equal(t, models.Inactive, result.Account.Status)
	assert.True(t, result.Account.Balance.IsZero())

	// the profile is readable back
	profile, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", profile.FullName)

	// the account-created event went out after commit
	assert.Len(t, events.accounts, 1)
}

func TestUpdateProfileSecondTimeReportsExisting(t *testing.T) {
	store := db.NewMemory()
	svc := newProfileService(store, &seqGenerator{}, nil)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.UpdateProfile(ctx, sampleProfile(userID))
	require.NoError(t, err)
	require.True(t, first.AccountCreated)

	updated := sampleProfile(userID)
	updated.MaritalStatus = models.Married
	second, err := svc.UpdateProfile(ctx, updated)
	require.NoError(t, err)

	assert.False(t, second.AccountCreated)
	assert.Equal(t, first.Account.AccountNumber, second.Account.AccountNumber)

	profile, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.Married, profile.MaritalStatus)

	accounts, err := store.AccountsByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1, "no duplicate default account")
}

func TestUpdateProfileRollsBackWhenProvisioningFails(t *testing.T) {
	store := db.NewMemory()
	ctx := context.Background()

	// occupy the only number the generator will ever produce
	taken := &models.Account{
		UserID:        uuid.New(),
		AccountNumber: "1111111111",
		Currency:      models.Naira,
		AccountType:   models.Savings,
		Status:        models.Inactive,
	}
	require.NoError(t, store.CreateAccount(ctx, taken))

	svc := newProfileService(store, &seqGenerator{fixed: "1111111111"}, nil)
	userID := uuid.New()

	_, err := svc.UpdateProfile(ctx, sampleProfile(userID))
	require.ErrorIs(t, err, ErrProvisioningFailed)

	// provisioning failure aborts the whole unit: no profile survives
	_, err = svc.GetProfile(ctx, userID)
	assert.ErrorIs(t, err, db.ErrProfileNotFound)

	accounts, err := store.AccountsByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

// racingStore loses the provisioning race: the first owner lookup reports no
// account while a rival writer slips the row in underneath, so the following
// insert collides on the owner key and the caller has to re-read.
type racingStore struct {
	db.Store
	rival *models.Account
	raced bool
}

func (r *racingStore) AccountByOwner(ctx context.Context, userID uuid.UUID, currency models.Currency, accountType models.AccountType) (*models.Account, error) {
	if !r.raced {
		r.raced = true
		if err := r.Store.CreateAccount(ctx, r.rival); err != nil {
			return nil, err
		}
		return nil, db.ErrAccountNotFound
	}
	return r.Store.AccountByOwner(ctx, userID, currency, accountType)
}

func (r *racingStore) ExecTx(ctx context.Context, fn func(db.Store) error) error {
	return fn(r)
}

func TestUpdateProfileResolvesLostProvisioningRace(t *testing.T) {
	inner := db.NewMemory()
	ctx := context.Background()
	userID := uuid.New()

	store := &racingStore{
		Store: inner,
		rival: &models.Account{
			UserID:        userID,
			AccountNumber: "2222222222",
			Currency:      models.Naira,
			AccountType:   models.Savings,
			Status:        models.Inactive,
		},
	}
	accounts := NewAccountService(store, &seqGenerator{}, nil)
	svc := NewProfileService(store, accounts, nil)

	result, err := svc.UpdateProfile(ctx, sampleProfile(userID))
	require.NoError(t, err)

	// the loser adopts the rival's account instead of erroring out
	assert.False(t, result.AccountCreated)
	assert.Equal(t, "2222222222", result.Account.AccountNumber)

	// the rest of the unit still committed
	profile, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", profile.FullName)

	all, err := inner.AccountsByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, all, 1, "exactly one account survives the race")
}

func TestUpdateProfileRejectsInvalidEnums(t *testing.T) {
	store := db.NewMemory()
	svc := newProfileService(store, &seqGenerator{}, nil)

	profile := sampleProfile(uuid.New())
	profile.Gender = "other"

	_, err := svc.UpdateProfile(context.Background(), profile)
	assert.ErrorIs(t, err, models.ErrInvalidEnumValue)
}
