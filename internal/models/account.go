package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidBalance indicates a balance below zero.
	ErrInvalidBalance = errors.New("account balance cannot be negative")

	// ErrInvalidEnumValue indicates a value outside one of the closed enum sets.
	ErrInvalidEnumValue = errors.New("invalid enum value")
)

type Currency string

const (
	// Naira is the local default currency
	Naira Currency = "naira"

	// USDollar represents US Dollar accounts
	USDollar Currency = "us_dollar"

	// PoundSterling represents Pound Sterling accounts
	PoundSterling Currency = "pound_sterling"
)

type AccountType string

const (
	// Current represents a current account
	Current AccountType = "current"

	// Savings represents a savings account
	Savings AccountType = "savings"
)

type AccountStatus string

const (
	// Active indicates the account can be transacted on
	Active AccountStatus = "active"

	// Inactive is the initial status of a newly provisioned account
	Inactive AccountStatus = "in-active"
)

// Account is a currency- and type-scoped balance holder owned by one user.
// A user holds at most one account per (currency, account type) pair.
type Account struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	AccountNumber string          `json:"account_number" db:"account_number"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	Currency      Currency        `json:"currency" db:"currency"`
	AccountType   AccountType     `json:"account_type" db:"account_type"`
	Status        AccountStatus   `json:"account_status" db:"account_status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate checks the account against the ledger invariants: a non-negative
// balance and closed enum sets for currency, type and status.
func (a *Account) Validate() error {
	if a.Balance.IsNegative() {
		return ErrInvalidBalance
	}
	if err := a.Currency.Validate(); err != nil {
		return err
	}
	if err := a.AccountType.Validate(); err != nil {
		return err
	}
	return a.Status.Validate()
}

func (c Currency) Validate() error {
	switch c {
	case Naira, USDollar, PoundSterling:
		return nil
	}
	return fmt.Errorf("%w: currency %q", ErrInvalidEnumValue, string(c))
}

func (t AccountType) Validate() error {
	switch t {
	case Current, Savings:
		return nil
	}
	return fmt.Errorf("%w: account type %q", ErrInvalidEnumValue, string(t))
}

func (s AccountStatus) Validate() error {
	switch s {
	case Active, Inactive:
		return nil
	}
	return fmt.Errorf("%w: account status %q", ErrInvalidEnumValue, string(s))
}

// represents the request to open an account administratively
type OpenAccountRequest struct {
	UserID      uuid.UUID   `json:"user_id" validate:"required"`
	Currency    Currency    `json:"currency" validate:"required"`
	AccountType AccountType `json:"account_type" validate:"required"`
}

// represents the API response for account data
type AccountResponse struct {
	AccountNumber string          `json:"account_number"`
	UserID        uuid.UUID       `json:"user_id"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      Currency        `json:"currency"`
	AccountType   AccountType     `json:"account_type"`
	Status        AccountStatus   `json:"account_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewAccountResponse maps an account to its API representation.
func NewAccountResponse(a *Account) AccountResponse {
	return AccountResponse{
		AccountNumber: a.AccountNumber,
		UserID:        a.UserID,
		Balance:       a.Balance,
		Currency:      a.Currency,
		AccountType:   a.AccountType,
		Status:        a.Status,
		CreatedAt:     a.CreatedAt,
	}
}
