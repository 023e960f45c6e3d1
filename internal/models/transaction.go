package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates a transaction amount that is not strictly positive.
	ErrInvalidAmount = errors.New("transaction amount must be greater than zero")

	// ErrMissingAccount indicates a transaction type whose required account reference is absent.
	ErrMissingAccount = errors.New("required account reference is missing")

	// ErrSameAccount indicates a transfer where sender and receiver are the same account.
	ErrSameAccount = errors.New("sender and receiver accounts must differ")
)

type TransactionType string

const (
	// Deposit credits the receiver account
	Deposit TransactionType = "deposit"

	// Withdrawal debits the sender account
	Withdrawal TransactionType = "withdrawal"

	// Transfer debits the sender account and credits the receiver account
	Transfer TransactionType = "transfer"

	// Interest credits the receiver account; there is no debit side
	Interest TransactionType = "interest"
)

type TransactionStatus string

const (
	// Pending indicates the transaction is in processing state.
	Pending TransactionStatus = "pending"

	// Completed indicates the transaction successfully processed
	Completed TransactionStatus = "completed"

	// Failed indicates the transaction failed to process
	Failed TransactionStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s TransactionStatus) Terminal() bool {
	return s == Completed || s == Failed
}

func (s TransactionStatus) Validate() error {
	switch s {
	case Pending, Completed, Failed:
		return nil
	}
	return fmt.Errorf("%w: transaction status %q", ErrInvalidEnumValue, string(s))
}

func (t TransactionType) Validate() error {
	switch t {
	case Deposit, Withdrawal, Transfer, Interest:
		return nil
	}
	return fmt.Errorf("%w: transaction type %q", ErrInvalidEnumValue, string(t))
}

// Transaction represents a single monetary movement. The amount is a positive
// magnitude; the direction of the balance effect is implied by the type.
// Account and user references are optional so that history survives deletion
// of the entities it refers to.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id,omitempty"`
	Amount          decimal.Decimal   `json:"amount"`
	Description     string            `json:"description,omitempty"`
	Type            TransactionType   `json:"transaction_type"`
	Status          TransactionStatus `json:"status"`
	SenderID        uuid.UUID         `json:"sender_id,omitempty"`
	ReceiverID      uuid.UUID         `json:"receiver_id,omitempty"`
	SenderAccount   string            `json:"sender_account,omitempty"`
	ReceiverAccount string            `json:"receiver_account,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Validate checks the amount, the enum sets, and the per-type account
// reference requirements: deposit and interest need a receiver, withdrawal
// needs a sender, transfer needs both and they must differ.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Status.Validate(); err != nil {
		return err
	}

	switch t.Type {
	case Deposit, Interest:
		if t.ReceiverAccount == "" {
			return fmt.Errorf("%w: %s requires a receiver account", ErrMissingAccount, t.Type)
		}
	case Withdrawal:
		if t.SenderAccount == "" {
			return fmt.Errorf("%w: withdrawal requires a sender account", ErrMissingAccount)
		}
	case Transfer:
		if t.SenderAccount == "" || t.ReceiverAccount == "" {
			return fmt.Errorf("%w: transfer requires sender and receiver accounts", ErrMissingAccount)
		}
		if t.SenderAccount == t.ReceiverAccount {
			return ErrSameAccount
		}
	}
	return nil
}

// represents the request to record a new transaction
type TransactionRequest struct {
	Type            TransactionType `json:"transaction_type" validate:"required,oneof=deposit withdrawal transfer interest"`
	Amount          decimal.Decimal `json:"amount" validate:"required,gt=0"`
	SenderAccount   string          `json:"sender_account,omitempty"`
	ReceiverAccount string          `json:"receiver_account,omitempty"`
	Description     string          `json:"description,omitempty"`
}

// represents the API response for transaction data
type TransactionResponse struct {
	ID              uuid.UUID         `json:"id"`
	Type            TransactionType   `json:"transaction_type"`
	Amount          decimal.Decimal   `json:"amount"`
	Status          TransactionStatus `json:"status"`
	SenderAccount   string            `json:"sender_account,omitempty"`
	ReceiverAccount string            `json:"receiver_account,omitempty"`
	Description     string            `json:"description,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NewTransactionResponse maps a transaction to its API representation.
func NewTransactionResponse(t *Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		Type:            t.Type,
		Amount:          t.Amount,
		Status:          t.Status,
		SenderAccount:   t.SenderAccount,
		ReceiverAccount: t.ReceiverAccount,
		Description:     t.Description,
		CreatedAt:       t.CreatedAt,
	}
}
