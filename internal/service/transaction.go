package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/vertexbank/backend/internal/db"
	"github.com/vertexbank/backend/internal/models"
)

// TransactionService records monetary movements against the ledger.
type TransactionService struct {
	store  db.Store
	events Publisher
}

// creates a new TransactionService. events may be nil.
func NewTransactionService(store db.Store, events Publisher) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
	}
}

// Record applies one monetary movement atomically: the transaction row and
// its balance effect commit together or not at all. Insufficient funds is
// not an error; the returned transaction carries status failed and no
// balance moved. Each call records a new transaction; callers needing
// exactly-once retries must layer their own idempotency key on top.
func (s *TransactionService) Record(ctx context.Context, userID uuid.UUID, req *models.TransactionRequest) (*models.Transaction, error) {
	tx := &models.Transaction{
		UserID:          userID,
		Amount:          req.Amount,
		Description:     req.Description,
		Type:            req.Type,
		Status:          models.Pending,
		SenderAccount:   req.SenderAccount,
		ReceiverAccount: req.ReceiverAccount,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	// Resolve the user on each side so history keeps pointing at people
	// even after the accounts themselves are purged.
	if tx.SenderAccount != "" {
		sender, err := s.store.AccountByNumber(ctx, tx.SenderAccount)
		if err != nil {
			return nil, fmt.Errorf("sender account: %w", err)
		}
		tx.SenderID = sender.UserID
	}
	if tx.ReceiverAccount != "" {
		receiver, err := s.store.AccountByNumber(ctx, tx.ReceiverAccount)
		if err != nil {
			return nil, fmt.Errorf("receiver account: %w", err)
		}
		tx.ReceiverID = receiver.UserID
	}

	if err := s.store.RecordTransaction(ctx, tx); err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.PublishTransactionRecorded(ctx, tx); err != nil {
			log.Printf("Failed to publish transaction %s: %v", tx.ID, err)
		}
	}
	return tx, nil
}

// GetTransaction retrieves a transaction by ID
func (s *TransactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.store.TransactionByID(ctx, id)
}

// retrieves transactions for an account, newest first
func (s *TransactionService) GetTransactionsByAccount(ctx context.Context, number string, limit, offset int) ([]*models.Transaction, error) {
	if _, err := s.store.AccountByNumber(ctx, number); err != nil {
		return nil, err
	}
	return s.store.TransactionsByAccount(ctx, number, limit, offset)
}
