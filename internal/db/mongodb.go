package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vertexbank/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Archive is the post-commit read model of the ledger. The processor copies
// every recorded transaction into it; statement queries read from here so
// reporting load never touches the ledger tables.
type Archive struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// archiveDoc is the stored shape of a transaction. Amounts are kept as
// two-decimal strings since BSON has no decimal scanner for our money type.
type archiveDoc struct {
	ID              string    `bson:"_id"`
	UserID          string    `bson:"user_id,omitempty"`
	Amount          string    `bson:"amount"`
	Description     string    `bson:"description,omitempty"`
	Type            string    `bson:"transaction_type"`
	Status          string    `bson:"status"`
	SenderAccount   string    `bson:"sender_account,omitempty"`
	ReceiverAccount string    `bson:"receiver_account,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
}

// creates a new Archive instance
func NewArchive(uri, dbName string) (*Archive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Mongodb: %w", err)
	}

	// pinging the database
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping Mongodb: %w", err)
	}

	collection := client.Database(dbName).Collection("transactions")

	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "sender_account", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "receiver_account", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	_, err = collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &Archive{
		client:     client,
		collection: collection,
	}, nil
}

// closes the archive connection
func (a *Archive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}

// ArchiveTransaction upserts a recorded transaction into the archive.
// Upsert keeps redelivered queue messages harmless.
func (a *Archive) ArchiveTransaction(ctx context.Context, tx *models.Transaction) error {
	doc := archiveDoc{
		ID:              tx.ID.String(),
		Amount:          tx.Amount.StringFixed(2),
		Description:     tx.Description,
		Type:            string(tx.Type),
		Status:          string(tx.Status),
		SenderAccount:   tx.SenderAccount,
		ReceiverAccount: tx.ReceiverAccount,
		CreatedAt:       tx.CreatedAt,
	}
	if tx.UserID != uuid.Nil {
		doc.UserID = tx.UserID.String()
	}

	opts := options.Replace().SetUpsert(true)
	_, err := a.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to archive transaction: %w", err)
	}
	return nil
}

// StatementEntry is one line of an account statement.
type StatementEntry struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	Type            string          `json:"transaction_type"`
	Status          string          `json:"status"`
	SenderAccount   string          `json:"sender_account,omitempty"`
	ReceiverAccount string          `json:"receiver_account,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Statement retrieves archived transactions for an account, newest first.
func (a *Archive) Statement(ctx context.Context, accountNumber string, limit, offset int) ([]StatementEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	filter := bson.M{"$or": bson.A{
		bson.M{"sender_account": accountNumber},
		bson.M{"receiver_account": accountNumber},
	}}

	cursor, err := a.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find archived transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []archiveDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode archived transactions: %w", err)
	}

	entries := make([]StatementEntry, 0, len(docs))
	for _, doc := range docs {
		amount, err := decimal.NewFromString(doc.Amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt archived amount %q: %w", doc.Amount, err)
		}
		entries = append(entries, StatementEntry{
			ID:              doc.ID,
			Amount:          amount,
			Description:     doc.Description,
			Type:            doc.Type,
			Status:          doc.Status,
			SenderAccount:   doc.SenderAccount,
			ReceiverAccount: doc.ReceiverAccount,
			CreatedAt:       doc.CreatedAt,
		})
	}
	return entries, nil
}
