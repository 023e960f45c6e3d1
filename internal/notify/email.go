package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/vertexbank/backend/internal/models"
)

// Mailer sends the account-opened email. Sending is fire-and-forget from the
// ledger's point of view: a failure here never rolls provisioning back.
type Mailer interface {
	SendAccountCreated(ctx context.Context, account *models.Account) error
}

// Gateway posts account-created notifications to an external mail gateway.
type Gateway struct {
	url    string
	client *http.Client
}

func NewGateway(url string) *Gateway {
	return &Gateway{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type accountCreatedPayload struct {
	UserID        string `json:"user_id"`
	AccountNumber string `json:"account_number"`
	Currency      string `json:"currency"`
	AccountType   string `json:"account_type"`
}

func (g *Gateway) SendAccountCreated(ctx context.Context, account *models.Account) error {
	payload := accountCreatedPayload{
		UserID:        account.UserID.String(),
		AccountNumber: account.AccountNumber,
		Currency:      string(account.Currency),
		AccountType:   string(account.AccountType),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer is the fallback when no gateway is configured.
type LogMailer struct{}

func (LogMailer) SendAccountCreated(ctx context.Context, account *models.Account) error {
	log.Printf("account created email for user %s, account %s", account.UserID, account.AccountNumber)
	return nil
}
