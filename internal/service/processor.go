package service

import (
	"context"
	"log"

	"github.com/vertexbank/backend/internal/models"
	"github.com/vertexbank/backend/internal/notify"
	"github.com/vertexbank/backend/internal/queue"
)

// Archiver receives recorded transactions for the read model.
type Archiver interface {
	ArchiveTransaction(ctx context.Context, tx *models.Transaction) error
}

// Processor drains the ledger event queue: transactions go to the archive,
// freshly created accounts trigger the notification email. Both effects are
// post-commit; a failure here is logged and never reaches the publisher.
type Processor struct {
	archive Archiver
	mailer  notify.Mailer
}

// creates a new Processor
func NewProcessor(archive Archiver, mailer notify.Mailer) *Processor {
	return &Processor{
		archive: archive,
		mailer:  mailer,
	}
}

// Run consumes events until ctx is cancelled or the channel closes.
func (p *Processor) Run(ctx context.Context, events <-chan queue.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			p.handle(ctx, event)
		}
	}
}

func (p *Processor) handle(ctx context.Context, event queue.Event) {
	switch event.Kind {
	case queue.KindTransactionRecorded:
		if event.Transaction == nil {
			log.Printf("Dropping %s event with no transaction", event.Kind)
			return
		}
		if err := p.archive.ArchiveTransaction(ctx, event.Transaction); err != nil {
			log.Printf("Failed to archive transaction %s: %v", event.Transaction.ID, err)
		} else {
			log.Printf("Archived transaction %s", event.Transaction.ID)
		}

	case queue.KindAccountCreated:
		if event.Account == nil {
			log.Printf("Dropping %s event with no account", event.Kind)
			return
		}
		if err := p.mailer.SendAccountCreated(ctx, event.Account); err != nil {
			log.Printf("Failed to send account created email for %s: %v", event.Account.AccountNumber, err)
		}

	default:
		log.Printf("Dropping event with unknown kind %q", event.Kind)
	}
}
