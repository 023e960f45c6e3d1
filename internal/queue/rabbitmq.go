package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"github.com/vertexbank/backend/internal/models"
)

const (
	// queue for ledger events
	EventQueue = "ledger.events"
)

// Event kinds carried on the queue.
const (
	KindAccountCreated      = "account.created"
	KindTransactionRecorded = "transaction.recorded"
)

// Event is the envelope published after a ledger commit. Exactly one of
// Account or Transaction is set, per Kind.
type Event struct {
	Kind        string              `json:"kind"`
	Account     *models.Account     `json:"account,omitempty"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// handles RabbitMQ operations
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func NewRabbitMQ(uri string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		EventQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

// PublishAccountCreated announces a freshly provisioned account.
func (r *RabbitMQ) PublishAccountCreated(ctx context.Context, account *models.Account) error {
	return r.publish(Event{Kind: KindAccountCreated, Account: account})
}

// PublishTransactionRecorded announces a recorded transaction for archival.
func (r *RabbitMQ) PublishTransactionRecorded(ctx context.Context, tx *models.Transaction) error {
	return r.publish(Event{Kind: KindTransactionRecorded, Transaction: tx})
}

func (r *RabbitMQ) publish(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Publish a message
	err = r.channel.Publish(
		"",         // exchange
		EventQueue, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // make message persistent
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}

	return nil
}

// consumes ledger events from the queue
func (r *RabbitMQ) ConsumeEvents(ctx context.Context) (<-chan Event, error) {
	msgs, err := r.channel.Consume(
		EventQueue, // queue
		"",         // consumer
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	// Create a channel for events
	eventChan := make(chan Event)

	go pump(ctx, msgs, eventChan)

	return eventChan, nil
}

// pump decodes deliveries onto out until ctx is cancelled or msgs closes.
// A delivery is acked only after its event is handed off; if cancellation
// wins the handoff the message stays unacked and the broker redelivers it.
func pump(ctx context.Context, msgs <-chan amqp.Delivery, out chan<- Event) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				// Log error and continue
				fmt.Printf("failed to unmarshal event: %v\n", err)
				msg.Reject(false) // Don't requeue
				continue
			}

			select {
			case out <- event:
				msg.Ack(false)
			case <-ctx.Done():
				return
			}
		}
	}
}
