package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeAuctionEvents is the topic exchange all auction events are published to
const ExchangeAuctionEvents = "auction.events"

// ErrPublishNacked is returned when the broker refuses a message
var ErrPublishNacked = errors.New("broker nacked message")

// RabbitMQPublisher implements EventPublisher with publisher confirms enabled,
// so an event is only marked published once the broker has taken it.
type RabbitMQPublisher struct {
	mu      sync.Mutex
	channel *amqp.Channel
}

// NewRabbitMQPublisher opens a confirm-mode channel and declares the exchange
func NewRabbitMQPublisher(conn *amqp.Connection) (*RabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &RabbitMQPublisher{channel: ch}, nil
}

// DeclareExchange declares the durable auction events exchange
func DeclareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeAuctionEvents, // name
		"topic",               // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

// Close closes the channel
func (p *RabbitMQPublisher) Close() error {
	return p.channel.Close()
}

// Publish sends the event using its type as routing key and waits for the broker confirm
func (p *RabbitMQPublisher) Publish(ctx context.Context, exchange string, event *OutboxEvent) error {
	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx,
		exchange,        // exchange
		event.EventType, // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType:  "application/x-protobuf",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Type:         event.EventType,
			Timestamp:    event.CreatedAt,
			Body:         event.Payload,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for confirm: %w", err)
	}
	if !acked {
		return ErrPublishNacked
	}
	return nil
}
