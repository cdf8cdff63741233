package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	pkgevents "github.com/floroz/buynow/pkg/events"
	"github.com/floroz/buynow/services/settlement-service/internal/domain/auctions"
)

// SettlementCacheQueue receives auction.settled events for the settled cache
const SettlementCacheQueue = "settlement_cache"

// SettledMarker records settled auctions
type SettledMarker interface {
	MarkSettled(ctx context.Context, auctionID uuid.UUID) error
}

// SettlementConsumer feeds the settled cache from auction.settled events
type SettlementConsumer struct {
	conn   *amqp.Connection
	marker SettledMarker
	logger *slog.Logger
}

// NewSettlementConsumer creates a new settlement consumer
func NewSettlementConsumer(conn *amqp.Connection, marker SettledMarker, logger *slog.Logger) *SettlementConsumer {
	return &SettlementConsumer{
		conn:   conn,
		marker: marker,
		logger: logger.With("component", "settlement_consumer"),
	}
}

// Run consumes until ctx is cancelled
func (c *SettlementConsumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if setupErr := c.setupRabbitMQ(ch); setupErr != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", setupErr)
	}

	msgs, err := ch.Consume(
		SettlementCacheQueue, // queue
		"",                   // consumer tag
		false,                // auto-ack
		false,                // exclusive
		false,                // no-local
		false,                // no-wait
		nil,                  // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Waiting for messages...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle acks processed messages, drops malformed ones and requeues on cache errors
func (c *SettlementConsumer) handle(ctx context.Context, d amqp.Delivery) {
	event, err := auctions.DecodeSettledEvent(d.Body)
	if err != nil {
		c.logger.Error("Failed to decode event", "message_id", d.MessageId, "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error("Failed to Nack message", "error", nackErr)
		}
		return
	}

	if err := c.marker.MarkSettled(ctx, event.AuctionID); err != nil {
		c.logger.Error("Failed to mark auction settled", "auction_id", event.AuctionID, "error", err)
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("Failed to Nack message (requeue)", "error", nackErr)
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		c.logger.Error("Failed to Ack message", "error", ackErr)
		return
	}
	c.logger.Info("Marked auction settled", "auction_id", event.AuctionID, "purchaser_id", event.PurchaserID)
}

func (c *SettlementConsumer) setupRabbitMQ(ch *amqp.Channel) error {
	if err := pkgevents.DeclareExchange(ch); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		SettlementCacheQueue, // name
		true,                 // durable
		false,                // delete when unused
		false,                // exclusive
		false,                // no-wait
		nil,                  // args
	)
	if err != nil {
		return err
	}

	return ch.QueueBind(
		q.Name,                           // queue name
		auctions.EventTypeAuctionSettled, // routing key
		pkgevents.ExchangeAuctionEvents,  // exchange
		false,
		nil,
	)
}
