package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	pkgdb "github.com/floroz/buynow/pkg/database"
	pkgevents "github.com/floroz/buynow/pkg/events"
	"github.com/floroz/buynow/services/settlement-service/internal/adapters/database"
)

// RelayConfig tunes the outbox relay
type RelayConfig struct {
	BatchSize   int
	Interval    time.Duration
	LockTimeout time.Duration
	MaxAttempts int
}

// SettlementEventsProducer relays auction events from the outbox to RabbitMQ
type SettlementEventsProducer struct {
	relay     *pkgevents.OutboxRelay
	publisher *pkgevents.RabbitMQPublisher
}

// NewSettlementEventsProducer creates a new producer
func NewSettlementEventsProducer(pool *pgxpool.Pool, conn *amqp.Connection, cfg RelayConfig, logger *slog.Logger) (*SettlementEventsProducer, error) {
	publisher, err := pkgevents.NewRabbitMQPublisher(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	outboxRepo := database.NewPostgresOutboxRepository(pool)

	relay := pkgevents.NewOutboxRelay(
		outboxRepo,
		publisher,
		txManager,
		cfg.BatchSize,
		cfg.Interval,
		pkgevents.ExchangeAuctionEvents,
		logger.With("component", "outbox_relay"),
	).WithMaxAttempts(cfg.MaxAttempts)

	return &SettlementEventsProducer{
		relay:     relay,
		publisher: publisher,
	}, nil
}

// Run starts the relay loop
func (p *SettlementEventsProducer) Run(ctx context.Context) error {
	return p.relay.Run(ctx)
}

// Close closes the publisher channel
func (p *SettlementEventsProducer) Close() error {
	return p.publisher.Close()
}
