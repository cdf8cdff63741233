package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/buynow/pkg/database"
)

// OutboxStatus defines the status of an event in the outbox
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusPublished  OutboxStatus = "published"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// DefaultMaxAttempts is how many publish attempts an event gets before it is parked as failed
const DefaultMaxAttempts = 5

// OutboxEvent is a domain event stored in the same transaction as the state change it describes
type OutboxEvent struct {
	ID          uuid.UUID    `db:"id"`
	AggregateID uuid.UUID    `db:"aggregate_id"`
	EventType   string       `db:"event_type"`
	Payload     []byte       `db:"payload"`
	Status      OutboxStatus `db:"status"`
	Attempts    int          `db:"attempts"`
	CreatedAt   time.Time    `db:"created_at"`
	ProcessedAt *time.Time   `db:"processed_at"`
}

// OutboxRepository is the storage side of the relay
type OutboxRepository interface {
	GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*OutboxEvent, error)
	UpdateEventStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status OutboxStatus) error
	// IncrementAttempts bumps the attempt counter and returns the new value
	IncrementAttempts(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error)
}

// EventPublisher delivers an outbox event to a broker
type EventPublisher interface {
	Publish(ctx context.Context, exchange string, event *OutboxEvent) error
}

// OutboxRelay polls the outbox for pending events and publishes them.
// Several relays may run against one database: rows are claimed with
// FOR UPDATE SKIP LOCKED by the repository.
type OutboxRelay struct {
	outboxRepo  OutboxRepository
	publisher   EventPublisher
	txManager   database.TransactionManager
	batchSize   int
	interval    time.Duration
	exchange    string
	maxAttempts int
	logger      *slog.Logger
}

// NewOutboxRelay creates a new outbox relay
func NewOutboxRelay(
	outboxRepo OutboxRepository,
	publisher EventPublisher,
	txManager database.TransactionManager,
	batchSize int,
	interval time.Duration,
	exchange string,
	logger *slog.Logger,
) *OutboxRelay {
	return &OutboxRelay{
		outboxRepo:  outboxRepo,
		publisher:   publisher,
		txManager:   txManager,
		batchSize:   batchSize,
		interval:    interval,
		exchange:    exchange,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger,
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts
func (r *OutboxRelay) WithMaxAttempts(n int) *OutboxRelay {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

// Run polls until ctx is cancelled
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if _, err := r.ProcessBatch(ctx); err != nil {
		r.logger.Error("Error processing batch", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil {
				r.logger.Error("Error processing batch", "error", err)
			}
		}
	}
}

// ProcessBatch publishes one batch of pending events and returns how many were published.
// A publish failure does not block the rest of the batch: the failing event keeps
// its pending status until it runs out of attempts.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	tx, err := r.txManager.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	events, err := r.outboxRepo.GetPendingEvents(ctx, tx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending events: %w", err)
	}

	if len(events) == 0 {
		return 0, nil
	}

	r.logger.Info("Processing events", "count", len(events))

	published := 0
	for _, event := range events {
		if pubErr := r.publisher.Publish(ctx, r.exchange, event); pubErr != nil {
			attempts, incErr := r.outboxRepo.IncrementAttempts(ctx, tx, event.ID)
			if incErr != nil {
				return 0, fmt.Errorf("failed to record attempt for event %s: %w", event.ID, incErr)
			}
			r.logger.Warn("Failed to publish event",
				"event_id", event.ID,
				"event_type", event.EventType,
				"attempts", attempts,
				"error", pubErr,
			)
			if attempts >= r.maxAttempts {
				if err := r.outboxRepo.UpdateEventStatus(ctx, tx, event.ID, OutboxStatusFailed); err != nil {
					return 0, fmt.Errorf("failed to park event %s: %w", event.ID, err)
				}
				r.logger.Error("Event parked as failed", "event_id", event.ID, "attempts", attempts)
			}
			continue
		}

		if err := r.outboxRepo.UpdateEventStatus(ctx, tx, event.ID, OutboxStatusPublished); err != nil {
			return 0, fmt.Errorf("failed to update event status %s: %w", event.ID, err)
		}
		published++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return published, nil
}
