package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgdb "github.com/floroz/buynow/pkg/database"
	pkgevents "github.com/floroz/buynow/pkg/events"
)

// ErrEventNotFound is returned when a status update matches no outbox row
var ErrEventNotFound = errors.New("outbox event not found")

const outboxColumns = `id, aggregate_id, event_type, payload, status, attempts, created_at, processed_at`

// PostgresOutboxRepository is the write side used by auctions.Service and the
// read side used by the relay in pkg/events.
type PostgresOutboxRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOutboxRepository(pool *pgxpool.Pool) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{pool: pool}
}

// SaveEvent writes the event in the caller's transaction so it commits with the state change
func (r *PostgresOutboxRepository) SaveEvent(ctx context.Context, tx pgx.Tx, event *pkgevents.OutboxEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (id, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5::outbox_status, $6)`,
		event.ID, event.AggregateID, event.EventType, event.Payload, event.Status, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event %s: %w", event.EventType, err)
	}
	return nil
}

// GetPendingEvents claims up to limit pending events, oldest first.
// SKIP LOCKED lets several relays drain the outbox without double publishing.
func (r *PostgresOutboxRepository) GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*pkgevents.OutboxEvent, error) {
	return queryEvents(ctx, tx, `
		SELECT `+outboxColumns+`
		FROM outbox_events
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
}

// EventsForAggregate lists every event recorded for one auction, oldest first
func (r *PostgresOutboxRepository) EventsForAggregate(ctx context.Context, aggregateID uuid.UUID) ([]*pkgevents.OutboxEvent, error) {
	return queryEvents(ctx, r.pool, `
		SELECT `+outboxColumns+`
		FROM outbox_events
		WHERE aggregate_id = $1
		ORDER BY created_at, id`, aggregateID)
}

// UpdateEventStatus moves an event out of pending. processed_at is stamped for terminal states.
func (r *PostgresOutboxRepository) UpdateEventStatus(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, status pkgevents.OutboxStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET status = $1::outbox_status,
		    processed_at = CASE WHEN $1::outbox_status = 'pending' THEN NULL ELSE NOW() END
		WHERE id = $2`,
		status, eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	return nil
}

// IncrementAttempts records a failed publish and returns the attempt count
func (r *PostgresOutboxRepository) IncrementAttempts(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (int, error) {
	var attempts int
	err := tx.QueryRow(ctx,
		`UPDATE outbox_events SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`,
		eventID,
	).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return attempts, nil
}

func queryEvents(ctx context.Context, db pkgdb.DBTX, query string, args ...any) ([]*pkgevents.OutboxEvent, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*pkgevents.OutboxEvent
	for rows.Next() {
		var e pkgevents.OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.Status, &e.Attempts, &e.CreatedAt, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
