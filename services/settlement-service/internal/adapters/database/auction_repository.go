package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgdb "github.com/floroz/buynow/pkg/database"
	"github.com/floroz/buynow/services/settlement-service/internal/domain/auctions"
)

const auctionsPrimaryKey = "auctions_pkey"

// PostgresAuctionRepository implements auctions.AuctionRepository using pgx
type PostgresAuctionRepository struct {
	pool *pgxpool.Pool // Keep pool for non-transactional reads
}

// NewPostgresAuctionRepository creates a new PostgreSQL auction repository
func NewPostgresAuctionRepository(pool *pgxpool.Pool) *PostgresAuctionRepository {
	return &PostgresAuctionRepository{pool: pool}
}

// CreateAuction inserts the auction within a transaction
func (r *PostgresAuctionRepository) CreateAuction(ctx context.Context, tx pgx.Tx, a *auctions.Auction) error {
	query := `
		INSERT INTO auctions (id, owner_id, item_id, start_at, end_at, price, reserve_price, is_ended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)
	`
	_, err := tx.Exec(ctx, query,
		a.ID,
		a.OwnerID,
		a.ItemID,
		a.StartAt,
		a.EndAt,
		a.Price,
		a.Reserve.Ptr(),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if pkgdb.IsUniqueViolation(err) {
			if pkgdb.ConstraintName(err) == auctionsPrimaryKey {
				return auctions.ErrAlreadyInitialized
			}
			// the only other unique index is one open auction per item
			return auctions.ErrItemNotHeld
		}
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

// GetAuctionByID retrieves an auction by its ID (non-transactional read)
func (r *PostgresAuctionRepository) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*auctions.Auction, error) {
	return r.getAuctionByID(ctx, r.pool, auctionID, false)
}

// GetAuctionByIDForUpdate retrieves an auction and holds its row lock until tx ends
func (r *PostgresAuctionRepository) GetAuctionByIDForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*auctions.Auction, error) {
	return r.getAuctionByID(ctx, tx, auctionID, true)
}

func (r *PostgresAuctionRepository) getAuctionByID(ctx context.Context, db pkgdb.DBTX, auctionID uuid.UUID, forUpdate bool) (*auctions.Auction, error) {
	query := `
		SELECT id, owner_id, item_id, start_at, end_at, price, reserve_price,
		       is_ended, purchaser_id, settled_at, created_at, updated_at
		FROM auctions
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		a       auctions.Auction
		reserve *int64
	)
	err := db.QueryRow(ctx, query, auctionID).Scan(
		&a.ID,
		&a.OwnerID,
		&a.ItemID,
		&a.StartAt,
		&a.EndAt,
		&a.Price,
		&reserve,
		&a.IsEnded,
		&a.PurchaserID,
		&a.SettledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auctions.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	a.Reserve = auctions.ReserveFromPtr(reserve)
	return &a, nil
}

// MarkSettled ends an open auction. There is no statement that clears is_ended.
func (r *PostgresAuctionRepository) MarkSettled(ctx context.Context, tx pgx.Tx, auctionID, purchaserID uuid.UUID, settledAt time.Time) error {
	query := `
		UPDATE auctions
		SET is_ended = TRUE, purchaser_id = $1, settled_at = $2, updated_at = $2
		WHERE id = $3 AND is_ended = FALSE
	`
	result, err := tx.Exec(ctx, query, purchaserID, settledAt, auctionID)
	if err != nil {
		return fmt.Errorf("failed to mark auction settled: %w", err)
	}

	if result.RowsAffected() == 0 {
		return auctions.ErrAlreadySettled
	}

	return nil
}
