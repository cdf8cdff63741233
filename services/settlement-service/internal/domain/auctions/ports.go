package auctions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/buynow/pkg/events"
)

// AuctionRepository defines the interface for auction persistence
type AuctionRepository interface {
	// CreateAuction inserts a new auction, returning ErrAlreadyInitialized if the ID is taken
	CreateAuction(ctx context.Context, tx pgx.Tx, auction *Auction) error

	// GetAuctionByID retrieves an auction by its ID, returning ErrAuctionNotFound if absent
	GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*Auction, error)

	// GetAuctionByIDForUpdate retrieves an auction and locks its row until tx ends.
	// Every claim on the same auction queues behind this lock.
	GetAuctionByIDForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*Auction, error)

	// MarkSettled flips is_ended and records the purchaser. It only applies to open auctions.
	MarkSettled(ctx context.Context, tx pgx.Tx, auctionID, purchaserID uuid.UUID, settledAt time.Time) error
}

// Ledger is the custody ledger. Every call runs inside the caller's transaction
// so funds and custody move together with the auction flag.
type Ledger interface {
	// BalanceOf locks the account and returns its balance. Unknown accounts have a balance of 0.
	BalanceOf(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error)

	// Debit removes amount from accountID, journaled against auctionID
	Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, auctionID uuid.UUID) error

	// Credit adds amount to accountID, creating the account if needed
	Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, auctionID uuid.UUID) error

	// MintItem creates a custody record of supply units held by holderID
	MintItem(ctx context.Context, tx pgx.Tx, holderID uuid.UUID, supply int64) (uuid.UUID, error)

	// HolderOf locks the item and returns its current holder, or ErrItemNotHeld if it does not exist
	HolderOf(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) (uuid.UUID, error)

	// TransferCustody moves the item from one holder to another, failing if from is not the holder
	TransferCustody(ctx context.Context, tx pgx.Tx, itemID, from, to uuid.UUID) error
}

// OutboxRepository defines the write side of the transactional outbox
type OutboxRepository interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}

// SettledCache is an advisory record of settled auctions. It is never authoritative:
// a miss always falls through to the locked read.
type SettledCache interface {
	IsSettled(ctx context.Context, auctionID uuid.UUID) (bool, error)
	MarkSettled(ctx context.Context, auctionID uuid.UUID) error
}

// Clock supplies the current time for window checks
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
