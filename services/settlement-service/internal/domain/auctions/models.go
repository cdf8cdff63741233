package auctions

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultItemSupply is the number of units minted when an auction is initialized without an item
const DefaultItemSupply int64 = 100

// Event types written to the outbox
const (
	EventTypeAuctionInitialized = "auction.initialized"
	EventTypeAuctionSettled     = "auction.settled"
)

// Auction is a fixed-price, time-boxed sale of a single escrowed item
type Auction struct {
	ID          uuid.UUID  `db:"id"`
	OwnerID     uuid.UUID  `db:"owner_id"`
	ItemID      uuid.UUID  `db:"item_id"`
	StartAt     time.Time  `db:"start_at"`
	EndAt       time.Time  `db:"end_at"`
	Price       int64      `db:"price"`
	Reserve     Reserve
	IsEnded     bool       `db:"is_ended"`
	PurchaserID *uuid.UUID `db:"purchaser_id"`
	SettledAt   *time.Time `db:"settled_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// InWindow reports whether t falls inside [StartAt, EndAt]
func (a *Auction) InWindow(t time.Time) bool {
	return !t.Before(a.StartAt) && !t.After(a.EndAt)
}

// Reserve is an optional minimum price. The zero value is None.
type Reserve struct {
	amount  int64
	present bool
}

// Some returns a reserve of amount
func Some(amount int64) Reserve {
	return Reserve{amount: amount, present: true}
}

// None returns an absent reserve
func None() Reserve {
	return Reserve{}
}

// Get returns the amount and whether the reserve is set
func (r Reserve) Get() (int64, bool) {
	return r.amount, r.present
}

func (r Reserve) IsSome() bool {
	return r.present
}

// Ptr converts the reserve to a nullable column value
func (r Reserve) Ptr() *int64 {
	if !r.present {
		return nil
	}
	v := r.amount
	return &v
}

// ReserveFromPtr is the inverse of Ptr
func ReserveFromPtr(v *int64) Reserve {
	if v == nil {
		return None()
	}
	return Some(*v)
}

func (r Reserve) String() string {
	if !r.present {
		return "none"
	}
	return fmt.Sprintf("%d", r.amount)
}

type InitializeCommand struct {
	// AuctionID is generated when nil
	AuctionID uuid.UUID
	OwnerID   uuid.UUID
	// ItemID is minted with DefaultItemSupply units when nil
	ItemID  uuid.UUID
	StartAt time.Time
	EndAt   time.Time
	Price   int64
	Reserve Reserve
}

type ClaimCommand struct {
	AuctionID   uuid.UUID
	PurchaserID uuid.UUID
	// OwnerID, when set, must match the auction owner
	OwnerID uuid.UUID
	// PaymentSourceID defaults to PurchaserID
	PaymentSourceID uuid.UUID
}
