package auctions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/floroz/buynow/pkg/database"
)

// Service is the auction state machine. Every mutation runs in one transaction
// that holds the auction row lock from the first read to commit.
type Service struct {
	txManager   database.TransactionManager
	auctionRepo AuctionRepository
	ledger      Ledger
	outboxRepo  OutboxRepository
	cache       SettledCache
	clock       Clock
}

// NewService creates a new auction service
func NewService(
	txManager database.TransactionManager,
	auctionRepo AuctionRepository,
	ledger Ledger,
	outboxRepo OutboxRepository,
	clock Clock,
) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{
		txManager:   txManager,
		auctionRepo: auctionRepo,
		ledger:      ledger,
		outboxRepo:  outboxRepo,
		clock:       clock,
	}
}

// WithSettledCache enables the settled fast path in Claim
func (s *Service) WithSettledCache(cache SettledCache) *Service {
	s.cache = cache
	return s
}

// Initialize creates the auction and moves the item from the owner into escrow.
// The escrow holder is the auction itself.
func (s *Service) Initialize(ctx context.Context, cmd InitializeCommand) (*Auction, error) {
	startAt, endAt := toStoredTime(cmd.StartAt), toStoredTime(cmd.EndAt)
	if err := validateWindow(startAt, endAt); err != nil {
		return nil, err
	}
	if err := validatePrice(cmd.Price, cmd.Reserve); err != nil {
		return nil, err
	}

	auctionID := cmd.AuctionID
	if auctionID == uuid.Nil {
		auctionID = uuid.New()
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Rollback if commit is not called
	}()

	itemID := cmd.ItemID
	if itemID == uuid.Nil {
		itemID, err = s.ledger.MintItem(ctx, tx, cmd.OwnerID, DefaultItemSupply)
		if err != nil {
			return nil, fmt.Errorf("failed to mint item: %w", err)
		}
	} else {
		holder, holderErr := s.ledger.HolderOf(ctx, tx, itemID)
		if holderErr != nil {
			return nil, holderErr
		}
		if holder != cmd.OwnerID {
			return nil, ErrItemNotHeld
		}
	}

	now := toStoredTime(s.clock.Now())
	auction := &Auction{
		ID:        auctionID,
		OwnerID:   cmd.OwnerID,
		ItemID:    itemID,
		StartAt:   startAt,
		EndAt:     endAt,
		Price:     cmd.Price,
		Reserve:   cmd.Reserve,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.auctionRepo.CreateAuction(ctx, tx, auction); err != nil {
		return nil, err
	}

	if err := s.ledger.TransferCustody(ctx, tx, itemID, cmd.OwnerID, auctionID); err != nil {
		return nil, fmt.Errorf("failed to escrow item: %w", err)
	}

	event, err := newInitializedEvent(auction)
	if err != nil {
		return nil, err
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return auction, nil
}

// Claim settles the auction for the purchaser. Checks run in order and the first
// failure returns with nothing written:
//
//  1. already settled        ErrAlreadySettled
//  2. clock outside window   ErrWindowClosed
//  3. source balance < price ErrInsufficientFunds
//  4. OwnerID given and wrong ErrOwnerMismatch
//  5. purchaser is the owner ErrOwnerCannotClaim
//
// Window times and the settlement time are kept at microsecond precision.
func (s *Service) Claim(ctx context.Context, cmd ClaimCommand) (*Auction, error) {
	source := cmd.PaymentSourceID
	if source == uuid.Nil {
		source = cmd.PurchaserID
	}

	// Advisory only; a cache error is a miss
	if s.cache != nil {
		if settled, err := s.cache.IsSettled(ctx, cmd.AuctionID); err == nil && settled {
			return nil, ErrAlreadySettled
		}
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	auction, err := s.auctionRepo.GetAuctionByIDForUpdate(ctx, tx, cmd.AuctionID)
	if err != nil {
		return nil, err
	}

	if auction.IsEnded {
		return nil, ErrAlreadySettled
	}
	now := s.clock.Now()
	if !auction.InWindow(now) {
		return nil, ErrWindowClosed
	}

	balance, err := s.ledger.BalanceOf(ctx, tx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if balance < auction.Price {
		return nil, ErrInsufficientFunds
	}

	if cmd.OwnerID != uuid.Nil && cmd.OwnerID != auction.OwnerID {
		return nil, ErrOwnerMismatch
	}
	if cmd.PurchaserID == auction.OwnerID {
		return nil, ErrOwnerCannotClaim
	}

	settledAt := toStoredTime(now)

	if err := s.ledger.Debit(ctx, tx, source, auction.Price, auction.ID); err != nil {
		return nil, fmt.Errorf("failed to debit payment source: %w", err)
	}
	if err := s.ledger.Credit(ctx, tx, auction.OwnerID, auction.Price, auction.ID); err != nil {
		return nil, fmt.Errorf("failed to credit owner: %w", err)
	}
	if err := s.ledger.TransferCustody(ctx, tx, auction.ItemID, auction.ID, cmd.PurchaserID); err != nil {
		return nil, fmt.Errorf("failed to release item: %w", err)
	}
	if err := s.auctionRepo.MarkSettled(ctx, tx, auction.ID, cmd.PurchaserID, settledAt); err != nil {
		return nil, fmt.Errorf("failed to mark auction settled: %w", err)
	}

	event, err := newSettledEvent(SettledEvent{
		AuctionID:       auction.ID,
		OwnerID:         auction.OwnerID,
		PurchaserID:     cmd.PurchaserID,
		PaymentSourceID: source,
		ItemID:          auction.ItemID,
		Price:           auction.Price,
		SettledAt:       settledAt,
	})
	if err != nil {
		return nil, err
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	purchaser := cmd.PurchaserID
	auction.IsEnded = true
	auction.PurchaserID = &purchaser
	auction.SettledAt = &settledAt
	auction.UpdatedAt = settledAt
	return auction, nil
}

// GetAuction returns the current auction record
func (s *Service) GetAuction(ctx context.Context, auctionID uuid.UUID) (*Auction, error) {
	return s.auctionRepo.GetAuctionByID(ctx, auctionID)
}
