package auctions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/buynow/pkg/events"
	"github.com/floroz/buynow/pkg/testhelpers"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	txManager *testhelpers.MockTransactionManager
	repo      *MockAuctionRepository
	ledger    *MockLedger
	outbox    *MockOutboxRepository
	clock     *testhelpers.FixedClock
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		txManager: new(testhelpers.MockTransactionManager),
		repo:      new(MockAuctionRepository),
		ledger:    new(MockLedger),
		outbox:    new(MockOutboxRepository),
		clock:     testhelpers.NewFixedClock(testNow),
	}
	f.svc = NewService(f.txManager, f.repo, f.ledger, f.outbox, f.clock)
	return f
}

func (f *fixture) beginWith(tx *testhelpers.MockTx) {
	f.txManager.On("BeginTx", mock.Anything).Return(tx, nil).Once()
}

func openAuction() *Auction {
	return &Auction{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		ItemID:  uuid.New(),
		StartAt: testNow.Add(-time.Hour),
		EndAt:   testNow.Add(time.Hour),
		Price:   9_999_999,
		Reserve: None(),
	}
}

func eventOfType(eventType string) interface{} {
	return mock.MatchedBy(func(e *events.OutboxEvent) bool {
		return e.EventType == eventType && e.Status == events.OutboxStatusPending
	})
}

func TestService_Initialize_Validation(t *testing.T) {
	owner := uuid.New()
	tests := []struct {
		name    string
		cmd     InitializeCommand
		wantErr error
	}{
		{
			name:    "start equals end",
			cmd:     InitializeCommand{OwnerID: owner, StartAt: testNow, EndAt: testNow, Price: 10},
			wantErr: ErrInvalidWindow,
		},
		{
			name:    "start after end",
			cmd:     InitializeCommand{OwnerID: owner, StartAt: testNow.Add(time.Hour), EndAt: testNow, Price: 10},
			wantErr: ErrInvalidWindow,
		},
		{
			name:    "window within one microsecond",
			cmd:     InitializeCommand{OwnerID: owner, StartAt: testNow.Add(100 * time.Nanosecond), EndAt: testNow.Add(200 * time.Nanosecond), Price: 10},
			wantErr: ErrInvalidWindow,
		},
		{
			name:    "zero price",
			cmd:     InitializeCommand{OwnerID: owner, StartAt: testNow, EndAt: testNow.Add(time.Hour), Price: 0},
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "negative price",
			cmd:     InitializeCommand{OwnerID: owner, StartAt: testNow, EndAt: testNow.Add(time.Hour), Price: -5},
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "reserve above price",
			cmd:     InitializeCommand{OwnerID: owner, StartAt: testNow, EndAt: testNow.Add(time.Hour), Price: 10, Reserve: Some(11)},
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "zero reserve",
			cmd:     InitializeCommand{OwnerID: owner, StartAt: testNow, EndAt: testNow.Add(time.Hour), Price: 10, Reserve: Some(0)},
			wantErr: ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			auction, err := f.svc.Initialize(context.Background(), tt.cmd)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, auction)
			f.txManager.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}
}

func TestService_Initialize_MintsItemWhenNoneGiven(t *testing.T) {
	f := newFixture()
	tx := testhelpers.NewCommittingTx()
	f.beginWith(tx)

	auctionID := uuid.New()
	owner := uuid.New()
	itemID := uuid.New()

	f.ledger.On("MintItem", mock.Anything, tx, owner, DefaultItemSupply).Return(itemID, nil).Once()
	f.repo.On("CreateAuction", mock.Anything, tx, mock.MatchedBy(func(a *Auction) bool {
		return a.ID == auctionID && a.ItemID == itemID && !a.IsEnded
	})).Return(nil).Once()
	f.ledger.On("TransferCustody", mock.Anything, tx, itemID, owner, auctionID).Return(nil).Once()
	f.outbox.On("SaveEvent", mock.Anything, tx, eventOfType(EventTypeAuctionInitialized)).Return(nil).Once()

	auction, err := f.svc.Initialize(context.Background(), InitializeCommand{
		AuctionID: auctionID,
		OwnerID:   owner,
		StartAt:   testNow,
		EndAt:     testNow.Add(time.Hour),
		Price:     9_999_999,
		Reserve:   Some(5_000_000),
	})

	require.NoError(t, err)
	assert.Equal(t, auctionID, auction.ID)
	assert.Equal(t, itemID, auction.ItemID)
	assert.False(t, auction.IsEnded)
	reserve, ok := auction.Reserve.Get()
	assert.True(t, ok)
	assert.Equal(t, int64(5_000_000), reserve)
	assert.Equal(t, testNow, auction.CreatedAt)

	f.ledger.AssertExpectations(t)
	f.repo.AssertExpectations(t)
	f.outbox.AssertExpectations(t)
	tx.AssertExpectations(t)
}

func TestService_Initialize_TruncatesToMicroseconds(t *testing.T) {
	f := newFixture()
	f.clock.Set(testNow.Add(999 * time.Nanosecond))
	tx := testhelpers.NewCommittingTx()
	f.beginWith(tx)

	owner := uuid.New()
	itemID := uuid.New()
	startAt := testNow.Add(time.Microsecond + 100*time.Nanosecond)
	endAt := testNow.Add(time.Hour + 700*time.Nanosecond)

	f.ledger.On("MintItem", mock.Anything, tx, owner, DefaultItemSupply).Return(itemID, nil).Once()
	f.repo.On("CreateAuction", mock.Anything, tx, mock.MatchedBy(func(a *Auction) bool {
		return a.StartAt.Equal(testNow.Add(time.Microsecond)) &&
			a.EndAt.Equal(testNow.Add(time.Hour)) &&
			a.CreatedAt.Equal(testNow)
	})).Return(nil).Once()
	f.ledger.On("TransferCustody", mock.Anything, tx, itemID, owner, mock.Anything).Return(nil).Once()
	f.outbox.On("SaveEvent", mock.Anything, tx, eventOfType(EventTypeAuctionInitialized)).Return(nil).Once()

	auction, err := f.svc.Initialize(context.Background(), InitializeCommand{
		OwnerID: owner,
		StartAt: startAt,
		EndAt:   endAt,
		Price:   10,
	})

	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Microsecond), auction.StartAt)
	assert.Equal(t, testNow.Add(time.Hour), auction.EndAt)
	assert.Equal(t, testNow, auction.CreatedAt)
	f.repo.AssertExpectations(t)
}

func TestService_Initialize_EscrowsExistingItem(t *testing.T) {
	f := newFixture()
	tx := testhelpers.NewCommittingTx()
	f.beginWith(tx)

	owner := uuid.New()
	itemID := uuid.New()

	f.ledger.On("HolderOf", mock.Anything, tx, itemID).Return(owner, nil).Once()
	f.repo.On("CreateAuction", mock.Anything, tx, mock.AnythingOfType("*auctions.Auction")).Return(nil).Once()
	f.ledger.On("TransferCustody", mock.Anything, tx, itemID, owner, mock.AnythingOfType("uuid.UUID")).Return(nil).Once()
	f.outbox.On("SaveEvent", mock.Anything, tx, eventOfType(EventTypeAuctionInitialized)).Return(nil).Once()

	auction, err := f.svc.Initialize(context.Background(), InitializeCommand{
		OwnerID: owner,
		ItemID:  itemID,
		StartAt: testNow,
		EndAt:   testNow.Add(time.Hour),
		Price:   100,
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, auction.ID, "auction id is generated when not supplied")
	assert.False(t, auction.Reserve.IsSome())
	f.ledger.AssertNotCalled(t, "MintItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertExpectations(t)
}

func TestService_Initialize_ItemNotHeld(t *testing.T) {
	f := newFixture()
	tx := testhelpers.NewRollbackOnlyTx()
	f.beginWith(tx)

	itemID := uuid.New()
	f.ledger.On("HolderOf", mock.Anything, tx, itemID).Return(uuid.New(), nil).Once()

	_, err := f.svc.Initialize(context.Background(), InitializeCommand{
		OwnerID: uuid.New(),
		ItemID:  itemID,
		StartAt: testNow,
		EndAt:   testNow.Add(time.Hour),
		Price:   100,
	})

	assert.ErrorIs(t, err, ErrItemNotHeld)
	f.repo.AssertNotCalled(t, "CreateAuction", mock.Anything, mock.Anything, mock.Anything)
	tx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestService_Initialize_AlreadyInitialized(t *testing.T) {
	f := newFixture()
	tx := testhelpers.NewRollbackOnlyTx()
	f.beginWith(tx)

	owner := uuid.New()
	itemID := uuid.New()
	f.ledger.On("MintItem", mock.Anything, tx, owner, DefaultItemSupply).Return(itemID, nil).Once()
	f.repo.On("CreateAuction", mock.Anything, tx, mock.Anything).Return(ErrAlreadyInitialized).Once()

	_, err := f.svc.Initialize(context.Background(), InitializeCommand{
		AuctionID: uuid.New(),
		OwnerID:   owner,
		StartAt:   testNow,
		EndAt:     testNow.Add(time.Hour),
		Price:     100,
	})

	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	f.ledger.AssertNotCalled(t, "TransferCustody", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.outbox.AssertNotCalled(t, "SaveEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Claim_Settles(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		now     time.Time
	}{
		{name: "balance well above price", balance: 100_000_000_000, now: testNow},
		{name: "balance equal to price", balance: 9_999_999, now: testNow},
		{name: "claim at start of window", balance: 100_000_000_000, now: testNow.Add(-time.Hour)},
		{name: "claim at end of window", balance: 100_000_000_000, now: testNow.Add(time.Hour)},
		{name: "clock finer than a microsecond", balance: 100_000_000_000, now: testNow.Add(1500 * time.Nanosecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.clock.Set(tt.now)
			tx := testhelpers.NewCommittingTx()
			f.beginWith(tx)

			auction := openAuction()
			purchaser := uuid.New()

			f.repo.On("GetAuctionByIDForUpdate", mock.Anything, tx, auction.ID).Return(auction, nil).Once()
			f.ledger.On("BalanceOf", mock.Anything, tx, purchaser).Return(tt.balance, nil).Once()
			f.ledger.On("Debit", mock.Anything, tx, purchaser, auction.Price, auction.ID).Return(nil).Once()
			f.ledger.On("Credit", mock.Anything, tx, auction.OwnerID, auction.Price, auction.ID).Return(nil).Once()
			f.ledger.On("TransferCustody", mock.Anything, tx, auction.ItemID, auction.ID, purchaser).Return(nil).Once()
			settledAt := tt.now.Truncate(time.Microsecond)
			f.repo.On("MarkSettled", mock.Anything, tx, auction.ID, purchaser, settledAt).Return(nil).Once()
			f.outbox.On("SaveEvent", mock.Anything, tx, mock.MatchedBy(func(e *events.OutboxEvent) bool {
				settled, err := DecodeSettledEvent(e.Payload)
				return err == nil &&
					e.EventType == EventTypeAuctionSettled &&
					e.AggregateID == auction.ID &&
					settled.PurchaserID == purchaser &&
					settled.Price == auction.Price &&
					settled.SettledAt.Equal(settledAt)
			})).Return(nil).Once()

			result, err := f.svc.Claim(context.Background(), ClaimCommand{
				AuctionID:   auction.ID,
				PurchaserID: purchaser,
			})

			require.NoError(t, err)
			assert.True(t, result.IsEnded)
			require.NotNil(t, result.PurchaserID)
			assert.Equal(t, purchaser, *result.PurchaserID)
			require.NotNil(t, result.SettledAt)
			assert.Equal(t, settledAt, *result.SettledAt)

			f.ledger.AssertExpectations(t)
			f.repo.AssertExpectations(t)
			f.outbox.AssertExpectations(t)
			tx.AssertExpectations(t)
		})
	}
}

func TestService_Claim_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Auction, cmd *ClaimCommand)
		balance int64
		wantErr error
	}{
		{
			name:    "already settled",
			mutate:  func(a *Auction, cmd *ClaimCommand) { a.IsEnded = true },
			wantErr: ErrAlreadySettled,
		},
		{
			name:    "owner mismatch",
			mutate:  func(a *Auction, cmd *ClaimCommand) { cmd.OwnerID = uuid.New() },
			balance: 100_000_000_000,
			wantErr: ErrOwnerMismatch,
		},
		{
			name:    "owner claiming own auction",
			mutate:  func(a *Auction, cmd *ClaimCommand) { cmd.PurchaserID = a.OwnerID },
			balance: 100_000_000_000,
			wantErr: ErrOwnerCannotClaim,
		},
		{
			name: "closed window reported before owner mismatch",
			mutate: func(a *Auction, cmd *ClaimCommand) {
				a.EndAt = testNow.Add(-time.Nanosecond)
				a.StartAt = testNow.Add(-time.Hour)
				cmd.OwnerID = uuid.New()
			},
			balance: 100_000_000_000,
			wantErr: ErrWindowClosed,
		},
		{
			name:    "insufficient funds reported before owner mismatch",
			mutate:  func(a *Auction, cmd *ClaimCommand) { cmd.OwnerID = uuid.New() },
			balance: 1,
			wantErr: ErrInsufficientFunds,
		},
		{
			name: "before window",
			mutate: func(a *Auction, cmd *ClaimCommand) {
				a.StartAt = testNow.Add(time.Nanosecond)
				a.EndAt = testNow.Add(time.Hour)
			},
			wantErr: ErrWindowClosed,
		},
		{
			name: "after window",
			mutate: func(a *Auction, cmd *ClaimCommand) {
				a.StartAt = testNow.Add(-2 * time.Hour)
				a.EndAt = testNow.Add(-time.Nanosecond)
			},
			wantErr: ErrWindowClosed,
		},
		{
			name:    "insufficient funds",
			mutate:  func(a *Auction, cmd *ClaimCommand) {},
			balance: 1_000_000,
			wantErr: ErrInsufficientFunds,
		},
		{
			name:    "one below price",
			mutate:  func(a *Auction, cmd *ClaimCommand) {},
			balance: 9_999_998,
			wantErr: ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tx := testhelpers.NewRollbackOnlyTx()
			f.beginWith(tx)

			auction := openAuction()
			cmd := ClaimCommand{AuctionID: auction.ID, PurchaserID: uuid.New()}
			tt.mutate(auction, &cmd)

			f.repo.On("GetAuctionByIDForUpdate", mock.Anything, tx, auction.ID).Return(auction, nil).Once()
			f.ledger.On("BalanceOf", mock.Anything, tx, mock.Anything).Return(tt.balance, nil).Maybe()

			result, err := f.svc.Claim(context.Background(), cmd)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
			f.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.ledger.AssertNotCalled(t, "TransferCustody", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.repo.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.outbox.AssertNotCalled(t, "SaveEvent", mock.Anything, mock.Anything, mock.Anything)
			tx.AssertNotCalled(t, "Commit", mock.Anything)
		})
	}
}

func TestService_Claim_SettledShortCircuitsBeforeLedger(t *testing.T) {
	f := newFixture()
	tx := testhelpers.NewRollbackOnlyTx()
	f.beginWith(tx)

	auction := openAuction()
	auction.IsEnded = true
	f.repo.On("GetAuctionByIDForUpdate", mock.Anything, tx, auction.ID).Return(auction, nil).Once()

	_, err := f.svc.Claim(context.Background(), ClaimCommand{AuctionID: auction.ID, PurchaserID: uuid.New()})

	assert.ErrorIs(t, err, ErrAlreadySettled)
	f.ledger.AssertNotCalled(t, "BalanceOf", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Claim_UsesPaymentSource(t *testing.T) {
	f := newFixture()
	tx := testhelpers.NewCommittingTx()
	f.beginWith(tx)

	auction := openAuction()
	purchaser := uuid.New()
	source := uuid.New()

	f.repo.On("GetAuctionByIDForUpdate", mock.Anything, tx, auction.ID).Return(auction, nil).Once()
	f.ledger.On("BalanceOf", mock.Anything, tx, source).Return(auction.Price, nil).Once()
	f.ledger.On("Debit", mock.Anything, tx, source, auction.Price, auction.ID).Return(nil).Once()
	f.ledger.On("Credit", mock.Anything, tx, auction.OwnerID, auction.Price, auction.ID).Return(nil).Once()
	f.ledger.On("TransferCustody", mock.Anything, tx, auction.ItemID, auction.ID, purchaser).Return(nil).Once()
	f.repo.On("MarkSettled", mock.Anything, tx, auction.ID, purchaser, testNow).Return(nil).Once()
	f.outbox.On("SaveEvent", mock.Anything, tx, eventOfType(EventTypeAuctionSettled)).Return(nil).Once()

	_, err := f.svc.Claim(context.Background(), ClaimCommand{
		AuctionID:       auction.ID,
		PurchaserID:     purchaser,
		OwnerID:         auction.OwnerID,
		PaymentSourceID: source,
	})

	require.NoError(t, err)
	f.ledger.AssertExpectations(t)
}

func TestService_Claim_LedgerFailureRollsBack(t *testing.T) {
	f := newFixture()
	tx := testhelpers.NewRollbackOnlyTx()
	f.beginWith(tx)

	auction := openAuction()
	purchaser := uuid.New()
	boom := errors.New("connection reset")

	f.repo.On("GetAuctionByIDForUpdate", mock.Anything, tx, auction.ID).Return(auction, nil).Once()
	f.ledger.On("BalanceOf", mock.Anything, tx, purchaser).Return(int64(100_000_000_000), nil).Once()
	f.ledger.On("Debit", mock.Anything, tx, purchaser, auction.Price, auction.ID).Return(nil).Once()
	f.ledger.On("Credit", mock.Anything, tx, auction.OwnerID, auction.Price, auction.ID).Return(boom).Once()

	_, err := f.svc.Claim(context.Background(), ClaimCommand{AuctionID: auction.ID, PurchaserID: purchaser})

	assert.ErrorIs(t, err, boom)
	tx.AssertNotCalled(t, "Commit", mock.Anything)
	tx.AssertCalled(t, "Rollback", mock.Anything)
	f.repo.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Claim_NotFound(t *testing.T) {
	f := newFixture()
	tx := testhelpers.NewRollbackOnlyTx()
	f.beginWith(tx)

	id := uuid.New()
	f.repo.On("GetAuctionByIDForUpdate", mock.Anything, tx, id).Return(nil, ErrAuctionNotFound).Once()

	_, err := f.svc.Claim(context.Background(), ClaimCommand{AuctionID: id, PurchaserID: uuid.New()})

	assert.ErrorIs(t, err, ErrAuctionNotFound)
}

func TestService_Claim_SettledCache(t *testing.T) {
	t.Run("hit skips the transaction", func(t *testing.T) {
		f := newFixture()
		cache := new(MockSettledCache)
		f.svc.WithSettledCache(cache)

		id := uuid.New()
		cache.On("IsSettled", mock.Anything, id).Return(true, nil).Once()

		_, err := f.svc.Claim(context.Background(), ClaimCommand{AuctionID: id, PurchaserID: uuid.New()})

		assert.ErrorIs(t, err, ErrAlreadySettled)
		f.txManager.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	t.Run("error is treated as a miss", func(t *testing.T) {
		f := newFixture()
		cache := new(MockSettledCache)
		f.svc.WithSettledCache(cache)
		tx := testhelpers.NewRollbackOnlyTx()
		f.beginWith(tx)

		auction := openAuction()
		auction.IsEnded = true
		cache.On("IsSettled", mock.Anything, auction.ID).Return(false, errors.New("redis down")).Once()
		f.repo.On("GetAuctionByIDForUpdate", mock.Anything, tx, auction.ID).Return(auction, nil).Once()

		_, err := f.svc.Claim(context.Background(), ClaimCommand{AuctionID: auction.ID, PurchaserID: uuid.New()})

		assert.ErrorIs(t, err, ErrAlreadySettled)
		f.txManager.AssertExpectations(t)
	})
}

func TestService_GetAuction(t *testing.T) {
	f := newFixture()
	auction := openAuction()
	auction.IsEnded = true
	f.repo.On("GetAuctionByID", mock.Anything, auction.ID).Return(auction, nil)

	for i := 0; i < 3; i++ {
		got, err := f.svc.GetAuction(context.Background(), auction.ID)
		require.NoError(t, err)
		assert.True(t, got.IsEnded)
	}
}
