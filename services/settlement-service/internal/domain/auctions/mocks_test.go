package auctions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/floroz/buynow/pkg/events"
)

type MockAuctionRepository struct {
	mock.Mock
}

func (m *MockAuctionRepository) CreateAuction(ctx context.Context, tx pgx.Tx, auction *Auction) error {
	args := m.Called(ctx, tx, auction)
	return args.Error(0)
}

func (m *MockAuctionRepository) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Auction), args.Error(1)
}

func (m *MockAuctionRepository) GetAuctionByIDForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*Auction, error) {
	args := m.Called(ctx, tx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Auction), args.Error(1)
}

func (m *MockAuctionRepository) MarkSettled(ctx context.Context, tx pgx.Tx, auctionID, purchaserID uuid.UUID, settledAt time.Time) error {
	args := m.Called(ctx, tx, auctionID, purchaserID, settledAt)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) BalanceOf(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, auctionID uuid.UUID) error {
	args := m.Called(ctx, tx, accountID, amount, auctionID)
	return args.Error(0)
}

func (m *MockLedger) Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, auctionID uuid.UUID) error {
	args := m.Called(ctx, tx, accountID, amount, auctionID)
	return args.Error(0)
}

func (m *MockLedger) MintItem(ctx context.Context, tx pgx.Tx, holderID uuid.UUID, supply int64) (uuid.UUID, error) {
	args := m.Called(ctx, tx, holderID, supply)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockLedger) HolderOf(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, tx, itemID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockLedger) TransferCustody(ctx context.Context, tx pgx.Tx, itemID, from, to uuid.UUID) error {
	args := m.Called(ctx, tx, itemID, from, to)
	return args.Error(0)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

type MockSettledCache struct {
	mock.Mock
}

func (m *MockSettledCache) IsSettled(ctx context.Context, auctionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, auctionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettledCache) MarkSettled(ctx context.Context, auctionID uuid.UUID) error {
	args := m.Called(ctx, auctionID)
	return args.Error(0)
}
