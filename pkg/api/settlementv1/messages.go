// Package settlementv1 holds the wire messages of buynow.settlement.v1.SettlementService,
// declared in proto/buynow/settlement/v1/settlement.proto.
// Messages are plain structs carried by the JSON codec in settlementv1connect.
package settlementv1

import "time"

type Auction struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	ItemID       string     `json:"item_id"`
	StartAt      time.Time  `json:"start_at"`
	EndAt        time.Time  `json:"end_at"`
	Price        int64      `json:"price"`
	ReservePrice *int64     `json:"reserve_price,omitempty"`
	IsEnded      bool       `json:"is_ended"`
	PurchaserID  string     `json:"purchaser_id,omitempty"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
}

type Account struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

type LedgerEntry struct {
	ID           string    `json:"id"`
	AuctionID    string    `json:"auction_id,omitempty"`
	Kind         string    `json:"kind"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// InitializeRequest creates an auction owned by the caller
type InitializeRequest struct {
	AuctionID    string    `json:"auction_id,omitempty"`
	ItemID       string    `json:"item_id,omitempty"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	Price        int64     `json:"price"`
	ReservePrice *int64    `json:"reserve_price,omitempty"`
}

type InitializeResponse struct {
	Auction *Auction `json:"auction"`
}

// ClaimRequest settles the auction for the caller
type ClaimRequest struct {
	AuctionID       string `json:"auction_id"`
	OwnerID         string `json:"owner_id,omitempty"`
	PaymentSourceID string `json:"payment_source_id,omitempty"`
}

type ClaimResponse struct {
	Auction *Auction `json:"auction"`
}

type GetAuctionRequest struct {
	AuctionID string `json:"auction_id"`
}

type GetAuctionResponse struct {
	Auction *Auction `json:"auction"`
}

type DepositRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
}

type DepositResponse struct {
	Account *Account `json:"account"`
}

// GetBalanceRequest reads the caller's account when AccountID is empty
type GetBalanceRequest struct {
	AccountID    string `json:"account_id,omitempty"`
	HistoryLimit int    `json:"history_limit,omitempty"`
}

type GetBalanceResponse struct {
	Account *Account       `json:"account"`
	Entries []*LedgerEntry `json:"entries,omitempty"`
}
