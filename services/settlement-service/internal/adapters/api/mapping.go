package api

import (
	settlementv1 "github.com/floroz/buynow/pkg/api/settlementv1"
	"github.com/floroz/buynow/services/settlement-service/internal/domain/auctions"
	"github.com/floroz/buynow/services/settlement-service/internal/domain/ledger"
)

func mapAuctionToWire(a *auctions.Auction) *settlementv1.Auction {
	out := &settlementv1.Auction{
		ID:           a.ID.String(),
		OwnerID:      a.OwnerID.String(),
		ItemID:       a.ItemID.String(),
		StartAt:      a.StartAt.UTC(),
		EndAt:        a.EndAt.UTC(),
		Price:        a.Price,
		ReservePrice: a.Reserve.Ptr(),
		IsEnded:      a.IsEnded,
	}
	if a.PurchaserID != nil {
		out.PurchaserID = a.PurchaserID.String()
	}
	if a.SettledAt != nil {
		t := a.SettledAt.UTC()
		out.SettledAt = &t
	}
	return out
}

func mapAccountToWire(a *ledger.Account) *settlementv1.Account {
	return &settlementv1.Account{
		ID:      a.ID.String(),
		Balance: a.Balance,
	}
}

func mapEntryToWire(e *ledger.Entry) *settlementv1.LedgerEntry {
	out := &settlementv1.LedgerEntry{
		ID:           e.ID.String(),
		Kind:         string(e.Kind),
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		CreatedAt:    e.CreatedAt.UTC(),
	}
	if e.AuctionID != nil {
		out.AuctionID = e.AuctionID.String()
	}
	return out
}
