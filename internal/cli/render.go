package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	settlementv1 "github.com/floroz/buynow/pkg/api/settlementv1"
)

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%-11s%s\n", label+":", value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func renderAuction(w io.Writer, a *settlementv1.Auction) {
	reserve := "none"
	if a.ReservePrice != nil {
		reserve = strconv.FormatInt(*a.ReservePrice, 10)
	}
	status := "open"
	if a.IsEnded {
		status = "settled"
	}

	field(w, "auction", a.ID)
	field(w, "owner", a.OwnerID)
	field(w, "item", a.ItemID)
	field(w, "window", formatTime(a.StartAt)+" .. "+formatTime(a.EndAt))
	field(w, "price", strconv.FormatInt(a.Price, 10))
	field(w, "reserve", reserve)
	field(w, "status", status)
	if a.PurchaserID != "" {
		field(w, "purchaser", a.PurchaserID)
	}
	if a.SettledAt != nil {
		field(w, "settled", formatTime(*a.SettledAt))
	}
}

func renderAccount(w io.Writer, a *settlementv1.Account) {
	field(w, "account", a.ID)
	field(w, "balance", strconv.FormatInt(a.Balance, 10))
}

func renderEntries(w io.Writer, entries []*settlementv1.LedgerEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-8s %12s %12s  %-36s  %s\n", "KIND", "AMOUNT", "BALANCE", "AUCTION", "AT")
	for _, e := range entries {
		auctionID := e.AuctionID
		if auctionID == "" {
			auctionID = "-"
		}
		fmt.Fprintf(w, "%-8s %12d %12d  %-36s  %s\n", e.Kind, e.Amount, e.BalanceAfter, auctionID, formatTime(e.CreatedAt))
	}
}
