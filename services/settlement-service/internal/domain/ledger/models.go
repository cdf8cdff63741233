package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind classifies a journal line
type EntryKind string

const (
	EntryKindDebit   EntryKind = "debit"
	EntryKindCredit  EntryKind = "credit"
	EntryKindDeposit EntryKind = "deposit"
)

// Account is a fungible balance. Accounts that were never funded read as a zero balance.
type Account struct {
	ID        uuid.UUID `db:"id"`
	Balance   int64     `db:"balance"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Entry is one line of the ledger journal
type Entry struct {
	ID           uuid.UUID  `db:"id"`
	AccountID    uuid.UUID  `db:"account_id"`
	AuctionID    *uuid.UUID `db:"auction_id"`
	Kind         EntryKind  `db:"kind"`
	Amount       int64      `db:"amount"`
	BalanceAfter int64      `db:"balance_after"`
	CreatedAt    time.Time  `db:"created_at"`
}

type DepositCommand struct {
	AccountID uuid.UUID
	Amount    int64
}
