package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines the account side of the custody ledger
type Repository interface {
	// Deposit credits amount to the account, creating it if needed, and returns the new balance
	Deposit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (int64, error)

	// GetAccount returns the account, or a zero-balance account if it does not exist
	GetAccount(ctx context.Context, accountID uuid.UUID) (*Account, error)

	// ListEntries returns the newest journal lines for the account
	ListEntries(ctx context.Context, accountID uuid.UUID, limit int) ([]*Entry, error)
}
