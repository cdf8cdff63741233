package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/buynow/services/settlement-service/internal/domain/auctions"
	"github.com/floroz/buynow/services/settlement-service/internal/domain/ledger"
)

// PostgresLedger is the custody ledger: account balances, item custody and the journal.
// It implements both auctions.Ledger and ledger.Repository.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger creates a new PostgreSQL ledger
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// BalanceOf locks the account row so the balance cannot change before the debit
func (l *PostgresLedger) BalanceOf(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Debit removes amount from the account. The balance never goes negative.
func (l *PostgresLedger) Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, auctionID uuid.UUID) error {
	query := `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`
	var balance int64
	if err := tx.QueryRow(ctx, query, amount, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auctions.ErrInsufficientFunds
		}
		return fmt.Errorf("failed to debit account: %w", err)
	}
	return l.journal(ctx, tx, accountID, &auctionID, ledger.EntryKindDebit, amount, balance)
}

// Credit adds amount to the account, creating it on first use
func (l *PostgresLedger) Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, auctionID uuid.UUID) error {
	balance, err := l.upsertBalance(ctx, tx, accountID, amount)
	if err != nil {
		return err
	}
	return l.journal(ctx, tx, accountID, &auctionID, ledger.EntryKindCredit, amount, balance)
}

// Deposit funds an account outside of any auction
func (l *PostgresLedger) Deposit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (int64, error) {
	balance, err := l.upsertBalance(ctx, tx, accountID, amount)
	if err != nil {
		return 0, err
	}
	if err := l.journal(ctx, tx, accountID, nil, ledger.EntryKindDeposit, amount, balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (l *PostgresLedger) upsertBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (int64, error) {
	query := `
		INSERT INTO accounts (id, balance)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance
	`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to credit account: %w", err)
	}
	return balance, nil
}

func (l *PostgresLedger) journal(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, auctionID *uuid.UUID, kind ledger.EntryKind, amount, balanceAfter int64) error {
	query := `
		INSERT INTO ledger_entries (id, account_id, auction_id, kind, amount, balance_after)
		VALUES ($1, $2, $3, $4::ledger_entry_kind, $5, $6)
	`
	if _, err := tx.Exec(ctx, query, uuid.New(), accountID, auctionID, kind, amount, balanceAfter); err != nil {
		return fmt.Errorf("failed to write ledger entry: %w", err)
	}
	return nil
}

// GetAccount reads an account without locking it
func (l *PostgresLedger) GetAccount(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error) {
	account := ledger.Account{ID: accountID}
	err := l.pool.QueryRow(ctx, `SELECT balance, updated_at FROM accounts WHERE id = $1`, accountID).
		Scan(&account.Balance, &account.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// ListEntries returns the newest journal lines first
func (l *PostgresLedger) ListEntries(ctx context.Context, accountID uuid.UUID, limit int) ([]*ledger.Entry, error) {
	query := `
		SELECT id, account_id, auction_id, kind, amount, balance_after, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`
	rows, err := l.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*ledger.Entry, 0)
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.AuctionID, &e.Kind, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// MintItem creates a custody record held by holderID
func (l *PostgresLedger) MintItem(ctx context.Context, tx pgx.Tx, holderID uuid.UUID, supply int64) (uuid.UUID, error) {
	itemID := uuid.New()
	_, err := tx.Exec(ctx,
		`INSERT INTO items (id, holder_id, supply, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		itemID, holderID, supply, time.Now(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to mint item: %w", err)
	}
	return itemID, nil
}

// HolderOf locks the item and returns its holder
func (l *PostgresLedger) HolderOf(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) (uuid.UUID, error) {
	var holder uuid.UUID
	err := tx.QueryRow(ctx, `SELECT holder_id FROM items WHERE id = $1 FOR UPDATE`, itemID).Scan(&holder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, auctions.ErrItemNotHeld
		}
		return uuid.Nil, fmt.Errorf("failed to get item holder: %w", err)
	}
	return holder, nil
}

// TransferCustody moves the item only if from currently holds it
func (l *PostgresLedger) TransferCustody(ctx context.Context, tx pgx.Tx, itemID, from, to uuid.UUID) error {
	result, err := tx.Exec(ctx,
		`UPDATE items SET holder_id = $1, updated_at = NOW() WHERE id = $2 AND holder_id = $3`,
		to, itemID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to transfer custody: %w", err)
	}
	if result.RowsAffected() == 0 {
		return auctions.ErrItemNotHeld
	}
	return nil
}
