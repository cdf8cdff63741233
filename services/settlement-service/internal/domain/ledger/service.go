package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/floroz/buynow/pkg/database"
)

var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrInvalidAccount = errors.New("account id is required")
)

// DefaultHistoryLimit bounds History when no limit is given
const DefaultHistoryLimit = 50

// Service funds accounts and reads balances
type Service struct {
	txManager database.TransactionManager
	repo      Repository
}

func NewService(txManager database.TransactionManager, repo Repository) *Service {
	return &Service{
		txManager: txManager,
		repo:      repo,
	}
}

// Deposit credits an account outside of any auction
func (s *Service) Deposit(ctx context.Context, cmd DepositCommand) (*Account, error) {
	if cmd.AccountID == uuid.Nil {
		return nil, ErrInvalidAccount
	}
	if cmd.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	balance, err := s.repo.Deposit(ctx, tx, cmd.AccountID, cmd.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to deposit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &Account{ID: cmd.AccountID, Balance: balance}, nil
}

func (s *Service) Balance(ctx context.Context, accountID uuid.UUID) (*Account, error) {
	if accountID == uuid.Nil {
		return nil, ErrInvalidAccount
	}
	return s.repo.GetAccount(ctx, accountID)
}

// History returns the newest journal lines for the account
func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]*Entry, error) {
	if accountID == uuid.Nil {
		return nil, ErrInvalidAccount
	}
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	return s.repo.ListEntries(ctx, accountID, limit)
}
