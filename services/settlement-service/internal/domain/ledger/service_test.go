package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/buynow/pkg/testhelpers"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Deposit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (int64, error) {
	args := m.Called(ctx, tx, accountID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetAccount(ctx context.Context, accountID uuid.UUID) (*Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Account), args.Error(1)
}

func (m *MockRepository) ListEntries(ctx context.Context, accountID uuid.UUID, limit int) ([]*Entry, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Entry), args.Error(1)
}

func TestService_Deposit(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name      string
		cmd       DepositCommand
		setupMock func(*testhelpers.MockTransactionManager, *MockRepository)
		wantErr   error
		want      int64
	}{
		{
			name: "credits account",
			cmd:  DepositCommand{AccountID: accountID, Amount: 100_000_000_000},
			setupMock: func(txm *testhelpers.MockTransactionManager, repo *MockRepository) {
				tx := testhelpers.NewCommittingTx()
				txm.On("BeginTx", mock.Anything).Return(tx, nil)
				repo.On("Deposit", mock.Anything, tx, accountID, int64(100_000_000_000)).Return(int64(100_000_000_000), nil)
			},
			want: 100_000_000_000,
		},
		{
			name:      "rejects zero amount",
			cmd:       DepositCommand{AccountID: accountID, Amount: 0},
			setupMock: func(*testhelpers.MockTransactionManager, *MockRepository) {},
			wantErr:   ErrInvalidAmount,
		},
		{
			name:      "rejects nil account",
			cmd:       DepositCommand{Amount: 10},
			setupMock: func(*testhelpers.MockTransactionManager, *MockRepository) {},
			wantErr:   ErrInvalidAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txm := new(testhelpers.MockTransactionManager)
			repo := new(MockRepository)
			tt.setupMock(txm, repo)
			svc := NewService(txm, repo)

			account, err := svc.Deposit(context.Background(), tt.cmd)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, account)
				txm.AssertNotCalled(t, "BeginTx", mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, account.Balance)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Deposit_RepositoryError(t *testing.T) {
	txm := new(testhelpers.MockTransactionManager)
	repo := new(MockRepository)
	tx := testhelpers.NewRollbackOnlyTx()
	txm.On("BeginTx", mock.Anything).Return(tx, nil)
	repo.On("Deposit", mock.Anything, tx, mock.Anything, int64(5)).Return(int64(0), errors.New("boom"))

	_, err := NewService(txm, repo).Deposit(context.Background(), DepositCommand{AccountID: uuid.New(), Amount: 5})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to deposit")
	tx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestService_History_ClampsLimit(t *testing.T) {
	repo := new(MockRepository)
	accountID := uuid.New()
	repo.On("ListEntries", mock.Anything, accountID, DefaultHistoryLimit).Return([]*Entry{}, nil).Twice()

	svc := NewService(nil, repo)
	_, err := svc.History(context.Background(), accountID, 0)
	require.NoError(t, err)
	_, err = svc.History(context.Background(), accountID, 10_000)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}
