package testhelpers

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// MockTx is a pgx.Tx whose Commit and Rollback are recorded by testify.
// Any other pgx.Tx method panics, which is what unit tests want: repositories are mocked too.
type MockTx struct {
	pgx.Tx
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// NewRollbackOnlyTx returns a tx that expects to be rolled back and never committed
func NewRollbackOnlyTx() *MockTx {
	tx := new(MockTx)
	tx.On("Rollback", mock.Anything).Return(nil).Maybe()
	return tx
}

// NewCommittingTx returns a tx that expects a commit; the deferred rollback is tolerated
func NewCommittingTx() *MockTx {
	tx := new(MockTx)
	tx.On("Commit", mock.Anything).Return(nil).Once()
	tx.On("Rollback", mock.Anything).Return(nil).Maybe()
	return tx
}

// MockTransactionManager is a database.TransactionManager for unit tests
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}
