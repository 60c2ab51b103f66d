package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "postgres")
	return &Postgres{db: sqlxDB}, mock
}

func TestStatusStrings(t *testing.T) {
	out := statusStrings([]TransactionStatus{StatusPending, StatusProcessing})
	assert.Equal(t, []string{"Pending", "Processing"}, out)
}

func TestTransitionStatus_SucceedsWhenRowMatches(t *testing.T) {
	p, mock := newMockPostgres(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE transactions SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := p.TransitionStatus(context.Background(), id,
		[]TransactionStatus{StatusPending, StatusProcessing},
		Transaction{Status: StatusConfirmed, ConfirmedAt: timePtr(time.Now())})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionStatus_NoOpWhenRowAlreadyTerminal(t *testing.T) {
	p, mock := newMockPostgres(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE transactions SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := p.TransitionStatus(context.Background(), id,
		[]TransactionStatus{StatusPending, StatusProcessing},
		Transaction{Status: StatusConfirmed})
	require.NoError(t, err)
	assert.False(t, ok, "a row already in a terminal state must not be affected")
}

func TestIsWhitelisted(t *testing.T) {
	p, mock := newMockPostgres(t)
	userID := uuid.New()

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(rows)

	ok, err := p.IsWhitelisted(context.Background(), userID, "somebase58address")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateTransaction_IdempotencyConflictMapsToSentinel(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "transactions_idempotency_key_key"})

	_, err := p.CreateTransaction(context.Background(), Transaction{
		IdempotencyKey: "k-dup", SenderID: uuid.New(), Amount: decimal.NewFromInt(1),
		Token: "USDC", Type: TransactionTypeWithdrawal, Status: StatusProcessing,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIdempotencyConflict))
}

func TestCreateTransaction_OtherUniqueViolationIsOpaque(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "some_other_constraint"})

	_, err := p.CreateTransaction(context.Background(), Transaction{
		IdempotencyKey: "k-other", SenderID: uuid.New(), Amount: decimal.NewFromInt(1),
		Token: "USDC", Type: TransactionTypeWithdrawal, Status: StatusProcessing,
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrIdempotencyConflict))
}

func timePtr(t time.Time) *time.Time { return &t }

// EOF: internal/store/postgres_test.go
