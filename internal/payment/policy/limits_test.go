package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedrosys/paymentcore/internal/payment/policy"
	"github.com/cedrosys/paymentcore/internal/store"
)

type fakeUserStore struct {
	store.UserStore
	user store.User
	err  error
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (store.User, error) {
	return f.user, f.err
}

type fakeTxnStore struct {
	store.TransactionStore
	daily   decimal.Decimal
	monthly decimal.Decimal
	err     error
}

func (f *fakeTxnStore) DailySum(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	return f.daily, f.err
}

func (f *fakeTxnStore) MonthlySum(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	return f.monthly, f.err
}

func TestDailyLimitPolicy_AllowsUnderLimit(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{user: store.User{
		ID:                 userID,
		DailyTransferLimit: decimal.NewFromInt(1000),
		DailyLimitResetAt:  time.Now(),
	}}
	txns := &fakeTxnStore{daily: decimal.NewFromInt(500)}

	p := &policy.DailyLimitPolicy{Users: users, Txns: txns}
	err := p.Check(context.Background(), &policy.PaymentContext{
		SenderID: userID,
		Amount:   decimal.NewFromInt(100),
	})
	require.NoError(t, err)
}

func TestDailyLimitPolicy_DeniesOverLimit(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{user: store.User{
		ID:                 userID,
		DailyTransferLimit: decimal.NewFromInt(1000),
		DailyLimitResetAt:  time.Now(),
	}}
	txns := &fakeTxnStore{daily: decimal.NewFromInt(950)}

	p := &policy.DailyLimitPolicy{Users: users, Txns: txns}
	err := p.Check(context.Background(), &policy.PaymentContext{
		SenderID: userID,
		Amount:   decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, policy.ErrDailyLimitExceeded)
}

func TestDailyLimitPolicy_AllowsExactlyAtLimit(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{user: store.User{
		ID:                 userID,
		DailyTransferLimit: decimal.NewFromInt(1000),
		DailyLimitResetAt:  time.Now(),
	}}
	txns := &fakeTxnStore{daily: decimal.NewFromInt(900)}

	p := &policy.DailyLimitPolicy{Users: users, Txns: txns}
	err := p.Check(context.Background(), &policy.PaymentContext{
		SenderID: userID,
		Amount:   decimal.NewFromInt(100),
	})
	assert.NoError(t, err)
}

func TestMonthlyLimitPolicy_DeniesOverLimit(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{user: store.User{
		ID:                   userID,
		MonthlyTransferLimit: decimal.NewFromInt(20000),
		MonthlyLimitResetAt:  time.Now(),
	}}
	txns := &fakeTxnStore{monthly: decimal.NewFromInt(19950)}

	p := &policy.MonthlyLimitPolicy{Users: users, Txns: txns}
	err := p.Check(context.Background(), &policy.PaymentContext{
		SenderID: userID,
		Amount:   decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, policy.ErrMonthlyLimitExceeded)
}

// EOF: internal/payment/policy/limits_test.go
