// File: internal/payment/policy/limits.go
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cedrosys/paymentcore/internal/store"
)

// ErrDailyLimitExceeded is returned by DailyLimitPolicy on denial.
var ErrDailyLimitExceeded = errors.New("daily transfer limit exceeded")

// ErrMonthlyLimitExceeded is returned by MonthlyLimitPolicy on denial.
var ErrMonthlyLimitExceeded = errors.New("monthly transfer limit exceeded")

// DailyLimitPolicy denies a payment that would push a sender's
// transferred total over the 24h window ending at daily_limit_reset_at
// past their daily_transfer_limit.
type DailyLimitPolicy struct {
	Users store.UserStore
	Txns  store.TransactionStore
}

func (p *DailyLimitPolicy) Check(ctx context.Context, pc *PaymentContext) error {
	u, err := p.Users.GetByID(ctx, pc.SenderID)
	if err != nil {
		return fmt.Errorf("load sender: %w", err)
	}

	since := u.DailyLimitResetAt.Add(-24 * time.Hour)
	sum, err := p.Txns.DailySum(ctx, pc.SenderID, since)
	if err != nil {
		return fmt.Errorf("sum daily transfers: %w", err)
	}

	if sum.Add(pc.Amount).GreaterThan(u.DailyTransferLimit) {
		return ErrDailyLimitExceeded
	}
	return nil
}

// MonthlyLimitPolicy mirrors DailyLimitPolicy over a 30-day window
// anchored at monthly_limit_reset_at.
type MonthlyLimitPolicy struct {
	Users store.UserStore
	Txns  store.TransactionStore
}

func (p *MonthlyLimitPolicy) Check(ctx context.Context, pc *PaymentContext) error {
	u, err := p.Users.GetByID(ctx, pc.SenderID)
	if err != nil {
		return fmt.Errorf("load sender: %w", err)
	}

	since := u.MonthlyLimitResetAt.Add(-30 * 24 * time.Hour)
	sum, err := p.Txns.MonthlySum(ctx, pc.SenderID, since)
	if err != nil {
		return fmt.Errorf("sum monthly transfers: %w", err)
	}

	if sum.Add(pc.Amount).GreaterThan(u.MonthlyTransferLimit) {
		return ErrMonthlyLimitExceeded
	}
	return nil
}

// EOF: internal/payment/policy/limits.go
