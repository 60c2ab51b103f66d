// File: internal/payment/policy/frozen.go
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/cedrosys/paymentcore/internal/store"
)

// ErrAccountFrozen is returned by FrozenAccountPolicy on denial.
var ErrAccountFrozen = errors.New("account is frozen")

// FrozenAccountPolicy refuses any payment from a frozen or inactive
// sender. This is an operator-only condition: no self-service path
// clears it.
type FrozenAccountPolicy struct {
	Users store.UserStore
}

func (p *FrozenAccountPolicy) Check(ctx context.Context, pc *PaymentContext) error {
	u, err := p.Users.GetByID(ctx, pc.SenderID)
	if err != nil {
		return fmt.Errorf("load sender: %w", err)
	}

	if u.IsFrozen || !u.IsActive {
		return ErrAccountFrozen
	}
	return nil
}

// EOF: internal/payment/policy/frozen.go
