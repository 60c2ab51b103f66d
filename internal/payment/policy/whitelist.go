// File: internal/payment/policy/whitelist.go
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/cedrosys/paymentcore/internal/store"
)

// ErrAddressNotWhitelisted is returned by WithdrawalWhitelistPolicy on
// denial.
var ErrAddressNotWhitelisted = errors.New("withdrawal address is not whitelisted")

// WithdrawalWhitelistPolicy requires an external address to be on the
// sender's withdrawal_whitelist before a Withdrawal is allowed. It is
// a no-op for Transfers, which never carry an ExternalAddress.
type WithdrawalWhitelistPolicy struct {
	Whitelist store.WhitelistStore
}

func (p *WithdrawalWhitelistPolicy) Check(ctx context.Context, pc *PaymentContext) error {
	if pc.Type != "Withdrawal" {
		return nil
	}
	if pc.ExternalAddress == nil || *pc.ExternalAddress == "" {
		return ErrAddressNotWhitelisted
	}

	ok, err := p.Whitelist.IsWhitelisted(ctx, pc.SenderID, *pc.ExternalAddress)
	if err != nil {
		return fmt.Errorf("check whitelist: %w", err)
	}
	if !ok {
		return ErrAddressNotWhitelisted
	}
	return nil
}

// EOF: internal/payment/policy/whitelist.go
