// Package policy is the pluggable limit/whitelist/freeze gate the
// payment engine runs before submitting a transfer or withdrawal.
// Policies are independent checks composed by an Enforcer; adding a
// rule means adding a Policy, not touching the engine.
//
// File: internal/payment/policy/policy.go
package policy

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cedrosys/paymentcore/internal/chain"
)

// PaymentContext carries everything a Policy needs to decide.
type PaymentContext struct {
	SenderID        uuid.UUID
	ReceiverID      *uuid.UUID // nil for withdrawals
	ExternalAddress *string    // set only for withdrawals
	Amount          decimal.Decimal
	Token           chain.Token
	Type            string // "Transfer" | "Withdrawal"
}

// Policy is a single rule. It returns nil to allow, or an error
// describing the denial.
type Policy interface {
	Check(ctx context.Context, pc *PaymentContext) error
}

// EOF: internal/payment/policy/policy.go
