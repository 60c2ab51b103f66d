package policy_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/cedrosys/paymentcore/internal/payment/policy"
	"github.com/cedrosys/paymentcore/internal/store"
)

func TestFrozenAccountPolicy_DeniesFrozen(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{user: store.User{ID: userID, IsActive: true, IsFrozen: true}}

	p := &policy.FrozenAccountPolicy{Users: users}
	err := p.Check(context.Background(), &policy.PaymentContext{SenderID: userID})
	assert.ErrorIs(t, err, policy.ErrAccountFrozen)
}

func TestFrozenAccountPolicy_DeniesInactive(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{user: store.User{ID: userID, IsActive: false, IsFrozen: false}}

	p := &policy.FrozenAccountPolicy{Users: users}
	err := p.Check(context.Background(), &policy.PaymentContext{SenderID: userID})
	assert.ErrorIs(t, err, policy.ErrAccountFrozen)
}

func TestFrozenAccountPolicy_AllowsActiveUnfrozen(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{user: store.User{ID: userID, IsActive: true, IsFrozen: false}}

	p := &policy.FrozenAccountPolicy{Users: users}
	err := p.Check(context.Background(), &policy.PaymentContext{SenderID: userID})
	assert.NoError(t, err)
}

// EOF: internal/payment/policy/frozen_test.go
