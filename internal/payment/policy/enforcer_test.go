package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cedrosys/paymentcore/internal/payment/policy"
)

type MockPolicy struct {
	mock.Mock
}

func (m *MockPolicy) Check(ctx context.Context, pc *policy.PaymentContext) error {
	args := m.Called(ctx, pc)
	return args.Error(0)
}

func TestEnforcer_Empty(t *testing.T) {
	e := policy.NewEnforcer()
	err := e.Evaluate(context.Background(), &policy.PaymentContext{})
	assert.NoError(t, err)
}

func TestEnforcer_AllAllow(t *testing.T) {
	e := policy.NewEnforcer()
	p1 := new(MockPolicy)
	p2 := new(MockPolicy)

	p1.On("Check", mock.Anything, mock.Anything).Return(nil)
	p2.On("Check", mock.Anything, mock.Anything).Return(nil)

	e.AddPolicy(p1)
	e.AddPolicy(p2)

	err := e.Evaluate(context.Background(), &policy.PaymentContext{})
	assert.NoError(t, err)

	p1.AssertExpectations(t)
	p2.AssertExpectations(t)
}

func TestEnforcer_FirstDenies(t *testing.T) {
	e := policy.NewEnforcer()
	p1 := new(MockPolicy)
	p2 := new(MockPolicy)

	denyErr := errors.New("denied")
	p1.On("Check", mock.Anything, mock.Anything).Return(denyErr)
	// p2 should not be called.

	e.AddPolicy(p1)
	e.AddPolicy(p2)

	err := e.Evaluate(context.Background(), &policy.PaymentContext{})
	assert.ErrorIs(t, err, denyErr)

	p1.AssertExpectations(t)
	p2.AssertNotCalled(t, "Check")
}

// EOF: internal/payment/policy/enforcer_test.go
