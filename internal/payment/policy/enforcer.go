// File: internal/payment/policy/enforcer.go
package policy

import (
	"context"
	"fmt"
	"sync"
)

// Enforcer aggregates and evaluates Policies in registration order,
// safe for concurrent use, mirroring internal/security.Enforcer.
type Enforcer struct {
	mu       sync.RWMutex
	policies []Policy
}

// NewEnforcer creates an empty enforcer.
func NewEnforcer() *Enforcer {
	return &Enforcer{}
}

// AddPolicy appends a policy.
func (e *Enforcer) AddPolicy(p Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies = append(e.policies, p)
}

// Evaluate runs all registered policies; the first denial stops
// evaluation and is returned, wrapped with the denying policy's type.
func (e *Enforcer) Evaluate(ctx context.Context, pc *PaymentContext) error {
	e.mu.RLock()
	policies := make([]Policy, len(e.policies))
	copy(policies, e.policies)
	e.mu.RUnlock()

	for _, p := range policies {
		if err := p.Check(ctx, pc); err != nil {
			return fmt.Errorf("policy %T: %w", p, err)
		}
	}
	return nil
}

// EOF: internal/payment/policy/enforcer.go
