// Package chain: RPC client wrapper adding retry and circuit-breaking
// around the raw solana-go RPC client.
//
// File: internal/chain/client.go
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sony/gobreaker"

	"github.com/cedrosys/paymentcore/internal/observe"
)

// RetryConfig bounds submission retries. Only errors isRetryable
// classifies as transient are retried; everything else fails fast.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig is the submission retry
// policy: 3 retries, delays [1s, 2s, 4s].
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     4 * time.Second,
}

// Client wraps rpc.Client with retry (scoped to retryable errors only)
// and a circuit breaker per method group, so a degraded RPC endpoint
// trips open instead of retrying indefinitely.
type Client struct {
	rpc    *rpc.Client
	logger observe.Logger
	retry  RetryConfig
	reads  *gobreaker.CircuitBreaker
	writes *gobreaker.CircuitBreaker
}

// NewClient constructs a Client against rpcURL.
func NewClient(rpcURL string, logger observe.Logger, retry *RetryConfig) *Client {
	if retry == nil {
		retry = &DefaultRetryConfig
	}
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger,
		retry:  *retry,
		reads: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "chain-reads",
			MaxRequests: 5,
			Timeout:     30 * time.Second,
			ReadyToTrip: tripAfterConsecutiveFailures(10),
		}),
		writes: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "chain-writes",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: tripAfterConsecutiveFailures(5),
		}),
	}
}

func tripAfterConsecutiveFailures(n uint32) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= n
	}
}

// withRetry runs fn under the given breaker, retrying through
// backoff.Retry only while the error classifies as retryable and the
// configured attempt budget remains.
func withRetry[T any](ctx context.Context, c *Client, breaker *gobreaker.CircuitBreaker, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	result, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		raw, err := breaker.Execute(func() (interface{}, error) {
			return fn(ctx)
		})
		if err != nil {
			c.logger.Warn("chain rpc call failed", map[string]interface{}{
				"operation": operation,
				"attempt":   attempt,
				"error":     err.Error(),
			})
			if !isRetryable(err) {
				return *new(T), backoff.Permanent(err)
			}
			return *new(T), err
		}
		return raw.(T), nil
	},
		backoff.WithBackOff(newStepBackOff(c.retry.delays())),
		backoff.WithMaxTries(uint(c.retry.MaxAttempts+1)),
	)
	if err != nil {
		return *new(T), fmt.Errorf("chain: %s: %w", operation, err)
	}
	return result, nil
}

// EOF: internal/chain/client.go
