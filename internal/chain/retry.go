// File: internal/chain/retry.go
package chain

import (
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retrySubstrings are the only error signals that justify a retry of
// transfer_token/ensure_ata submission. Anything else (validation
// failures, insufficient balance, program errors) is terminal.
var retrySubstrings = []string{
	"blockhash",
	"timeout",
	"rate limit",
	"connection",
	"network",
}

// isRetryable retries exactly on {blockhash, timeout, rate limit,
// connection, network} substrings, case-insensitively, and never on
// anything else.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retrySubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// RetryDelays are the fixed backoff delays applied between the 3
// allowed retries of a transfer_token/ensure_ata submission.
var RetryDelays = []int{1, 2, 4} // seconds

// stepBackOff replays a fixed sequence of delays then stops.
// Submission wants an exact [1s, 2s, 4s] sequence, not
// cenkalti/backoff's default exponential-with-jitter curve, so
// RetryConfig's delays drive the backoff directly.
type stepBackOff struct {
	delays []time.Duration
	next   int
}

func newStepBackOff(delays []time.Duration) *stepBackOff {
	return &stepBackOff{delays: delays}
}

func (s *stepBackOff) NextBackOff() time.Duration {
	if s.next >= len(s.delays) {
		return backoff.Stop
	}
	d := s.delays[s.next]
	s.next++
	return d
}

// delays expands RetryConfig into the fixed per-attempt sequence
// stepBackOff replays: one entry per retry (MaxAttempts entries), doubling
// from InitialBackoff up to MaxBackoff.
func (c RetryConfig) delays() []time.Duration {
	out := make([]time.Duration, 0, c.MaxAttempts)
	d := c.InitialBackoff
	for i := 0; i < c.MaxAttempts; i++ {
		if d > c.MaxBackoff {
			d = c.MaxBackoff
		}
		out = append(out, d)
		d *= 2
	}
	return out
}

// EOF: internal/chain/retry.go
