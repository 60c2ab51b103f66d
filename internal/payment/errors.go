// Package payment is the payment engine: idempotent intake, limit
// and balance checks, chain submission, and persistence of the
// resulting Transaction, orchestrating internal/walletcrypto and
// internal/chain under internal/payment/policy.
//
// File: internal/payment/errors.go
package payment

import "errors"

// Kind classifies an engine failure. HTTP
// mapping and surfacing decisions live outside this package; Kind is
// all a caller needs to make them.
type Kind string

const (
	KindValidation           Kind = "Validation"
	KindNotFound             Kind = "NotFound"
	KindInsufficientBalance  Kind = "InsufficientBalance"
	KindDailyLimitExceeded   Kind = "DailyLimitExceeded"
	KindMonthlyLimitExceeded Kind = "MonthlyLimitExceeded"
	KindRateLimited          Kind = "RateLimited"
	KindAccountFrozen        Kind = "AccountFrozen"
	KindChainError           Kind = "ChainError"
	KindCryptoAuth           Kind = "CryptoAuth"
	KindInternal             Kind = "Internal"
)

// Error wraps an underlying cause with the taxonomy Kind the HTTP
// surface (outside this package) maps to a status code and, for
// surfaced kinds, an error code in the response envelope.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// ErrSelfTransfer is the ValidationError raised when a sender names
// themselves as receiver.
var ErrSelfTransfer = errors.New("payment: sender and receiver must differ")

// AsKind reports the Kind of err if it (or something it wraps) is an
// *Error, defaulting to KindInternal for anything unclassified.
func AsKind(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// EOF: internal/payment/errors.go
