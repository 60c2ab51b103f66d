// File: internal/chain/errors.go
package chain

import "errors"

var (
	ErrInvalidAmount       = errors.New("chain: amount must be positive")
	ErrInvalidAddress      = errors.New("chain: malformed recipient address")
	ErrInsufficientBalance = errors.New("chain: insufficient token balance")
	ErrATAMissing          = errors.New("chain: associated token account missing and no payer supplied")
	ErrUnknownToken        = errors.New("chain: unknown token")
)

// EOF: internal/chain/errors.go
