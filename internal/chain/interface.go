// Package chain is a typed facade over the Solana-style chain RPC: the
// only part of the system that speaks to the network.
//
// File: internal/chain/interface.go
package chain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Token identifies which SPL mint a balance/transfer concerns.
type Token string

const (
	TokenUSDC Token = "USDC"
	TokenUSDT Token = "USDT"
)

// TxDetails is the result of GetTxDetails for a confirmed signature.
type TxDetails struct {
	Slot      uint64
	BlockTime time.Time
	FeeLamports uint64
	IsSuccess bool
}

// Chain is the set of operations the payment engine and scheduler need
// from the underlying blockchain. Every method that can block on
// network I/O takes a context.
type Chain interface {
	// GenerateKeypair is pure; it does not touch the network.
	GenerateKeypair() (pub string, secret [64]byte, err error)

	// TransferToken submits an SPL token transfer and returns the
	// submitted signature. It does not wait for confirmation.
	TransferToken(ctx context.Context, secret [64]byte, recipientPub string, amount decimal.Decimal, token Token) (signature string, err error)

	// GetTokenBalance returns 0, nil if the account has no ATA for token.
	GetTokenBalance(ctx context.Context, pub string, token Token) (decimal.Decimal, error)

	// GetSOLBalance returns the native SOL balance.
	GetSOLBalance(ctx context.Context, pub string) (decimal.Decimal, error)

	// EnsureATA creates the associated token account for pub/token if
	// missing. payerSecret must be non-nil when the account is missing.
	EnsureATA(ctx context.Context, pub string, token Token, payerSecret *[64]byte) error

	// IsConfirmed reports whether signature has reached "confirmed" or
	// "finalized" commitment.
	IsConfirmed(ctx context.Context, signature string) (bool, error)

	// GetTxDetails returns details for a confirmed signature, or
	// (TxDetails{}, false, nil) if the signature is unknown to the RPC
	// node.
	GetTxDetails(ctx context.Context, signature string) (TxDetails, bool, error)

	// EstimateTransferFee returns the lamport fee TransferToken would
	// pay for the same instruction set, falling back to a static
	// estimate if fee simulation itself fails.
	EstimateTransferFee(ctx context.Context, senderPub, recipientPub string, token Token) (lamports uint64, err error)

	// WaitForConfirmation polls IsConfirmed until true, timeout, or
	// context cancellation.
	WaitForConfirmation(ctx context.Context, signature string, timeout time.Duration) (bool, error)
}

// EOF: internal/chain/interface.go
