// File: internal/store/interfaces.go
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by any lookup that finds no matching row.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "store: not found" }

// ErrIdempotencyConflict is returned by CreateTransaction when a
// concurrent caller already inserted a row under the same
// idempotency_key; same-key races serialize on the unique index. The
// caller is expected to fall back to GetByIdempotencyKey rather than
// treat this as a failure.
var ErrIdempotencyConflict = errIdempotencyConflict{}

type errIdempotencyConflict struct{}

func (errIdempotencyConflict) Error() string { return "store: idempotency key conflict" }

// UserStore persists and queries User rows.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByPhoneNumber(ctx context.Context, phone string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	UpdateLimits(ctx context.Context, u User) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ActiveSince(ctx context.Context, since time.Time, limit int) ([]User, error)
}

// WalletStore persists and queries Wallet rows.
type WalletStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (Wallet, error)
	GetByPublicKey(ctx context.Context, publicKey string) (Wallet, error)
	CreateWallet(ctx context.Context, w Wallet) (Wallet, error)
	UpdateEncryption(ctx context.Context, w Wallet) error
	UpdateCachedBalances(ctx context.Context, w Wallet) error
	ByKeyVersion(ctx context.Context, keyVersion string, limit, offset int) ([]Wallet, error)
	All(ctx context.Context, limit, offset int) ([]Wallet, error)
}

// TransactionStore persists and queries Transaction rows.
type TransactionStore interface {
	GetByIdempotencyKey(ctx context.Context, key string) (Transaction, error)
	GetTransactionByID(ctx context.Context, id uuid.UUID) (Transaction, error)
	CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	// TransitionStatus applies a conditional update: it only succeeds
	// (returns true) if the row's current status is one of fromStatuses.
	TransitionStatus(ctx context.Context, id uuid.UUID, fromStatuses []TransactionStatus, update Transaction) (bool, error)
	DailySum(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)
	MonthlySum(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)
	PendingBatch(ctx context.Context, limit int) ([]Transaction, error)
	StaleBatch(ctx context.Context, olderThan time.Time, limit int) ([]Transaction, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error)
}

// AuditStore appends AuditLog rows. It exposes no update/delete.
type AuditStore interface {
	Append(ctx context.Context, entry AuditLog) error
}

// WhitelistStore checks withdrawal destinations.
type WhitelistStore interface {
	IsWhitelisted(ctx context.Context, userID uuid.UUID, address string) (bool, error)
}

// Leader provides Postgres-advisory-lock-backed single-leader
// execution for recurring jobs (process_pending,
// validate_encryptions).
type Leader interface {
	// TryAcquire attempts to take the named lock without blocking. It
	// returns false if another instance already holds it.
	TryAcquire(ctx context.Context, lockName string) (release func(), acquired bool, err error)
}

// EOF: internal/store/interfaces.go
