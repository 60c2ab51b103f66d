// Package store holds the persisted data model and its Postgres
// implementation: Users, Wallets, Transactions, AuditLogs, and the
// supporting tables listed in schema.sql.
//
// File: internal/store/models.go
package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is a custodial account identified by a normalized E.164 phone
// number.
type User struct {
	ID                   uuid.UUID       `db:"id"`
	PhoneNumber          string          `db:"phone_number"`
	DailyTransferLimit   decimal.Decimal `db:"daily_transfer_limit"`
	DailyTransferredAmount decimal.Decimal `db:"daily_transferred_amount"`
	DailyLimitResetAt    time.Time       `db:"daily_limit_reset_at"`
	MonthlyTransferLimit   decimal.Decimal `db:"monthly_transfer_limit"`
	MonthlyTransferredAmount decimal.Decimal `db:"monthly_transferred_amount"`
	MonthlyLimitResetAt  time.Time       `db:"monthly_limit_reset_at"`
	IsActive             bool            `db:"is_active"`
	IsFrozen             bool            `db:"is_frozen"`
	LastLoginAt          *time.Time      `db:"last_login_at"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

// Wallet is the persisted one-to-one custodial wallet for a User.
// EncryptedPrivateKey/KeyVersion/KeyAlgorithm are opaque to this
// package; only internal/walletcrypto interprets them.
type Wallet struct {
	ID                   uuid.UUID  `db:"id"`
	UserID               uuid.UUID  `db:"user_id"`
	PublicKey            string     `db:"public_key"`
	EncryptedPrivateKey  string     `db:"encrypted_private_key"`
	KeyVersion           string     `db:"key_version"`
	KeyAlgorithm         string     `db:"key_algorithm"`
	USDCBalance          decimal.Decimal `db:"usdc_balance"`
	USDTBalance          decimal.Decimal `db:"usdt_balance"`
	SOLBalance           decimal.Decimal `db:"sol_balance"`
	BalanceLastUpdatedAt *time.Time `db:"balance_last_updated_at"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// TransactionType enumerates the kinds of ledger-affecting operations.
type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "Transfer"
	TransactionTypeWithdrawal TransactionType = "Withdrawal"
	TransactionTypeDeposit    TransactionType = "Deposit"
)

// TransactionStatus is the Transaction state machine's current state.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "Pending"
	StatusProcessing TransactionStatus = "Processing"
	StatusConfirmed  TransactionStatus = "Confirmed"
	StatusFailed     TransactionStatus = "Failed"
	StatusCancelled  TransactionStatus = "Cancelled"
)

// IsTerminal reports whether s is one of the three states a
// Transaction never transitions out of.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusCancelled
}

// Transaction is one ledger entry: a transfer, withdrawal, or deposit.
type Transaction struct {
	ID               uuid.UUID         `db:"id"`
	IdempotencyKey   string            `db:"idempotency_key"`
	SenderID         uuid.UUID         `db:"sender_id"`
	ReceiverID       *uuid.UUID        `db:"receiver_id"`
	ExternalAddress  *string           `db:"external_address"`
	Amount           decimal.Decimal   `db:"amount"`
	Token            string            `db:"token"`
	Type             TransactionType   `db:"type"`
	Status           TransactionStatus `db:"status"`
	SolanaSignature  *string           `db:"solana_signature"`
	SolanaSlot       *uint64           `db:"solana_slot"`
	SolanaBlockTime  *time.Time        `db:"solana_block_time"`
	ErrorCode        *string           `db:"error_code"`
	ErrorMessage     *string           `db:"error_message"`
	RetryCount       int               `db:"retry_count"`
	MaxRetries       int               `db:"max_retries"`
	NextRetryAt      *time.Time        `db:"next_retry_at"`
	ConfirmedAt      *time.Time        `db:"confirmed_at"`
	CreatedAt        time.Time         `db:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at"`
}

// AuditLog is an append-only record of a state change or sensitive
// operation. Rows are never updated or deleted.
type AuditLog struct {
	ID          uuid.UUID  `db:"id"`
	UserID      *uuid.UUID `db:"user_id"`
	Action      string     `db:"action"`
	EntityType  string     `db:"entity_type"`
	EntityID    *string    `db:"entity_id"`
	OldValue    *string    `db:"old_value"` // JSON snapshot
	NewValue    *string    `db:"new_value"` // JSON snapshot
	RequestID   *string    `db:"request_id"`
	CreatedAt   time.Time  `db:"created_at"`
}

// WithdrawalWhitelistEntry authorizes a user to withdraw to address.
type WithdrawalWhitelistEntry struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Address   string    `db:"address"`
	Label     string    `db:"label"`
	CreatedAt time.Time `db:"created_at"`
}

// EOF: internal/store/models.go
