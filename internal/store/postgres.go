// File: internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Postgres implements UserStore, WalletStore, TransactionStore,
// AuditStore, WhitelistStore, and Leader over a single *sqlx.DB.
type Postgres struct {
	db *sqlx.DB
}

// Open connects to Postgres via lib/pq and verifies the connection.
func Open(ctx context.Context, connectionString string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// -- UserStore --

func (p *Postgres) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := p.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	return u, wrapNotFound(err)
}

func (p *Postgres) GetByPhoneNumber(ctx context.Context, phone string) (User, error) {
	var u User
	err := p.db.GetContext(ctx, &u, `SELECT * FROM users WHERE phone_number = $1`, phone)
	return u, wrapNotFound(err)
}

func (p *Postgres) Create(ctx context.Context, u User) (User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO users (id, phone_number, daily_transfer_limit, daily_transferred_amount,
			daily_limit_reset_at, monthly_transfer_limit, monthly_transferred_amount,
			monthly_limit_reset_at, is_active, is_frozen, last_login_at, created_at, updated_at)
		VALUES (:id, :phone_number, :daily_transfer_limit, :daily_transferred_amount,
			:daily_limit_reset_at, :monthly_transfer_limit, :monthly_transferred_amount,
			:monthly_limit_reset_at, :is_active, :is_frozen, :last_login_at, :created_at, :updated_at)
	`, u)
	if err != nil {
		return User{}, fmt.Errorf("store: create user: %w", err)
	}
	return u, nil
}

func (p *Postgres) UpdateLimits(ctx context.Context, u User) error {
	u.UpdatedAt = time.Now().UTC()
	_, err := p.db.NamedExecContext(ctx, `
		UPDATE users SET daily_transferred_amount = :daily_transferred_amount,
			daily_limit_reset_at = :daily_limit_reset_at,
			monthly_transferred_amount = :monthly_transferred_amount,
			monthly_limit_reset_at = :monthly_limit_reset_at,
			updated_at = :updated_at
		WHERE id = :id
	`, u)
	if err != nil {
		return fmt.Errorf("store: update user limits: %w", err)
	}
	return nil
}

func (p *Postgres) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := p.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1, updated_at = now() WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("store: touch last login: %w", err)
	}
	return nil
}

func (p *Postgres) ActiveSince(ctx context.Context, since time.Time, limit int) ([]User, error) {
	var users []User
	err := p.db.SelectContext(ctx, &users, `
		SELECT * FROM users WHERE last_login_at >= $1 ORDER BY last_login_at DESC LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("store: active users since: %w", err)
	}
	return users, nil
}

// -- WalletStore --

func (p *Postgres) GetByUserID(ctx context.Context, userID uuid.UUID) (Wallet, error) {
	var w Wallet
	err := p.db.GetContext(ctx, &w, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	return w, wrapNotFound(err)
}

func (p *Postgres) GetByPublicKey(ctx context.Context, publicKey string) (Wallet, error) {
	var w Wallet
	err := p.db.GetContext(ctx, &w, `SELECT * FROM wallets WHERE public_key = $1`, publicKey)
	return w, wrapNotFound(err)
}

func (p *Postgres) CreateWallet(ctx context.Context, w Wallet) (Wallet, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO wallets (id, user_id, public_key, encrypted_private_key, key_version,
			key_algorithm, usdc_balance, usdt_balance, sol_balance, balance_last_updated_at,
			created_at, updated_at)
		VALUES (:id, :user_id, :public_key, :encrypted_private_key, :key_version,
			:key_algorithm, :usdc_balance, :usdt_balance, :sol_balance, :balance_last_updated_at,
			:created_at, :updated_at)
	`, w)
	if err != nil {
		return Wallet{}, fmt.Errorf("store: create wallet: %w", err)
	}
	return w, nil
}

func (p *Postgres) UpdateEncryption(ctx context.Context, w Wallet) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE wallets SET encrypted_private_key = $1, key_version = $2, updated_at = now()
		WHERE id = $3
	`, w.EncryptedPrivateKey, w.KeyVersion, w.ID)
	if err != nil {
		return fmt.Errorf("store: update wallet encryption: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateCachedBalances(ctx context.Context, w Wallet) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE wallets SET usdc_balance = $1, usdt_balance = $2, sol_balance = $3,
			balance_last_updated_at = now(), updated_at = now()
		WHERE id = $4
	`, w.USDCBalance, w.USDTBalance, w.SOLBalance, w.ID)
	if err != nil {
		return fmt.Errorf("store: update cached balances: %w", err)
	}
	return nil
}

func (p *Postgres) ByKeyVersion(ctx context.Context, keyVersion string, limit, offset int) ([]Wallet, error) {
	var wallets []Wallet
	err := p.db.SelectContext(ctx, &wallets, `
		SELECT * FROM wallets WHERE key_version = $1 ORDER BY id LIMIT $2 OFFSET $3
	`, keyVersion, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: wallets by key version: %w", err)
	}
	return wallets, nil
}

func (p *Postgres) All(ctx context.Context, limit, offset int) ([]Wallet, error) {
	var wallets []Wallet
	err := p.db.SelectContext(ctx, &wallets, `SELECT * FROM wallets ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: all wallets: %w", err)
	}
	return wallets, nil
}

// -- TransactionStore --

func (p *Postgres) GetByIdempotencyKey(ctx context.Context, key string) (Transaction, error) {
	var tx Transaction
	err := p.db.GetContext(ctx, &tx, `SELECT * FROM transactions WHERE idempotency_key = $1`, key)
	return tx, wrapNotFound(err)
}

func (p *Postgres) GetTransactionByID(ctx context.Context, id uuid.UUID) (Transaction, error) {
	var tx Transaction
	err := p.db.GetContext(ctx, &tx, `SELECT * FROM transactions WHERE id = $1`, id)
	return tx, wrapNotFound(err)
}

func (p *Postgres) CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	now := time.Now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO transactions (id, idempotency_key, sender_id, receiver_id, external_address,
			amount, token, type, status, solana_signature, solana_slot, solana_block_time,
			error_code, error_message, retry_count, max_retries, next_retry_at, confirmed_at,
			created_at, updated_at)
		VALUES (:id, :idempotency_key, :sender_id, :receiver_id, :external_address,
			:amount, :token, :type, :status, :solana_signature, :solana_slot, :solana_block_time,
			:error_code, :error_message, :retry_count, :max_retries, :next_retry_at, :confirmed_at,
			:created_at, :updated_at)
	`, tx)
	if err != nil {
		if isUniqueViolation(err, "transactions_idempotency_key_key") {
			return Transaction{}, ErrIdempotencyConflict
		}
		return Transaction{}, fmt.Errorf("store: create transaction: %w", err)
	}
	return tx, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505) on the named constraint. lib/pq doesn't
// always populate Constraint with the exact index name across schema
// variants, so an empty wantConstraint falls back to matching on code
// alone.
func isUniqueViolation(err error, wantConstraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return wantConstraint == "" || pqErr.Constraint == wantConstraint || pqErr.Constraint == ""
}

// TransitionStatus performs the conditional update every state
// transition must use: it only applies if the row's current status is
// still one of fromStatuses, enforcing monotone transitions without a
// separate row lock.
func (p *Postgres) TransitionStatus(ctx context.Context, id uuid.UUID, fromStatuses []TransactionStatus, update Transaction) (bool, error) {
	update.UpdatedAt = time.Now().UTC()
	result, err := p.db.ExecContext(ctx, `
		UPDATE transactions SET status = $1, solana_signature = $2, solana_slot = $3,
			solana_block_time = $4, error_code = $5, error_message = $6, retry_count = $7,
			confirmed_at = $8, updated_at = $9
		WHERE id = $10 AND status = ANY($11)
	`, update.Status, update.SolanaSignature, update.SolanaSlot, update.SolanaBlockTime,
		update.ErrorCode, update.ErrorMessage, update.RetryCount, update.ConfirmedAt,
		update.UpdatedAt, id, statusStrings(fromStatuses))
	if err != nil {
		return false, fmt.Errorf("store: transition transaction status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: rows affected: %w", err)
	}
	return n == 1, nil
}

func statusStrings(statuses []TransactionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (p *Postgres) DailySum(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	return p.sumSince(ctx, userID, since)
}

func (p *Postgres) MonthlySum(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	return p.sumSince(ctx, userID, since)
}

func (p *Postgres) sumSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var sum sql.NullString
	err := p.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)::text FROM transactions
		WHERE sender_id = $1 AND created_at >= $2 AND status NOT IN ('Failed', 'Cancelled')
	`, userID, since)
	if err != nil {
		return decimal.Zero, fmt.Errorf("store: sum since: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(sum.String)
}

func (p *Postgres) PendingBatch(ctx context.Context, limit int) ([]Transaction, error) {
	var txs []Transaction
	err := p.db.SelectContext(ctx, &txs, `
		SELECT * FROM transactions WHERE status IN ('Pending', 'Processing')
		ORDER BY created_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: pending batch: %w", err)
	}
	return txs, nil
}

func (p *Postgres) StaleBatch(ctx context.Context, olderThan time.Time, limit int) ([]Transaction, error) {
	var txs []Transaction
	err := p.db.SelectContext(ctx, &txs, `
		SELECT * FROM transactions WHERE status IN ('Pending', 'Processing') AND created_at < $1
		ORDER BY created_at ASC LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("store: stale batch: %w", err)
	}
	return txs, nil
}

func (p *Postgres) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	var txs []Transaction
	err := p.db.SelectContext(ctx, &txs, `
		SELECT * FROM transactions WHERE sender_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	return txs, nil
}

// -- AuditStore --

func (p *Postgres) Append(ctx context.Context, entry AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now().UTC()
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, old_value,
			new_value, request_id, created_at)
		VALUES (:id, :user_id, :action, :entity_type, :entity_id, :old_value,
			:new_value, :request_id, :created_at)
	`, entry)
	if err != nil {
		return fmt.Errorf("store: append audit log: %w", err)
	}
	return nil
}

// -- WhitelistStore --

func (p *Postgres) IsWhitelisted(ctx context.Context, userID uuid.UUID, address string) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM withdrawal_whitelist WHERE user_id = $1 AND address = $2)
	`, userID, address)
	if err != nil {
		return false, fmt.Errorf("store: check whitelist: %w", err)
	}
	return exists, nil
}

// -- Leader --

// TryAcquire implements store.Leader using pg_try_advisory_lock, which
// is session-scoped: the release function must run on the same
// connection that acquired it, so it holds a single checked-out
// *sql.Conn for the lock's lifetime.
func (p *Postgres) TryAcquire(ctx context.Context, lockName string) (func(), bool, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("store: acquire connection: %w", err)
	}

	var acquired bool
	err = conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, lockName).Scan(&acquired)
	if err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("store: try advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return nil, false, nil
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, lockName)
		conn.Close()
	}
	return release, true, nil
}

func wrapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// EOF: internal/store/postgres.go
