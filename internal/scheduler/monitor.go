// File: internal/scheduler/monitor.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cedrosys/paymentcore/internal/balancecache"
	"github.com/cedrosys/paymentcore/internal/chain"
	"github.com/cedrosys/paymentcore/internal/observe"
	"github.com/cedrosys/paymentcore/internal/store"
	"github.com/cedrosys/paymentcore/internal/walletcrypto"
)

// stalenessThreshold bounds how long a transaction may stay
// non-terminal: anything older is finalized one way or the other.
const stalenessThreshold = 10 * time.Minute

// pendingBatchSize is process_pending's batch size.
const pendingBatchSize = 50

// Monitor implements the recurring and ad-hoc job bodies: it
// owns no scheduling policy of its own (Scheduler does that) and is
// safe to call directly from tests.
type Monitor struct {
	Users   store.UserStore
	Wallets store.WalletStore
	Txns    store.TransactionStore
	Audit   store.AuditStore

	Chain  chain.Chain
	Cache  *balancecache.Cache
	Crypto *walletcrypto.Crypto

	Logger  observe.Logger
	Metrics observe.Metrics
}

// ProcessPending advances Pending
// transactions toward Confirmed/Failed by polling their on-chain
// signature status.
func (m *Monitor) ProcessPending(ctx context.Context) error {
	batch, err := m.Txns.PendingBatch(ctx, pendingBatchSize)
	if err != nil {
		return fmt.Errorf("scheduler: load pending batch: %w", err)
	}

	for _, tx := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.processOne(ctx, tx)
	}
	return nil
}

func (m *Monitor) processOne(ctx context.Context, tx store.Transaction) {
	age := time.Since(tx.CreatedAt)

	if tx.SolanaSignature == nil {
		if age > stalenessThreshold {
			m.finalize(ctx, tx, store.StatusFailed, "no signature", nil)
		}
		return
	}

	details, found, err := m.Chain.GetTxDetails(ctx, *tx.SolanaSignature)
	if err != nil {
		m.Logger.Warn("scheduler: get_tx_details failed", map[string]interface{}{"transaction_id": tx.ID, "error": err.Error()})
		return
	}
	if !found {
		if age > stalenessThreshold {
			m.finalize(ctx, tx, store.StatusFailed, "unseen on chain", nil)
		}
		return
	}

	if details.IsSuccess {
		m.finalize(ctx, tx, store.StatusConfirmed, "", &details)
		m.invalidatePair(ctx, tx)
	} else {
		m.finalize(ctx, tx, store.StatusFailed, "chain error", nil)
	}
}

// ConfirmOne is the wait_confirmation ad-hoc job body: a
// single poll of one transaction's signature status, finalizing it when
// the chain has an answer and returning ErrStillPending otherwise so the
// caller's retry/backoff loop tries again.
func (m *Monitor) ConfirmOne(ctx context.Context, txID uuid.UUID) error {
	tx, err := m.Txns.GetTransactionByID(ctx, txID)
	if err != nil {
		return fmt.Errorf("scheduler: wait_confirmation: load transaction: %w", err)
	}
	if tx.Status != store.StatusPending && tx.Status != store.StatusProcessing {
		return nil // already terminal
	}
	if tx.SolanaSignature == nil {
		return ErrStillPending
	}

	details, found, err := m.Chain.GetTxDetails(ctx, *tx.SolanaSignature)
	if err != nil {
		return fmt.Errorf("scheduler: wait_confirmation: get_tx_details: %w", err)
	}
	if !found {
		return ErrStillPending
	}

	if details.IsSuccess {
		m.finalize(ctx, tx, store.StatusConfirmed, "", &details)
		m.invalidatePair(ctx, tx)
	} else {
		m.finalize(ctx, tx, store.StatusFailed, "chain error", nil)
	}
	return nil
}

// MarkStale terminates transactions older
// than the staleness threshold with one final confirmation check.
func (m *Monitor) MarkStale(ctx context.Context) error {
	cutoff := time.Now().Add(-stalenessThreshold)
	batch, err := m.Txns.StaleBatch(ctx, cutoff, 100)
	if err != nil {
		return fmt.Errorf("scheduler: load stale batch: %w", err)
	}

	for _, tx := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}

		confirmed := false
		if tx.SolanaSignature != nil {
			confirmed, err = m.Chain.IsConfirmed(ctx, *tx.SolanaSignature)
			if err != nil {
				m.Logger.Warn("scheduler: is_confirmed failed", map[string]interface{}{"transaction_id": tx.ID, "error": err.Error()})
			}
		}

		if confirmed {
			m.finalize(ctx, tx, store.StatusConfirmed, "", nil)
			m.invalidatePair(ctx, tx)
		} else {
			m.finalize(ctx, tx, store.StatusFailed, "Transaction timed out", nil)
		}
	}
	return nil
}

// finalize applies the conditional transition and writes the
// transaction_status_update audit entry written on every
// monitor-driven transition.
func (m *Monitor) finalize(ctx context.Context, tx store.Transaction, status store.TransactionStatus, errMsg string, details *chain.TxDetails) {
	update := tx
	update.Status = status
	if errMsg != "" {
		update.ErrorMessage = &errMsg
	}
	if status == store.StatusConfirmed {
		now := time.Now().UTC()
		update.ConfirmedAt = &now
		if details != nil {
			slot := details.Slot
			update.SolanaSlot = &slot
			bt := details.BlockTime
			update.SolanaBlockTime = &bt
		}
	}

	ok, err := m.Txns.TransitionStatus(ctx, tx.ID, []store.TransactionStatus{store.StatusPending, store.StatusProcessing}, update)
	if err != nil {
		m.Logger.Warn("scheduler: transition failed", map[string]interface{}{"transaction_id": tx.ID, "error": err.Error()})
		return
	}
	if !ok {
		return // already terminal; another path finalized it first
	}

	entry := store.AuditLog{
		UserID:     &tx.SenderID,
		Action:     "transaction_status_update",
		EntityType: "transaction",
	}
	id := tx.ID.String()
	entry.EntityID = &id
	if err := m.Audit.Append(ctx, entry); err != nil {
		m.Logger.Warn("scheduler: audit append failed", map[string]interface{}{"transaction_id": tx.ID, "error": err.Error()})
	}
}

func (m *Monitor) invalidatePair(ctx context.Context, tx store.Transaction) {
	senderWallet, err := m.Wallets.GetByUserID(ctx, tx.SenderID)
	if err == nil {
		_ = m.Cache.Invalidate(ctx, senderWallet.PublicKey, nil)
	}
	if tx.ReceiverID != nil {
		if receiverWallet, err := m.Wallets.GetByUserID(ctx, *tx.ReceiverID); err == nil {
			_ = m.Cache.Invalidate(ctx, receiverWallet.PublicKey, nil)
		}
	}
}

// RefreshActiveBalances is the refresh_active_balances job body:
// force-warm the cache for wallets of users active in the last 24h.
func (m *Monitor) RefreshActiveBalances(ctx context.Context) error {
	since := time.Now().Add(-24 * time.Hour)
	users, err := m.Users.ActiveSince(ctx, since, 100)
	if err != nil {
		return fmt.Errorf("scheduler: load active users: %w", err)
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		w, err := m.Wallets.GetByUserID(ctx, u.ID)
		if err != nil {
			continue
		}
		if _, err := m.Cache.GetAllBalances(ctx, w.PublicKey, true); err != nil {
			m.Logger.Warn("scheduler: refresh_active_balances fetch failed", map[string]interface{}{"user_id": u.ID, "error": err.Error()})
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}

// CheckFeeSOL warns per wallet with SOL
// below the minimum fee buffer.
func (m *Monitor) CheckFeeSOL(ctx context.Context) error {
	const batchSize = 100
	for offset := 0; ; offset += batchSize {
		wallets, err := m.Wallets.All(ctx, batchSize, offset)
		if err != nil {
			return fmt.Errorf("scheduler: load wallets: %w", err)
		}
		if len(wallets) == 0 {
			return nil
		}
		for _, w := range wallets {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, balance, err := m.Cache.CheckSufficientSOLForFees(ctx, w.PublicKey)
			if err != nil {
				continue
			}
			if !ok {
				m.Logger.Warn("scheduler: wallet SOL below fee minimum", map[string]interface{}{
					"public_key": w.PublicKey,
					"balance":    balance.String(),
				})
			}
		}
		if len(wallets) < batchSize {
			return nil
		}
	}
}

// ValidateEncryptions confirms
// every wallet's blob still decrypts successfully.
func (m *Monitor) ValidateEncryptions(ctx context.Context) error {
	const batchSize = 100
	for offset := 0; ; offset += batchSize {
		wallets, err := m.Wallets.All(ctx, batchSize, offset)
		if err != nil {
			return fmt.Errorf("scheduler: load wallets: %w", err)
		}
		if len(wallets) == 0 {
			return nil
		}
		for _, w := range wallets {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !m.Crypto.Validate(ctx, walletcryptoWallet(w)) {
				m.Logger.Error("scheduler: wallet encryption failed validation", map[string]interface{}{"public_key": w.PublicKey})
				m.Metrics.Counter("wallet_validation_failures_total", 1, nil)
			}
		}
		if len(wallets) < batchSize {
			return nil
		}
	}
}

// LogKeyVersionStats emits a
// histogram of wallet key_version usage.
func (m *Monitor) LogKeyVersionStats(ctx context.Context) error {
	const batchSize = 100
	counts := make(map[string]int)
	for offset := 0; ; offset += batchSize {
		wallets, err := m.Wallets.All(ctx, batchSize, offset)
		if err != nil {
			return fmt.Errorf("scheduler: load wallets: %w", err)
		}
		if len(wallets) == 0 {
			break
		}
		for _, w := range wallets {
			counts[w.KeyVersion]++
		}
		if len(wallets) < batchSize {
			break
		}
	}
	for version, count := range counts {
		m.Metrics.Gauge("wallet_key_version_count", float64(count), map[string]string{"key_version": version})
	}
	m.Logger.Info("scheduler: key version histogram", map[string]interface{}{"versions": counts})
	return nil
}

// RotateKeys re-encrypts every wallet on
// oldVersion in batches, auditing each success or failure. A failed
// rotation leaves its wallet untouched so the next run retries it.
//
// A successful rotation changes the wallet's key_version, so it drops
// out of the next ByKeyVersion(oldVersion, ...) query on its own;
// re-querying at offset 0 is what lets the loop make progress without
// the classic "offset drifts under a shrinking result set" hazard a
// naive offset increment would hit. Wallets that fail rotation never
// drop out that way, so attempted is tracked by id and re-fetched
// wallets already in it are skipped; once a fetched batch yields no
// unattempted wallet, the run has made all the progress it can and
// terminates instead of spinning on the same stuck batch forever.
func (m *Monitor) RotateKeys(ctx context.Context, oldVersion string) error {
	const batchSize = 50
	attempted := make(map[uuid.UUID]bool)

	for {
		wallets, err := m.Wallets.ByKeyVersion(ctx, oldVersion, batchSize, 0)
		if err != nil {
			return fmt.Errorf("scheduler: load wallets by key_version: %w", err)
		}
		if len(wallets) == 0 {
			return nil
		}

		progressed := false
		for _, w := range wallets {
			if attempted[w.ID] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			attempted[w.ID] = true
			progressed = true
			m.rotateOne(ctx, w)
		}
		if !progressed {
			return nil
		}

		if len(wallets) < batchSize {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (m *Monitor) rotateOne(ctx context.Context, w store.Wallet) {
	oldVersion := w.KeyVersion
	rotated, err := m.Crypto.Rotate(ctx, walletcryptoWallet(w))
	if err != nil {
		m.Logger.Error("scheduler: key rotation failed", map[string]interface{}{"public_key": w.PublicKey, "error": err.Error()})
		entry := store.AuditLog{Action: "key_rotation_failed", EntityType: "wallet", UserID: &w.UserID}
		pk := w.PublicKey
		entry.EntityID = &pk
		_ = m.Audit.Append(ctx, entry)
		return
	}

	w.EncryptedPrivateKey = rotated.EncryptedBlob
	w.KeyVersion = rotated.KeyVersion
	if err := m.Wallets.UpdateEncryption(ctx, w); err != nil {
		m.Logger.Error("scheduler: persist rotated wallet failed", map[string]interface{}{"public_key": w.PublicKey, "error": err.Error()})
		return
	}

	entry := store.AuditLog{
		Action:     "key_rotation",
		EntityType: "wallet",
		UserID:     &w.UserID,
	}
	pk := w.PublicKey
	entry.EntityID = &pk
	newValue := fmt.Sprintf("%s->%s", oldVersion, rotated.KeyVersion)
	entry.NewValue = &newValue
	if err := m.Audit.Append(ctx, entry); err != nil {
		m.Logger.Warn("scheduler: audit append failed", map[string]interface{}{"public_key": w.PublicKey, "error": err.Error()})
	}
}

func walletcryptoWallet(w store.Wallet) walletcrypto.Wallet {
	return walletcrypto.Wallet{
		UserID:        w.UserID,
		PublicKey:     w.PublicKey,
		EncryptedBlob: w.EncryptedPrivateKey,
		KeyVersion:    w.KeyVersion,
		KeyAlgorithm:  w.KeyAlgorithm,
	}
}

// EOF: internal/scheduler/monitor.go
