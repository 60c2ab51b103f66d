package payment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cedrosys/paymentcore/internal/balancecache"
	"github.com/cedrosys/paymentcore/internal/chain"
	"github.com/cedrosys/paymentcore/internal/kms"
	"github.com/cedrosys/paymentcore/internal/observe"
	"github.com/cedrosys/paymentcore/internal/payment"
	"github.com/cedrosys/paymentcore/internal/store"
	"github.com/cedrosys/paymentcore/internal/walletcrypto"
)

// fakeChain is a chain.Chain stand-in that always returns a fixed
// signature, counting submissions so idempotency tests can assert on
// call count rather than just the returned value.
type fakeChain struct {
	chain.Chain
	mu        sync.Mutex
	submits   int
	signature string
	err       error
}

func (f *fakeChain) TransferToken(ctx context.Context, secret [64]byte, recipientPub string, amount decimal.Decimal, token chain.Token) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.err != nil {
		return "", f.err
	}
	return f.signature, nil
}

func (f *fakeChain) GetTokenBalance(ctx context.Context, pub string, tok chain.Token) (decimal.Decimal, error) {
	return decimal.NewFromInt(1000), nil
}

func (f *fakeChain) GetSOLBalance(ctx context.Context, pub string) (decimal.Decimal, error) {
	return decimal.NewFromFloat(1.0), nil
}

// memStore is a minimal in-memory implementation of the store
// interfaces the engine needs, enough to exercise the pipeline
// without a real Postgres.
type memStore struct {
	store.UserStore
	store.WalletStore
	store.TransactionStore
	store.AuditStore
	store.WhitelistStore

	mu      sync.Mutex
	users   map[uuid.UUID]store.User
	phones  map[string]uuid.UUID
	wallets map[uuid.UUID]store.Wallet
	txByID  map[uuid.UUID]store.Transaction
	txByKey map[string]uuid.UUID
	audits  []store.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[uuid.UUID]store.User),
		phones:  make(map[string]uuid.UUID),
		wallets: make(map[uuid.UUID]store.Wallet),
		txByID:  make(map[uuid.UUID]store.Transaction),
		txByKey: make(map[string]uuid.UUID),
	}
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetByPhoneNumber(ctx context.Context, phone string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.phones[phone]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return m.users[id], nil
}

func (m *memStore) GetByUserID(ctx context.Context, userID uuid.UUID) (store.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[userID]
	if !ok {
		return store.Wallet{}, store.ErrNotFound
	}
	return w, nil
}

func (m *memStore) GetByIdempotencyKey(ctx context.Context, key string) (store.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.txByKey[key]
	if !ok {
		return store.Transaction{}, store.ErrNotFound
	}
	return m.txByID[id], nil
}

func (m *memStore) CreateTransaction(ctx context.Context, tx store.Transaction) (store.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.txByKey[tx.IdempotencyKey]; exists {
		return store.Transaction{}, store.ErrIdempotencyConflict
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.CreatedAt = time.Now().UTC()
	tx.UpdatedAt = tx.CreatedAt
	m.txByID[tx.ID] = tx
	m.txByKey[tx.IdempotencyKey] = tx.ID
	return tx, nil
}

func (m *memStore) TransitionStatus(ctx context.Context, id uuid.UUID, fromStatuses []store.TransactionStatus, update store.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.txByID[id]
	if !ok {
		return false, store.ErrNotFound
	}
	allowed := false
	for _, s := range fromStatuses {
		if cur.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	update.ID = id
	update.IdempotencyKey = cur.IdempotencyKey
	update.CreatedAt = cur.CreatedAt
	update.UpdatedAt = time.Now().UTC()
	m.txByID[id] = update
	return true, nil
}

func (m *memStore) DailySum(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (m *memStore) MonthlySum(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (m *memStore) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]store.Transaction, error) {
	return nil, nil
}

func (m *memStore) Append(ctx context.Context, entry store.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, entry)
	return nil
}

func (m *memStore) IsWhitelisted(ctx context.Context, userID uuid.UUID, address string) (bool, error) {
	return true, nil
}

func newTestEngine(t *testing.T, fc *fakeChain) (*payment.Engine, *memStore, *walletcrypto.Crypto) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := balancecache.New(rc, fc)

	provider, err := kms.NewLocalProvider(make([]byte, 32))
	require.NoError(t, err)
	crypto := walletcrypto.NewCrypto(provider)

	ms := newMemStore()

	e := payment.New(payment.Deps{
		Users:       ms,
		Wallets:     ms,
		Txns:        ms,
		Audit:       ms,
		Whitelist:   ms,
		Crypto:      crypto,
		Chain:       fc,
		Cache:       cache,
		RateLimiter: allowAllLimiter{},
		Logger:      &observe.NoopLogger{},
		Tracer:      &observe.NoopTracer{},
		Metrics:     &observe.NoopMetrics{},
	})
	return e, ms, crypto
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(ctx context.Context, action, key string) (bool, error) { return true, nil }

func seedUser(t *testing.T, ms *memStore, crypto *walletcrypto.Crypto, phone string, dailyLimit decimal.Decimal) store.User {
	t.Helper()
	u := store.User{
		ID:                 uuid.New(),
		PhoneNumber:        phone,
		IsActive:           true,
		DailyTransferLimit: dailyLimit,
		DailyLimitResetAt:  time.Now(),
		MonthlyTransferLimit: decimal.NewFromInt(100000),
		MonthlyLimitResetAt:  time.Now(),
	}
	ms.users[u.ID] = u
	ms.phones[phone] = u.ID

	w, err := crypto.Generate(context.Background(), u.ID)
	require.NoError(t, err)
	ms.wallets[u.ID] = store.Wallet{
		UserID:              u.ID,
		PublicKey:           w.PublicKey,
		EncryptedPrivateKey: w.EncryptedBlob,
		KeyVersion:          w.KeyVersion,
		KeyAlgorithm:        w.KeyAlgorithm,
	}
	return u
}

func TestSendPayment_HappyPath(t *testing.T) {
	fc := &fakeChain{signature: "SIG1"}
	e, ms, crypto := newTestEngine(t, fc)

	sender := seedUser(t, ms, crypto, "+14155550101", decimal.NewFromInt(1000))
	receiver := seedUser(t, ms, crypto, "+14155550102", decimal.NewFromInt(1000))
	_ = receiver

	resp, err := e.SendPayment(context.Background(), sender.ID, payment.SendRequest{
		IdempotencyKey: "k-001-aaaaaaaaaaaaaaaa",
		RecipientPhone: "+14155550102",
		Amount:         decimal.NewFromFloat(25.00),
		Token:          chain.TokenUSDC,
	})
	require.NoError(t, err)
	require.Equal(t, store.StatusProcessing, resp.Status)
	require.NotNil(t, resp.Signature)
	require.Equal(t, "SIG1", *resp.Signature)
	require.Equal(t, 1, fc.submits)
}

// A repeated request with the same idempotency key must not resubmit
// to the chain.
func TestSendPayment_IdempotentReplay(t *testing.T) {
	fc := &fakeChain{signature: "SIG1"}
	e, ms, crypto := newTestEngine(t, fc)

	sender := seedUser(t, ms, crypto, "+14155550101", decimal.NewFromInt(1000))
	seedUser(t, ms, crypto, "+14155550102", decimal.NewFromInt(1000))

	req := payment.SendRequest{
		IdempotencyKey: "k-001-aaaaaaaaaaaaaaaa",
		RecipientPhone: "+14155550102",
		Amount:         decimal.NewFromFloat(25.00),
		Token:          chain.TokenUSDC,
	}

	first, err := e.SendPayment(context.Background(), sender.ID, req)
	require.NoError(t, err)

	second, err := e.SendPayment(context.Background(), sender.ID, req)
	require.NoError(t, err)

	require.Equal(t, first.TransactionID, second.TransactionID)
	require.Equal(t, 1, fc.submits)
}

// When two callers race past the
// initial existingByIdempotencyKey check at the same time, the
// insert loser must fall back to the winner's row rather than erroring,
// and both must return the same transaction_id with exactly one chain
// submission.
func TestSendPayment_ConcurrentIdempotentCallsConverge(t *testing.T) {
	fc := &fakeChain{signature: "SIG1"}
	e, ms, crypto := newTestEngine(t, fc)

	sender := seedUser(t, ms, crypto, "+14155550101", decimal.NewFromInt(1000))
	seedUser(t, ms, crypto, "+14155550102", decimal.NewFromInt(1000))

	req := payment.SendRequest{
		IdempotencyKey: "k-race-0001",
		RecipientPhone: "+14155550102",
		Amount:         decimal.NewFromFloat(25.00),
		Token:          chain.TokenUSDC,
	}

	var wg sync.WaitGroup
	results := make([]payment.Response, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.SendPayment(context.Background(), sender.ID, req)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, results[0].TransactionID, results[1].TransactionID)
	require.Equal(t, 1, fc.submits, "only the insert winner should submit to the chain")
}

// TestSendPayment_InsufficientBalance exercises scenario 3: the cache
// reports a balance below the requested amount, and no chain call is
// made.
func TestSendPayment_InsufficientBalance(t *testing.T) {
	// fakeChain.GetTokenBalance always reports 1000; a request above
	// that is denied by the cache pre-check before any submission.
	fc := &fakeChain{signature: "SIG1"}
	e, ms, crypto := newTestEngine(t, fc)

	sender := seedUser(t, ms, crypto, "+14155550101", decimal.NewFromInt(10000))
	seedUser(t, ms, crypto, "+14155550102", decimal.NewFromInt(1000))

	_, err := e.SendPayment(context.Background(), sender.ID, payment.SendRequest{
		IdempotencyKey: "k-002-aaaaaaaaaaaaaaaa",
		RecipientPhone: "+14155550102",
		Amount:         decimal.NewFromFloat(2500.00),
		Token:          chain.TokenUSDC,
	})
	require.Error(t, err)
	require.Equal(t, payment.KindInsufficientBalance, payment.AsKind(err))
	require.Equal(t, 0, fc.submits)
}

// Over the daily limit: no Transaction is persisted and the engine
// returns DailyLimitExceeded.
func TestSendPayment_DailyLimitExceeded(t *testing.T) {
	fc := &fakeChain{signature: "SIG1"}
	e, ms, crypto := newTestEngine(t, fc)

	sender := seedUser(t, ms, crypto, "+14155550101", decimal.NewFromInt(10))
	seedUser(t, ms, crypto, "+14155550102", decimal.NewFromInt(1000))

	_, err := e.SendPayment(context.Background(), sender.ID, payment.SendRequest{
		IdempotencyKey: "k-003-aaaaaaaaaaaaaaaa",
		RecipientPhone: "+14155550102",
		Amount:         decimal.NewFromFloat(25.00),
		Token:          chain.TokenUSDC,
	})
	require.Error(t, err)
	require.Equal(t, payment.KindDailyLimitExceeded, payment.AsKind(err))
	require.Empty(t, ms.txByKey)
	require.Equal(t, 0, fc.submits)
}

func TestSendPayment_SelfTransferRejected(t *testing.T) {
	fc := &fakeChain{signature: "SIG1"}
	e, ms, crypto := newTestEngine(t, fc)

	sender := seedUser(t, ms, crypto, "+14155550101", decimal.NewFromInt(1000))

	_, err := e.SendPayment(context.Background(), sender.ID, payment.SendRequest{
		IdempotencyKey: "k-004-aaaaaaaaaaaaaaaa",
		RecipientPhone: "+14155550101",
		Amount:         decimal.NewFromFloat(1.00),
		Token:          chain.TokenUSDC,
	})
	require.Error(t, err)
	require.Equal(t, payment.KindValidation, payment.AsKind(err))
}

func TestSendPayment_MalformedRecipientPhoneRejected(t *testing.T) {
	fc := &fakeChain{signature: "SIG1"}
	e, ms, crypto := newTestEngine(t, fc)

	sender := seedUser(t, ms, crypto, "+14155550101", decimal.NewFromInt(1000))

	_, err := e.SendPayment(context.Background(), sender.ID, payment.SendRequest{
		IdempotencyKey: "k-010-aaaaaaaaaaaaaaaa",
		RecipientPhone: "not-a-phone",
		Amount:         decimal.NewFromFloat(1.00),
		Token:          chain.TokenUSDC,
	})
	require.Error(t, err)
	require.Equal(t, payment.KindValidation, payment.AsKind(err))
	require.Equal(t, 0, fc.submits, "no chain submission for a malformed recipient")
}

func TestSendPayment_FrozenAccountRefused(t *testing.T) {
	fc := &fakeChain{signature: "SIG1"}
	e, ms, crypto := newTestEngine(t, fc)

	sender := seedUser(t, ms, crypto, "+14155550101", decimal.NewFromInt(1000))
	u := ms.users[sender.ID]
	u.IsFrozen = true
	ms.users[sender.ID] = u
	seedUser(t, ms, crypto, "+14155550102", decimal.NewFromInt(1000))

	_, err := e.SendPayment(context.Background(), sender.ID, payment.SendRequest{
		IdempotencyKey: "k-005-aaaaaaaaaaaaaaaa",
		RecipientPhone: "+14155550102",
		Amount:         decimal.NewFromFloat(1.00),
		Token:          chain.TokenUSDC,
	})
	require.Error(t, err)
	require.Equal(t, payment.KindAccountFrozen, payment.AsKind(err))
}

// TestSendPayment_ChainFailureMarksFailed exercises the transition to
// Failed when chain submission returns a terminal error.
func TestSendPayment_ChainFailureMarksFailed(t *testing.T) {
	fc := &fakeChain{err: chain.ErrInsufficientBalance}
	e, ms, crypto := newTestEngine(t, fc)

	sender := seedUser(t, ms, crypto, "+14155550101", decimal.NewFromInt(1000))
	seedUser(t, ms, crypto, "+14155550102", decimal.NewFromInt(1000))

	resp, err := e.SendPayment(context.Background(), sender.ID, payment.SendRequest{
		IdempotencyKey: "k-006-aaaaaaaaaaaaaaaa",
		RecipientPhone: "+14155550102",
		Amount:         decimal.NewFromFloat(25.00),
		Token:          chain.TokenUSDC,
	})
	require.Error(t, err)
	require.Equal(t, payment.KindInsufficientBalance, payment.AsKind(err))
	require.Equal(t, store.StatusFailed, resp.Status)

	stored := ms.txByID[resp.TransactionID]
	require.Equal(t, store.StatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
}

// TestWithdraw_RejectsMalformedAddress exercises the withdrawal path's
// address-syntax check.
func TestWithdraw_RejectsMalformedAddress(t *testing.T) {
	fc := &fakeChain{signature: "SIG1"}
	e, ms, crypto := newTestEngine(t, fc)

	sender := seedUser(t, ms, crypto, "+14155550101", decimal.NewFromInt(1000))

	_, err := e.Withdraw(context.Background(), sender.ID, payment.WithdrawRequest{
		IdempotencyKey:     "k-007-aaaaaaaaaaaaaaaa",
		DestinationAddress: "not-a-valid-address",
		Amount:             decimal.NewFromFloat(1.00),
		Token:              chain.TokenUSDC,
	})
	require.Error(t, err)
	require.Equal(t, payment.KindValidation, payment.AsKind(err))
	require.Equal(t, 0, fc.submits)
}

// EOF: internal/payment/engine_test.go
