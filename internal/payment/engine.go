// File: internal/payment/engine.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cedrosys/paymentcore/internal/balancecache"
	"github.com/cedrosys/paymentcore/internal/chain"
	"github.com/cedrosys/paymentcore/internal/observe"
	"github.com/cedrosys/paymentcore/internal/payment/policy"
	"github.com/cedrosys/paymentcore/internal/store"
	"github.com/cedrosys/paymentcore/internal/walletcrypto"
)

// RateLimiter is the external rate-limiting service send_payment calls
// before doing any other work. It is deliberately outside this
// package's persistence concerns; the HTTP layer owns the real
// implementation.
type RateLimiter interface {
	Allow(ctx context.Context, action, key string) (bool, error)
}

// Watcher enqueues the asynchronous confirmation watcher a
// freshly-submitted transaction is handed to. It is optional:
// a nil Watcher simply means confirmation relies solely on the
// recurring process_pending sweep.
type Watcher interface {
	EnqueueWaitConfirmation(ctx context.Context, txID uuid.UUID)
}

// SendRequest is the engine-level view of POST /api/payments/send.
type SendRequest struct {
	IdempotencyKey string
	RecipientPhone string
	Amount         decimal.Decimal
	Token          chain.Token
}

// WithdrawRequest is the engine-level view of POST /api/wallet/withdraw.
type WithdrawRequest struct {
	IdempotencyKey     string
	DestinationAddress string
	Amount             decimal.Decimal
	Token              chain.Token
}

// Response is the shared PaymentResponse shape for both sends and
// withdrawals.
type Response struct {
	TransactionID uuid.UUID
	Status        store.TransactionStatus
	Amount        decimal.Decimal
	Token         chain.Token
	Signature     *string
	CreatedAt     time.Time
}

// Engine is the payment engine: idempotent submission, limit
// enforcement, and orchestration of wallet decryption and chain
// submission under policy.Enforcer.
//
// The engine leaves a successfully-submitted transaction in
// Processing rather than marking it Confirmed on submit: a
// submit-time Confirmed that a later monitor pass might downgrade
// would break status monotonicity, so only the monitor ever
// transitions a transaction into Confirmed.
type Engine struct {
	users   store.UserStore
	wallets store.WalletStore
	txns    store.TransactionStore
	audit   store.AuditStore

	crypto *walletcrypto.Crypto
	chain  chain.Chain
	cache  *balancecache.Cache

	enforcer    *policy.Enforcer
	rateLimiter RateLimiter
	watcher     Watcher

	logger  observe.Logger
	tracer  observe.Tracer
	metrics observe.Metrics
}

// Deps bundles Engine's collaborators for explicit construction: no
// container, no global registry.
type Deps struct {
	Users       store.UserStore
	Wallets     store.WalletStore
	Txns        store.TransactionStore
	Audit       store.AuditStore
	Whitelist   store.WhitelistStore
	Crypto      *walletcrypto.Crypto
	Chain       chain.Chain
	Cache       *balancecache.Cache
	RateLimiter RateLimiter
	Watcher     Watcher
	Logger      observe.Logger
	Tracer      observe.Tracer
	Metrics     observe.Metrics
}

// New wires an Engine and its fixed policy set: frozen-account gate,
// daily/monthly limits, and the withdrawal whitelist.
func New(d Deps) *Engine {
	enforcer := policy.NewEnforcer()
	enforcer.AddPolicy(&policy.FrozenAccountPolicy{Users: d.Users})
	enforcer.AddPolicy(&policy.DailyLimitPolicy{Users: d.Users, Txns: d.Txns})
	enforcer.AddPolicy(&policy.MonthlyLimitPolicy{Users: d.Users, Txns: d.Txns})
	enforcer.AddPolicy(&policy.WithdrawalWhitelistPolicy{Whitelist: d.Whitelist})

	return &Engine{
		users:       d.Users,
		wallets:     d.Wallets,
		txns:        d.Txns,
		audit:       d.Audit,
		crypto:      d.Crypto,
		chain:       d.Chain,
		cache:       d.Cache,
		enforcer:    enforcer,
		rateLimiter: d.RateLimiter,
		watcher:     d.Watcher,
		logger:      d.Logger,
		tracer:      d.Tracer,
		metrics:     d.Metrics,
	}
}

// SendPayment runs the full intake-to-submit pipeline for a Transfer between
// two custodial users.
func (e *Engine) SendPayment(ctx context.Context, senderID uuid.UUID, req SendRequest) (Response, error) {
	ctx, span := e.tracer.StartSpan(ctx, "payment.send")
	defer span.End()

	if existing, found, err := e.existingByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
		span.RecordError(err)
		return Response{}, err
	} else if found {
		return toResponse(existing), nil
	}

	if err := e.checkRateLimit(ctx, senderID); err != nil {
		span.RecordError(err)
		return Response{}, err
	}

	if _, err := e.loadActiveSender(ctx, senderID); err != nil {
		span.RecordError(err)
		return Response{}, err
	}

	recipientPhone, err := normalizePhone(req.RecipientPhone)
	if err != nil {
		return Response{}, newError(KindValidation, err)
	}
	receiver, err := e.users.GetByPhoneNumber(ctx, recipientPhone)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Response{}, newError(KindNotFound, fmt.Errorf("recipient %q: %w", recipientPhone, err))
		}
		return Response{}, newError(KindInternal, err)
	}
	if receiver.ID == senderID {
		return Response{}, newError(KindValidation, ErrSelfTransfer)
	}

	pc := &policy.PaymentContext{
		SenderID:   senderID,
		ReceiverID: &receiver.ID,
		Amount:     req.Amount,
		Token:      req.Token,
		Type:       string(store.TransactionTypeTransfer),
	}
	if err := e.runPolicies(ctx, pc); err != nil {
		return Response{}, err
	}

	senderWallet, err := e.wallets.GetByUserID(ctx, senderID)
	if err != nil {
		return Response{}, newError(KindInternal, fmt.Errorf("load sender wallet: %w", err))
	}
	receiverWallet, err := e.wallets.GetByUserID(ctx, receiver.ID)
	if err != nil {
		return Response{}, newError(KindInternal, fmt.Errorf("load receiver wallet: %w", err))
	}

	if err := e.checkBalance(ctx, senderWallet.PublicKey, req.Amount, req.Token); err != nil {
		return Response{}, err
	}

	tx, err := e.createPending(ctx, req.IdempotencyKey, senderID, &receiver.ID, nil, req.Amount, req.Token, store.TransactionTypeTransfer)
	if errors.Is(err, errAlreadySubmitted) {
		return toResponse(tx), nil
	}
	if err != nil {
		return Response{}, newError(KindInternal, err)
	}

	signature, submitErr := e.submit(ctx, senderWallet, receiverWallet.PublicKey, req.Amount, req.Token)
	tx = e.finalizeSubmission(ctx, tx, signature, submitErr)
	e.enqueueWatcher(ctx, tx, submitErr)

	e.invalidateCaches(ctx, senderWallet.PublicKey, &receiverWallet.PublicKey)
	e.writeAudit(ctx, &senderID, "payment_sent", tx)

	if submitErr != nil {
		return toResponse(tx), classifyChainError(submitErr)
	}
	return toResponse(tx), nil
}

// Withdraw is the withdrawal variant of SendPayment: same
// pipeline, but the destination is a literal on-chain address with no
// receiver lookup or receiver-side cache invalidation.
func (e *Engine) Withdraw(ctx context.Context, senderID uuid.UUID, req WithdrawRequest) (Response, error) {
	ctx, span := e.tracer.StartSpan(ctx, "payment.withdraw")
	defer span.End()

	if existing, found, err := e.existingByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
		span.RecordError(err)
		return Response{}, err
	} else if found {
		return toResponse(existing), nil
	}

	if err := e.checkRateLimit(ctx, senderID); err != nil {
		return Response{}, err
	}
	if _, err := e.loadActiveSender(ctx, senderID); err != nil {
		return Response{}, err
	}
	if !chain.ValidAddress(req.DestinationAddress) {
		return Response{}, newError(KindValidation, chain.ErrInvalidAddress)
	}

	pc := &policy.PaymentContext{
		SenderID:        senderID,
		ExternalAddress: &req.DestinationAddress,
		Amount:          req.Amount,
		Token:           req.Token,
		Type:            string(store.TransactionTypeWithdrawal),
	}
	if err := e.runPolicies(ctx, pc); err != nil {
		return Response{}, err
	}

	senderWallet, err := e.wallets.GetByUserID(ctx, senderID)
	if err != nil {
		return Response{}, newError(KindInternal, fmt.Errorf("load sender wallet: %w", err))
	}

	if err := e.checkBalance(ctx, senderWallet.PublicKey, req.Amount, req.Token); err != nil {
		return Response{}, err
	}

	tx, err := e.createPending(ctx, req.IdempotencyKey, senderID, nil, &req.DestinationAddress, req.Amount, req.Token, store.TransactionTypeWithdrawal)
	if errors.Is(err, errAlreadySubmitted) {
		return toResponse(tx), nil
	}
	if err != nil {
		return Response{}, newError(KindInternal, err)
	}

	signature, submitErr := e.submit(ctx, senderWallet, req.DestinationAddress, req.Amount, req.Token)
	tx = e.finalizeSubmission(ctx, tx, signature, submitErr)
	e.enqueueWatcher(ctx, tx, submitErr)

	e.invalidateCaches(ctx, senderWallet.PublicKey, nil)
	e.writeAudit(ctx, &senderID, "payment_sent", tx)

	if submitErr != nil {
		return toResponse(tx), classifyChainError(submitErr)
	}
	return toResponse(tx), nil
}

// History implements GET /api/payments/history's core-side query.
func (e *Engine) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]store.Transaction, error) {
	txs, err := e.txns.History(ctx, userID, limit, offset)
	if err != nil {
		return nil, newError(KindInternal, err)
	}
	return txs, nil
}

// Balance implements GET /api/wallet/balance's core-side query,
// composing cached USDC/USDT/SOL balances for the caller's wallet.
func (e *Engine) Balance(ctx context.Context, userID uuid.UUID, refresh bool) (balancecache.WalletBalances, error) {
	w, err := e.wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return balancecache.WalletBalances{}, newError(KindNotFound, err)
		}
		return balancecache.WalletBalances{}, newError(KindInternal, err)
	}
	wb, err := e.cache.GetAllBalances(ctx, w.PublicKey, refresh)
	if err != nil {
		return wb, newError(KindInternal, err)
	}
	return wb, nil
}

func (e *Engine) existingByIdempotencyKey(ctx context.Context, key string) (store.Transaction, bool, error) {
	tx, err := e.txns.GetByIdempotencyKey(ctx, key)
	if err == nil {
		return tx, true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return store.Transaction{}, false, nil
	}
	return store.Transaction{}, false, newError(KindInternal, err)
}

func (e *Engine) checkRateLimit(ctx context.Context, senderID uuid.UUID) error {
	ok, err := e.rateLimiter.Allow(ctx, "transfer", senderID.String())
	if err != nil {
		return newError(KindInternal, fmt.Errorf("rate limit check: %w", err))
	}
	if !ok {
		return newError(KindRateLimited, fmt.Errorf("sender %s exceeded the transfer rate limit", senderID))
	}
	return nil
}

func (e *Engine) loadActiveSender(ctx context.Context, senderID uuid.UUID) (store.User, error) {
	u, err := e.users.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, newError(KindNotFound, err)
		}
		return store.User{}, newError(KindInternal, err)
	}
	if u.IsFrozen || !u.IsActive {
		return store.User{}, newError(KindAccountFrozen, policy.ErrAccountFrozen)
	}
	return u, nil
}

func (e *Engine) runPolicies(ctx context.Context, pc *policy.PaymentContext) error {
	if err := e.enforcer.Evaluate(ctx, pc); err != nil {
		switch {
		case errors.Is(err, policy.ErrAccountFrozen):
			return newError(KindAccountFrozen, err)
		case errors.Is(err, policy.ErrDailyLimitExceeded):
			return newError(KindDailyLimitExceeded, err)
		case errors.Is(err, policy.ErrMonthlyLimitExceeded):
			return newError(KindMonthlyLimitExceeded, err)
		case errors.Is(err, policy.ErrAddressNotWhitelisted):
			return newError(KindValidation, err)
		default:
			return newError(KindInternal, err)
		}
	}
	return nil
}

func (e *Engine) checkBalance(ctx context.Context, senderPub string, amount decimal.Decimal, token chain.Token) error {
	ok, available, err := e.cache.CheckSufficientBalance(ctx, senderPub, amount, token)
	if err != nil {
		return newError(KindInternal, fmt.Errorf("check balance: %w", err))
	}
	if !ok {
		return newError(KindInsufficientBalance, fmt.Errorf("requested %s, available %s", amount, available))
	}
	return nil
}

func (e *Engine) createPending(ctx context.Context, idempotencyKey string, senderID uuid.UUID, receiverID *uuid.UUID, externalAddress *string, amount decimal.Decimal, token chain.Token, typ store.TransactionType) (store.Transaction, error) {
	tx := store.Transaction{
		IdempotencyKey:  idempotencyKey,
		SenderID:        senderID,
		ReceiverID:      receiverID,
		ExternalAddress: externalAddress,
		Amount:          amount,
		Token:           string(token),
		Type:            typ,
		Status:          store.StatusProcessing,
		MaxRetries:      3,
	}
	created, err := e.txns.CreateTransaction(ctx, tx)
	if errors.Is(err, store.ErrIdempotencyConflict) {
		// A concurrent caller with the same idempotency key won the
		// insert race; converge on its row rather than erroring, so
		// both callers return the same transaction id.
		existing, lookupErr := e.txns.GetByIdempotencyKey(ctx, idempotencyKey)
		if lookupErr != nil {
			return store.Transaction{}, lookupErr
		}
		return existing, errAlreadySubmitted
	}
	return created, err
}

// submit scope-acquires the sender's secret key and releases it on
// every exit path, then submits the transfer through internal/chain.
func (e *Engine) submit(ctx context.Context, senderWallet store.Wallet, recipientPub string, amount decimal.Decimal, token chain.Token) (string, error) {
	secret, err := e.crypto.Decrypt(ctx, walletcryptoWallet(senderWallet))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errWalletDecryptFailed, err)
	}
	defer secret.Release()

	var key [64]byte
	copy(key[:], secret.Key())

	signature, err := e.chain.TransferToken(ctx, key, recipientPub, amount, token)
	for i := range key {
		key[i] = 0
	}
	return signature, err
}

// finalizeSubmission applies the conditional transition the submission
// outcome implies, leaving status=Processing on success (see Engine's
// doc comment) and transitioning to Failed on a terminal submission
// error.
func (e *Engine) finalizeSubmission(ctx context.Context, tx store.Transaction, signature string, submitErr error) store.Transaction {
	if submitErr == nil {
		tx.SolanaSignature = &signature
		update := tx
		update.Status = store.StatusProcessing
		if ok, err := e.txns.TransitionStatus(ctx, tx.ID, []store.TransactionStatus{store.StatusProcessing}, update); err != nil || !ok {
			e.logger.Warn("payment: failed to persist submitted signature", map[string]interface{}{"transaction_id": tx.ID, "error": err})
		}
		return update
	}

	tx.Status = store.StatusFailed
	msg := submitErr.Error()
	tx.ErrorMessage = &msg
	tx.RetryCount++
	if ok, err := e.txns.TransitionStatus(ctx, tx.ID, []store.TransactionStatus{store.StatusProcessing}, tx); err != nil || !ok {
		e.logger.Warn("payment: failed to persist submission failure", map[string]interface{}{"transaction_id": tx.ID, "error": err})
	}
	return tx
}

// enqueueWatcher hands a successfully-submitted transaction to the
// scheduler's async confirmation watcher. It is a
// no-op on submission failure or when no Watcher was wired.
func (e *Engine) enqueueWatcher(ctx context.Context, tx store.Transaction, submitErr error) {
	if submitErr != nil || e.watcher == nil {
		return
	}
	e.watcher.EnqueueWaitConfirmation(ctx, tx.ID)
}

func (e *Engine) invalidateCaches(ctx context.Context, senderPub string, receiverPub *string) {
	if err := e.cache.Invalidate(ctx, senderPub, nil); err != nil {
		e.logger.Warn("payment: cache invalidation failed", map[string]interface{}{"pub": senderPub, "error": err.Error()})
	}
	if receiverPub != nil {
		if err := e.cache.Invalidate(ctx, *receiverPub, nil); err != nil {
			e.logger.Warn("payment: cache invalidation failed", map[string]interface{}{"pub": *receiverPub, "error": err.Error()})
		}
	}
}

func (e *Engine) writeAudit(ctx context.Context, userID *uuid.UUID, action string, tx store.Transaction) {
	entry := store.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: "transaction",
	}
	id := tx.ID.String()
	entry.EntityID = &id
	if err := e.audit.Append(ctx, entry); err != nil {
		e.logger.Warn("payment: audit append failed", map[string]interface{}{"action": action, "error": err.Error()})
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

func toResponse(tx store.Transaction) Response {
	return Response{
		TransactionID: tx.ID,
		Status:        tx.Status,
		Amount:        tx.Amount,
		Token:         chain.Token(tx.Token),
		Signature:     tx.SolanaSignature,
		CreatedAt:     tx.CreatedAt,
	}
}

// errAlreadySubmitted tags createPending's idempotency-race fallback
// (see store.ErrIdempotencyConflict): the returned Transaction is the
// concurrent winner's row, already submitted or in flight, and must
// not be resubmitted.
var errAlreadySubmitted = errors.New("payment: idempotency key already submitted by a concurrent caller")

// errWalletDecryptFailed tags a submission failure that originated in
// wallet decryption rather than chain submission, so classifyChainError
// routes it to KindCryptoAuth instead of KindChainError.
var errWalletDecryptFailed = errors.New("wallet decrypt failed")

// classifyChainError maps a terminal submission failure to the
// engine taxonomy. A retryable chain failure reaches here only after
// the chain client has exhausted its own retry budget.
func classifyChainError(err error) error {
	switch {
	case errors.Is(err, errWalletDecryptFailed):
		return newError(KindCryptoAuth, err)
	case errors.Is(err, chain.ErrInvalidAmount), errors.Is(err, chain.ErrInvalidAddress):
		return newError(KindValidation, err)
	case errors.Is(err, chain.ErrInsufficientBalance):
		return newError(KindInsufficientBalance, err)
	default:
		return newError(KindChainError, err)
	}
}

// EOF: internal/payment/engine.go
