// Package balancecache is a short-TTL, explicitly-invalidated
// read-through cache in front of internal/chain, backed by Redis so
// every instance in a deployment shares one view of recently-fetched
// balances.
//
// File: internal/balancecache/cache.go
package balancecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/cedrosys/paymentcore/internal/chain"
)

const (
	tokenTTL = 30 * time.Second
	solTTL   = 60 * time.Second

	minSOLForFees = "0.01"
)

// entry is the JSON value stored at every cache key.
type entry struct {
	Balance   decimal.Decimal `json:"balance"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// WalletBalances is the composed result of get_all_balances.
type WalletBalances struct {
	USDC decimal.Decimal
	USDT decimal.Decimal
	SOL  decimal.Decimal
}

// Cache is a read-through cache over a chain.Chain.
type Cache struct {
	redis *redis.Client
	chain chain.Chain
}

// New constructs a Cache.
func New(redisClient *redis.Client, chainClient chain.Chain) *Cache {
	return &Cache{redis: redisClient, chain: chainClient}
}

func tokenKey(tok chain.Token, pub string) string {
	return fmt.Sprintf("balance:token:%s:%s", tok, pub)
}

func solKey(pub string) string {
	return fmt.Sprintf("balance:sol:%s", pub)
}

func (c *Cache) readEntry(ctx context.Context, key string) (entry, bool) {
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return entry{}, false
	}
	return e, true
}

func (c *Cache) writeEntry(ctx context.Context, key string, balance decimal.Decimal, ttl time.Duration) error {
	e := entry{Balance: balance, FetchedAt: time.Now().UTC()}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("balancecache: marshal entry: %w", err)
	}
	return c.redis.Set(ctx, key, raw, ttl).Err()
}

// GetTokenBalance implements get_token_balance.
func (c *Cache) GetTokenBalance(ctx context.Context, pub string, tok chain.Token, force bool) (decimal.Decimal, error) {
	key := tokenKey(tok, pub)
	if !force {
		if e, ok := c.readEntry(ctx, key); ok {
			return e.Balance, nil
		}
	}
	balance, err := c.chain.GetTokenBalance(ctx, pub, tok)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balancecache: fetch token balance: %w", err)
	}
	if err := c.writeEntry(ctx, key, balance, tokenTTL); err != nil {
		return balance, fmt.Errorf("balancecache: cache token balance: %w", err)
	}
	return balance, nil
}

// GetSOLBalance implements get_sol_balance.
func (c *Cache) GetSOLBalance(ctx context.Context, pub string, force bool) (decimal.Decimal, error) {
	key := solKey(pub)
	if !force {
		if e, ok := c.readEntry(ctx, key); ok {
			return e.Balance, nil
		}
	}
	balance, err := c.chain.GetSOLBalance(ctx, pub)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balancecache: fetch sol balance: %w", err)
	}
	if err := c.writeEntry(ctx, key, balance, solTTL); err != nil {
		return balance, fmt.Errorf("balancecache: cache sol balance: %w", err)
	}
	return balance, nil
}

// balanceResult carries one leg of a parallel fan-out back to the
// collecting goroutine.
type balanceResult struct {
	which string
	value decimal.Decimal
	err   error
}

// GetAllBalances fans USDC/USDT/SOL out across three goroutines,
// merging errors with multierr so a partial failure is reported
// without losing whichever legs did succeed.
func (c *Cache) GetAllBalances(ctx context.Context, pub string, force bool) (WalletBalances, error) {
	results := make(chan balanceResult, 3)

	go func() {
		v, err := c.GetTokenBalance(ctx, pub, chain.TokenUSDC, force)
		results <- balanceResult{which: "usdc", value: v, err: err}
	}()
	go func() {
		v, err := c.GetTokenBalance(ctx, pub, chain.TokenUSDT, force)
		results <- balanceResult{which: "usdt", value: v, err: err}
	}()
	go func() {
		v, err := c.GetSOLBalance(ctx, pub, force)
		results <- balanceResult{which: "sol", value: v, err: err}
	}()

	var wb WalletBalances
	var errs error
	for i := 0; i < 3; i++ {
		r := <-results
		if r.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.which, r.err))
			continue
		}
		switch r.which {
		case "usdc":
			wb.USDC = r.value
		case "usdt":
			wb.USDT = r.value
		case "sol":
			wb.SOL = r.value
		}
	}
	return wb, errs
}

// Invalidate implements invalidate. If tok is nil, all three keys for
// pub are removed.
func (c *Cache) Invalidate(ctx context.Context, pub string, tok *chain.Token) error {
	if tok != nil {
		return c.redis.Del(ctx, tokenKey(*tok, pub)).Err()
	}
	return c.redis.Del(ctx,
		tokenKey(chain.TokenUSDC, pub),
		tokenKey(chain.TokenUSDT, pub),
		solKey(pub),
	).Err()
}

// CheckSufficientBalance implements check_sufficient_balance using a
// cached (non-force) read.
func (c *Cache) CheckSufficientBalance(ctx context.Context, pub string, required decimal.Decimal, tok chain.Token) (bool, decimal.Decimal, error) {
	current, err := c.GetTokenBalance(ctx, pub, tok, false)
	if err != nil {
		return false, decimal.Zero, err
	}
	return current.GreaterThanOrEqual(required), current, nil
}

// CheckSufficientSOLForFees reports whether pub holds at least the
// 0.01 SOL fee buffer.
func (c *Cache) CheckSufficientSOLForFees(ctx context.Context, pub string) (bool, decimal.Decimal, error) {
	current, err := c.GetSOLBalance(ctx, pub, false)
	if err != nil {
		return false, decimal.Zero, err
	}
	min := decimal.RequireFromString(minSOLForFees)
	return current.GreaterThanOrEqual(min), current, nil
}

// EOF: internal/balancecache/cache.go
