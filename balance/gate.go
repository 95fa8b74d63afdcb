package balance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	checkout "github.com/csacanam/deramp-checkout-go"
	"github.com/csacanam/deramp-checkout-go/logger"
	"github.com/csacanam/deramp-checkout-go/network"
	"github.com/csacanam/deramp-checkout-go/retry"
	"github.com/csacanam/deramp-checkout-go/wallet"
)

const defaultRefreshInterval = 10 * time.Second

// Gate fetches the selected token's balance only while every precondition
// holds: a connected wallet, a known token and owner, and the wallet on the
// expected network. On the wrong network the fetch is suppressed entirely,
// never attempted and never retried; a balance read against the wrong chain's
// contract address is meaningless and must not produce a silently-wrong
// number.
type Gate struct {
	reg     *checkout.Registry
	store   *wallet.Store
	rec     *network.Reconciler
	fetcher Fetcher
	log     logger.Logger

	interval    time.Duration
	retryConfig retry.Config

	mu     sync.Mutex
	symbol string
	latest *checkout.TokenBalance
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger; default is no-op.
func WithLogger(l logger.Logger) Option {
	return func(g *Gate) { g.log = l }
}

// WithRefreshInterval overrides the auto-refresh interval.
func WithRefreshInterval(d time.Duration) Option {
	return func(g *Gate) { g.interval = d }
}

// WithRetryConfig overrides the fetch retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(g *Gate) { g.retryConfig = cfg }
}

// NewGate creates a Gate.
func NewGate(reg *checkout.Registry, store *wallet.Store, rec *network.Reconciler, fetcher Fetcher, opts ...Option) *Gate {
	g := &Gate{
		reg:         reg,
		store:       store,
		rec:         rec,
		fetcher:     fetcher,
		log:         logger.NoopLogger{},
		interval:    defaultRefreshInterval,
		retryConfig: retry.DefaultConfig,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetToken selects the token symbol to track. The previous balance becomes
// stale and is dropped.
func (g *Gate) SetToken(symbol string) {
	g.mu.Lock()
	g.symbol = symbol
	g.latest = nil
	g.mu.Unlock()
}

// Latest returns the most recently fetched balance, if any.
func (g *Gate) Latest() (checkout.TokenBalance, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.latest == nil {
		return checkout.TokenBalance{}, false
	}
	return *g.latest, true
}

// preconditions resolves the fetch tuple, or reports why fetching is
// suppressed.
func (g *Gate) preconditions() (chainID int64, token checkout.TokenDescriptor, owner common.Address, err error) {
	state, _ := g.store.State()
	if !state.Connected || state.Address == nil {
		return 0, checkout.TokenDescriptor{}, owner, checkout.ErrNotConnected
	}

	g.mu.Lock()
	symbol := g.symbol
	g.mu.Unlock()
	if symbol == "" {
		return 0, checkout.TokenDescriptor{}, owner, checkout.ErrNoPaymentOption
	}

	match := g.rec.Match()
	if !match.Correct {
		return 0, checkout.TokenDescriptor{}, owner, checkout.ErrWrongNetwork
	}

	chain, err := g.reg.ResolveByID(match.ExpectedChainID)
	if err != nil {
		return 0, checkout.TokenDescriptor{}, owner, err
	}
	tok, err := chain.Token(symbol)
	if err != nil {
		return 0, checkout.TokenDescriptor{}, owner, err
	}
	return chain.ChainID, tok, *state.Address, nil
}

// Fetch reads the balance once, if and only if every precondition holds.
// Wrong-network suppression returns checkout.ErrWrongNetwork with zero fetch
// attempts. Transient RPC failures are retried up to the configured attempts
// with backoff; precondition and user-action failures are not.
func (g *Gate) Fetch(ctx context.Context) (checkout.TokenBalance, error) {
	chainID, tok, owner, err := g.preconditions()
	if err != nil {
		return checkout.TokenBalance{}, err
	}

	raw, err := retry.WithRetry(ctx, g.retryConfig, isTransient, func() (*big.Int, error) {
		return g.fetcher.BalanceOf(ctx, chainID, tok.Address, owner)
	})
	if err != nil {
		g.log.Warn("balance fetch failed", map[string]any{
			"token":   tok.Symbol,
			"chainId": chainID,
			"error":   err.Error(),
		})
		return checkout.TokenBalance{}, err
	}

	bal := checkout.TokenBalance{
		Raw:       raw,
		Formatted: checkout.FormatUnits(raw, tok.Decimals),
		Symbol:    tok.Symbol,
		Decimals:  tok.Decimals,
	}

	g.mu.Lock()
	g.latest = &bal
	g.mu.Unlock()
	return bal, nil
}

// Run auto-refreshes the balance on the fixed interval while the
// preconditions hold, and stops attempting the instant any precondition
// becomes false. Wallet state changes trigger an immediate re-evaluation.
// Run blocks until ctx ends.
func (g *Gate) Run(ctx context.Context) {
	kick := make(chan struct{}, 1)
	unsub := g.store.OnChange(func(checkout.WalletState, bool) {
		select {
		case kick <- struct{}{}:
		default:
		}
	})
	defer unsub()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.tryFetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.tryFetch(ctx)
		case <-kick:
			g.tryFetch(ctx)
		}
	}
}

func (g *Gate) tryFetch(ctx context.Context) {
	if _, _, _, err := g.preconditions(); err != nil {
		// Suppressed, not failed. The stale balance is dropped so a
		// wrong-network window never shows a number from another chain.
		g.mu.Lock()
		g.latest = nil
		g.mu.Unlock()
		return
	}
	if _, err := g.Fetch(ctx); err != nil && !checkout.IsRecoverable(err) {
		g.log.Debug("auto refresh fetch failed", map[string]any{"error": err.Error()})
	}
}

// isTransient reports whether a fetch failure is worth retrying.
func isTransient(err error) bool {
	return !errors.Is(err, checkout.ErrWrongNetwork) &&
		!errors.Is(err, checkout.ErrNotConnected) &&
		!errors.Is(err, checkout.ErrUserRejected) &&
		!errors.Is(err, checkout.ErrPendingRequest) &&
		!errors.Is(err, checkout.ErrProviderUnavailable)
}

// IsSufficient compares a fetched balance against a required human-readable
// amount using fixed-point decimal arithmetic keyed to the token's declared
// decimals. Floating-point parsing of decimal strings both false-positives
// and false-negatives near the boundary, so it is never used here.
func IsSufficient(bal checkout.TokenBalance, requiredAmount string) (bool, error) {
	required, err := decimal.NewFromString(requiredAmount)
	if err != nil {
		return false, fmt.Errorf("%w: %q", checkout.ErrInvalidAmount, requiredAmount)
	}
	if bal.Raw == nil {
		return false, nil
	}
	have := decimal.NewFromBigInt(bal.Raw, -int32(bal.Decimals))
	return have.Cmp(required) >= 0, nil
}
