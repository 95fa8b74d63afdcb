// Package network compares the wallet's current chain against the chain the
// checkout requires and drives the switch/add-chain flow when they disagree.
package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	checkout "github.com/csacanam/deramp-checkout-go"
	"github.com/csacanam/deramp-checkout-go/logger"
	"github.com/csacanam/deramp-checkout-go/provider"
	"github.com/csacanam/deramp-checkout-go/wallet"
)

// Reconciler derives the network match state and performs chain switches.
// The expected chain is set from a backend network name or a chain ID; until
// one is set, no match is ever reported correct.
type Reconciler struct {
	reg   *checkout.Registry
	store *wallet.Store
	p     provider.Provider
	log   logger.Logger

	mu       sync.Mutex
	expected *checkout.ChainDescriptor
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger; default is no-op.
func WithLogger(l logger.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// NewReconciler creates a Reconciler over the registry, wallet store and
// provider.
func NewReconciler(reg *checkout.Registry, store *wallet.Store, p provider.Provider, opts ...Option) *Reconciler {
	r := &Reconciler{
		reg:   reg,
		store: store,
		p:     p,
		log:   logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetExpected sets the expected chain from a backend-declared network name.
// An unknown name is a deployment defect: it is logged loudly, the expected
// chain is left unset, and the error is returned.
func (r *Reconciler) SetExpected(backendName string) error {
	chain, err := r.reg.ResolveByBackendName(backendName)
	if err != nil {
		r.log.Error("backend network name has no registry match", map[string]any{
			"network": backendName,
		})
		return err
	}
	r.mu.Lock()
	r.expected = chain
	r.mu.Unlock()
	return nil
}

// SetExpectedChainID sets the expected chain directly by ID.
func (r *Reconciler) SetExpectedChainID(chainID int64) error {
	chain, err := r.reg.ResolveByID(chainID)
	if err != nil {
		r.log.Error("expected chain id has no registry match", map[string]any{
			"chainId": chainID,
		})
		return err
	}
	r.mu.Lock()
	r.expected = chain
	r.mu.Unlock()
	return nil
}

// ClearExpected unsets the expected chain.
func (r *Reconciler) ClearExpected() {
	r.mu.Lock()
	r.expected = nil
	r.mu.Unlock()
}

// Expected returns the expected chain, or nil when none has been chosen.
func (r *Reconciler) Expected() *checkout.ChainDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expected
}

// Match recomputes the network match from the wallet store's current state.
// With no expected chain chosen, Correct is always false and Supported
// reflects only whether the connected chain appears in the registry; a match
// is never silently reported correct when nothing has been chosen.
func (r *Reconciler) Match() checkout.NetworkMatch {
	state, _ := r.store.State()

	r.mu.Lock()
	expected := r.expected
	r.mu.Unlock()

	m := checkout.NetworkMatch{
		CurrentChainID: state.ChainID,
		Supported:      state.ChainID != 0 && r.reg.Supports(state.ChainID),
	}
	if expected == nil {
		return m
	}
	m.ExpectedChainID = expected.ChainID
	m.Correct = state.Connected && state.ChainID == expected.ChainID
	return m
}

// SwitchToExpected asks the wallet to switch to the expected chain. When the
// wallet has never seen the chain it follows up with an add-chain request
// built from the registry descriptor. User rejection is reported as
// checkout.ErrUserRejected, a cancellation rather than a system error; other
// provider failures wrap checkout.ErrSwitchFailed with the provider's message
// kept as diagnostics, and the caller may retry.
//
// A successful switch does not assume new state: the wallet store is forced
// to re-probe, because switch success alone does not guarantee the chain
// event has fired yet. Success is reported only once that re-probe confirms
// the wallet is on the expected chain; a wallet that acknowledged the switch
// but stayed put is a residual mismatch, surfaced as ErrSwitchFailed.
func (r *Reconciler) SwitchToExpected(ctx context.Context) error {
	r.mu.Lock()
	expected := r.expected
	r.mu.Unlock()
	if expected == nil {
		return checkout.ErrNoExpectedNetwork
	}
	if r.p == nil {
		return checkout.ErrProviderUnavailable
	}

	chainHex := provider.EncodeChainID(expected.ChainID)
	_, err := r.p.Request(ctx, provider.MethodSwitchChain, map[string]any{
		"chainId": chainHex,
	})
	if err != nil {
		classified := checkout.ClassifyProviderError(err)
		switch {
		case errors.Is(classified, checkout.ErrChainNotRecognized):
			if addErr := r.addChain(ctx, expected); addErr != nil {
				return addErr
			}
		case errors.Is(classified, checkout.ErrUserRejected):
			return classified
		case errors.Is(classified, checkout.ErrPendingRequest):
			return classified
		default:
			return fmt.Errorf("%w: %v", checkout.ErrSwitchFailed, err)
		}
	}

	r.store.Refresh(ctx)
	if m := r.Match(); !m.Correct {
		r.log.Warn("wallet acknowledged switch but stayed on another chain", map[string]any{
			"currentChainId":  m.CurrentChainID,
			"expectedChainId": m.ExpectedChainID,
		})
		return fmt.Errorf("%w: wallet reports chain %d after switch to %d",
			checkout.ErrSwitchFailed, m.CurrentChainID, m.ExpectedChainID)
	}
	return nil
}

// addChain issues wallet_addEthereumChain with registry-derived parameters.
// Only surfaced to the user if this too fails.
func (r *Reconciler) addChain(ctx context.Context, chain *checkout.ChainDescriptor) error {
	params := map[string]any{
		"chainId":   provider.EncodeChainID(chain.ChainID),
		"chainName": chain.DisplayName,
		"rpcUrls":   chain.RPCURLs,
		"nativeCurrency": map[string]any{
			"name":     chain.NativeCurrency.Name,
			"symbol":   chain.NativeCurrency.Symbol,
			"decimals": chain.NativeCurrency.Decimals,
		},
	}
	if chain.BlockExplorerURL != "" {
		params["blockExplorerUrls"] = []string{chain.BlockExplorerURL}
	}

	if _, err := r.p.Request(ctx, provider.MethodAddChain, params); err != nil {
		classified := checkout.ClassifyProviderError(err)
		if errors.Is(classified, checkout.ErrUserRejected) {
			return classified
		}
		return fmt.Errorf("%w: add chain: %v", checkout.ErrSwitchFailed, err)
	}
	return nil
}
