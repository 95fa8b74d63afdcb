// Package providertest provides a scripted fake wallet provider for tests.
// It mimics the request/event surface of an injected EIP-1193 provider with
// per-method error injection, a request log, and manual event emission.
package providertest

import (
	"context"
	"sync"

	"github.com/csacanam/deramp-checkout-go/provider"
)

// Call is one recorded Request invocation.
type Call struct {
	Method string
	Params []any
}

// Provider is a fake injected wallet provider. Construct with New; it starts
// with no accounts on chain 0 and is scripted through the setters. All
// methods are safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	accounts []string
	chainHex string
	flags    map[string]bool

	// Errs injects an error per request method. The error is returned on
	// every call until cleared.
	errs map[string]error

	// results overrides the response per request method.
	results map[string]any

	// onRequest, when set, intercepts every request before the defaults.
	onRequest func(method string, params []any) (any, error, bool)

	calls    []Call
	handlers map[string][]*handler

	// addedChains records wallet_addEthereumChain payloads.
	addedChains []any
}

type handler struct {
	event string
	fn    func(payload any)
}

// New creates a fake provider with the given vendor flags.
func New(flags map[string]bool) *Provider {
	return &Provider{
		flags:    flags,
		chainHex: "0x0",
		errs:     make(map[string]error),
		results:  make(map[string]any),
		handlers: make(map[string][]*handler),
	}
}

// SetAccounts scripts the eth_accounts response.
func (p *Provider) SetAccounts(accounts ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = accounts
}

// SetChainID scripts the eth_chainId response from a decimal chain ID.
func (p *Provider) SetChainID(chainID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chainHex = provider.EncodeChainID(chainID)
}

// SetChainHex scripts the raw eth_chainId response, for malformed-value tests.
func (p *Provider) SetChainHex(chainHex string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chainHex = chainHex
}

// FailWith injects an error for a request method until cleared with a nil err.
func (p *Provider) FailWith(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.errs, method)
		return
	}
	p.errs[method] = err
}

// RespondWith overrides the response for a request method.
func (p *Provider) RespondWith(method string, result any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[method] = result
}

// Intercept installs a hook that sees every request before default handling.
// Returning handled=false falls through to the scripted defaults.
func (p *Provider) Intercept(fn func(method string, params []any) (any, error, bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRequest = fn
}

// Request implements provider.Provider.
func (p *Provider) Request(ctx context.Context, method string, params ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.calls = append(p.calls, Call{Method: method, Params: params})
	hook := p.onRequest
	if err, ok := p.errs[method]; ok {
		p.mu.Unlock()
		return nil, err
	}
	if res, ok := p.results[method]; ok {
		p.mu.Unlock()
		return res, nil
	}
	p.mu.Unlock()

	if hook != nil {
		if res, err, handled := hook(method, params); handled {
			return res, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch method {
	case provider.MethodAccounts, provider.MethodRequestAccounts:
		out := make([]string, len(p.accounts))
		copy(out, p.accounts)
		return out, nil
	case provider.MethodChainID:
		return p.chainHex, nil
	case provider.MethodSwitchChain:
		if len(params) == 1 {
			if m, ok := params[0].(map[string]any); ok {
				if hex, ok := m["chainId"].(string); ok {
					p.chainHex = hex
				}
			}
		}
		return nil, nil
	case provider.MethodAddChain:
		if len(params) == 1 {
			p.addedChains = append(p.addedChains, params[0])
			if m, ok := params[0].(map[string]any); ok {
				if hex, ok := m["chainId"].(string); ok {
					p.chainHex = hex
				}
			}
		}
		return nil, nil
	case provider.MethodGetBalance, provider.MethodCall:
		return "0x0", nil
	default:
		return nil, &provider.RPCError{Code: -32601, Message: "method not found: " + method}
	}
}

// Subscribe implements provider.Provider.
func (p *Provider) Subscribe(event string, fn func(payload any)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := &handler{event: event, fn: fn}
	p.handlers[event] = append(p.handlers[event], h)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		hs := p.handlers[event]
		for i, cand := range hs {
			if cand == h {
				p.handlers[event] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

// Flag implements provider.Provider.
func (p *Provider) Flag(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flags[name]
}

// Emit delivers a provider event to all subscribed handlers, synchronously on
// the caller's goroutine.
func (p *Provider) Emit(event string, payload any) {
	p.mu.Lock()
	hs := append([]*handler(nil), p.handlers[event]...)
	p.mu.Unlock()
	for _, h := range hs {
		h.fn(payload)
	}
}

// Calls returns the recorded request log.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallCount counts recorded requests for one method.
func (p *Provider) CallCount(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ListenerCount reports live subscriptions for an event, for leak tests.
func (p *Provider) ListenerCount(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handlers[event])
}

// AddedChains returns recorded wallet_addEthereumChain payloads.
func (p *Provider) AddedChains() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.addedChains...)
}
