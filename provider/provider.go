// Package provider reads the injected wallet provider directly, with no
// connector cache in between. It exposes the EIP-1193 request/event surface
// the page sees, a read-only probe of live accounts and chain, vendor flag
// detection, and the hex chain-id codec used on the provider boundary.
package provider

import (
	"context"
	"fmt"
)

// Provider is the injected wallet provider's request/event interface.
// Implementations wrap whatever bridge delivers EIP-1193 calls to the wallet.
type Provider interface {
	// Request performs a JSON-RPC style request (eth_accounts, eth_chainId,
	// wallet_switchEthereumChain, ...). The call is asynchronous on the
	// wallet side and may block on user approval dialogs for arbitrary
	// wall-clock time; it must honor ctx.
	Request(ctx context.Context, method string, params ...any) (any, error)

	// Subscribe registers a handler for a provider event and returns its
	// unsubscribe function. Handlers may fire from any goroutine.
	Subscribe(event string, fn func(payload any)) (unsubscribe func())

	// Flag reads a vendor-specific boolean flag on the provider object
	// (isMetaMask, isCoinbaseWallet, ...).
	Flag(name string) bool
}

// Provider event names.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
)

// Provider request methods used by the checkout core.
const (
	MethodAccounts        = "eth_accounts"
	MethodRequestAccounts = "eth_requestAccounts"
	MethodChainID         = "eth_chainId"
	MethodGetBalance      = "eth_getBalance"
	MethodCall            = "eth_call"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
)

// RPCError is a JSON-RPC error returned by the provider.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *RPCError) Error() string {
	return fmt.Sprintf("provider rpc error %d: %s", e.Code, e.Message)
}

// ErrorCode implements checkout.ErrorCoder.
func (e *RPCError) ErrorCode() int { return e.Code }
