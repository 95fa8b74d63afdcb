// Package balance fetches and refreshes the wallet's balance for the
// selected token, gated on the wallet being connected to the correct network,
// and decides sufficiency against the required amount with decimal-exact
// arithmetic.
package balance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	checkout "github.com/csacanam/deramp-checkout-go"
	"github.com/csacanam/deramp-checkout-go/provider"
)

// balanceOfSelector is the 4-byte selector of ERC20 balanceOf(address).
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// Fetcher reads a single token balance for an owner on a chain.
type Fetcher interface {
	BalanceOf(ctx context.Context, chainID int64, token, owner common.Address) (*big.Int, error)
}

// RPCFetcher reads balances through the injected wallet provider: the native
// balance via eth_getBalance, ERC20 balances via an eth_call to balanceOf.
type RPCFetcher struct {
	p provider.Provider
}

// NewRPCFetcher creates a fetcher over the injected provider.
func NewRPCFetcher(p provider.Provider) *RPCFetcher {
	return &RPCFetcher{p: p}
}

// BalanceOf implements Fetcher.
func (f *RPCFetcher) BalanceOf(ctx context.Context, chainID int64, token, owner common.Address) (*big.Int, error) {
	if f.p == nil {
		return nil, checkout.ErrProviderUnavailable
	}

	if token == checkout.NativeTokenAddress {
		res, err := f.p.Request(ctx, provider.MethodGetBalance, owner.Hex(), "latest")
		if err != nil {
			return nil, checkout.ClassifyProviderError(err)
		}
		return parseQuantity(res)
	}

	calldata := append(append([]byte(nil), balanceOfSelector...), common.LeftPadBytes(owner.Bytes(), 32)...)
	res, err := f.p.Request(ctx, provider.MethodCall, map[string]any{
		"to":   token.Hex(),
		"data": hexutil.Encode(calldata),
	}, "latest")
	if err != nil {
		return nil, checkout.ClassifyProviderError(err)
	}
	return parseQuantity(res)
}

// parseQuantity parses an RPC hex quantity, accepting both minimal ("0x1")
// and 32-byte-padded call results.
func parseQuantity(raw any) (*big.Int, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected balance result type %T", raw)
	}
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid balance quantity %q", raw)
	}
	return v, nil
}
