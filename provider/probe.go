package provider

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	checkout "github.com/csacanam/deramp-checkout-go"
)

// Snapshot is the ground-truth view read directly from the provider.
type Snapshot struct {
	// Accounts are the wallet's exposed accounts, selected account first.
	Accounts []common.Address

	// ChainID is the wallet's current chain.
	ChainID int64
}

// Connected reports whether the snapshot represents a usable connection.
func (s Snapshot) Connected() bool {
	return len(s.Accounts) > 0 && s.ChainID != 0
}

// Probe reads the provider's live accounts and chain with no caching layer in
// between. It is the authoritative cross-check against connector state, and
// the only visibility into external wallet apps after a deep-link round trip.
// A nil provider means nothing is injected and yields ErrProviderUnavailable.
// Probe is read-only; it never triggers a permission prompt.
func Probe(ctx context.Context, p Provider) (Snapshot, error) {
	if p == nil {
		return Snapshot{}, checkout.ErrProviderUnavailable
	}

	rawAccounts, err := p.Request(ctx, MethodAccounts)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", checkout.ErrProviderUnavailable, err)
	}
	accounts, err := parseAccounts(rawAccounts)
	if err != nil {
		return Snapshot{}, err
	}

	rawChain, err := p.Request(ctx, MethodChainID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", checkout.ErrProviderUnavailable, err)
	}
	chainHex, ok := rawChain.(string)
	if !ok {
		return Snapshot{}, fmt.Errorf("unexpected eth_chainId result type %T", rawChain)
	}
	chainID, err := DecodeChainID(chainHex)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Accounts: accounts, ChainID: chainID}, nil
}

// parseAccounts accepts the two shapes wallets actually return for
// eth_accounts: a string slice or a generic JSON array.
func parseAccounts(raw any) ([]common.Address, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []common.Address:
		return v, nil
	case []string:
		out := make([]common.Address, 0, len(v))
		for _, s := range v {
			out = append(out, common.HexToAddress(s))
		}
		return out, nil
	case []any:
		out := make([]common.Address, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected account entry type %T", e)
			}
			out = append(out, common.HexToAddress(s))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected eth_accounts result type %T", raw)
	}
}

// detection is one (vendor flag, wallet type) pair of the detection table.
type detection struct {
	flag string
	kind checkout.WalletType
}

// detectionOrder is the fixed-priority wallet detection table. Multi-wallet
// extensions commonly set several vendor flags at once; the first match in
// this order wins. The MetaMask-first ordering is provisional product policy,
// kept explicit here so the tie-break is testable.
var detectionOrder = []detection{
	{"isMetaMask", checkout.WalletMetaMask},
	{"isCoinbaseWallet", checkout.WalletCoinbase},
	{"isRainbow", checkout.WalletRainbow},
	{"isTrust", checkout.WalletTrust},
	{"isPhantom", checkout.WalletPhantom},
}

// DetectWalletType identifies the wallet vendor behind the provider by its
// boolean flags, evaluated in fixed priority order.
func DetectWalletType(p Provider) checkout.WalletType {
	if p == nil {
		return checkout.WalletUnknown
	}
	for _, d := range detectionOrder {
		if p.Flag(d.flag) {
			return d.kind
		}
	}
	return checkout.WalletUnknown
}
