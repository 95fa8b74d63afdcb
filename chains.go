// Package checkout provides the pre-flight core of a crypto checkout: the
// chain registry, the reconciled wallet state model, the error taxonomy, and
// payment option selection. It decides whether a pay action may be enabled;
// rendering and on-chain submission live elsewhere.
package checkout

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// NativeTokenAddress is the sentinel contract address representing a chain's
// native currency.
var NativeTokenAddress = common.Address{}

// TokenDescriptor describes one payable token on a chain.
type TokenDescriptor struct {
	// Address is the ERC20 contract address, or the zero address for the
	// chain's native currency.
	Address common.Address

	// Symbol is the token symbol (e.g., "CUSD", "USDC").
	Symbol string `validate:"required"`

	// Name is the human-readable token name.
	Name string `validate:"required"`

	// Decimals is the token's declared decimal count.
	Decimals uint8
}

// IsNative reports whether the descriptor refers to the chain's native
// currency rather than a token contract.
func (t TokenDescriptor) IsNative() bool {
	return t.Address == NativeTokenAddress
}

// NativeCurrency describes a chain's native currency for wallet_addEthereumChain.
type NativeCurrency struct {
	Name     string `json:"name" validate:"required"`
	Symbol   string `json:"symbol" validate:"required"`
	Decimals uint8  `json:"decimals" validate:"required"`
}

// ChainDescriptor is the static configuration for one supported network.
// Descriptors are loaded once at registry construction and immutable after.
type ChainDescriptor struct {
	// ChainID is the numeric EVM chain ID, unique across enabled chains.
	ChainID int64 `validate:"required,gt=0"`

	// DisplayName is the human-readable network name.
	DisplayName string `validate:"required"`

	// BackendAliases are the exact, case-sensitive network names the
	// backend invoice API may use for this chain.
	BackendAliases []string `validate:"required,min=1"`

	// Enabled gates whether the chain is offered at all.
	Enabled bool

	// Priority orders chains in selection lists; lower numbers first.
	Priority int64

	// NativeCurrency describes the chain's native currency.
	NativeCurrency NativeCurrency `validate:"required"`

	// Tokens maps token symbol to descriptor for every payable token.
	Tokens map[string]TokenDescriptor `validate:"required,min=1"`

	// RPCURLs are the chain's RPC endpoints, in preference order.
	RPCURLs []string `validate:"required,min=1,dive,url"`

	// BlockExplorerURL is the chain's block explorer.
	BlockExplorerURL string `validate:"omitempty,url"`
}

// Token resolves a token by symbol on this chain.
func (c *ChainDescriptor) Token(symbol string) (TokenDescriptor, error) {
	tok, ok := c.Tokens[symbol]
	if !ok {
		return TokenDescriptor{}, fmt.Errorf("%w: %s on %s", ErrUnknownToken, symbol, c.DisplayName)
	}
	return tok, nil
}

// Registry is the static table of supported chains. Lookups are pure; the
// table is immutable after construction.
type Registry struct {
	byID    map[int64]*ChainDescriptor
	byAlias map[string]*ChainDescriptor
	ordered []*ChainDescriptor
}

var validate = validator.New()

// NewRegistry builds a registry from the given descriptors. Construction
// fails with ErrConfiguration when the enabled set would be empty, when two
// enabled descriptors share a chain ID, or when any descriptor is malformed:
// a deployment with a broken chain table is a fatal misconfiguration, not a
// silent empty result.
func NewRegistry(descriptors ...ChainDescriptor) (*Registry, error) {
	r := &Registry{
		byID:    make(map[int64]*ChainDescriptor),
		byAlias: make(map[string]*ChainDescriptor),
	}

	for i := range descriptors {
		d := descriptors[i]
		if !d.Enabled {
			continue
		}
		if err := validate.Struct(d); err != nil {
			return nil, fmt.Errorf("%w: chain %d: %v", ErrConfiguration, d.ChainID, err)
		}
		for symbol, tok := range d.Tokens {
			if tok.Symbol != symbol {
				return nil, fmt.Errorf("%w: chain %d: token key %q does not match symbol %q",
					ErrConfiguration, d.ChainID, symbol, tok.Symbol)
			}
		}
		if _, dup := r.byID[d.ChainID]; dup {
			return nil, fmt.Errorf("%w: duplicate chain id %d", ErrConfiguration, d.ChainID)
		}
		r.byID[d.ChainID] = &d
		for _, alias := range d.BackendAliases {
			if prev, dup := r.byAlias[alias]; dup {
				return nil, fmt.Errorf("%w: alias %q claimed by chains %d and %d",
					ErrConfiguration, alias, prev.ChainID, d.ChainID)
			}
			r.byAlias[alias] = &d
		}
		r.ordered = append(r.ordered, &d)
	}

	if len(r.ordered) == 0 {
		return nil, fmt.Errorf("%w: no enabled chains", ErrConfiguration)
	}

	// Stable sort keeps configuration order for equal priorities.
	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Priority < r.ordered[j].Priority
	})

	return r, nil
}

// MustNewRegistry is NewRegistry that panics on configuration errors. Intended
// for static default tables, where a bad table should stop the process.
func MustNewRegistry(descriptors ...ChainDescriptor) *Registry {
	r, err := NewRegistry(descriptors...)
	if err != nil {
		panic(err)
	}
	return r
}

// ResolveByBackendName maps a backend-supplied network name to its chain.
// Aliases are exact, case-sensitive strings. This is the sole adapter between
// free-text backend names and chain identifiers.
func (r *Registry) ResolveByBackendName(name string) (*ChainDescriptor, error) {
	d, ok := r.byAlias[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return d, nil
}

// ResolveByID looks up a chain by its numeric chain ID.
func (r *Registry) ResolveByID(chainID int64) (*ChainDescriptor, error) {
	d, ok := r.byID[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	return d, nil
}

// Supports reports whether a chain ID appears in the registry.
func (r *Registry) Supports(chainID int64) bool {
	_, ok := r.byID[chainID]
	return ok
}

// Enabled returns all enabled chains, ascending by priority.
func (r *Registry) Enabled() []*ChainDescriptor {
	out := make([]*ChainDescriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Default chain table. Token addresses verified against the public Celo and
// Circle registries.
var (
	// CeloMainnet is the Celo mainnet configuration.
	CeloMainnet = ChainDescriptor{
		ChainID:        42220,
		DisplayName:    "Celo",
		BackendAliases: []string{"CELO", "Celo", "celo"},
		Enabled:        true,
		Priority:       1,
		NativeCurrency: NativeCurrency{Name: "CELO", Symbol: "CELO", Decimals: 18},
		Tokens: map[string]TokenDescriptor{
			"CELO": {Address: NativeTokenAddress, Symbol: "CELO", Name: "Celo", Decimals: 18},
			"CUSD": {Address: common.HexToAddress("0x765DE816845861e75A25fCA122bb6898B8B1282a"), Symbol: "CUSD", Name: "Celo Dollar", Decimals: 18},
			"USDC": {Address: common.HexToAddress("0xcebA9300f2b948710d2653dD7B07f33A8B32118C"), Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		},
		RPCURLs:          []string{"https://forno.celo.org"},
		BlockExplorerURL: "https://celoscan.io",
	}

	// CeloAlfajores is the Celo Alfajores testnet configuration.
	CeloAlfajores = ChainDescriptor{
		ChainID:        44787,
		DisplayName:    "Celo Alfajores",
		BackendAliases: []string{"CELO_ALFAJORES", "Celo Alfajores", "alfajores"},
		Enabled:        true,
		Priority:       10,
		NativeCurrency: NativeCurrency{Name: "CELO", Symbol: "CELO", Decimals: 18},
		Tokens: map[string]TokenDescriptor{
			"CELO": {Address: NativeTokenAddress, Symbol: "CELO", Name: "Celo", Decimals: 18},
			"CUSD": {Address: common.HexToAddress("0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1"), Symbol: "CUSD", Name: "Celo Dollar", Decimals: 18},
		},
		RPCURLs:          []string{"https://alfajores-forno.celo-testnet.org"},
		BlockExplorerURL: "https://alfajores.celoscan.io",
	}

	// BaseMainnet is the Base mainnet configuration.
	BaseMainnet = ChainDescriptor{
		ChainID:        8453,
		DisplayName:    "Base",
		BackendAliases: []string{"BASE", "Base", "base"},
		Enabled:        true,
		Priority:       2,
		NativeCurrency: NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		Tokens: map[string]TokenDescriptor{
			"ETH":  {Address: NativeTokenAddress, Symbol: "ETH", Name: "Ether", Decimals: 18},
			"USDC": {Address: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		},
		RPCURLs:          []string{"https://mainnet.base.org"},
		BlockExplorerURL: "https://basescan.org",
	}

	// BaseSepolia is the Base Sepolia testnet configuration.
	BaseSepolia = ChainDescriptor{
		ChainID:        84532,
		DisplayName:    "Base Sepolia",
		BackendAliases: []string{"BASE_SEPOLIA", "Base Sepolia", "base-sepolia"},
		Enabled:        true,
		Priority:       11,
		NativeCurrency: NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		Tokens: map[string]TokenDescriptor{
			"ETH":  {Address: NativeTokenAddress, Symbol: "ETH", Name: "Ether", Decimals: 18},
			"USDC": {Address: common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"), Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		},
		RPCURLs:          []string{"https://sepolia.base.org"},
		BlockExplorerURL: "https://sepolia.basescan.org",
	}

	// PolygonMainnet is the Polygon PoS mainnet configuration.
	PolygonMainnet = ChainDescriptor{
		ChainID:        137,
		DisplayName:    "Polygon",
		BackendAliases: []string{"POLYGON", "Polygon", "polygon"},
		Enabled:        true,
		Priority:       3,
		NativeCurrency: NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18},
		Tokens: map[string]TokenDescriptor{
			"POL":  {Address: NativeTokenAddress, Symbol: "POL", Name: "POL", Decimals: 18},
			"USDC": {Address: common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"), Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		},
		RPCURLs:          []string{"https://polygon-rpc.com"},
		BlockExplorerURL: "https://polygonscan.com",
	}
)

// DefaultRegistry returns the registry built from the default chain table.
func DefaultRegistry() *Registry {
	return MustNewRegistry(CeloMainnet, CeloAlfajores, BaseMainnet, BaseSepolia, PolygonMainnet)
}
