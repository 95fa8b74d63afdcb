package checkout

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// WalletType identifies the wallet software behind the injected provider.
type WalletType string

const (
	// WalletMetaMask is the MetaMask extension or mobile app.
	WalletMetaMask WalletType = "metamask"

	// WalletCoinbase is the Coinbase Wallet (including Base app builds).
	WalletCoinbase WalletType = "coinbase"

	// WalletRainbow is the Rainbow wallet.
	WalletRainbow WalletType = "rainbow"

	// WalletTrust is the Trust Wallet.
	WalletTrust WalletType = "trust"

	// WalletPhantom is the Phantom wallet's EVM provider.
	WalletPhantom WalletType = "phantom"

	// WalletUnknown is any provider without a recognized vendor flag.
	WalletUnknown WalletType = "unknown"
)

// WalletState is the canonical reconciled view of the user's wallet.
// It is owned and mutated exclusively by the wallet store; every other
// component reads snapshots of it.
type WalletState struct {
	// Connected reports whether an account is selected and a chain is known.
	Connected bool

	// Address is the selected account, nil when disconnected.
	Address *common.Address

	// ChainID is the wallet's current chain, 0 when disconnected.
	ChainID int64

	// WalletType is the detected wallet vendor.
	WalletType WalletType

	// LastUpdate is the time this state was last re-derived.
	LastUpdate time.Time
}

// Normalize enforces the core invariant: a connected state must carry both an
// address and a chain ID. A record claiming connected without them is
// downgraded to the disconnected value rather than exposed to readers.
func (s WalletState) Normalize() WalletState {
	if s.Connected && (s.Address == nil || s.ChainID == 0) {
		return WalletState{
			WalletType: s.WalletType,
			LastUpdate: s.LastUpdate,
		}
	}
	return s
}

// Disconnected returns the canonical disconnected wallet state.
func Disconnected() WalletState {
	return WalletState{WalletType: WalletUnknown, LastUpdate: time.Now()}
}

// NetworkMatch compares the wallet's current chain against the chain the
// checkout expects. It is derived state, recomputed on demand and never stored.
type NetworkMatch struct {
	// CurrentChainID is the wallet's chain, 0 when disconnected.
	CurrentChainID int64

	// ExpectedChainID is the chain required by the checkout, 0 when no
	// network has been chosen yet.
	ExpectedChainID int64

	// Correct reports whether current and expected chains agree. It is
	// always false while no expected chain has been chosen.
	Correct bool

	// Supported reports whether the wallet's current chain appears in the
	// registry, independent of what is expected.
	Supported bool
}

// TokenBalance is a fetched balance for one (token, owner, chain) tuple.
type TokenBalance struct {
	// Raw is the balance in the token's smallest unit.
	Raw *big.Int

	// Formatted is the human-readable decimal string, scaled by Decimals.
	Formatted string

	// Symbol is the token symbol the balance was fetched for.
	Symbol string

	// Decimals is the token's declared decimal count.
	Decimals uint8
}

// PaymentOption is one invoice-declared way to pay: a token symbol and the
// amount required of it, as a human-readable decimal string.
type PaymentOption struct {
	TokenSymbol    string `json:"tokenSymbol"`
	RequiredAmount string `json:"requiredAmount"`
}

// ButtonState is the pay-action state machine position.
type ButtonState string

const (
	// StateInitial is the resting state before any pay attempt.
	StateInitial ButtonState = "initial"

	// StateLoading covers wallet-state confirmation and amount preparation.
	StateLoading ButtonState = "loading"

	// StateReady means all preconditions hold and the pay action is enabled.
	StateReady ButtonState = "ready"

	// StateApproving covers an in-flight ERC20 allowance authorization.
	StateApproving ButtonState = "approving"

	// StateConfirm awaits the user's confirmation of the payment itself.
	StateConfirm ButtonState = "confirm"

	// StateProcessing covers the in-flight payment transaction.
	StateProcessing ButtonState = "processing"
)

// String implements fmt.Stringer.
func (s ButtonState) String() string { return string(s) }

// FormatUnits converts a raw smallest-unit value to its human-readable decimal
// string for a token with the given decimals. For example, 1500000 with 6
// decimals becomes "1.5".
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// ParseUnits converts a human-readable decimal amount to raw smallest units
// for a token with the given decimals. The conversion is exact; amounts with
// more fractional digits than the token carries are rejected rather than
// silently truncated.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, ErrInvalidAmount
	}
	return scaled.BigInt(), nil
}
