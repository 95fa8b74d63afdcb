package checkout

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestNormalizeEnforcesConnectionInvariant(t *testing.T) {
	addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	now := time.Now()

	tests := []struct {
		name          string
		state         WalletState
		wantConnected bool
	}{
		{
			name:          "connected with address and chain stays connected",
			state:         WalletState{Connected: true, Address: &addr, ChainID: 42220, WalletType: WalletMetaMask, LastUpdate: now},
			wantConnected: true,
		},
		{
			name:          "connected without address is downgraded",
			state:         WalletState{Connected: true, ChainID: 42220, WalletType: WalletMetaMask, LastUpdate: now},
			wantConnected: false,
		},
		{
			name:          "connected without chain is downgraded",
			state:         WalletState{Connected: true, Address: &addr, WalletType: WalletMetaMask, LastUpdate: now},
			wantConnected: false,
		},
		{
			name:          "disconnected stays disconnected",
			state:         WalletState{WalletType: WalletUnknown, LastUpdate: now},
			wantConnected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.state.Normalize()
			if got.Connected != tt.wantConnected {
				t.Fatalf("Connected = %v, want %v", got.Connected, tt.wantConnected)
			}
			if !got.Connected && (got.Address != nil || got.ChainID != 0) {
				t.Errorf("disconnected state still carries address %v chain %d", got.Address, got.ChainID)
			}
			if got.WalletType != tt.state.WalletType {
				t.Errorf("Normalize changed wallet type: %s -> %s", tt.state.WalletType, got.WalletType)
			}
		})
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals uint8
		want     string
	}{
		{name: "six decimals", raw: big.NewInt(1500000), decimals: 6, want: "1.5"},
		{name: "eighteen decimals", raw: mustBig(t, "10500000000000000001"), decimals: 18, want: "10.500000000000000001"},
		{name: "zero", raw: big.NewInt(0), decimals: 18, want: "0"},
		{name: "nil treated as zero", raw: nil, decimals: 18, want: "0"},
		{name: "sub unit", raw: big.NewInt(42), decimals: 6, want: "0.000042"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatUnits(tt.raw, tt.decimals); got != tt.want {
				t.Errorf("FormatUnits(%v, %d) = %q, want %q", tt.raw, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{name: "whole amount", amount: "10.5", decimals: 18, want: "10500000000000000000"},
		{name: "integer", amount: "3", decimals: 6, want: "3000000"},
		{name: "full precision", amount: "10.500000000000000001", decimals: 18, want: "10500000000000000001"},
		{name: "excess precision rejected", amount: "1.0000001", decimals: 6, wantErr: true},
		{name: "not a number", amount: "ten", decimals: 18, wantErr: true},
		{name: "empty", amount: "", decimals: 18, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUnits(tt.amount, tt.decimals)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseUnits(%q, %d) = %s, want %s", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big int literal %q", s)
	}
	return v
}
