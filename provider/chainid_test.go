package provider

import (
	"testing"

	checkout "github.com/csacanam/deramp-checkout-go"
)

func TestEncodeChainID(t *testing.T) {
	tests := []struct {
		chainID int64
		want    string
	}{
		{chainID: 44787, want: "0xaef3"},
		{chainID: 42220, want: "0xa4ec"},
		{chainID: 1, want: "0x1"},
		{chainID: 137, want: "0x89"},
	}

	for _, tt := range tests {
		if got := EncodeChainID(tt.chainID); got != tt.want {
			t.Errorf("EncodeChainID(%d) = %q, want %q", tt.chainID, got, tt.want)
		}
	}
}

func TestDecodeChainID(t *testing.T) {
	tests := []struct {
		name     string
		chainHex string
		want     int64
		wantErr  bool
	}{
		{name: "canonical", chainHex: "0xaef3", want: 44787},
		{name: "upper case", chainHex: "0xAEF3", want: 44787},
		{name: "zero padded", chainHex: "0x00aef3", want: 44787},
		{name: "single digit", chainHex: "0x1", want: 1},
		{name: "zero rejected", chainHex: "0x0", wantErr: true},
		{name: "empty rejected", chainHex: "", wantErr: true},
		{name: "garbage rejected", chainHex: "0xzz", wantErr: true},
		{name: "lenient about missing prefix", chainHex: "aef3", want: 44787},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeChainID(tt.chainHex)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %d", tt.chainHex, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeChainID(%q) = %d, want %d", tt.chainHex, got, tt.want)
			}
		})
	}
}

func TestChainIDRoundTripOverRegistry(t *testing.T) {
	for _, chain := range checkout.DefaultRegistry().Enabled() {
		got, err := DecodeChainID(EncodeChainID(chain.ChainID))
		if err != nil {
			t.Errorf("chain %d: round trip failed: %v", chain.ChainID, err)
			continue
		}
		if got != chain.ChainID {
			t.Errorf("chain %d round-tripped to %d", chain.ChainID, got)
		}
	}
}
