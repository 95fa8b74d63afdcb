package provider

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Chain IDs cross the provider boundary as 0x-prefixed hex quantities and are
// integers everywhere inside the core. These two functions are the only
// translation point.

// EncodeChainID renders a chain ID for a provider call, e.g. 44787 -> "0xaef3".
func EncodeChainID(chainID int64) string {
	return hexutil.EncodeBig(big.NewInt(chainID))
}

// DecodeChainID parses a provider-supplied hex chain ID, accepting both
// canonical ("0xaef3") and zero-padded or upper-case variants wallets emit.
func DecodeChainID(chainHex string) (int64, error) {
	v, err := hexutil.DecodeBig(chainHex)
	if err != nil {
		// Some wallets zero-pad chainChanged payloads, which the strict
		// quantity decoder rejects.
		b, ok := new(big.Int).SetString(strip0x(chainHex), 16)
		if !ok {
			return 0, fmt.Errorf("invalid chain id %q: %v", chainHex, err)
		}
		v = b
	}
	if !v.IsInt64() || v.Int64() <= 0 {
		return 0, fmt.Errorf("chain id %q out of range", chainHex)
	}
	return v.Int64(), nil
}

func strip0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
