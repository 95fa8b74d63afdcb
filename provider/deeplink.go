package provider

import (
	"fmt"
	"net/url"
	"strings"

	checkout "github.com/csacanam/deramp-checkout-go"
)

// DeepLink builds the URL that opens an external wallet app with the current
// page URL. The launch is one-way: there is no return value, and success is
// inferred only by probing a connected state after the round trip.
func DeepLink(wt checkout.WalletType, pageURL string) (string, error) {
	if strings.TrimSpace(pageURL) == "" {
		return "", fmt.Errorf("page url required")
	}
	encoded := url.QueryEscape(pageURL)

	switch wt {
	case checkout.WalletMetaMask:
		// MetaMask takes the dapp URL without its scheme.
		return "https://metamask.app.link/dapp/" + strings.TrimPrefix(strings.TrimPrefix(pageURL, "https://"), "http://"), nil
	case checkout.WalletCoinbase:
		return "https://go.cb-w.com/dapp?cb_url=" + encoded, nil
	case checkout.WalletRainbow:
		return "https://rnbwapp.com/dapp?url=" + encoded, nil
	case checkout.WalletTrust:
		return "https://link.trustwallet.com/open_url?coin_id=60&url=" + encoded, nil
	case checkout.WalletPhantom:
		return "https://phantom.app/ul/browse/" + encoded, nil
	default:
		return "", fmt.Errorf("no deep link scheme for wallet type %q", wt)
	}
}
