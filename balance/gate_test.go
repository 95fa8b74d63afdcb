package balance_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	checkout "github.com/csacanam/deramp-checkout-go"
	"github.com/csacanam/deramp-checkout-go/balance"
	"github.com/csacanam/deramp-checkout-go/connector"
	"github.com/csacanam/deramp-checkout-go/network"
	"github.com/csacanam/deramp-checkout-go/provider"
	"github.com/csacanam/deramp-checkout-go/provider/providertest"
	"github.com/csacanam/deramp-checkout-go/retry"
	"github.com/csacanam/deramp-checkout-go/wallet"
)

// countingFetcher scripts balance reads and records every attempt.
type countingFetcher struct {
	mu     sync.Mutex
	calls  int
	result *big.Int
	errs   []error // consumed in order before result is returned
}

func (f *countingFetcher) BalanceOf(ctx context.Context, chainID int64, token, owner common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return new(big.Int).Set(f.result), nil
}

func (f *countingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}
}

// newGate builds a started stack with the wallet on walletChain and the
// checkout expecting Alfajores.
func newGate(t *testing.T, walletChain int64, fetcher balance.Fetcher) *balance.Gate {
	t.Helper()

	fake := providertest.New(nil)
	fake.SetAccounts("0xABC")
	fake.SetChainID(walletChain)

	store := wallet.NewStore(fake, connector.NewStatic())
	store.Start(context.Background())
	t.Cleanup(store.Close)

	reg := checkout.DefaultRegistry()
	rec := network.NewReconciler(reg, store, fake)
	if err := rec.SetExpectedChainID(44787); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g := balance.NewGate(reg, store, rec, fetcher, balance.WithRetryConfig(fastRetry()))
	g.SetToken("CUSD")
	return g
}

func TestFetchSuppressedOnWrongNetwork(t *testing.T) {
	fetcher := &countingFetcher{result: big.NewInt(1)}
	g := newGate(t, 42220, fetcher) // wallet on Celo mainnet, Alfajores expected

	_, err := g.Fetch(context.Background())
	if !errors.Is(err, checkout.ErrWrongNetwork) {
		t.Fatalf("expected ErrWrongNetwork, got %v", err)
	}
	if fetcher.callCount() != 0 {
		t.Fatalf("wrong-network fetch must make zero attempts, got %d", fetcher.callCount())
	}
	if _, ok := g.Latest(); ok {
		t.Error("no balance may be cached after a suppressed fetch")
	}
}

func TestFetchSuccess(t *testing.T) {
	raw, _ := new(big.Int).SetString("10500000000000000001", 10)
	fetcher := &countingFetcher{result: raw}
	g := newGate(t, 44787, fetcher)

	bal, err := g.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bal.Formatted != "10.500000000000000001" {
		t.Errorf("formatted = %q", bal.Formatted)
	}
	if bal.Symbol != "CUSD" || bal.Decimals != 18 {
		t.Errorf("unexpected balance metadata: %+v", bal)
	}

	latest, ok := g.Latest()
	if !ok || latest.Raw.Cmp(raw) != 0 {
		t.Errorf("latest not cached: %+v ok=%v", latest, ok)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	fetcher := &countingFetcher{
		result: big.NewInt(1),
		errs:   []error{errors.New("rpc timeout"), errors.New("rpc timeout")},
	}
	g := newGate(t, 44787, fetcher)

	if _, err := g.Fetch(context.Background()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if fetcher.callCount() != 3 {
		t.Errorf("expected 3 attempts, got %d", fetcher.callCount())
	}
}

func TestFetchDoesNotRetryProviderUnavailable(t *testing.T) {
	fetcher := &countingFetcher{
		result: big.NewInt(1),
		errs:   []error{checkout.ErrProviderUnavailable, checkout.ErrProviderUnavailable},
	}
	g := newGate(t, 44787, fetcher)

	if _, err := g.Fetch(context.Background()); !errors.Is(err, checkout.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if fetcher.callCount() != 1 {
		t.Errorf("expected 1 attempt, got %d", fetcher.callCount())
	}
}

func TestFetchRequiresToken(t *testing.T) {
	fetcher := &countingFetcher{result: big.NewInt(1)}
	g := newGate(t, 44787, fetcher)
	g.SetToken("")

	if _, err := g.Fetch(context.Background()); !errors.Is(err, checkout.ErrNoPaymentOption) {
		t.Fatalf("expected ErrNoPaymentOption, got %v", err)
	}
	if fetcher.callCount() != 0 {
		t.Errorf("expected zero attempts, got %d", fetcher.callCount())
	}
}

func TestSetTokenDropsStaleBalance(t *testing.T) {
	fetcher := &countingFetcher{result: big.NewInt(5)}
	g := newGate(t, 44787, fetcher)

	if _, err := g.Fetch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := g.Latest(); !ok {
		t.Fatal("expected cached balance")
	}

	g.SetToken("CELO")
	if _, ok := g.Latest(); ok {
		t.Error("token change must drop the stale balance")
	}
}

func TestRunRefreshesAndDropsOnWalletChange(t *testing.T) {
	fake := providertest.New(nil)
	fake.SetAccounts("0xABC")
	fake.SetChainID(44787)

	store := wallet.NewStore(fake, connector.NewStatic())
	store.Start(context.Background())
	t.Cleanup(store.Close)

	reg := checkout.DefaultRegistry()
	rec := network.NewReconciler(reg, store, fake)
	if err := rec.SetExpectedChainID(44787); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fetcher := &countingFetcher{result: big.NewInt(7)}
	g := balance.NewGate(reg, store, rec, fetcher,
		balance.WithRetryConfig(fastRetry()),
		balance.WithRefreshInterval(10*time.Millisecond))
	g.SetToken("CUSD")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	waitFor(t, func() bool {
		_, ok := g.Latest()
		return ok
	})

	// The wallet moves to the wrong chain; the cached balance must drop
	// rather than keep showing another chain's number.
	fake.SetChainID(42220)
	fake.Emit(provider.EventChainChanged, nil)

	waitFor(t, func() bool {
		_, ok := g.Latest()
		return !ok
	})

	calls := fetcher.callCount()
	time.Sleep(50 * time.Millisecond)
	if fetcher.callCount() != calls {
		t.Error("auto refresh must stop attempting on the wrong network")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestIsSufficient(t *testing.T) {
	raw := func(s string) *big.Int {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			t.Fatalf("bad literal %q", s)
		}
		return v
	}

	tests := []struct {
		name     string
		raw      *big.Int
		decimals uint8
		required string
		want     bool
	}{
		// One smallest unit above the requirement counts as sufficient.
		{name: "boundary above", raw: raw("10500000000000000001"), decimals: 18, required: "10.5", want: true},
		{name: "exact", raw: raw("10500000000000000000"), decimals: 18, required: "10.5", want: true},
		{name: "boundary below", raw: raw("10499999999999999999"), decimals: 18, required: "10.5", want: false},
		{name: "six decimals", raw: big.NewInt(1500000), decimals: 6, required: "1.5", want: true},
		{name: "zero balance", raw: big.NewInt(0), decimals: 18, required: "0.01", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bal := checkout.TokenBalance{Raw: tt.raw, Decimals: tt.decimals}
			got, err := balance.IsSufficient(bal, tt.required)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsSufficient(%s, %s) = %v, want %v", tt.raw, tt.required, got, tt.want)
			}
		})
	}
}

func TestIsSufficientErrors(t *testing.T) {
	bal := checkout.TokenBalance{Raw: big.NewInt(1), Decimals: 18}
	if _, err := balance.IsSufficient(bal, "ten"); !errors.Is(err, checkout.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	ok, err := balance.IsSufficient(checkout.TokenBalance{Decimals: 18}, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("nil raw balance must not be sufficient")
	}
}
