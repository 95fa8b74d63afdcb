// Package wallet merges the live injected provider and the connector
// library's cached state into one canonical wallet state record. The store is
// the only component allowed to mutate that record; everything downstream
// reads snapshots.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	checkout "github.com/csacanam/deramp-checkout-go"
	"github.com/csacanam/deramp-checkout-go/connector"
	"github.com/csacanam/deramp-checkout-go/logger"
	"github.com/csacanam/deramp-checkout-go/provider"
	"github.com/csacanam/deramp-checkout-go/retry"
)

const (
	defaultMismatchRetryDelay = time.Second
	defaultPendingCooldown    = 2 * time.Second
	defaultDetectPulse        = 400 * time.Millisecond
)

// Store reconciles provider and connector state into a canonical
// checkout.WalletState. Create with NewStore, activate with Start, and always
// Close to release the provider event subscriptions.
type Store struct {
	p        provider.Provider
	c        connector.Connector
	sessions connector.SessionStore
	log      logger.Logger

	mismatchDelay time.Duration
	pulseDelay    time.Duration
	cooldown      *retry.Cooldown

	mu                sync.Mutex
	state             checkout.WalletState
	detecting         bool
	gen               uint64
	started           bool
	connectInFlight   bool
	mismatchScheduled bool
	subs              []*subscription
	unsubs            []func()
	ctx               context.Context
}

type subscription struct {
	fn func(state checkout.WalletState, detecting bool)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger; default is no-op.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithSessions sets the persisted session store cleared on disconnect.
func WithSessions(store connector.SessionStore) Option {
	return func(s *Store) { s.sessions = store }
}

// WithMismatchRetryDelay sets the wait before re-probing a connector/provider
// state mismatch. Some wallets briefly report "connected but not ready" right
// after a deep-link return; the delay absorbs that transient.
func WithMismatchRetryDelay(d time.Duration) Option {
	return func(s *Store) { s.mismatchDelay = d }
}

// WithPendingCooldown sets how long connect retries are refused after the
// wallet reports an already-pending permission request.
func WithPendingCooldown(d time.Duration) Option {
	return func(s *Store) { s.cooldown = retry.NewCooldown(d) }
}

// WithDetectPulse sets the duration of the transient "detecting" affordance
// raised by Pulse.
func WithDetectPulse(d time.Duration) Option {
	return func(s *Store) { s.pulseDelay = d }
}

// NewStore creates a Store over the given provider and connector. The
// provider may be nil (nothing injected); every probe then degrades to the
// connector snapshot.
func NewStore(p provider.Provider, c connector.Connector, opts ...Option) *Store {
	s := &Store{
		p:             p,
		c:             c,
		log:           logger.NoopLogger{},
		mismatchDelay: defaultMismatchRetryDelay,
		pulseDelay:    defaultDetectPulse,
		state:         checkout.Disconnected(),
		detecting:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cooldown == nil {
		s.cooldown = retry.NewCooldown(defaultPendingCooldown)
	}
	return s
}

// Start runs the initial reconciliation and subscribes to the provider's
// account, chain, connect and disconnect events for the life of the store.
// Every event triggers a full re-derivation rather than an incremental patch:
// event payload shapes vary across wallet vendors, so payloads are never
// trusted.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx = ctx
	s.detecting = true
	s.mu.Unlock()

	if s.p != nil {
		events := []string{
			provider.EventAccountsChanged,
			provider.EventChainChanged,
			provider.EventConnect,
			provider.EventDisconnect,
		}
		for _, event := range events {
			unsub := s.p.Subscribe(event, func(any) { s.Reconcile(ctx) })
			s.mu.Lock()
			s.unsubs = append(s.unsubs, unsub)
			s.mu.Unlock()
		}
	}
	if s.c != nil {
		unsub := s.c.Subscribe(func(connector.Snapshot) {
			s.Reconcile(ctx)
		})
		s.mu.Lock()
		s.unsubs = append(s.unsubs, unsub)
		s.mu.Unlock()
	}

	s.Reconcile(ctx)
}

// Close removes every provider and connector subscription. The store may not
// be restarted.
func (s *Store) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

// State returns the current canonical wallet state and the detecting flag.
func (s *Store) State() (checkout.WalletState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.detecting
}

// OnChange registers a state-change handler and returns its unsubscribe
// function. Handlers receive snapshots, never shared pointers.
func (s *Store) OnChange(fn func(state checkout.WalletState, detecting bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscription{fn: fn}
	s.subs = append(s.subs, sub)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, cand := range s.subs {
			if cand == sub {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Reconcile is the single idempotent re-derivation entry point: it rebuilds
// the whole wallet state from a fresh provider probe, degrading to the
// connector snapshot when no provider responds. Probe failures are never
// fatal. A reconciliation superseded by a newer one discards its result.
func (s *Store) Reconcile(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	next := s.derive(ctx)

	s.mu.Lock()
	if gen != s.gen {
		// A newer reconciliation superseded this one.
		s.mu.Unlock()
		return
	}
	s.state = next
	s.detecting = false
	s.mu.Unlock()
	s.notify()

	s.checkConsistency(ctx)
}

// derive computes the canonical state from the live provider, falling back to
// the connector library's snapshot.
func (s *Store) derive(ctx context.Context) checkout.WalletState {
	snap, err := provider.Probe(ctx, s.p)
	if err == nil {
		state := checkout.WalletState{
			WalletType: provider.DetectWalletType(s.p),
			LastUpdate: time.Now(),
		}
		if snap.Connected() {
			addr := snap.Accounts[0]
			state.Connected = true
			state.Address = &addr
			state.ChainID = snap.ChainID
		}
		return state.Normalize()
	}

	if !errors.Is(err, checkout.ErrProviderUnavailable) {
		s.log.Warn("wallet probe failed, using connector snapshot", map[string]any{"error": err.Error()})
	}

	state := checkout.Disconnected()
	if s.c != nil {
		cs := s.c.Snapshot()
		state = checkout.WalletState{
			Connected:  cs.Connected,
			Address:    cs.Address,
			ChainID:    cs.ChainID,
			WalletType: checkout.WalletUnknown,
			LastUpdate: time.Now(),
		}
	}
	return state.Normalize()
}

// checkConsistency handles the connector-says-connected but provider-says-
// empty condition. One delayed retry re-probe runs before the mismatch is
// trusted, because some wallets report a transient "connected but not ready"
// state right after a deep-link return.
func (s *Store) checkConsistency(ctx context.Context) {
	if s.c == nil || s.p == nil {
		return
	}
	cs := s.c.Snapshot()
	if !cs.Connected {
		return
	}

	s.mu.Lock()
	mismatch := !s.state.Connected
	if !mismatch || s.mismatchScheduled {
		s.mu.Unlock()
		return
	}
	s.mismatchScheduled = true
	s.mu.Unlock()

	time.AfterFunc(s.mismatchDelay, func() {
		s.retryMismatch(ctx)
	})
}

func (s *Store) retryMismatch(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	next := s.derive(ctx)

	s.mu.Lock()
	s.mismatchScheduled = false
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.state = next
	still := s.c.Snapshot().Connected && !next.Connected
	s.mu.Unlock()
	s.notify()

	if still {
		// The provider's view wins. Internal condition only; never
		// surfaced to the user.
		s.log.Warn("connector/provider state mismatch persists after retry",
			map[string]any{"error": checkout.ErrStateMismatch.Error()})
	}
}

// Connect starts a connection attempt through the connector. A second call
// while an attempt is in flight is ignored, not queued: exactly one
// underlying request runs at a time. After the wallet reports a pending
// permission request, further attempts are refused until the cooldown
// elapses; any other failure allows an immediate retry.
func (s *Store) Connect(ctx context.Context, ref string) error {
	if s.c == nil {
		return checkout.ErrProviderUnavailable
	}

	s.mu.Lock()
	if s.connectInFlight {
		s.mu.Unlock()
		return checkout.ErrConnectInFlight
	}
	if !s.cooldown.Allow() {
		s.mu.Unlock()
		return fmt.Errorf("%w: wait %s", checkout.ErrPendingRequest,
			s.cooldown.Remaining().Round(time.Millisecond))
	}
	s.connectInFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.connectInFlight = false
		s.mu.Unlock()
	}()

	if err := s.c.Connect(ctx, ref); err != nil {
		classified := checkout.ClassifyProviderError(err)
		if errors.Is(classified, checkout.ErrPendingRequest) {
			s.cooldown.Trip()
		}
		s.log.Info("connect attempt failed", map[string]any{"error": classified.Error()})
		return classified
	}

	s.Reconcile(ctx)
	s.persistSession(ref)
	return nil
}

// persistSession writes the established connection into the session store, so
// a reload can recognize the prior session. Disconnect purges the record with
// the rest of the connector namespace. Persistence failures are logged, never
// surfaced: the live connection is already up.
func (s *Store) persistSession(ref string) {
	if s.sessions == nil {
		return
	}
	state, _ := s.State()
	if !state.Connected || state.Address == nil {
		return
	}
	encoded, err := connector.EncodeSession(connector.SessionRecord{
		ConnectorRef: ref,
		Address:      state.Address.Hex(),
		ChainID:      state.ChainID,
		WalletType:   string(state.WalletType),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		s.log.Warn("session record encode failed", map[string]any{"error": err.Error()})
		return
	}
	s.sessions.Set(connector.SessionKey, encoded)
}

// Disconnect tears the connection down. The local state is cleared
// immediately and synchronously, and persisted session keys are purged,
// before the connector call: library disconnect callbacks are not guaranteed
// to fire promptly on all providers, and a page reload must not silently
// reconnect. If the library's own event later arrives, the normal reconcile
// path lets the authoritative value win. Disconnect is idempotent and never
// fails to its caller.
func (s *Store) Disconnect(ctx context.Context) {
	s.mu.Lock()
	s.gen++ // invalidate in-flight reconciliations
	s.state = checkout.Disconnected()
	s.mu.Unlock()
	s.notify()

	connector.ClearSessions(s.sessions)

	if s.c != nil {
		if err := s.c.Disconnect(ctx); err != nil {
			s.log.Warn("connector disconnect failed", map[string]any{"error": err.Error()})
		}
	}
}

// Refresh forces a full re-probe with the detecting affordance raised.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.detecting = true
	s.mu.Unlock()
	s.notify()
	s.Reconcile(ctx)
}

// Pulse raises the detecting flag for the pulse duration without re-deriving
// anything, so dependent UI can show a transient refresh affordance after a
// manual user action.
func (s *Store) Pulse() {
	s.mu.Lock()
	s.detecting = true
	s.mu.Unlock()
	s.notify()

	time.AfterFunc(s.pulseDelay, func() {
		s.mu.Lock()
		s.detecting = false
		s.mu.Unlock()
		s.notify()
	})
}

func (s *Store) notify() {
	s.mu.Lock()
	state := s.state
	detecting := s.detecting
	subs := append([]*subscription(nil), s.subs...)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.fn(state, detecting)
	}
}
