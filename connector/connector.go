// Package connector wraps the third-party wallet-connection library as a
// read-only input signal, and owns the persisted session data such a library
// leaves behind. The connector is one of two redundant state sources, never
// the sole source of truth.
package connector

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is the connector library's current view of the connection.
type Snapshot struct {
	Connected bool
	Address   *common.Address
	ChainID   int64
}

// Connector exposes a wallet-connection library's reactive state. No
// independent logic lives here: the contract is the library's current
// snapshot plus change notification.
type Connector interface {
	// Snapshot returns the library's current connection view.
	Snapshot() Snapshot

	// Connect starts a connection attempt through the named connector
	// (e.g. an injected-provider connector reference). Blocks until the
	// library resolves the attempt or ctx ends.
	Connect(ctx context.Context, ref string) error

	// Disconnect tears the library's connection down. Callbacks are not
	// guaranteed to fire promptly on all providers; callers must not wait
	// on them.
	Disconnect(ctx context.Context) error

	// Subscribe registers a snapshot-change handler and returns its
	// unsubscribe function.
	Subscribe(fn func(Snapshot)) (unsubscribe func())
}

// Static is a Connector with directly settable state, used by tests and
// demos in place of a real connection library.
type Static struct {
	mu       sync.Mutex
	snapshot Snapshot
	handlers []*staticHandler

	// ConnectFunc, when set, backs Connect.
	ConnectFunc func(ctx context.Context, ref string) error

	// DisconnectFunc, when set, backs Disconnect.
	DisconnectFunc func(ctx context.Context) error

	connectCalls    int
	disconnectCalls int
}

type staticHandler struct {
	fn func(Snapshot)
}

// NewStatic creates a Static connector in the disconnected state.
func NewStatic() *Static {
	return &Static{}
}

// Snapshot implements Connector.
func (s *Static) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Set replaces the snapshot and notifies subscribers.
func (s *Static) Set(snap Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	hs := append([]*staticHandler(nil), s.handlers...)
	s.mu.Unlock()
	for _, h := range hs {
		h.fn(snap)
	}
}

// Connect implements Connector.
func (s *Static) Connect(ctx context.Context, ref string) error {
	s.mu.Lock()
	s.connectCalls++
	fn := s.ConnectFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, ref)
	}
	return nil
}

// Disconnect implements Connector.
func (s *Static) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.disconnectCalls++
	fn := s.DisconnectFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	s.Set(Snapshot{})
	return nil
}

// ConnectCalls reports how many Connect attempts were made.
func (s *Static) ConnectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectCalls
}

// DisconnectCalls reports how many Disconnect calls were made.
func (s *Static) DisconnectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnectCalls
}

// Subscribe implements Connector.
func (s *Static) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := &staticHandler{fn: fn}
	s.handlers = append(s.handlers, h)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, cand := range s.handlers {
			if cand == h {
				s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
				return
			}
		}
	}
}
