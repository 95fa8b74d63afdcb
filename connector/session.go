package connector

import (
	"strings"
	"sync"
)

// Session key namespaces. Connection libraries persist serialized session
// records under their own prefixes; disconnect must clear all of them so a
// page reload does not silently reconnect.
var sessionPrefixes = []string{
	"deramp.connector.",
	"wc@",
}

// SessionKey is where the encoded SessionRecord for the active connection is
// persisted. It sits inside the connector namespace, so ClearSessions purges
// it with everything else.
const SessionKey = "deramp.connector.session"

// SessionStore is the local key-value store holding persisted connection
// session data (browser storage or an equivalent).
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
	Keys() []string
}

// ClearSessions removes every persisted session key in the connector
// namespaces, including namespaced ephemeral keys. Clearing is idempotent.
func ClearSessions(store SessionStore) {
	if store == nil {
		return
	}
	for _, key := range store.Keys() {
		for _, prefix := range sessionPrefixes {
			if strings.HasPrefix(key, prefix) {
				store.Delete(key)
				break
			}
		}
	}
}

// MemoryStore is an in-memory SessionStore.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

// Get implements SessionStore.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

// Set implements SessionStore.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// Delete implements SessionStore.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// Keys implements SessionStore.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	return out
}
