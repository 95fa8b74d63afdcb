package connector

import (
	"sort"
	"testing"
	"time"
)

func TestClearSessions(t *testing.T) {
	store := NewMemoryStore()
	store.Set("deramp.connector.session", "{}")
	store.Set("deramp.connector.last", "injected")
	store.Set("wc@2:client:0.3//keychain", "{}")
	store.Set("wc@2:core:0.3//pairing", "{}")
	store.Set("theme", "dark")
	store.Set("cart", "inv-123")

	ClearSessions(store)

	keys := store.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "cart" || keys[1] != "theme" {
		t.Fatalf("expected only unrelated keys to survive, got %v", keys)
	}

	// Idempotent on an already-clean store.
	ClearSessions(store)
	if len(store.Keys()) != 2 {
		t.Errorf("second clear changed the store: %v", store.Keys())
	}
}

func TestClearSessionsNilStore(t *testing.T) {
	ClearSessions(nil) // must not panic
}

func TestSessionCodec(t *testing.T) {
	record := SessionRecord{
		ConnectorRef: "injected",
		Address:      "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
		ChainID:      44787,
		WalletType:   "metamask",
		CreatedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	encoded, err := EncodeSession(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := DecodeSession(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != record {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, record)
	}
}

func TestDecodeSessionErrors(t *testing.T) {
	if _, err := DecodeSession("not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := DecodeSession("bm90IGpzb24="); err == nil {
		t.Error("expected error for non-JSON payload")
	}
}

func TestStaticConnectorSubscription(t *testing.T) {
	conn := NewStatic()

	var seen []Snapshot
	unsub := conn.Subscribe(func(s Snapshot) { seen = append(seen, s) })

	conn.Set(Snapshot{Connected: true, ChainID: 44787})
	if len(seen) != 1 || !seen[0].Connected {
		t.Fatalf("expected one connected notification, got %v", seen)
	}

	unsub()
	conn.Set(Snapshot{})
	if len(seen) != 1 {
		t.Error("handler fired after unsubscribe")
	}
}
