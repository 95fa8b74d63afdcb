package coordinator

import "testing"

func TestSingleOpenInvariant(t *testing.T) {
	c := New()

	c.Open("network")
	if !c.IsOpen("network") {
		t.Fatal("expected network dropdown open")
	}

	c.Open("token")
	if c.IsOpen("network") {
		t.Error("opening a second dropdown must close the first")
	}
	if !c.IsOpen("token") {
		t.Error("expected token dropdown open")
	}

	c.CloseAll()
	if c.IsOpen("token") || c.IsOpen("network") {
		t.Error("expected everything closed")
	}
}

func TestSubscribeNotifiesOnChange(t *testing.T) {
	c := New()

	var seen []string
	unsub := c.Subscribe(func(openID string) { seen = append(seen, openID) })

	c.Open("network")
	c.Open("network") // no-op, already open
	c.Open("token")
	c.CloseAll()
	c.CloseAll() // no-op, already closed

	want := []string{"network", "token", ""}
	if len(seen) != len(want) {
		t.Fatalf("notifications = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d = %q, want %q", i, seen[i], want[i])
		}
	}

	unsub()
	c.Open("network")
	if len(seen) != len(want) {
		t.Error("handler fired after unsubscribe")
	}
}
