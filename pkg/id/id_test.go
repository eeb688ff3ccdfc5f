package id

import (
	"sort"
	"testing"
)

func TestNewClientID(t *testing.T) {
	a := NewClientID()
	b := NewClientID()

	if a == b {
		t.Fatalf("NewClientID returned the same value twice: %s", a)
	}
	if !IsClientID(a) {
		t.Errorf("IsClientID(%q) = false, want true", a)
	}
	if len(a) != 36 {
		t.Errorf("len(NewClientID()) = %d, want 36", len(a))
	}
}

func TestNewMatchesClientIDShape(t *testing.T) {
	if got := New(); !IsClientID(got) {
		t.Errorf("New() = %q, not a client ID", got)
	}
}

func TestNewSubscriptionIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		sid := NewSubscriptionID()
		if !IsSubscriptionID(sid) {
			t.Fatalf("IsSubscriptionID(%q) = false", sid)
		}
		if _, dup := seen[sid]; dup {
			t.Fatalf("duplicate subscription ID %s after %d calls", sid, i)
		}
		seen[sid] = struct{}{}
	}
}

func TestNewSubscriptionIDSortsInCreationOrder(t *testing.T) {
	ids := make([]string, 200)
	for i := range ids {
		ids[i] = NewSubscriptionID()
	}

	if !sort.StringsAreSorted(ids) {
		t.Error("subscription IDs from one process should sort in creation order")
	}
}

func TestIsClientIDRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "abc", NewSubscriptionID()} {
		if IsClientID(s) {
			t.Errorf("IsClientID(%q) = true, want false", s)
		}
	}
	if IsSubscriptionID("not-a-ulid") {
		t.Error("IsSubscriptionID(\"not-a-ulid\") = true, want false")
	}
}
