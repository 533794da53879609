package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_SortableAndUnique(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	prev := ""
	for range 200 {
		id := gen()
		if len(id) != 36 {
			t.Fatalf("len(%q) = %d, want 36", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		if prev != "" && id[:8] < prev[:8] {
			t.Fatalf("ids not time ordered: %q after %q", id, prev)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("el_", UUIDv7())()
	if !strings.HasPrefix(id, "el_") {
		t.Fatalf("id %q missing prefix", id)
	}
	if len(id) != len("el_")+36 {
		t.Fatalf("id %q has unexpected length", id)
	}
}
