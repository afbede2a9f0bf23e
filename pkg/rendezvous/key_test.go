package rendezvous

import (
	"strings"
	"testing"
)

func TestNewKey_RoundTrip(t *testing.T) {
	for _, expected := range []int{0, 1, 2, 4, 9, 10, 12} {
		key := NewKey(expected)

		if !IsValidKey(key) {
			t.Errorf("IsValidKey(%q) = false, want true", key)
		}

		count, err := ExpectedCount(key)
		if err != nil {
			t.Fatalf("ExpectedCount(%q) failed: %v", key, err)
		}
		if count != expected {
			t.Errorf("ExpectedCount(%q) = %d, want %d", key, count, expected)
		}
	}
}

func TestNewKey_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := NewKey(4)
		if seen[key] {
			t.Fatalf("NewKey produced duplicate %q", key)
		}
		seen[key] = true
	}
}

func TestIsValidKey_RejectsForgedKeys(t *testing.T) {
	cases := []string{
		"",
		"fs",
		"fs:4",
		"fs:4:",
		"fs:4:not-a-uuid",
		"fs::6c84fb90-12c4-11e1-840d-7b25c5ee775a",
		"fs:x:6c84fb90-12c4-11e1-840d-7b25c5ee775a",
		"fx:4:6c84fb90-12c4-11e1-840d-7b25c5ee775a", // wrong namespace
		"fs:4:6C84FB90-12C4-11E1-840D-7B25C5EE775A", // uppercase uuid
		"fs:4:6c84fb90-12c4-11e1-840d-7b25c5ee775a:extra",
		" fs:4:6c84fb90-12c4-11e1-840d-7b25c5ee775a",
	}

	for _, key := range cases {
		if IsValidKey(key) {
			t.Errorf("IsValidKey(%q) = true, want false", key)
		}
	}
}

func TestIsValidKey_AcceptsCanonicalKey(t *testing.T) {
	key := "fs:4:6c84fb90-12c4-11e1-840d-7b25c5ee775a"
	if !IsValidKey(key) {
		t.Errorf("IsValidKey(%q) = false, want true", key)
	}
}

func TestExpectedCount_MalformedKey(t *testing.T) {
	if _, err := ExpectedCount("not a key"); err == nil {
		t.Error("ExpectedCount should fail for a malformed key")
	}
}

func TestNewKey_Prefix(t *testing.T) {
	key := NewKey(2)
	if !strings.HasPrefix(key, "fs:2:") {
		t.Errorf("NewKey(2) = %q, want fs:2: prefix", key)
	}
}
