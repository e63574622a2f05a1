package utils

import (
	"strings"
	"testing"
)

func TestFingerprint_KnownKey(t *testing.T) {
	got := Fingerprint("eco_demo-key")
	want := "c00bd6529ba86f29eaa407fc856d68c4513a9557039d22d13b2bdec7ae94df26"
	if got != want {
		t.Errorf("Fingerprint() = %s, want %s", got, want)
	}
}

func TestFingerprint_CacheKeyProperties(t *testing.T) {
	keys := []string{
		"eco_demo-key",
		"eco_demo-key ",
		"ECO_DEMO-KEY",
		"eco_demo-kez",
		"",
	}

	seen := make(map[string]string, len(keys))
	for _, key := range keys {
		fp := Fingerprint(key)
		if len(fp) != 64 {
			t.Errorf("Fingerprint(%q) length = %d, want 64", key, len(fp))
		}
		if fp != strings.ToLower(fp) {
			t.Errorf("Fingerprint(%q) = %s, want lowercase hex", key, fp)
		}
		if key != "" && strings.Contains(fp, key) {
			t.Errorf("Fingerprint(%q) leaks the key", key)
		}
		if other, dup := seen[fp]; dup {
			t.Errorf("Fingerprint(%q) collides with %q", key, other)
		}
		seen[fp] = key

		if again := Fingerprint(key); again != fp {
			t.Errorf("Fingerprint(%q) not stable: %s != %s", key, fp, again)
		}
	}
}
