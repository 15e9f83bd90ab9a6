package validation

import (
	"strings"
	"testing"
)

func TestUsername(t *testing.T) {
	t.Run("accepts valid usernames", func(t *testing.T) {
		for _, name := range []string{"abc", "alice_99", "UPPER_lower_123", strings.Repeat("a", 50)} {
			if err := Username(name); err != nil {
				t.Fatalf("expected %q to be valid, got %v", name, err)
			}
		}
	})

	t.Run("rejects bad lengths", func(t *testing.T) {
		for _, name := range []string{"", "ab", strings.Repeat("a", 51)} {
			if err := Username(name); err == nil {
				t.Fatalf("expected %q to be rejected", name)
			}
		}
	})

	t.Run("rejects bad characters", func(t *testing.T) {
		for _, name := range []string{"has space", "semi;colon", "dash-name", "sqli'--"} {
			if err := Username(name); err == nil {
				t.Fatalf("expected %q to be rejected", name)
			}
		}
	})
}

func TestGrowID(t *testing.T) {
	t.Run("accepts valid growids", func(t *testing.T) {
		for _, id := range []string{"abc", "Player_1", strings.Repeat("g", 30)} {
			if err := GrowID(id); err != nil {
				t.Fatalf("expected %q to be valid, got %v", id, err)
			}
		}
	})

	t.Run("rejects bad growids", func(t *testing.T) {
		for _, id := range []string{"", "ab", strings.Repeat("g", 31), "bad id", "inject'"} {
			if err := GrowID(id); err == nil {
				t.Fatalf("expected %q to be rejected", id)
			}
		}
	})
}
