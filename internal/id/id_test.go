package id

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	got, err := Generate("hl")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.HasPrefix(got, "hl-") {
		t.Errorf("Generate() = %q, want prefix %q", got, "hl-")
	}
	if len(got) != len("hl-")+21 {
		t.Errorf("Generate() length = %d, want %d", len(got), len("hl-")+21)
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id, err := Generate("src")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if seen[id] {
			t.Fatalf("Generate() produced duplicate ID %q", id)
		}
		seen[id] = true
	}
}
