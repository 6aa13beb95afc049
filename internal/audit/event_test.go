package audit

import (
	"testing"
)

func TestChainHash_Deterministic(t *testing.T) {
	ev := createTestEvent(1)

	h1, err := chainHash("", ev)
	if err != nil {
		t.Fatalf("chainHash() failed: %v", err)
	}
	h2, err := chainHash("", ev)
	if err != nil {
		t.Fatalf("chainHash() failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("same input produced different hashes: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}

func TestChainHash_CommitsToPredecessor(t *testing.T) {
	ev := createTestEvent(1)

	h1, err := chainHash("", ev)
	if err != nil {
		t.Fatalf("chainHash() failed: %v", err)
	}
	h2, err := chainHash(h1, ev)
	if err != nil {
		t.Fatalf("chainHash() failed: %v", err)
	}
	if h1 == h2 {
		t.Error("hash ignores the previous link")
	}
}

func TestChainHash_CommitsToEvent(t *testing.T) {
	ev := createTestEvent(1)
	h1, err := chainHash("", ev)
	if err != nil {
		t.Fatalf("chainHash() failed: %v", err)
	}

	ev.Attr = "history"
	h2, err := chainHash("", ev)
	if err != nil {
		t.Fatalf("chainHash() failed: %v", err)
	}
	if h1 == h2 {
		t.Error("hash ignores event content")
	}
}
