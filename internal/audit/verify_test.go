package audit

import (
	"context"
	"strings"
	"testing"
)

func TestVerify_EmptyLog(t *testing.T) {
	l := createTestLog(t)

	count, err := l.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() on empty log failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Verify() = %d, want 0", count)
	}
}

func TestVerify_IntactChain(t *testing.T) {
	l := createTestLog(t)
	recordEvents(t, l, 5)

	count, err := l.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Verify() = %d, want 5", count)
	}
}

func TestVerify_DetectsEditedRow(t *testing.T) {
	l := createTestLog(t)
	recordEvents(t, l, 3)

	// Rewrite history: change which attribute seq 2 touched
	if _, err := l.db.Exec("UPDATE access_log SET attr = 'history' WHERE seq = 2"); err != nil {
		t.Fatalf("tamper failed: %v", err)
	}

	count, err := l.Verify(context.Background())
	if err == nil {
		t.Fatal("Verify() passed on edited row")
	}
	if !strings.Contains(err.Error(), "seq 2") {
		t.Errorf("error does not name the edited row: %v", err)
	}
	if count != 1 {
		t.Errorf("Verify() = %d events before failure, want 1", count)
	}
}

func TestVerify_DetectsDeletedRow(t *testing.T) {
	l := createTestLog(t)
	recordEvents(t, l, 3)

	if _, err := l.db.Exec("DELETE FROM access_log WHERE seq = 2"); err != nil {
		t.Fatalf("tamper failed: %v", err)
	}

	// Seq 3 still links to the deleted row's hash, so the break shows
	// up as a prev_hash mismatch
	count, err := l.Verify(context.Background())
	if err == nil {
		t.Fatal("Verify() passed on deleted row")
	}
	if !strings.Contains(err.Error(), "prev_hash") {
		t.Errorf("error does not report broken link: %v", err)
	}
	if count != 1 {
		t.Errorf("Verify() = %d events before failure, want 1", count)
	}
}

func TestVerify_DetectsForgedHash(t *testing.T) {
	l := createTestLog(t)
	recordEvents(t, l, 3)

	if _, err := l.db.Exec("UPDATE access_log SET hash = 'f00d' WHERE seq = 3"); err != nil {
		t.Fatalf("tamper failed: %v", err)
	}

	count, err := l.Verify(context.Background())
	if err == nil {
		t.Fatal("Verify() passed on forged hash")
	}
	if count != 2 {
		t.Errorf("Verify() = %d events before failure, want 2", count)
	}
}
