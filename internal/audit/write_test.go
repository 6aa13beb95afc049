package audit

import (
	"context"
	"testing"
)

func TestRecord_AdvancesHead(t *testing.T) {
	l := createTestLog(t)

	seen := map[string]bool{"": true}
	for i := 1; i <= 3; i++ {
		if err := l.Record(createTestEvent(int64(i))); err != nil {
			t.Fatalf("Record(seq=%d) failed: %v", i, err)
		}
		head := l.Head()
		if seen[head] {
			t.Fatalf("head did not advance after seq %d", i)
		}
		seen[head] = true
	}

	count, err := l.Len(context.Background())
	if err != nil {
		t.Fatalf("Len() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Len() = %d, want 3", count)
	}
}

func TestRecord_ChainLinks(t *testing.T) {
	l := createTestLog(t)
	recordEvents(t, l, 3)

	rows, err := l.db.Query("SELECT prev_hash, hash FROM access_log ORDER BY pos ASC")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer rows.Close()

	prev := ""
	for rows.Next() {
		var prevHash, hash string
		if err := rows.Scan(&prevHash, &hash); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if prevHash != prev {
			t.Errorf("prev_hash = %s, want %s", prevHash, prev)
		}
		if hash == "" || hash == prevHash {
			t.Errorf("hash %q does not extend chain", hash)
		}
		prev = hash
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate failed: %v", err)
	}

	if got := l.Head(); got != prev {
		t.Errorf("Head() = %s, want last hash %s", got, prev)
	}
}

func TestRecord_DuplicateSeqIgnored(t *testing.T) {
	l := createTestLog(t)

	ev := createTestEvent(1)
	if err := l.Record(ev); err != nil {
		t.Fatalf("first Record() failed: %v", err)
	}
	head := l.Head()

	// Re-delivery of the same sequence number, even with different
	// content, must not append or move the head.
	dup := createTestEvent(1)
	dup.Attr = "history"
	if err := l.Record(dup); err != nil {
		t.Fatalf("duplicate Record() failed: %v", err)
	}

	if got := l.Head(); got != head {
		t.Errorf("head moved on duplicate: %s, want %s", got, head)
	}

	count, err := l.Len(context.Background())
	if err != nil {
		t.Fatalf("Len() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Len() = %d, want 1", count)
	}

	// The chain still verifies after the rejected duplicate
	if _, err := l.Verify(context.Background()); err != nil {
		t.Errorf("Verify() failed: %v", err)
	}
}

func TestRecord_AfterDuplicateChainContinues(t *testing.T) {
	l := createTestLog(t)
	recordEvents(t, l, 2)

	if err := l.Record(createTestEvent(2)); err != nil {
		t.Fatalf("duplicate Record() failed: %v", err)
	}
	if err := l.Record(createTestEvent(3)); err != nil {
		t.Fatalf("Record(seq=3) failed: %v", err)
	}

	count, err := l.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("verified %d events, want 3", count)
	}
}
