package audit

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/sanctum"
)

// createTestLog creates a new file-backed log for testing.
func createTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// createTestEvent creates a granted instance read at the given sequence
// number. The timestamp advances with seq so events are distinguishable.
func createTestEvent(seq int64) sanctum.AccessEvent {
	base := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	return sanctum.AccessEvent{
		Seq:      seq,
		Time:     base.Add(time.Duration(seq) * time.Second),
		Op:       sanctum.OpGet,
		Type:     "example.com/ledger.Account",
		Attr:     "balance",
		Object:   fmt.Sprintf("acct-%d", seq),
		Key:      "_a1b2c3_d4e5f6a7_b8c9",
		Decision: sanctum.DecisionGranted,
		Via:      sanctum.ViaGrant,
	}
}

// recordEvents records sequential test events starting at seq 1.
func recordEvents(t *testing.T, l *Log, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if err := l.Record(createTestEvent(int64(i))); err != nil {
			t.Fatalf("Record(seq=%d) failed: %v", i, err)
		}
	}
}
