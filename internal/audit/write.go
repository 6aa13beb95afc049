package audit

import (
	"fmt"
	"time"

	"github.com/roach88/sanctum"
)

var _ sanctum.Auditor = (*Log)(nil)

// Record appends one event to the chain.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency - a re-delivered
// realm sequence number is silently ignored and the chain head does
// not move.
func (l *Log) Record(ev sanctum.AccessEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	hash, err := chainHash(l.head, ev)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	result, err := l.db.Exec(`
		INSERT INTO access_log
		(seq, at, op, type_ref, attr, object_id, storage_key, decision, via, unit, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		ev.Seq,
		ev.Time.UTC().Format(time.RFC3339Nano),
		ev.Op,
		ev.Type,
		ev.Attr,
		ev.Object,
		ev.Key,
		ev.Decision,
		ev.Via,
		ev.Unit,
		l.head,
		hash,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	// Check if a row was actually inserted
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record event: rows affected: %w", err)
	}
	if rowsAffected > 0 {
		l.head = hash
	}

	return nil
}
