package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/sanctum"
)

// Verify walks the whole chain in position order and recomputes every
// link. It returns the number of events verified before any failure.
//
// A non-nil error means the stored log no longer matches what was
// recorded: a row was edited, dropped, or reordered after the fact.
func (l *Log) Verify(ctx context.Context) (int, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT pos, seq, at, op, type_ref, attr, object_id, storage_key, decision, via, unit, prev_hash, hash
		FROM access_log
		ORDER BY pos ASC
	`)
	if err != nil {
		return 0, fmt.Errorf("verify: query chain: %w", err)
	}
	defer rows.Close()

	prev := ""
	count := 0
	for rows.Next() {
		var (
			pos            int64
			at             string
			prevHash, hash string
			ev             sanctum.AccessEvent
		)
		err := rows.Scan(&pos, &ev.Seq, &at, &ev.Op, &ev.Type, &ev.Attr, &ev.Object, &ev.Key, &ev.Decision, &ev.Via, &ev.Unit, &prevHash, &hash)
		if err != nil {
			return count, fmt.Errorf("verify: scan row: %w", err)
		}
		ev.Time, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return count, fmt.Errorf("verify: position %d: parse time: %w", pos, err)
		}

		if prevHash != prev {
			return count, fmt.Errorf("verify: position %d (seq %d): prev_hash = %s, expected %s",
				pos, ev.Seq, shorten(prevHash), shorten(prev))
		}
		want, err := chainHash(prev, ev)
		if err != nil {
			return count, fmt.Errorf("verify: position %d: %w", pos, err)
		}
		if hash != want {
			return count, fmt.Errorf("verify: position %d (seq %d): hash = %s, expected %s",
				pos, ev.Seq, shorten(hash), shorten(want))
		}

		prev = hash
		count++
	}

	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("verify: iterate chain: %w", err)
	}

	return count, nil
}

// shorten abbreviates a hash for error messages.
func shorten(h string) string {
	if h == "" {
		return "(empty)"
	}
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
