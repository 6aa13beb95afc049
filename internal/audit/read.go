package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/sanctum"
)

// Filter narrows Trail results. Zero fields match everything.
type Filter struct {
	Type     string // guarded type reference
	Attr     string // attribute name
	Object   string // holder identity
	Op       string // operation name
	Decision string // decision outcome
	Limit    int    // maximum rows, 0 for no limit
}

// Trail returns stored events matching the filter.
// Results are ordered deterministically: ORDER BY seq ASC, pos ASC.
//
// Returns an empty slice (not nil) if nothing matches.
func (l *Log) Trail(ctx context.Context, f Filter) ([]sanctum.AccessEvent, error) {
	query := `
		SELECT seq, at, op, type_ref, attr, object_id, storage_key, decision, via, unit
		FROM access_log
	`
	var clauses []string
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type_ref = ?")
		args = append(args, f.Type)
	}
	if f.Attr != "" {
		clauses = append(clauses, "attr = ?")
		args = append(args, f.Attr)
	}
	if f.Object != "" {
		clauses = append(clauses, "object_id = ?")
		args = append(args, f.Object)
	}
	if f.Op != "" {
		clauses = append(clauses, "op = ?")
		args = append(args, f.Op)
	}
	if f.Decision != "" {
		clauses = append(clauses, "decision = ?")
		args = append(args, f.Decision)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq ASC, pos ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trail: %w", err)
	}
	defer rows.Close()

	var events []sanctum.AccessEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trail: %w", err)
	}

	// Return empty slice instead of nil
	if events == nil {
		events = []sanctum.AccessEvent{}
	}

	return events, nil
}

// Len returns the number of stored events.
func (l *Log) Len(ctx context.Context) (int, error) {
	var count int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM access_log").Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func scanEvent(rows *sql.Rows) (sanctum.AccessEvent, error) {
	var ev sanctum.AccessEvent
	var at string
	err := rows.Scan(&ev.Seq, &at, &ev.Op, &ev.Type, &ev.Attr, &ev.Object, &ev.Key, &ev.Decision, &ev.Via, &ev.Unit)
	if err != nil {
		return sanctum.AccessEvent{}, fmt.Errorf("scan event: %w", err)
	}

	ev.Time, err = time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return sanctum.AccessEvent{}, fmt.Errorf("parse event time: %w", err)
	}

	return ev, nil
}
