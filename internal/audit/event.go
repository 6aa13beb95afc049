package audit

import (
	"fmt"
	"time"

	"github.com/roach88/sanctum"
	"github.com/roach88/sanctum/internal/canonical"
)

// chainHash computes the hash of an event at its chain position. The
// previous hash is part of the hashed payload, so every link commits
// to the entire prefix of the log.
func chainHash(prev string, ev sanctum.AccessEvent) (string, error) {
	payload := map[string]any{
		"prev":     prev,
		"seq":      ev.Seq,
		"at":       ev.Time.UTC().Format(time.RFC3339Nano),
		"op":       ev.Op,
		"type":     ev.Type,
		"attr":     ev.Attr,
		"object":   ev.Object,
		"key":      ev.Key,
		"decision": ev.Decision,
		"via":      ev.Via,
		"unit":     ev.Unit,
	}

	data, err := canonical.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal audit event: %w", err)
	}
	return canonical.HashWithDomain(canonical.DomainAuditEvent, data), nil
}
