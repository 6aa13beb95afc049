// Package testutil provides deterministic identity and time sources for
// tests.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// FixedIdentities returns predetermined holder identities in order.
//
// This enables deterministic audit trails and golden comparisons: tests
// provide a known sequence and verify exact output.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIdentities struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIdentities creates a generator that returns ids in order.
//
// Example:
//
//	gen := testutil.NewFixedIdentities("obj-1", "obj-2")
//	gen.NewIdentity() // "obj-1"
//	gen.NewIdentity() // "obj-2"
//	gen.NewIdentity() // panic: identities exhausted
//
// Panicking on exhaustion is deliberate: it catches a test binding more
// holders than the scenario expects.
func NewFixedIdentities(ids ...string) *FixedIdentities {
	return &FixedIdentities{ids: ids}
}

// NewIdentity returns the next predetermined identity.
func (g *FixedIdentities) NewIdentity() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedIdentities: identities exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// SequentialIdentities returns "prefix-1", "prefix-2", ... without end.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIdentities struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIdentities creates an unbounded generator.
func NewSequentialIdentities(prefix string) *SequentialIdentities {
	return &SequentialIdentities{prefix: prefix}
}

// NewIdentity returns the next identity in the sequence.
func (g *SequentialIdentities) NewIdentity() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// FrozenClock returns a time source pinned to t. Audit events stamped
// with it compare byte-for-byte in golden files.
func FrozenClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TickingClock returns a time source that advances by step on every
// call, starting at start. Events get distinct, deterministic stamps.
//
// Thread-safety: safe for concurrent use via internal mutex.
func TickingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}
