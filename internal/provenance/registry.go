// Package provenance tracks which executable units are trusted to touch a
// registration's private attributes, and optionally decides trust from the
// live call stack.
//
// The registry is bookkeeping: per registration it keeps the qualified-name
// prefixes of the type's own methods, the package path, and a memo of units
// already judged trusted. The witness is the decision procedure over
// runtime call frames. Capability grants are the primary trust mechanism;
// the witness exists as an opt-in compatibility and diagnostics layer and
// is a heuristic, not a security boundary.
package provenance

import (
	"sync"
)

// Entry is the provenance record for one registered type.
type Entry struct {
	// Ref is the type identity, "pkgpath.TypeName".
	Ref string

	// PkgPath is the import path of the package defining the type.
	PkgPath string

	// Prefixes are the qualified-name prefixes of the type's own methods,
	// e.g. "pkgpath.(*TypeName)." and "pkgpath.TypeName.". A function whose
	// name starts with one of these is lexically nested under the type.
	Prefixes []string
}

type entryState struct {
	entry Entry

	// trusted memoizes approved units by entry PC for O(1) re-checks.
	trusted map[uintptr]string
}

// Registry holds provenance entries for all live registrations of a realm.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entryState
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entryState)}
}

// Add installs the entry, replacing any previous record for the same ref.
func (r *Registry) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Ref] = &entryState{
		entry:   e,
		trusted: make(map[uintptr]string),
	}
}

// Remove drops the entry and its trusted-unit memo. Unknown refs are a
// no-op.
func (r *Registry) Remove(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, ref)
}

// Lookup returns the entry for ref.
func (r *Registry) Lookup(ref string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.entries[ref]
	if !ok {
		return Entry{}, false
	}
	return st.entry, true
}

// Trusted reports whether the unit entered at pc was already approved for
// ref.
func (r *Registry) Trusted(ref string, pc uintptr) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.entries[ref]
	if !ok {
		return false
	}
	_, ok = st.trusted[pc]
	return ok
}

// Promote records the unit entered at pc as trusted for ref. Promoting on
// an unknown ref is a no-op (the registration may have been removed
// concurrently).
func (r *Registry) Promote(ref string, pc uintptr, unit string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.entries[ref]
	if !ok {
		return
	}
	st.trusted[pc] = unit
}

// TrustedSize returns the number of memoized units for ref.
func (r *Registry) TrustedSize(ref string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.entries[ref]
	if !ok {
		return 0
	}
	return len(st.trusted)
}

// Size returns the number of live entries.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
