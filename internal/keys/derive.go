// Package keys derives the opaque storage keys under which private
// attribute values are kept.
//
// A storage key is a function of (owner identity, logical name). Derivation
// is deterministic and idempotent, and issued keys are globally unique: two
// distinct (owner, name) inputs never share a key, even when their digests
// collide, because a process-wide reverse index disambiguates collisions
// with a numeric suffix. The cache and index are guarded by a single mutex;
// this is the only lock in the access path.
package keys

import (
	"fmt"
	"sync"

	"github.com/roach88/sanctum/internal/canonical"
)

// StorageKey is the opaque identifier a private value is stored under.
// The logical attribute name is not recoverable from it.
type StorageKey string

// Key shape: underscore-separated groups of 6, 8, and 4 characters drawn
// from tokenAlphabet, e.g. "_k2Yf8a_R0qLmZw1_pD4s".
const (
	groupA = 6
	groupB = 8
	groupC = 4

	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// cacheEntry identifies one derivation input. The two hashes mirror the
// derivation seed so the cache can be inspected without retaining raw
// attribute names longer than necessary.
type cacheEntry struct {
	owner    string
	pairHash string // H(owner + "_" + name)
	nameHash string // H(name)
}

// Deriver issues storage keys and remembers every issued key for the life
// of the process (until released per owner). The zero value is not usable;
// call NewDeriver.
type Deriver struct {
	mu     sync.Mutex
	cache  map[cacheEntry]StorageKey
	issued map[StorageKey]cacheEntry
}

// NewDeriver creates an empty deriver.
func NewDeriver() *Deriver {
	return &Deriver{
		cache:  make(map[cacheEntry]StorageKey),
		issued: make(map[StorageKey]cacheEntry),
	}
}

// Derive returns the storage key for (owner, name), issuing a new one on
// first use. Safe for concurrent use; the lock is held across the whole
// derive-or-hit section so concurrent calls can never issue two different
// keys for the same input or the same key for two different inputs.
func (d *Deriver) Derive(owner, name string) StorageKey {
	seed := []byte(owner + "_" + name)
	entry := cacheEntry{
		owner:    owner,
		pairHash: canonical.HashWithDomain(canonical.DomainStorageKey, seed),
		nameHash: canonical.HashWithDomain(canonical.DomainAttrName, []byte(name)),
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if key, ok := d.cache[entry]; ok {
		return key
	}

	base := tokenFromDigest(canonical.DigestWithDomain(canonical.DomainStorageKey, seed))
	key := base
	for i := 1; ; i++ {
		if _, taken := d.issued[key]; !taken {
			break
		}
		key = StorageKey(fmt.Sprintf("%s_%d", base, i))
	}

	d.cache[entry] = key
	d.issued[key] = entry
	return key
}

// Release drops every cached derivation and issued key belonging to owner.
// Released keys become eligible for reissue to a fresh owner. Calling
// Release for an unknown owner is a no-op.
func (d *Deriver) Release(owner string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for entry, key := range d.cache {
		if entry.owner == owner {
			delete(d.cache, entry)
			delete(d.issued, key)
		}
	}
}

// Size returns the number of cached derivations.
func (d *Deriver) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cache)
}

// OwnerSize returns the number of cached derivations for one owner.
func (d *Deriver) OwnerSize(owner string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for entry := range d.cache {
		if entry.owner == owner {
			n++
		}
	}
	return n
}

// tokenFromDigest maps a digest into the key shape. Selection by modulo has
// a slight alphabet bias, which is fine: keys are bookkeeping identifiers,
// not cryptographic material.
func tokenFromDigest(digest [32]byte) StorageKey {
	buf := make([]byte, 0, groupA+groupB+groupC+3)
	next := 0
	for _, group := range []int{groupA, groupB, groupC} {
		buf = append(buf, '_')
		for i := 0; i < group; i++ {
			buf = append(buf, tokenAlphabet[int(digest[next])%len(tokenAlphabet)])
			next++
		}
	}
	return StorageKey(buf)
}
