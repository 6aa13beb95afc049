package sanctum

import (
	"reflect"
	"sort"
	"sync"

	"github.com/roach88/sanctum/internal/keys"
)

// registration is the realm-side record of one guarded type: its declared
// names, its ancestry, its type-level store, and the identities of live
// bound holders.
type registration struct {
	ref   TypeRef
	rtype reflect.Type
	decl  Declaration
	base  *registration

	// attrs maps every reachable private name, own and inherited, to the
	// registration that declares it. A redeclared name maps here.
	attrs map[string]*registration

	// chain lists the refs of this registration and its ancestors, self
	// first. It is the admitted set handed to the call witness.
	chain []string

	// typeOwner is the key-derivation owner of the type-level store.
	typeOwner string

	grant *Grant

	// mu guards typeStore, owners, and the data and closed fields of
	// every vault bound to this registration.
	mu        sync.RWMutex
	typeStore map[keys.StorageKey]any
	owners    map[string]struct{}
}

// declaringOf returns the registration that declares name, walking the
// ancestry.
func (reg *registration) declaringOf(name string) (*registration, bool) {
	d, ok := reg.attrs[name]
	return d, ok
}

// inChain reports whether other is reg or one of its ancestors.
func (reg *registration) inChain(other *registration) bool {
	for cur := reg; cur != nil; cur = cur.base {
		if cur == other {
			return true
		}
	}
	return false
}

// chainTo returns the refs from reg up to declaring, inclusive. Callers
// in any of these types' method sets may touch the attribute.
func (reg *registration) chainTo(declaring *registration) []string {
	refs := make([]string, 0, len(reg.chain))
	for cur := reg; cur != nil; cur = cur.base {
		refs = append(refs, string(cur.ref))
		if cur == declaring {
			break
		}
	}
	return refs
}

// names returns every reachable private name, sorted.
func (reg *registration) names() []string {
	out := make([]string, 0, len(reg.attrs))
	for name := range reg.attrs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
