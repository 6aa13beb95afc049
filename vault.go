package sanctum

import (
	"encoding"
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sanctum/internal/keys"
)

// Vault is the private attribute store a guarded type embeds:
//
//	type Account struct {
//		sanctum.Vault
//		Owner string
//	}
//
// The zero value is ready; the vault binds to its realm and registration
// on first use and is issued an identity then. Private state lives inside
// the vault and is reachable only through the guard, so it is collected
// with the holder. Public dynamic attributes live beside it, reachable
// through Lookup, Assign, and Remove; a name is in one store or the
// other, never both. A bound vault must not be copied: copies alias the
// same storage.
//
// Vault refuses serialization. Marshaling a holder with encoding/json,
// encoding/gob, or yaml fails rather than leak or drop private state.
type Vault struct {
	realm  *Realm
	reg    *registration
	id     string
	data   map[keys.StorageKey]any
	public map[string]any
	closed bool
}

// Holder is satisfied by pointers to structs that embed Vault. It cannot
// be implemented any other way.
type Holder interface {
	vault() *Vault
}

func (v *Vault) vault() *Vault { return v }

// Close purges the vault's private and public stores and releases its
// derived storage keys. Guarded access to a closed holder reports a
// configuration error. Close is idempotent; closing an unbound vault is
// a no-op.
//
// A holder dropped without Close is reclaimed eventually: binding
// installs a runtime cleanup that releases the owner record and derived
// keys once the collector finds the holder unreachable. Reclamation
// order between holders is not guaranteed.
func (v *Vault) Close() error {
	if v == nil || v.realm == nil {
		return nil
	}
	v.realm.releaseVault(v)
	return nil
}

func (v Vault) typeName() string {
	if v.reg != nil {
		return v.reg.ref.Name()
	}
	return "Vault"
}

func (v *Vault) isPrivate(name string) bool {
	if v.reg == nil {
		return false
	}
	_, ok := v.reg.declaringOf(name)
	return ok
}

// Lookup reads a public dynamic attribute. A name that is private for
// the bound type reports CodeNotFound, exactly as an absent name does.
func (v *Vault) Lookup(name string) (any, error) {
	if v.isPrivate(name) {
		v.realm.emit(AccessEvent{Op: OpGet, Type: string(v.reg.ref), Attr: name, Object: v.id, Decision: DecisionDenied})
		return nil, errNotFound(v.typeName(), name)
	}
	if v.reg != nil {
		v.reg.mu.RLock()
		defer v.reg.mu.RUnlock()
	}
	if val, ok := v.public[name]; ok {
		return val, nil
	}
	return nil, errNotFound(v.typeName(), name)
}

// Assign writes a public dynamic attribute. The holder must already be
// bound to its realm; binding happens in the constructor when the grant
// is opened. A name that is private for the bound type is refused with
// CodeForbidden, so a value can never land in both stores.
func (v *Vault) Assign(name string, value any) error {
	if v.reg == nil {
		return errConfig("", name, "holder is not bound to a realm")
	}
	if v.isPrivate(name) {
		v.realm.emit(AccessEvent{Op: OpSet, Type: string(v.reg.ref), Attr: name, Object: v.id, Decision: DecisionDenied})
		return errSetDenied(v.typeName(), name)
	}
	v.reg.mu.Lock()
	defer v.reg.mu.Unlock()
	if v.closed {
		return errConfig(v.typeName(), name, "holder of '%s' is closed", v.typeName())
	}
	if v.public == nil {
		v.public = make(map[string]any)
	}
	v.public[name] = value
	return nil
}

// Remove deletes a public dynamic attribute. Removing an absent name
// reports CodeNotFound; a name that is private for the bound type is
// refused with CodeForbidden.
func (v *Vault) Remove(name string) error {
	if v.isPrivate(name) {
		v.realm.emit(AccessEvent{Op: OpDelete, Type: string(v.reg.ref), Attr: name, Object: v.id, Decision: DecisionDenied})
		return errDeleteDenied(v.typeName(), name)
	}
	if v.reg != nil {
		v.reg.mu.Lock()
		defer v.reg.mu.Unlock()
	}
	if _, ok := v.public[name]; !ok {
		return errNotFound(v.typeName(), name)
	}
	delete(v.public, name)
	return nil
}

// Names returns the public dynamic attribute names, sorted. Private
// names never appear.
func (v *Vault) Names() []string {
	if v.reg != nil {
		v.reg.mu.RLock()
		defer v.reg.mu.RUnlock()
	}
	out := make([]string, 0, len(v.public))
	for name := range v.public {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var (
	_ json.Marshaler             = Vault{}
	_ json.Unmarshaler           = (*Vault)(nil)
	_ encoding.BinaryMarshaler   = Vault{}
	_ encoding.BinaryUnmarshaler = (*Vault)(nil)
	_ yaml.Marshaler             = Vault{}
	_ yaml.Unmarshaler           = (*Vault)(nil)
)

// MarshalJSON always fails: private state does not serialize.
func (v Vault) MarshalJSON() ([]byte, error) {
	return nil, errSerialize(v.typeName())
}

// UnmarshalJSON always fails.
func (v *Vault) UnmarshalJSON([]byte) error {
	return errDeserialize(v.typeName())
}

// MarshalBinary always fails. encoding/gob consults it, so gob-encoding
// a holder fails as well.
func (v Vault) MarshalBinary() ([]byte, error) {
	return nil, errSerialize(v.typeName())
}

// UnmarshalBinary always fails.
func (v *Vault) UnmarshalBinary([]byte) error {
	return errDeserialize(v.typeName())
}

// MarshalYAML always fails.
func (v Vault) MarshalYAML() (any, error) {
	return nil, errSerialize(v.typeName())
}

// UnmarshalYAML always fails.
func (v *Vault) UnmarshalYAML(*yaml.Node) error {
	return errDeserialize(v.typeName())
}
