package sanctum

import "sync/atomic"

// Grant is the capability returned by Register. Code holding the grant
// reaches private attributes of the registered type; code without it
// cannot forge one. Grants are typically kept in an unexported package
// variable next to the type they guard.
type Grant struct {
	realm   *Realm
	reg     *registration
	revoked atomic.Bool
}

// Must returns g or panics on err. It suits package-level registration,
// where a bad declaration is a programming error.
func Must(g *Grant, err error) *Grant {
	if err != nil {
		panic(err)
	}
	return g
}

// TypeRef returns the reference of the guarded type.
func (g *Grant) TypeRef() TypeRef {
	return g.reg.ref
}

// Names returns every private name reachable through the grant, own and
// inherited, sorted.
func (g *Grant) Names() []string {
	return g.reg.names()
}

// Revoked reports whether the grant's registration was unregistered.
func (g *Grant) Revoked() bool {
	return g.revoked.Load()
}

func (g *Grant) ensureLive() error {
	if g.revoked.Load() {
		return errConfig(g.reg.ref.Name(), "", "grant for '%s' is revoked", g.reg.ref.Name())
	}
	return nil
}

// Open binds obj and returns trusted instance access. The holder's
// dynamic type must be the grant's type or a registered type extending
// it; a grant for a base type opens holders of its subtypes, scoped to
// the names the base declares.
//
// Constructors of a subtype should open the holder through the subtype's
// own grant first: the first bind fixes the holder's identity, and
// methods promoted from the base resolve against that binding.
func (g *Grant) Open(obj Holder) (*Access, error) {
	if err := g.ensureLive(); err != nil {
		return nil, err
	}
	dyn, v, err := g.realm.holderFor(obj)
	if err != nil {
		return nil, err
	}
	if !dyn.inChain(g.reg) {
		return nil, errConfig(g.reg.ref.Name(), "",
			"grant for '%s' cannot open a '%s' holder", g.reg.ref.Name(), dyn.ref.Name())
	}
	if err := g.realm.bindVault(v, dyn); err != nil {
		return nil, err
	}
	return &Access{g: g, dyn: dyn, v: v}, nil
}

// Type returns trusted access to the type-level store, where defaults
// and type attributes live.
func (g *Grant) Type() *TypeAccess {
	return &TypeAccess{g: g}
}

// Access is trusted instance access opened from a grant.
type Access struct {
	g   *Grant
	dyn *registration
	v   *Vault
}

// Get resolves name against the holder's own store, then the type-level
// stores along the ancestry.
func (a *Access) Get(name string) (any, error) {
	if err := a.g.ensureLive(); err != nil {
		return nil, err
	}
	return a.g.realm.getAttr(a.g.reg, a.dyn, a.v, name, trustInfo{trusted: true, via: ViaGrant})
}

// Set writes name in the holder's own store.
func (a *Access) Set(name string, value any) error {
	if err := a.g.ensureLive(); err != nil {
		return err
	}
	return a.g.realm.setAttr(a.g.reg, a.dyn, a.v, name, value, trustInfo{trusted: true, via: ViaGrant})
}

// Delete removes name from the holder's own store. Deleting an absent
// name reports CodeNotFound; a type-level default is untouched, so a
// later Get falls back to it again.
func (a *Access) Delete(name string) error {
	if err := a.g.ensureLive(); err != nil {
		return err
	}
	return a.g.realm.delAttr(a.g.reg, a.dyn, a.v, name, trustInfo{trusted: true, via: ViaGrant})
}

// TypeAccess is trusted access to a type's own store.
type TypeAccess struct {
	g *Grant
}

// Get resolves name against the type's store, then its ancestors'.
func (ta *TypeAccess) Get(name string) (any, error) {
	if err := ta.g.ensureLive(); err != nil {
		return nil, err
	}
	return ta.g.realm.typeGetAttr(ta.g.reg, name, trustInfo{trusted: true, via: ViaGrant})
}

// Set writes name in the type's own store, shadowing an inherited value
// for this type and its subtypes.
func (ta *TypeAccess) Set(name string, value any) error {
	if err := ta.g.ensureLive(); err != nil {
		return err
	}
	return ta.g.realm.typeSetAttr(ta.g.reg, name, value, trustInfo{trusted: true, via: ViaGrant})
}

// Delete removes name from the type's own store only; an inherited value
// is out of reach and reports CodeNotFound.
func (ta *TypeAccess) Delete(name string) error {
	if err := ta.g.ensureLive(); err != nil {
		return err
	}
	return ta.g.realm.typeDelAttr(ta.g.reg, name, trustInfo{trusted: true, via: ViaGrant})
}
