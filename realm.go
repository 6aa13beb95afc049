package sanctum

import (
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/sanctum/internal/keys"
	"github.com/roach88/sanctum/internal/provenance"
)

// Realm scopes guarded types. Registrations, derived storage keys, trust
// records, and the audit sequence all live per realm; two realms never
// observe each other. Most programs use the package-level Default realm.
type Realm struct {
	log        *slog.Logger
	auditor    Auditor
	idgen      IdentityGenerator
	now        func() time.Time
	useWitness bool
	maxDepth   int

	deriver *keys.Deriver
	prov    *provenance.Registry
	witness *provenance.Witness

	seq atomic.Int64

	mu   sync.RWMutex
	regs map[TypeRef]*registration
}

// Option configures a Realm.
type Option func(*Realm)

// WithLogger sets the realm's logger. The realm is silent by default.
func WithLogger(log *slog.Logger) Option {
	return func(r *Realm) {
		if log != nil {
			r.log = log
		}
	}
}

// WithAuditor installs an auditor. Every guarded operation, allowed or
// refused, is recorded.
func WithAuditor(a Auditor) Option {
	return func(r *Realm) { r.auditor = a }
}

// WithCallWitness enables the call-stack witness: methods of a guarded
// type may then use the plain realm operations on their own instances
// without holding a grant. The witness inspects runtime call frames and
// is a heuristic, not a security boundary; grants remain the primary
// trust mechanism.
func WithCallWitness() Option {
	return func(r *Realm) { r.useWitness = true }
}

// WithMaxCallDepth bounds how many call frames the witness examines.
func WithMaxCallDepth(depth int) Option {
	return func(r *Realm) { r.maxDepth = depth }
}

// WithIdentityGenerator replaces the identity source used for holders,
// registrations, and grants. Tests use a fixed generator.
func WithIdentityGenerator(g IdentityGenerator) Option {
	return func(r *Realm) {
		if g != nil {
			r.idgen = g
		}
	}
}

// WithClock replaces the time source stamped onto audit events.
func WithClock(now func() time.Time) Option {
	return func(r *Realm) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRealm creates an isolated realm.
func NewRealm(opts ...Option) *Realm {
	r := &Realm{
		log:     slog.New(slog.DiscardHandler),
		idgen:   UUIDIdentities(),
		now:     time.Now,
		deriver: keys.NewDeriver(),
		prov:    provenance.NewRegistry(),
		regs:    make(map[TypeRef]*registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.witness = provenance.NewWitness(r.prov, r.maxDepth)
	return r
}

var (
	defaultOnce  sync.Once
	defaultRealm *Realm
)

// Default returns the process-wide realm.
func Default() *Realm {
	defaultOnce.Do(func() {
		defaultRealm = NewRealm()
	})
	return defaultRealm
}

// Register guards T in realm r. The returned grant is the capability for
// trusted access: code holding it reaches private attributes through
// Open and Type, code without it goes through the realm operations and
// is refused unless the call witness approves it.
//
// T must be a struct embedding Vault; the PT parameter only pins that
// down at compile time and is always inferred. Registering a type twice
// without unregistering it first fails.
func Register[T any, PT interface {
	*T
	Holder
}](r *Realm, decl Declaration) (*Grant, error) {
	return r.register(reflect.TypeOf((*T)(nil)).Elem(), decl)
}

func (r *Realm) register(rtype reflect.Type, decl Declaration) (*Grant, error) {
	for rtype.Kind() == reflect.Pointer {
		rtype = rtype.Elem()
	}
	ref := refOfType(rtype)
	if ref == "" {
		return nil, errConfig("", "", "cannot register an unnamed type")
	}
	if err := decl.validate(rtype, ref); err != nil {
		return nil, err
	}

	reg := &registration{
		ref:       ref,
		rtype:     rtype,
		decl:      decl,
		typeOwner: "type:" + string(ref),
		typeStore: make(map[keys.StorageKey]any),
		owners:    make(map[string]struct{}),
	}

	r.mu.Lock()
	if _, exists := r.regs[ref]; exists {
		r.mu.Unlock()
		return nil, errDuplicateType(ref)
	}
	if decl.Extends != "" {
		base, ok := r.regs[decl.Extends]
		if !ok {
			r.mu.Unlock()
			return nil, errConfig(ref.Name(), "", "'%s' extends unregistered type '%s'", ref, decl.Extends)
		}
		if !embedsType(rtype, base.rtype) {
			r.mu.Unlock()
			return nil, errConfig(ref.Name(), "", "'%s' does not embed its declared base '%s'", ref, decl.Extends)
		}
		reg.base = base
	}

	reg.attrs = make(map[string]*registration)
	if reg.base != nil {
		for name, declaring := range reg.base.attrs {
			reg.attrs[name] = declaring
		}
	}
	for _, name := range decl.Names {
		reg.attrs[name] = reg
	}
	for cur := reg; cur != nil; cur = cur.base {
		reg.chain = append(reg.chain, string(cur.ref))
	}
	for name, val := range decl.Defaults {
		reg.typeStore[r.deriver.Derive(reg.typeOwner, name)] = val
	}

	g := &Grant{realm: r, reg: reg}
	reg.grant = g
	r.regs[ref] = reg
	r.mu.Unlock()

	r.prov.Add(provenance.Entry{
		Ref:      string(ref),
		PkgPath:  ref.PkgPath(),
		Prefixes: provenance.MethodPrefixes(ref.PkgPath(), ref.Name()),
	})

	r.log.Info("type registered",
		"type", ref,
		"attrs", len(reg.attrs),
		"extends", decl.Extends)
	r.emit(AccessEvent{Op: OpRegister, Type: string(ref), Decision: DecisionGranted})
	return g, nil
}

// Unregister removes the registration for ref, revokes its grant, and
// releases every storage key derived for the type and its live holders.
// Unknown refs are a no-op. Registrations extending ref keep their
// inherited names and defaults.
func (r *Realm) Unregister(ref TypeRef) {
	r.mu.Lock()
	reg, ok := r.regs[ref]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.regs, ref)
	r.mu.Unlock()

	reg.grant.revoked.Store(true)
	r.prov.Remove(string(ref))

	reg.mu.Lock()
	owners := make([]string, 0, len(reg.owners))
	for id := range reg.owners {
		owners = append(owners, id)
	}
	reg.owners = make(map[string]struct{})
	reg.mu.Unlock()

	r.deriver.Release(reg.typeOwner)
	for _, id := range owners {
		r.deriver.Release(id)
	}

	r.log.Info("type unregistered", "type", ref, "holders", len(owners))
	r.emit(AccessEvent{Op: OpUnregister, Type: string(ref), Decision: DecisionGranted})
}

// holderFor resolves obj to its registration. A bound vault is the
// authority: a base type's method receives the embedded struct, whose
// static type no longer shows the holder it is part of, so identity
// sticks to the binding made at construction. Unbound holders resolve by
// their dynamic type.
func (r *Realm) holderFor(obj Holder) (*registration, *Vault, error) {
	v := obj.vault()
	if v.realm == r && v.reg != nil {
		return v.reg, v, nil
	}
	if v.realm != nil && v.realm != r {
		return nil, nil, errConfig(v.reg.ref.Name(), "",
			"holder of '%s' is bound to another realm", v.reg.ref.Name())
	}

	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	ref := refOfType(t)
	r.mu.RLock()
	reg, ok := r.regs[ref]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, errNotRegistered(ref)
	}
	return reg, v, nil
}

// registrationFor resolves a type-level ref.
func (r *Realm) registrationFor(ref TypeRef) (*registration, error) {
	r.mu.RLock()
	reg, ok := r.regs[ref]
	r.mu.RUnlock()
	if !ok {
		return nil, errNotRegistered(ref)
	}
	return reg, nil
}

// bindVault attaches v to reg on first use, minting its identity. Caller
// must not hold reg.mu.
func (r *Realm) bindVault(v *Vault, reg *registration) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if v.closed {
		return errConfig(reg.ref.Name(), "", "holder of '%s' is closed", reg.ref.Name())
	}
	if v.realm == nil {
		v.realm = r
		v.reg = reg
		v.id = r.idgen.NewIdentity()
		v.data = make(map[keys.StorageKey]any)
		reg.owners[v.id] = struct{}{}
		runtime.AddCleanup(v, reapOwner, ownerTeardown{realm: r, reg: reg, id: v.id})
		r.log.Debug("holder bound", "type", reg.ref, "object", v.id)
		return nil
	}
	if v.realm != r || v.reg != reg {
		return errConfig(reg.ref.Name(), "", "holder of '%s' is already bound elsewhere", reg.ref.Name())
	}
	return nil
}

// ownerTeardown carries what reapOwner needs after the holder itself is
// gone. It must not reference the vault, or the holder never becomes
// collectable.
type ownerTeardown struct {
	realm *Realm
	reg   *registration
	id    string
}

// reapOwner purges the side-table state of a holder the collector
// reclaimed without an explicit Close. The private store dies with the
// holder; only the owner record and the derived-key cache outlive it.
// An explicit Close or Unregister wins the race, and the cleanup then
// finds nothing to do.
func reapOwner(t ownerTeardown) {
	t.reg.mu.Lock()
	if _, live := t.reg.owners[t.id]; !live {
		t.reg.mu.Unlock()
		return
	}
	delete(t.reg.owners, t.id)
	t.reg.mu.Unlock()

	t.realm.deriver.Release(t.id)
	t.realm.log.Debug("holder reclaimed", "type", t.reg.ref, "object", t.id)
	t.realm.emit(AccessEvent{Op: OpRelease, Type: string(t.reg.ref), Object: t.id, Decision: DecisionGranted})
}

// releaseVault purges v's storage and derived keys. Idempotent.
func (r *Realm) releaseVault(v *Vault) {
	reg := v.reg
	if reg == nil {
		return
	}
	reg.mu.Lock()
	if v.closed {
		reg.mu.Unlock()
		return
	}
	v.closed = true
	v.data = nil
	v.public = nil
	delete(reg.owners, v.id)
	reg.mu.Unlock()

	r.deriver.Release(v.id)
	r.log.Debug("holder released", "type", reg.ref, "object", v.id)
	r.emit(AccessEvent{Op: OpRelease, Type: string(reg.ref), Object: v.id, Decision: DecisionGranted})
}

// emit stamps sequence and time onto ev and hands it to the auditor.
func (r *Realm) emit(ev AccessEvent) {
	ev.Seq = r.seq.Add(1)
	ev.Time = r.now()
	if r.auditor == nil {
		return
	}
	if err := r.auditor.Record(ev); err != nil {
		r.log.Warn("audit record failed", "op", ev.Op, "type", ev.Type, "error", err)
	}
}
