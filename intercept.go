package sanctum

import "github.com/roach88/sanctum/internal/provenance"

// trustInfo carries how an operation earned trust, if it did.
type trustInfo struct {
	trusted bool
	via     string
	unit    string
}

// Get reads a private attribute of obj. Without a grant the caller is
// untrusted and the read fails with CodeNotFound whether the attribute
// exists or not; with the call witness enabled, methods of the guarded
// type are recognized and read like grant holders.
func (r *Realm) Get(obj Holder, name string) (any, error) {
	reg, v, err := r.holderFor(obj)
	if err != nil {
		return nil, err
	}
	return r.getAttr(reg, reg, v, name, trustInfo{})
}

// Set writes a private attribute of obj. Untrusted callers are refused
// with CodeForbidden.
func (r *Realm) Set(obj Holder, name string, value any) error {
	reg, v, err := r.holderFor(obj)
	if err != nil {
		return err
	}
	return r.setAttr(reg, reg, v, name, value, trustInfo{})
}

// Delete removes a private attribute of obj. Untrusted callers are
// refused with CodeForbidden.
func (r *Realm) Delete(obj Holder, name string) error {
	reg, v, err := r.holderFor(obj)
	if err != nil {
		return err
	}
	return r.delAttr(reg, reg, v, name, trustInfo{})
}

// TypeGet reads a type-level private attribute of ref.
func (r *Realm) TypeGet(ref TypeRef, name string) (any, error) {
	reg, err := r.registrationFor(ref)
	if err != nil {
		return nil, err
	}
	return r.typeGetAttr(reg, name, trustInfo{})
}

// TypeSet writes a type-level private attribute of ref.
func (r *Realm) TypeSet(ref TypeRef, name string, value any) error {
	reg, err := r.registrationFor(ref)
	if err != nil {
		return err
	}
	return r.typeSetAttr(reg, name, value, trustInfo{})
}

// TypeDelete removes a type-level private attribute of ref.
func (r *Realm) TypeDelete(ref TypeRef, name string) error {
	reg, err := r.registrationFor(ref)
	if err != nil {
		return err
	}
	return r.typeDelAttr(reg, name, trustInfo{})
}

// Get reads a private attribute of obj in the default realm.
func Get(obj Holder, name string) (any, error) {
	return Default().Get(obj, name)
}

// Set writes a private attribute of obj in the default realm.
func Set(obj Holder, name string, value any) error {
	return Default().Set(obj, name, value)
}

// Delete removes a private attribute of obj in the default realm.
func Delete(obj Holder, name string) error {
	return Default().Delete(obj, name)
}

// TypeGet reads a type-level private attribute in the default realm.
func TypeGet(ref TypeRef, name string) (any, error) {
	return Default().TypeGet(ref, name)
}

// TypeSet writes a type-level private attribute in the default realm.
func TypeSet(ref TypeRef, name string, value any) error {
	return Default().TypeSet(ref, name, value)
}

// TypeDelete removes a type-level private attribute in the default realm.
func TypeDelete(ref TypeRef, name string) error {
	return Default().TypeDelete(ref, name)
}

// witnessApprove consults the call witness, when enabled, for an
// operation on dyn touching an attribute declared by declaring.
func (r *Realm) witnessApprove(dyn, declaring *registration) provenance.Decision {
	if !r.useWitness {
		return provenance.Decision{}
	}
	return r.witness.Approve(dyn.chainTo(declaring))
}

// getAttr resolves a read. scope bounds the names visible to the caller
// (a base type's grant does not see subtype declarations); dyn is the
// holder's dynamic registration, which drives storage resolution and
// error text.
func (r *Realm) getAttr(scope, dyn *registration, v *Vault, name string, trust trustInfo) (any, error) {
	declaring, ok := scope.declaringOf(name)
	if !ok {
		r.emit(AccessEvent{Op: OpGet, Type: string(dyn.ref), Attr: name, Object: v.id, Decision: DecisionNotFound})
		return nil, errNotFound(dyn.ref.Name(), name)
	}
	if !trust.trusted {
		d := r.witnessApprove(dyn, declaring)
		if !d.Trusted {
			r.log.Debug("read refused", "type", dyn.ref, "attr", name)
			r.emit(AccessEvent{Op: OpGet, Type: string(dyn.ref), Attr: name, Object: v.id, Decision: DecisionDenied})
			return nil, errNotFound(dyn.ref.Name(), name)
		}
		trust = trustInfo{trusted: true, via: ViaWitness, unit: d.Unit}
	}

	if err := r.bindVault(v, dyn); err != nil {
		return nil, err
	}
	key := r.deriver.Derive(v.id, name)

	dyn.mu.RLock()
	val, found := v.data[key]
	dyn.mu.RUnlock()
	if found {
		r.emit(AccessEvent{Op: OpGet, Type: string(dyn.ref), Attr: name, Object: v.id, Key: string(key), Decision: DecisionGranted, Via: trust.via, Unit: trust.unit})
		return val, nil
	}

	for cur := dyn; cur != nil; cur = cur.base {
		tkey := r.deriver.Derive(cur.typeOwner, name)
		cur.mu.RLock()
		val, found = cur.typeStore[tkey]
		cur.mu.RUnlock()
		if found {
			r.emit(AccessEvent{Op: OpGet, Type: string(dyn.ref), Attr: name, Object: v.id, Key: string(key), Decision: DecisionGranted, Via: trust.via, Unit: trust.unit})
			return val, nil
		}
	}

	r.emit(AccessEvent{Op: OpGet, Type: string(dyn.ref), Attr: name, Object: v.id, Key: string(key), Decision: DecisionNotFound, Via: trust.via, Unit: trust.unit})
	return nil, errNotFound(dyn.ref.Name(), name)
}

// setAttr resolves a write into the holder's own store.
func (r *Realm) setAttr(scope, dyn *registration, v *Vault, name string, value any, trust trustInfo) error {
	declaring, ok := scope.declaringOf(name)
	if !ok {
		r.emit(AccessEvent{Op: OpSet, Type: string(dyn.ref), Attr: name, Object: v.id, Decision: DecisionNotFound})
		return errConfig(dyn.ref.Name(), name, "'%s' is not a private attribute of '%s'", name, dyn.ref.Name())
	}
	if !trust.trusted {
		d := r.witnessApprove(dyn, declaring)
		if !d.Trusted {
			r.log.Debug("write refused", "type", dyn.ref, "attr", name)
			r.emit(AccessEvent{Op: OpSet, Type: string(dyn.ref), Attr: name, Object: v.id, Decision: DecisionDenied})
			return errSetDenied(dyn.ref.Name(), name)
		}
		trust = trustInfo{trusted: true, via: ViaWitness, unit: d.Unit}
	}

	if err := r.bindVault(v, dyn); err != nil {
		return err
	}
	key := r.deriver.Derive(v.id, name)

	dyn.mu.Lock()
	if v.data == nil {
		dyn.mu.Unlock()
		return errConfig(dyn.ref.Name(), name, "holder of '%s' is closed", dyn.ref.Name())
	}
	v.data[key] = value
	dyn.mu.Unlock()

	r.emit(AccessEvent{Op: OpSet, Type: string(dyn.ref), Attr: name, Object: v.id, Key: string(key), Decision: DecisionGranted, Via: trust.via, Unit: trust.unit})
	return nil
}

// delAttr resolves a delete against the holder's own store. Type-level
// values are out of reach from an instance.
func (r *Realm) delAttr(scope, dyn *registration, v *Vault, name string, trust trustInfo) error {
	declaring, ok := scope.declaringOf(name)
	if !ok {
		r.emit(AccessEvent{Op: OpDelete, Type: string(dyn.ref), Attr: name, Object: v.id, Decision: DecisionNotFound})
		return errConfig(dyn.ref.Name(), name, "'%s' is not a private attribute of '%s'", name, dyn.ref.Name())
	}
	if !trust.trusted {
		d := r.witnessApprove(dyn, declaring)
		if !d.Trusted {
			r.log.Debug("delete refused", "type", dyn.ref, "attr", name)
			r.emit(AccessEvent{Op: OpDelete, Type: string(dyn.ref), Attr: name, Object: v.id, Decision: DecisionDenied})
			return errDeleteDenied(dyn.ref.Name(), name)
		}
		trust = trustInfo{trusted: true, via: ViaWitness, unit: d.Unit}
	}

	if err := r.bindVault(v, dyn); err != nil {
		return err
	}
	key := r.deriver.Derive(v.id, name)

	dyn.mu.Lock()
	_, found := v.data[key]
	if found {
		delete(v.data, key)
	}
	dyn.mu.Unlock()

	if !found {
		r.emit(AccessEvent{Op: OpDelete, Type: string(dyn.ref), Attr: name, Object: v.id, Key: string(key), Decision: DecisionNotFound, Via: trust.via, Unit: trust.unit})
		return errNotFound(dyn.ref.Name(), name)
	}
	r.emit(AccessEvent{Op: OpDelete, Type: string(dyn.ref), Attr: name, Object: v.id, Key: string(key), Decision: DecisionGranted, Via: trust.via, Unit: trust.unit})
	return nil
}

// typeGetAttr resolves a type-level read, walking the ancestry the way
// instance reads fall back to type stores.
func (r *Realm) typeGetAttr(reg *registration, name string, trust trustInfo) (any, error) {
	declaring, ok := reg.declaringOf(name)
	if !ok {
		r.emit(AccessEvent{Op: OpTypeGet, Type: string(reg.ref), Attr: name, Decision: DecisionNotFound})
		return nil, errClassNotFound(reg.ref.Name(), name)
	}
	if !trust.trusted {
		d := r.witnessApprove(reg, declaring)
		if !d.Trusted {
			r.log.Debug("type read refused", "type", reg.ref, "attr", name)
			r.emit(AccessEvent{Op: OpTypeGet, Type: string(reg.ref), Attr: name, Decision: DecisionDenied})
			return nil, errClassNotFound(reg.ref.Name(), name)
		}
		trust = trustInfo{trusted: true, via: ViaWitness, unit: d.Unit}
	}

	for cur := reg; cur != nil; cur = cur.base {
		key := r.deriver.Derive(cur.typeOwner, name)
		cur.mu.RLock()
		val, found := cur.typeStore[key]
		cur.mu.RUnlock()
		if found {
			r.emit(AccessEvent{Op: OpTypeGet, Type: string(reg.ref), Attr: name, Key: string(key), Decision: DecisionGranted, Via: trust.via, Unit: trust.unit})
			return val, nil
		}
	}

	r.emit(AccessEvent{Op: OpTypeGet, Type: string(reg.ref), Attr: name, Decision: DecisionNotFound, Via: trust.via, Unit: trust.unit})
	return nil, errClassNotFound(reg.ref.Name(), name)
}

// typeSetAttr resolves a type-level write into reg's own store.
func (r *Realm) typeSetAttr(reg *registration, name string, value any, trust trustInfo) error {
	if isProtectedTypeName(name) {
		r.emit(AccessEvent{Op: OpTypeSet, Type: string(reg.ref), Attr: name, Decision: DecisionDenied})
		return errProtectedSet(reg.ref.Name(), name)
	}
	declaring, ok := reg.declaringOf(name)
	if !ok {
		r.emit(AccessEvent{Op: OpTypeSet, Type: string(reg.ref), Attr: name, Decision: DecisionNotFound})
		return errConfig(reg.ref.Name(), name, "'%s' is not a private attribute of class '%s'", name, reg.ref.Name())
	}
	if !trust.trusted {
		d := r.witnessApprove(reg, declaring)
		if !d.Trusted {
			r.log.Debug("type write refused", "type", reg.ref, "attr", name)
			r.emit(AccessEvent{Op: OpTypeSet, Type: string(reg.ref), Attr: name, Decision: DecisionDenied})
			return errClassSetDenied(reg.ref.Name(), name)
		}
		trust = trustInfo{trusted: true, via: ViaWitness, unit: d.Unit}
	}

	key := r.deriver.Derive(reg.typeOwner, name)
	reg.mu.Lock()
	reg.typeStore[key] = value
	reg.mu.Unlock()

	r.emit(AccessEvent{Op: OpTypeSet, Type: string(reg.ref), Attr: name, Key: string(key), Decision: DecisionGranted, Via: trust.via, Unit: trust.unit})
	return nil
}

// typeDelAttr resolves a type-level delete against reg's own store only.
func (r *Realm) typeDelAttr(reg *registration, name string, trust trustInfo) error {
	if isProtectedTypeName(name) {
		r.emit(AccessEvent{Op: OpTypeDelete, Type: string(reg.ref), Attr: name, Decision: DecisionDenied})
		return errProtectedDelete(reg.ref.Name(), name)
	}
	declaring, ok := reg.declaringOf(name)
	if !ok {
		r.emit(AccessEvent{Op: OpTypeDelete, Type: string(reg.ref), Attr: name, Decision: DecisionNotFound})
		return errConfig(reg.ref.Name(), name, "'%s' is not a private attribute of class '%s'", name, reg.ref.Name())
	}
	if !trust.trusted {
		d := r.witnessApprove(reg, declaring)
		if !d.Trusted {
			r.log.Debug("type delete refused", "type", reg.ref, "attr", name)
			r.emit(AccessEvent{Op: OpTypeDelete, Type: string(reg.ref), Attr: name, Decision: DecisionDenied})
			return errClassDeleteDenied(reg.ref.Name(), name)
		}
		trust = trustInfo{trusted: true, via: ViaWitness, unit: d.Unit}
	}

	key := r.deriver.Derive(reg.typeOwner, name)
	reg.mu.Lock()
	_, found := reg.typeStore[key]
	if found {
		delete(reg.typeStore, key)
	}
	reg.mu.Unlock()

	if !found {
		r.emit(AccessEvent{Op: OpTypeDelete, Type: string(reg.ref), Attr: name, Key: string(key), Decision: DecisionNotFound, Via: trust.via, Unit: trust.unit})
		return errClassNotFound(reg.ref.Name(), name)
	}
	r.emit(AccessEvent{Op: OpTypeDelete, Type: string(reg.ref), Attr: name, Key: string(key), Decision: DecisionGranted, Via: trust.via, Unit: trust.unit})
	return nil
}
