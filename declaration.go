package sanctum

import (
	"reflect"
	"strings"
)

// TypeRef identifies a guarded type as "importpath.TypeName". The zero
// value is no reference.
type TypeRef string

// RefOf returns the reference for T. Pointer types resolve to their
// element type, so RefOf[*Account]() and RefOf[Account]() agree.
func RefOf[T any]() TypeRef {
	return refOfType(reflect.TypeOf((*T)(nil)).Elem())
}

func refOfType(t reflect.Type) TypeRef {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return ""
	}
	return TypeRef(t.PkgPath() + "." + t.Name())
}

// Name returns the bare type name.
func (r TypeRef) Name() string {
	s := string(r)
	slash := strings.LastIndexByte(s, '/')
	dot := strings.IndexByte(s[slash+1:], '.')
	if dot < 0 {
		return s
	}
	return s[slash+1+dot+1:]
}

// PkgPath returns the import path portion of the reference.
func (r TypeRef) PkgPath() string {
	s := string(r)
	slash := strings.LastIndexByte(s, '/')
	dot := strings.IndexByte(s[slash+1:], '.')
	if dot < 0 {
		return ""
	}
	return s[:slash+1+dot]
}

// Declaration names the private attributes of a type being registered.
type Declaration struct {
	// Names lists the private attribute names.
	Names []string

	// Defaults maps declared names to type-level default values. A read
	// that misses the instance store falls back to these.
	Defaults map[string]any

	// Extends names an already-registered base type. The registering
	// type must embed the base, and inherits its declared names.
	Extends TypeRef
}

// reservedNames can never be declared private. They are bookkeeping
// identifiers claimed by attribute runtimes and serializers that guarded
// values interoperate with; declaring them would shadow that machinery.
var reservedNames = map[string]struct{}{
	"__private_attrs__": {},
	"__name__":          {},
	"__module__":        {},
	"__class__":         {},
	"__dict__":          {},
	"__slots__":         {},
	"__weakref__":       {},
	"__getattribute__":  {},
	"__getattr__":       {},
	"__setattr__":       {},
	"__delattr__":       {},
	"__del__":           {},
	"__mro__":           {},
}

// protectedTypeNames can never be set or deleted at type level, trusted
// or not. They are the interception hooks themselves.
var protectedTypeNames = map[string]struct{}{
	"__class__":        {},
	"__delattr__":      {},
	"__getattribute__": {},
	"__getattr__":      {},
	"__setattr__":      {},
	"__getstate__":     {},
	"__setstate__":     {},
	"__del__":          {},
}

// IsReservedName reports whether name may not appear in a declaration.
func IsReservedName(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

func isProtectedTypeName(name string) bool {
	_, ok := protectedTypeNames[name]
	return ok
}

func (d Declaration) validate(rtype reflect.Type, ref TypeRef) error {
	typeName := ref.Name()
	if rtype.Kind() != reflect.Struct {
		return errConfig(typeName, "", "'%s' is not a struct type", ref)
	}
	if !embedsType(rtype, reflect.TypeOf(Vault{})) {
		return errConfig(typeName, "", "'%s' does not embed sanctum.Vault", ref)
	}

	seen := make(map[string]struct{}, len(d.Names))
	for _, name := range d.Names {
		if name == "" {
			return errConfig(typeName, name, "empty private attribute name on '%s'", typeName)
		}
		if IsReservedName(name) {
			return errConfig(typeName, name, "cannot declare reserved attribute '%s' on '%s'", name, typeName)
		}
		if _, dup := seen[name]; dup {
			return errConfig(typeName, name, "duplicate private attribute '%s' on '%s'", name, typeName)
		}
		seen[name] = struct{}{}
		if _, clash := rtype.FieldByName(name); clash {
			return errConfig(typeName, name, "private attribute '%s' conflicts with a field of '%s'", name, typeName)
		}
	}
	for name := range d.Defaults {
		if _, declared := seen[name]; !declared {
			return errConfig(typeName, name, "default value for undeclared attribute '%s' on '%s'", name, typeName)
		}
	}
	return nil
}

// embedsType reports whether outer embeds inner, directly or through a
// chain of embedded struct fields.
func embedsType(outer, inner reflect.Type) bool {
	if outer.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < outer.NumField(); i++ {
		f := outer.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft == inner {
			return true
		}
		if embedsType(ft, inner) {
			return true
		}
	}
	return false
}
