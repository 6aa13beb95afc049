package sanctum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerGadget(t *testing.T, r *Realm) *Grant {
	t.Helper()
	g, err := Register[gadget](r, Declaration{
		Names:    []string{"serial", "secret"},
		Defaults: map[string]any{"secret": "s3"},
	})
	require.NoError(t, err)
	return g
}

func TestMust(t *testing.T) {
	r := NewRealm()
	g := Must(Register[gadget](r, Declaration{Names: []string{"serial"}}))
	assert.NotNil(t, g)

	assert.Panics(t, func() {
		Must(Register[gadget](r, Declaration{Names: []string{"serial"}}))
	})
}

func TestGrantTypeRef(t *testing.T) {
	r := NewRealm()
	g := registerGadget(t, r)
	assert.Equal(t, RefOf[gadget](), g.TypeRef())
	assert.Equal(t, []string{"secret", "serial"}, g.Names())
}

func TestGrantOpenUnregisteredHolder(t *testing.T) {
	r := NewRealm()
	g := registerGadget(t, r)

	_, err := g.Open(&trinket{})
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.ErrorContains(t, err, "not registered")
}

func TestGrantOpenForeignHolder(t *testing.T) {
	r := NewRealm()
	g := registerGadget(t, r)
	_, err := Register[trinket](r, Declaration{Names: []string{"charm"}})
	require.NoError(t, err)

	_, err = g.Open(&trinket{})
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.ErrorContains(t, err, "cannot open a 'trinket' holder")
}

func TestAccessRoundTrip(t *testing.T) {
	r := NewRealm()
	g := registerGadget(t, r)
	obj := &gadget{}
	acc, err := g.Open(obj)
	require.NoError(t, err)

	_, err = acc.Get("serial")
	assert.True(t, IsNotFound(err), "no instance value, no default")

	require.NoError(t, acc.Set("serial", "A1"))
	val, err := acc.Get("serial")
	require.NoError(t, err)
	assert.Equal(t, "A1", val)

	require.NoError(t, acc.Delete("serial"))
	_, err = acc.Get("serial")
	assert.True(t, IsNotFound(err))

	err = acc.Delete("serial")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "'gadget' object has no attribute 'serial'")
}

func TestAccessDefaultFallback(t *testing.T) {
	r := NewRealm()
	g := registerGadget(t, r)
	obj := &gadget{}
	acc, err := g.Open(obj)
	require.NoError(t, err)

	val, err := acc.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, "s3", val, "type-level default fills the instance miss")

	require.NoError(t, acc.Set("secret", "mine"))
	val, err = acc.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, "mine", val)

	require.NoError(t, acc.Delete("secret"))
	val, err = acc.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, "s3", val, "delete exposes the default again")
}

func TestAccessUndeclaredName(t *testing.T) {
	r := NewRealm()
	g := registerGadget(t, r)
	obj := &gadget{}
	acc, err := g.Open(obj)
	require.NoError(t, err)

	_, err = acc.Get("missing")
	assert.True(t, IsNotFound(err))

	err = acc.Set("missing", 1)
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.ErrorContains(t, err, "'missing' is not a private attribute of 'gadget'")

	err = acc.Delete("missing")
	assert.True(t, IsConfiguration(err))
}

func TestTypeAccessRoundTrip(t *testing.T) {
	r := NewRealm()
	g := registerGadget(t, r)
	ta := g.Type()

	val, err := ta.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, "s3", val)

	require.NoError(t, ta.Set("secret", "s4"))
	val, err = ta.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, "s4", val)

	_, err = ta.Get("serial")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "'gadget' class has no attribute 'serial'")

	require.NoError(t, ta.Set("serial", "T0"))
	require.NoError(t, ta.Delete("serial"))
	err = ta.Delete("serial")
	assert.True(t, IsNotFound(err))
}

func TestTypeAccessProtectedNames(t *testing.T) {
	r := NewRealm()
	g := registerGadget(t, r)
	ta := g.Type()

	err := ta.Set("__class__", "anything")
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.EqualError(t, err, "cannot set '__class__' attribute on class 'gadget'")

	err = ta.Delete("__del__")
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.EqualError(t, err, "cannot delete '__del__' attribute on class 'gadget'")
}

func TestTypeAccessInheritedShadowing(t *testing.T) {
	r := NewRealm()
	registerGadget(t, r)
	wg, err := Register[widget](r, Declaration{
		Names:   []string{"extra"},
		Extends: RefOf[gadget](),
	})
	require.NoError(t, err)
	wt := wg.Type()

	val, err := wt.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, "s3", val, "inherited default resolves through the chain")

	// Deleting before shadowing: nothing in the subtype's own store.
	err = wt.Delete("secret")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "'widget' class has no attribute 'secret'")

	require.NoError(t, wt.Set("secret", "shadow"))
	val, err = wt.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, "shadow", val)

	// The base is untouched.
	base, err := r.regs[RefOf[gadget]()].grant.Type().Get("secret")
	require.NoError(t, err)
	assert.Equal(t, "s3", base)

	// Removing the shadow exposes the inherited value again.
	require.NoError(t, wt.Delete("secret"))
	val, err = wt.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, "s3", val)
}

func TestInstanceReadSeesTypeShadow(t *testing.T) {
	r := NewRealm()
	registerGadget(t, r)
	wg, err := Register[widget](r, Declaration{
		Names:   []string{"extra"},
		Extends: RefOf[gadget](),
	})
	require.NoError(t, err)

	obj := &widget{}
	acc, err := wg.Open(obj)
	require.NoError(t, err)

	require.NoError(t, wg.Type().Set("secret", "shadow"))
	val, err := acc.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, "shadow", val, "instance fallback walks the subtype store first")
}

func TestRealmTypeOpsUntrusted(t *testing.T) {
	r := NewRealm()
	registerGadget(t, r)
	ref := RefOf[gadget]()

	_, err := r.TypeGet(ref, "secret")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "'gadget' class has no attribute 'secret'")

	err = r.TypeSet(ref, "secret", "x")
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.EqualError(t, err, "cannot set private attribute 'secret' to class 'gadget'")

	err = r.TypeDelete(ref, "secret")
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.EqualError(t, err, "cannot delete private attribute 'secret' on class 'gadget'")

	_, err = r.TypeGet(RefOf[trinket](), "charm")
	assert.True(t, IsConfiguration(err), "unregistered type")
}
