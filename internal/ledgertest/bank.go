// Package ledgertest provides guarded account fixtures. The types here
// hold real private state behind grants and are shared by tests across
// the module: conformance scenarios, audit-trail tests, and the CLI's
// demo trail all run against them.
package ledgertest

import (
	"github.com/roach88/sanctum"
)

// Opening balance written by the account constructors; the registration
// carries the same value as a type-level default.
const openingBalance = 100

// Bank owns the registrations of the account types in one realm and
// keeps their grants unexported. Code outside this package can construct
// accounts and call their methods, but cannot reach private state.
type Bank struct {
	realm    *sanctum.Realm
	account  *sanctum.Grant
	savings  *sanctum.Grant
	checking *sanctum.Grant
}

// Install registers the account types in realm. It fails if any of them
// is already registered there.
func Install(realm *sanctum.Realm) (*Bank, error) {
	account, err := sanctum.Register[Account](realm, sanctum.Declaration{
		Names:    []string{"balance", "history"},
		Defaults: map[string]any{"balance": openingBalance},
	})
	if err != nil {
		return nil, err
	}
	savings, err := sanctum.Register[SavingsAccount](realm, sanctum.Declaration{
		Names:    []string{"rate"},
		Defaults: map[string]any{"rate": 0},
		Extends:  sanctum.RefOf[Account](),
	})
	if err != nil {
		realm.Unregister(sanctum.RefOf[Account]())
		return nil, err
	}
	checking, err := sanctum.Register[CheckingAccount](realm, sanctum.Declaration{
		Names:   []string{"overdraft"},
		Extends: sanctum.RefOf[Account](),
	})
	if err != nil {
		realm.Unregister(sanctum.RefOf[SavingsAccount]())
		realm.Unregister(sanctum.RefOf[Account]())
		return nil, err
	}
	return &Bank{
		realm:    realm,
		account:  account,
		savings:  savings,
		checking: checking,
	}, nil
}

// Uninstall removes the account registrations from the bank's realm.
func (b *Bank) Uninstall() {
	b.realm.Unregister(sanctum.RefOf[CheckingAccount]())
	b.realm.Unregister(sanctum.RefOf[SavingsAccount]())
	b.realm.Unregister(sanctum.RefOf[Account]())
}

// Realm returns the realm the bank installed into.
func (b *Bank) Realm() *sanctum.Realm {
	return b.realm
}
