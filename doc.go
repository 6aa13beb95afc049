// Package sanctum guards private attributes behind capability grants.
//
// A type opts in by embedding Vault and registering a declaration of its
// private names:
//
//	type Account struct {
//		sanctum.Vault
//		Owner string
//	}
//
//	var grant = sanctum.Must(sanctum.Register[Account](sanctum.Default(), sanctum.Declaration{
//		Names:    []string{"balance", "history"},
//		Defaults: map[string]any{"balance": 0},
//	}))
//
// Register returns a *Grant, the capability for trusted access. Keeping
// it in an unexported variable scopes trust to the declaring package:
//
//	func (a *Account) Deposit(amount int) error {
//		acc, err := grant.Open(a)
//		if err != nil {
//			return err
//		}
//		cur, err := acc.Get("balance")
//		if err != nil {
//			return err
//		}
//		return acc.Set("balance", cur.(int)+amount)
//	}
//
// Code without the grant goes through the realm operations and is
// refused: reads report the attribute as absent, writes and deletes are
// forbidden. An absent attribute and a denied read are indistinguishable
// from outside.
//
// Private values live in storage owned by the holder, under derived
// opaque keys, and are released when the holder is closed. Dynamic
// public attributes ride along on the vault (Lookup, Assign, Remove)
// and never overlap the private names. Holders refuse serialization so
// private state cannot leak through encoders.
//
// A realm built WithCallWitness recognizes methods of a guarded type on
// the call stack and lets them through the realm operations without a
// grant. The witness is a heuristic over runtime call frames, not a
// security boundary; grants remain the primary mechanism.
package sanctum
