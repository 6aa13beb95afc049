package ledgertest

import "github.com/roach88/sanctum"

// Passbook holds no grant: its methods go through the plain realm
// operations and rely on the call witness recognizing them. It only
// functions in a realm built with sanctum.WithCallWitness.
type Passbook struct {
	sanctum.Vault
	realm *sanctum.Realm
	Owner string
}

// InstallPassbook registers Passbook in realm. The grant is discarded on
// purpose; trust comes from call-stack provenance alone.
func InstallPassbook(realm *sanctum.Realm) error {
	_, err := sanctum.Register[Passbook](realm, sanctum.Declaration{
		Names:    []string{"stamps"},
		Defaults: map[string]any{"stamps": 0},
	})
	return err
}

// NewPassbook creates a passbook in realm.
func NewPassbook(realm *sanctum.Realm, owner string) *Passbook {
	return &Passbook{realm: realm, Owner: owner}
}

// Stamp increments the private stamp count.
func (p *Passbook) Stamp() error {
	cur, err := p.realm.Get(p, "stamps")
	if err != nil {
		return err
	}
	return p.realm.Set(p, "stamps", cur.(int)+1)
}

// Stamps reads the private stamp count.
func (p *Passbook) Stamps() (int, error) {
	val, err := p.realm.Get(p, "stamps")
	if err != nil {
		return 0, err
	}
	return val.(int), nil
}

// Reset clears the stamp count back to the type default through a
// closure, which the witness still recognizes as this type's code.
func (p *Passbook) Reset() error {
	wipe := func() error {
		return p.realm.Delete(p, "stamps")
	}
	return wipe()
}
