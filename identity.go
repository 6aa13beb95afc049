package sanctum

import "github.com/google/uuid"

// IdentityGenerator mints identities for bound holders. Implementations
// must be safe for concurrent use.
type IdentityGenerator interface {
	NewIdentity() string
}

// UUIDIdentities returns the default generator. It produces UUIDv7
// values, so identities sort by mint order in the audit trail.
func UUIDIdentities() IdentityGenerator {
	return uuidIdentities{}
}

type uuidIdentities struct{}

func (uuidIdentities) NewIdentity() string {
	return uuid.Must(uuid.NewV7()).String()
}
