package sanctum

import "time"

// Operation names carried on audit events.
const (
	OpRegister   = "register"
	OpUnregister = "unregister"
	OpRelease    = "release"
	OpGet        = "get"
	OpSet        = "set"
	OpDelete     = "delete"
	OpTypeGet    = "type_get"
	OpTypeSet    = "type_set"
	OpTypeDelete = "type_delete"
)

// Decision outcomes carried on audit events.
const (
	DecisionGranted  = "granted"
	DecisionDenied   = "denied"
	DecisionNotFound = "not_found"
)

// Trust paths carried on audit events.
const (
	ViaGrant   = "grant"
	ViaWitness = "witness"
)

// AccessEvent describes one guarded operation. Events carry identities,
// names, and decisions, never attribute values.
type AccessEvent struct {
	// Seq is the realm-wide sequence number, strictly increasing per
	// realm.
	Seq int64

	// Time is when the realm observed the operation.
	Time time.Time

	// Op is one of the Op constants.
	Op string

	// Type is the guarded type reference, "importpath.TypeName".
	Type string

	// Attr is the attribute name, empty for lifecycle events.
	Attr string

	// Object is the holder identity for instance operations.
	Object string

	// Key is the derived storage key token. Empty when the operation was
	// refused before any key derivation.
	Key string

	// Decision is one of the Decision constants.
	Decision string

	// Via is the trust path for granted operations.
	Via string

	// Unit is the approving executable unit when the call witness
	// decided.
	Unit string
}

// Auditor receives one event per guarded operation. Implementations must
// be safe for concurrent use. Record errors are logged by the realm, not
// returned to callers.
type Auditor interface {
	Record(ev AccessEvent) error
}
