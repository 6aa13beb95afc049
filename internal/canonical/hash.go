package canonical

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for hashed identities. The version suffix allows the
// underlying algorithm to change without colliding with old hashes.
const (
	DomainStorageKey = "sanctum/storage-key/v1"
	DomainAttrName   = "sanctum/attr-name/v1"
	DomainAuditEvent = "sanctum/audit-event/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data), hex encoded.
// The null byte prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DigestWithDomain is HashWithDomain returning the raw 32-byte digest,
// for callers that derive further material from it.
func DigestWithDomain(domain string, data []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
