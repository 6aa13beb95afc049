// Package audit provides SQLite-backed durable storage for realm access
// logs.
//
// Every recorded event is linked to its predecessor through a hash
// chain: each row stores the previous row's hash alongside its own,
// computed over the RFC 8785 canonical JSON form of the event with
// domain separation. Editing, dropping, or reordering a stored row
// breaks every later link, which Verify detects.
//
// # Ordering
//
// Chain position is arrival order (the pos column). Realm sequence
// numbers are payload: queries order by seq ASC, pos ASC so results
// are deterministic even when concurrent operations reach the log out
// of order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Events carry identities, names, and decisions, never attribute
// values. Hashes are computed via internal/canonical using SHA-256
// with domain separation.
package audit
