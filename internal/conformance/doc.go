// Package conformance runs scenario files against the guarded account
// fixtures and compares the resulting audit trail to golden files.
//
// A scenario is a YAML file describing a sequence of banking steps:
// opening accounts, moving money through their methods, and probing
// private attributes from outside the owning package. Each step can
// carry an expect clause naming the value or error code it must
// produce. The runner executes the steps against a fresh realm built
// with a frozen clock and sequential identities, so the audit events a
// run emits are byte-for-byte reproducible.
//
// Golden files hold the canonical JSON snapshot of a run: the step
// outcomes and the full access log. Storage keys are capabilities and
// never appear in fixtures; the snapshot records only whether a key was
// derived. Regenerate with:
//
//	go test ./internal/conformance -update
package conformance
