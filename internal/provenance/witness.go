package provenance

import (
	"regexp"
	"runtime"
	"strings"
)

// DefaultMaxDepth bounds how many call frames the witness will examine.
const DefaultMaxDepth = 32

// Decision is the outcome of a witness check.
type Decision struct {
	Trusted bool

	// Unit is the qualified name of the approving unit when trusted.
	Unit string
}

// Witness decides, from the live call stack, whether the code that invoked
// the guard belongs to one of a set of admitted registrations.
//
// The decision procedure, evaluated frame by frame starting at the first
// frame outside the guard's own packages:
//
//  1. A unit whose entry PC is already memoized for an admitted ref is
//     trusted immediately.
//  2. A unit whose qualified name, after unwrapping method-value wrappers,
//     starts with an admitted entry's method prefix is promoted into that
//     entry's memo and trusted. The prefix embeds the import path, so this
//     also pins the caller to the type's own package.
//  3. An anonymous function is stepped over: it may be a closure nested in
//     a trusted unit further up the stack.
//  4. Any other named unit stops the walk untrusted. Module-level callers
//     (tests, init functions, main) fall out here.
//
// The walk is bounded by maxDepth frames.
type Witness struct {
	reg      *Registry
	maxDepth int
}

// NewWitness creates a witness over reg. A maxDepth of 0 or less selects
// DefaultMaxDepth.
func NewWitness(reg *Registry, maxDepth int) *Witness {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Witness{reg: reg, maxDepth: maxDepth}
}

// Approve runs the decision procedure for the given admitted refs. The
// refs are the accessing type's chain up to the name's declaring base; for
// an inherited name this validates the caller against the declaring base's
// trust set as well as the accessing type's own.
func (w *Witness) Approve(admitted []string) Decision {
	if len(admitted) == 0 {
		return Decision{}
	}

	pcs := make([]uintptr, w.maxDepth+guardFrameBudget)
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return Decision{}
	}

	frames := runtime.CallersFrames(pcs[:n])
	examined := 0
	for {
		frame, more := frames.Next()
		if frame.Function == "" {
			if !more {
				break
			}
			continue
		}
		if isGuardFrame(frame.Function) {
			if !more {
				break
			}
			continue
		}

		examined++
		if examined > w.maxDepth {
			break
		}

		unit := unwrapUnit(frame.Function)

		for _, ref := range admitted {
			if w.reg.Trusted(ref, frame.Entry) {
				return Decision{Trusted: true, Unit: unit}
			}
		}

		for _, ref := range admitted {
			entry, ok := w.reg.Lookup(ref)
			if !ok {
				continue
			}
			for _, prefix := range entry.Prefixes {
				if strings.HasPrefix(unit, prefix) {
					w.reg.Promote(ref, frame.Entry, unit)
					return Decision{Trusted: true, Unit: unit}
				}
			}
		}

		if !isAnonymous(unit) {
			return Decision{}
		}
		if !more {
			break
		}
	}
	return Decision{}
}

// guardFrameBudget covers the guard's own frames between the user's call
// and runtime.Callers, so maxDepth counts user frames only.
const guardFrameBudget = 8

var (
	guardPkgPath string
	rootPkgPath  string
)

func init() {
	pc, _, _, ok := runtime.Caller(0)
	if !ok {
		return
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}
	guardPkgPath = PackagePath(fn.Name())
	rootPkgPath = strings.TrimSuffix(guardPkgPath, "/internal/provenance")
}

// isGuardFrame reports whether the function belongs to the guard machinery
// itself (this package or the root package), which is skipped before the
// decision procedure starts.
func isGuardFrame(fn string) bool {
	if guardPkgPath == "" {
		return false
	}
	p := PackagePath(fn)
	return p == guardPkgPath || p == rootPkgPath
}

// PackagePath extracts the import path from a runtime function name such
// as "example.com/mod/pkg.(*Type).Method".
func PackagePath(fn string) string {
	slash := strings.LastIndexByte(fn, '/')
	dot := strings.IndexByte(fn[slash+1:], '.')
	if dot < 0 {
		return fn
	}
	return fn[:slash+1+dot]
}

// MethodPrefixes returns the qualified-name prefixes that match methods of
// the named type, for both pointer and value receivers.
func MethodPrefixes(pkgPath, typeName string) []string {
	return []string{
		pkgPath + ".(*" + typeName + ").",
		pkgPath + "." + typeName + ".",
	}
}

// unwrapUnit strips the "-fm" suffix the runtime appends to method-value
// wrappers, so a bound method resolves to its underlying method.
func unwrapUnit(fn string) string {
	return strings.TrimSuffix(fn, "-fm")
}

var anonymousSuffix = regexp.MustCompile(`\.func\d+(\.\d+)*$`)

// isAnonymous reports whether the unit is a function literal (the runtime
// names those with ".funcN" chains under their enclosing unit).
func isAnonymous(unit string) bool {
	return anonymousSuffix.MatchString(unit)
}
