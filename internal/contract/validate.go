package contract

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/sanctum"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedInput = "E100" // unsupported input type for validation

	// Contract errors (E101-E109)
	ErrNoAttrs        = "E101" // at least one attribute required
	ErrEmptyAttr      = "E102" // empty attribute name
	ErrReservedAttr   = "E103" // reserved attribute name
	ErrDuplicateAttr  = "E104" // duplicate attribute name
	ErrOrphanDefault  = "E105" // default for undeclared attribute
	ErrFloatDefault   = "E106" // float defaults not allowed
	ErrInvalidTypeRef = "E107" // malformed Go type reference

	// Cross-contract errors (E110-E119)
	ErrUnknownExtends = "E110" // extends references unknown guard
	ErrExtendsCycle   = "E111" // extends chain forms a cycle
	ErrMissingTypeRef = "E112" // extended guard declares no type
)

// ValidationError represents a contract validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled contracts against schema rules.
// Returns all errors found (does not fail-fast).
// Supports Contract and Set types.
func Validate(v any) []ValidationError {
	switch c := v.(type) {
	case *Contract:
		return validateContract(c)
	case Contract:
		return validateContract(&c)
	case *Set:
		return validateSet(c)
	case Set:
		return validateSet(&c)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported input type: %T", v),
			Code:    ErrUnsupportedInput,
		}}
	}
}

// validateContract validates a single guard contract.
func validateContract(c *Contract) []ValidationError {
	var errs []ValidationError

	// E101: at least one attribute required
	if len(c.Attrs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "attrs",
			Message: "at least one attribute is required",
			Code:    ErrNoAttrs,
		})
	}

	// Track names for duplicate detection
	seen := make(map[string]bool)

	for i, attr := range c.Attrs {
		// E102: empty attribute name
		if strings.TrimSpace(attr) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("attrs[%d]", i),
				Message: "attribute name must be non-empty",
				Code:    ErrEmptyAttr,
			})
			continue
		}

		// E103: reserved attribute name
		if sanctum.IsReservedName(attr) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("attrs[%d]", i),
				Message: fmt.Sprintf("attribute name %q is reserved", attr),
				Code:    ErrReservedAttr,
			})
		}

		// E104: duplicate attribute name
		if seen[attr] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("attrs[%d]", i),
				Message: fmt.Sprintf("duplicate attribute name: %q", attr),
				Code:    ErrDuplicateAttr,
			})
		}
		seen[attr] = true
	}

	for name, val := range c.Defaults {
		// E105: default for undeclared attribute
		if !seen[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("defaults.%s", name),
				Message: fmt.Sprintf("default for undeclared attribute %q", name),
				Code:    ErrOrphanDefault,
			})
		}

		// E106: float forbidden (explicit check even though compilation
		// rejects them, for contracts built in Go)
		switch val.(type) {
		case float32, float64:
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("defaults.%s", name),
				Message: fmt.Sprintf("float default forbidden for attribute %q, use int instead", name),
				Code:    ErrFloatDefault,
			})
		}
	}

	// E107: malformed type reference
	if c.TypeRef != "" && !typeRefPattern.MatchString(c.TypeRef) {
		errs = append(errs, ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("invalid type reference %q, expected format \"importpath.TypeName\"", c.TypeRef),
			Code:    ErrInvalidTypeRef,
		})
	}

	return errs
}

// validateSet validates every guard plus the relations between them.
func validateSet(s *Set) []ValidationError {
	var errs []ValidationError

	for _, name := range s.order {
		for _, e := range validateContract(s.contracts[name]) {
			e.Field = fmt.Sprintf("guard.%s.%s", name, e.Field)
			errs = append(errs, e)
		}
	}

	// E110, E112: extends must resolve to a guard with a type reference
	for _, name := range s.order {
		c := s.contracts[name]
		if c.Extends == "" {
			continue
		}
		base, ok := s.contracts[c.Extends]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("guard.%s.extends", name),
				Message: fmt.Sprintf("extends unknown guard %q", c.Extends),
				Code:    ErrUnknownExtends,
			})
			continue
		}
		if base.TypeRef == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("guard.%s.extends", name),
				Message: fmt.Sprintf("extended guard %q declares no type reference", c.Extends),
				Code:    ErrMissingTypeRef,
			})
		}
	}

	errs = append(errs, detectExtendsCycles(s)...)

	return errs
}

// detectExtendsCycles walks the extends chain from each guard and
// reports each cycle once. Unknown extends targets end the walk; they
// are reported separately as E110.
func detectExtendsCycles(s *Set) []ValidationError {
	var errs []ValidationError
	inCycle := make(map[string]bool)

	for _, start := range s.order {
		if inCycle[start] {
			continue
		}

		var path []string
		onPath := make(map[string]int)
		cur := start
		for cur != "" && !inCycle[cur] {
			if at, seen := onPath[cur]; seen {
				cycle := append(slices.Clone(path[at:]), cur)
				for _, member := range cycle {
					inCycle[member] = true
				}
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("guard.%s.extends", cur),
					Message: fmt.Sprintf("extends chain forms a cycle: %s", strings.Join(cycle, " -> ")),
					Code:    ErrExtendsCycle,
				})
				break
			}
			onPath[cur] = len(path)
			path = append(path, cur)

			next, ok := s.contracts[cur]
			if !ok {
				break
			}
			cur = next.Extends
		}
	}

	return errs
}

// typeRefPattern matches "importpath.TypeName" format.
// The final dot-separated segment must be a Go identifier.
var typeRefPattern = regexp.MustCompile(`^\S+\.[A-Za-z_][A-Za-z0-9_]*$`)
