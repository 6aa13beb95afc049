// Package contract compiles and validates guard contracts.
//
// A guard contract is the CUE form of a private-attribute declaration:
// the attribute names a guarded type owns, their defaults, and an
// optional base guard. Contracts let declarations live next to the
// rest of a project's CUE configuration and be checked by tooling
// before any Go type registers.
package contract

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Contract describes one guarded type.
type Contract struct {
	// Name is the guard label in the CUE file.
	Name string `json:"name"`

	// TypeRef is the Go type the guard binds to, "importpath.TypeName".
	// Optional for a guard nothing extends.
	TypeRef string `json:"type,omitempty"`

	// Attrs are the private attribute names in declaration order.
	Attrs []string `json:"attrs"`

	// Defaults maps a subset of Attrs to their default values.
	Defaults map[string]any `json:"defaults,omitempty"`

	// Extends names the base guard in the same set, if any.
	Extends string `json:"extends,omitempty"`
}

// CompileContract parses a CUE value into a Contract.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the guard struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`guard: Account: { ... }`)
//	c, err := CompileContract(v.LookupPath(cue.ParsePath("guard.Account")))
func CompileContract(v cue.Value) (*Contract, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &Contract{}

	// Parse guard name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		c.Name = labels[len(labels)-1].String()
	}

	// Parse attrs (required)
	attrsVal := v.LookupPath(cue.ParsePath("attrs"))
	if !attrsVal.Exists() {
		return nil, &CompileError{
			Field:   "attrs",
			Message: "attrs is required",
			Pos:     v.Pos(),
		}
	}
	attrIter, err := attrsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for attrIter.Next() {
		attr, err := attrIter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c.Attrs = append(c.Attrs, attr)
	}

	// Parse type (optional)
	typeVal := v.LookupPath(cue.ParsePath("type"))
	if typeVal.Exists() {
		typeRef, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c.TypeRef = typeRef
	}

	// Parse defaults (optional)
	defaultsVal := v.LookupPath(cue.ParsePath("defaults"))
	if defaultsVal.Exists() {
		defIter, err := defaultsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c.Defaults = make(map[string]any)
		for defIter.Next() {
			val, err := decodeValue(defIter.Value())
			if err != nil {
				return nil, err
			}
			c.Defaults[defIter.Label()] = val
		}
	}

	// Parse extends (optional)
	extendsVal := v.LookupPath(cue.ParsePath("extends"))
	if extendsVal.Exists() {
		extends, err := extendsVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c.Extends = extends
	}

	return c, nil
}

// decodeValue converts a concrete CUE value to its Go form.
// Floats are forbidden: default values feed golden traces, which
// serialize canonically and have no float encoding.
func decodeValue(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		return v.Int64()
	case cue.BoolKind:
		return v.Bool()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := []any{}
		for iter.Next() {
			elem, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := map[string]any{}
		for iter.Next() {
			elem, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "defaults",
			Message: "float defaults are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	case cue.NullKind:
		return nil, &CompileError{
			Field:   "defaults",
			Message: "null defaults are forbidden",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "defaults",
			Message: fmt.Sprintf("unsupported default kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
