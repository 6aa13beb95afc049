package sanctum

import (
	"errors"
	"fmt"
)

// Code classifies guard failures.
type Code string

const (
	// CodeConfiguration marks malformed declarations and registration
	// misuse: reserved or duplicate names, re-registering a live type,
	// operating on an unregistered type, opening a grant on the wrong
	// holder.
	CodeConfiguration Code = "CONFIGURATION"

	// CodeNotFound marks a read that did not resolve. Reads of a private
	// name by an untrusted caller report this same code, so an absent
	// attribute and a denied one are indistinguishable from outside.
	CodeNotFound Code = "ATTR_NOT_FOUND"

	// CodeForbidden marks a write or delete denied by the guard.
	CodeForbidden Code = "FORBIDDEN"

	// CodeUnsupported marks operations the guard refuses outright, such
	// as serializing a holder's private state.
	CodeUnsupported Code = "UNSUPPORTED_OPERATION"
)

// Error is the guard's error type. Type and Attr carry the involved type
// name and attribute when one applies.
type Error struct {
	Code    Code
	Message string
	Type    string
	Attr    string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code Code, typeName, attr, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Type:    typeName,
		Attr:    attr,
	}
}

func errNotFound(typeName, attr string) *Error {
	return newError(CodeNotFound, typeName, attr,
		"'%s' object has no attribute '%s'", typeName, attr)
}

func errClassNotFound(typeName, attr string) *Error {
	return newError(CodeNotFound, typeName, attr,
		"'%s' class has no attribute '%s'", typeName, attr)
}

func errSetDenied(typeName, attr string) *Error {
	return newError(CodeForbidden, typeName, attr,
		"cannot set private attribute '%s' to '%s' object", attr, typeName)
}

func errDeleteDenied(typeName, attr string) *Error {
	return newError(CodeForbidden, typeName, attr,
		"cannot delete private attribute '%s' on '%s' object", attr, typeName)
}

func errClassSetDenied(typeName, attr string) *Error {
	return newError(CodeForbidden, typeName, attr,
		"cannot set private attribute '%s' to class '%s'", attr, typeName)
}

func errClassDeleteDenied(typeName, attr string) *Error {
	return newError(CodeForbidden, typeName, attr,
		"cannot delete private attribute '%s' on class '%s'", attr, typeName)
}

func errProtectedSet(typeName, attr string) *Error {
	return newError(CodeForbidden, typeName, attr,
		"cannot set '%s' attribute on class '%s'", attr, typeName)
}

func errProtectedDelete(typeName, attr string) *Error {
	return newError(CodeForbidden, typeName, attr,
		"cannot delete '%s' attribute on class '%s'", attr, typeName)
}

func errSerialize(typeName string) *Error {
	return newError(CodeUnsupported, typeName, "",
		"cannot serialize '%s' values", typeName)
}

func errDeserialize(typeName string) *Error {
	return newError(CodeUnsupported, typeName, "",
		"cannot deserialize '%s' values", typeName)
}

func errDuplicateType(ref TypeRef) *Error {
	return newError(CodeConfiguration, ref.Name(), "",
		"type '%s' is already registered in this realm", ref)
}

func errNotRegistered(ref TypeRef) *Error {
	return newError(CodeConfiguration, ref.Name(), "",
		"type '%s' is not registered in this realm", ref)
}

func errConfig(typeName, attr, format string, args ...any) *Error {
	return newError(CodeConfiguration, typeName, attr, format, args...)
}

// IsNotFound reports whether err is a guard error with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsForbidden reports whether err is a guard error with CodeForbidden.
func IsForbidden(err error) bool {
	return hasCode(err, CodeForbidden)
}

// IsConfiguration reports whether err is a guard error with
// CodeConfiguration.
func IsConfiguration(err error) bool {
	return hasCode(err, CodeConfiguration)
}

// IsUnsupported reports whether err is a guard error with CodeUnsupported.
func IsUnsupported(err error) bool {
	return hasCode(err, CodeUnsupported)
}

func hasCode(err error, code Code) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Code == code
}
