package sanctum

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{errNotFound("Account", "balance"), "'Account' object has no attribute 'balance'"},
		{errClassNotFound("Account", "balance"), "'Account' class has no attribute 'balance'"},
		{errSetDenied("Account", "balance"), "cannot set private attribute 'balance' to 'Account' object"},
		{errDeleteDenied("Account", "balance"), "cannot delete private attribute 'balance' on 'Account' object"},
		{errClassSetDenied("Account", "balance"), "cannot set private attribute 'balance' to class 'Account'"},
		{errClassDeleteDenied("Account", "balance"), "cannot delete private attribute 'balance' on class 'Account'"},
		{errProtectedSet("Account", "__class__"), "cannot set '__class__' attribute on class 'Account'"},
		{errProtectedDelete("Account", "__del__"), "cannot delete '__del__' attribute on class 'Account'"},
		{errSerialize("Account"), "cannot serialize 'Account' values"},
		{errDeserialize("Account"), "cannot deserialize 'Account' values"},
	}
	for _, tt := range tests {
		assert.EqualError(t, tt.err, tt.want)
	}
}

func TestErrorFields(t *testing.T) {
	err := errNotFound("Account", "balance")
	assert.Equal(t, CodeNotFound, err.Code)
	assert.Equal(t, "Account", err.Type)
	assert.Equal(t, "balance", err.Attr)
}

func TestErrorCodeHelpers(t *testing.T) {
	assert.True(t, IsNotFound(errNotFound("T", "a")))
	assert.True(t, IsForbidden(errSetDenied("T", "a")))
	assert.True(t, IsConfiguration(errDuplicateType("p.T")))
	assert.True(t, IsUnsupported(errSerialize("T")))

	assert.False(t, IsNotFound(errSetDenied("T", "a")))
	assert.False(t, IsForbidden(errNotFound("T", "a")))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(fmt.Errorf("plain")))
}

func TestErrorCodeHelpersUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("loading account: %w", errNotFound("Account", "balance"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsForbidden(wrapped))
}

func TestDuplicateTypeMessage(t *testing.T) {
	err := errDuplicateType("example.com/bank.Account")
	assert.EqualError(t, err, "type 'example.com/bank.Account' is already registered in this realm")
}
