package domain

import "fmt"

// Kind classifies an error per spec §7's disposition table. The Control
// Surface maps Kind to an HTTP status and places only Message in the JSON
// envelope; Cause is never placed there.
type Kind string

const (
	KindValidation           Kind = "validation_error"
	KindNotFound             Kind = "not_found"
	KindSourceTxMissing      Kind = "source_tx_missing"
	KindInsufficientFunds    Kind = "insufficient_funds"
	KindRpcError             Kind = "rpc_error"
	KindCannotPrime          Kind = "cannot_prime"
	KindInvalidRecoveryKey   Kind = "invalid_recovery_key"
	KindRecoveryNotAvailable Kind = "recovery_not_available"
	KindStatusConflict       Kind = "status_conflict"
)

// Error is the typed error every core operation returns when it fails in a
// way the Control Surface must translate into a specific HTTP status.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func ValidationErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}
