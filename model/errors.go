package model

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	// ErrNotFound: the resource is absent or the upstream response was malformed.
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrTransientIO: network failure or timeout. Reported as not found to users.
	ErrTransientIO ErrorCode = "TRANSIENT_IO"
	// ErrValidation: user input rejected before any I/O.
	ErrValidation ErrorCode = "VALIDATION"
	// ErrCodec: binary fetch or decode failure in the disassembler.
	ErrCodec    ErrorCode = "CODEC"
	ErrInternal ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
// Cause keeps the underlying failure for logs; it is not serialized.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// Wrap attaches cause to a new coded error.
func Wrap(code ErrorCode, message string, cause error) *CodedError {
	return &CodedError{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first CodedError in err's chain, or
// ErrInternal for uncoded errors. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrInternal
}

// IsNotFound is the collapsed external contract: both absent resources and
// transient I/O failures are presented as "not found".
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case ErrNotFound, ErrTransientIO:
		return true
	default:
		return false
	}
}

func IsValidation(err error) bool { return CodeOf(err) == ErrValidation }

func IsCodec(err error) bool { return CodeOf(err) == ErrCodec }
