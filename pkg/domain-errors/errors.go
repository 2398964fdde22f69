// Package domainerrors provides coded errors for the service boundary.
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into coded errors here so handlers can map codes to HTTP statuses
// without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure for callers. Codes are stable; messages are not.
type Code string

const (
	// CodeNotFound: the referenced parcel/request/proof/transfer/certificate is absent.
	CodeNotFound Code = "not_found"
	// CodeConflict: duplicate landId, documentHash, proofHash, or certificate.
	CodeConflict Code = "conflict"
	// CodeUnauthorized: missing role or not the authorized party for this action.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvalidState: operation attempted from a state that does not permit it.
	CodeInvalidState Code = "invalid_state"
	// CodeBadRequest: invalid argument (zero price, zero buyer, empty metadata, ...).
	CodeBadRequest Code = "bad_request"
	// CodeInternal: unexpected failure; safe to surface, not safe to retry blindly.
	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code, or CodeInternal when err is uncoded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
