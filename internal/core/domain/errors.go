// Package domain defines the core error model for respkv.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a failure with a structured error code.
//
// Codes follow the format KV-<CATEGORY>-<NNNN>. They are used for logs and
// metrics only; the wire reply for every DomainError is the same generic error.
type DomainError struct {
	Code    string // Error code (e.g., "KV-CMD-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Category returns the category segment of the error code ("PROTO", "CMD",
// "VAL"), or "" for errors that are not DomainErrors.
func Category(err error) string {
	parts := strings.Split(GetErrorCode(err), "-")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// ============================================================================
// Protocol Errors (PROTO)
// ============================================================================

var (
	// ErrProtocol indicates malformed wire input (bad length fields, missing CRLF, truncated array).
	ErrProtocol = NewDomainError("KV-PROTO-4000", "protocol error")

	// ErrLimitExceeded indicates a declared array or bulk length above the protocol limits.
	ErrLimitExceeded = NewDomainError("KV-PROTO-4130", "protocol limit exceeded")
)

// ============================================================================
// Command Errors (CMD)
// ============================================================================

var (
	// ErrWrongArgs indicates a request with too few (or an unusable number of) arguments.
	ErrWrongArgs = NewDomainError("KV-CMD-4000", "wrong number of arguments")

	// ErrUnknownCommand indicates an unrecognized command name.
	ErrUnknownCommand = NewDomainError("KV-CMD-4040", "unknown command")

	// ErrRateLimited indicates the client exceeded its request rate.
	ErrRateLimited = NewDomainError("KV-CMD-4290", "too many requests")
)

// ============================================================================
// Value Errors (VAL)
// ============================================================================

var (
	// ErrInvalidTTL indicates a SET expiry that is not a valid non-negative integer.
	ErrInvalidTTL = NewDomainError("KV-VAL-4000", "invalid expire time")
)
