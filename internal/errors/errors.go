package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Tabsort error code.
type ErrorCode string

const (
	ErrPrecondition   ErrorCode = "PRECONDITION"    // 400
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrConfiguration  ErrorCode = "CONFIGURATION"   // 422
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrHostOperation  ErrorCode = "HOST_OPERATION"  // 502
	ErrPersistence    ErrorCode = "PERSISTENCE"     // 503
)

// Domains name the engine component an error originated in.
const (
	DomainCategory = "category"
	DomainColor    = "color"
	DomainState    = "state"
	DomainGrouping = "grouping"
	DomainCleanup  = "cleanup"
	DomainStats    = "stats"
	DomainHost     = "host"
	DomainStore    = "store"
)

// TabsortError represents a structured error with code, status, and details.
// Cause keeps the underlying host or store error reachable through errors.As.
type TabsortError struct {
	Code    ErrorCode
	Status  int
	Domain  string
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *TabsortError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TabsortError) Unwrap() error {
	return e.Cause
}

// WithDomain sets the originating domain and returns the error for chaining.
func (e *TabsortError) WithDomain(domain string) *TabsortError {
	e.Domain = domain
	return e
}

// NewPrecondition creates a 400 error for missing request prerequisites
// (tab id, window id, uninitialized components). Not retryable.
func NewPrecondition(msg string) *TabsortError {
	return &TabsortError{
		Code:    ErrPrecondition,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TabsortError {
	return &TabsortError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing tab or group.
func NewNotFound(kind string, id int) *TabsortError {
	return &TabsortError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %d", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewConfiguration creates a 422 error for settings that make an operation impossible.
func NewConfiguration(msg string) *TabsortError {
	return &TabsortError{
		Code:    ErrConfiguration,
		Status:  422,
		Message: msg,
	}
}

// NewHostOperation wraps a rejected host tab/group call.
func NewHostOperation(op string, cause error) *TabsortError {
	return &TabsortError{
		Code:    ErrHostOperation,
		Status:  502,
		Domain:  DomainHost,
		Message: fmt.Sprintf("host %s failed", op),
		Details: map[string]any{"operation": op},
		Cause:   cause,
	}
}

// NewPersistence wraps a failed store read or write.
func NewPersistence(op string, cause error) *TabsortError {
	return &TabsortError{
		Code:    ErrPersistence,
		Status:  503,
		Domain:  DomainStore,
		Message: fmt.Sprintf("store %s failed", op),
		Details: map[string]any{"operation": op},
		Cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TabsortError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TabsortError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Wrap returns err as a TabsortError. Envelopes pass through with the domain filled
// in when missing; anything else becomes an INTERNAL error carrying err as cause.
func Wrap(domain string, err error) *TabsortError {
	if err == nil {
		return nil
	}
	var tErr *TabsortError
	if stderrors.As(err, &tErr) {
		if tErr.Domain == "" {
			tErr.Domain = domain
		}
		return tErr
	}
	return &TabsortError{
		Code:    ErrInternal,
		Status:  500,
		Domain:  domain,
		Message: "internal error",
		Cause:   err,
	}
}

// Is checks if an error is a TabsortError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TabsortError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}

// As is errors.As, re-exported so callers importing this package need not alias the stdlib.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
