package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure into one of the gateway's error families.
// The kind is what the REST layer maps to an HTTP status and what gets
// recorded on a failed transaction.
type ErrorKind string

const (
	KindUnauthorized        ErrorKind = "UNAUTHORIZED"
	KindUnknownApp          ErrorKind = "UNKNOWN_APP"
	KindInactive            ErrorKind = "INACTIVE"
	KindInvalidIdentifier   ErrorKind = "INVALID_IDENTIFIER"
	KindMalformedRequest    ErrorKind = "MALFORMED_REQUEST"
	KindProcedureError      ErrorKind = "PROCEDURE_ERROR"
	KindUpstreamUnavailable ErrorKind = "UPSTREAM_UNAVAILABLE"
	KindUpstreamRejected    ErrorKind = "UPSTREAM_REJECTED"
	KindNormalizationError  ErrorKind = "RESPONSE_NORMALIZATION_ERROR"
	KindConflictInProgress  ErrorKind = "CONFLICT_IN_PROGRESS"
	KindNotFound            ErrorKind = "NOT_FOUND"
)

// Error represents a business logic error
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind to the HTTP-like code surfaced to callers.
// The same mapping feeds the envelope's status field and the REST layer.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindUnauthorized, KindUnknownApp:
		return 401
	case KindInactive:
		return 403
	case KindInvalidIdentifier, KindMalformedRequest:
		return 400
	case KindNotFound:
		return 404
	case KindConflictInProgress:
		return 409
	case KindUpstreamUnavailable, KindUpstreamRejected:
		return 502
	default:
		return 500
	}
}

// KindOf extracts the error kind from err, or "" when err is not a
// domain error.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

func NewUnauthorizedError(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NewUnknownAppError(appID string) *Error {
	return &Error{
		Kind:    KindUnknownApp,
		Message: fmt.Sprintf("unknown App ID %s", appID),
	}
}

func NewInactiveClientError(appID string) *Error {
	return &Error{
		Kind:    KindInactive,
		Message: fmt.Sprintf("client %s is inactive", appID),
	}
}

// NewAccessDeniedError reports a missing or disabled client-service grant.
// It shares the Inactive kind because the grant, not the client, is what
// is switched off.
func NewAccessDeniedError(serviceName string) *Error {
	return &Error{
		Kind:    KindInactive,
		Message: fmt.Sprintf("Access denied to service %s", serviceName),
	}
}

// NewAppIDMismatchError reports a request whose f003 does not match the
// authenticated client's appId.
func NewAppIDMismatchError() *Error {
	return &Error{
		Kind:    KindMalformedRequest,
		Message: "App ID mismatch",
	}
}

func NewInvalidIdentifierError(component, value string) *Error {
	return &Error{
		Kind:    KindInvalidIdentifier,
		Message: fmt.Sprintf("invalid %s identifier %q", component, value),
	}
}

func NewMissingFieldError(field string) *Error {
	return &Error{
		Kind:    KindMalformedRequest,
		Message: fmt.Sprintf("Missing required field: %s", field),
	}
}

func NewInvalidFieldError(field string, err error) *Error {
	return &Error{
		Kind:    KindMalformedRequest,
		Message: fmt.Sprintf("Invalid value for field: %s", field),
		Err:     err,
	}
}

// NewProcedureError captures the backend-reported message verbatim so the
// transaction record stays auditable.
func NewProcedureError(name string, err error) *Error {
	return &Error{
		Kind:    KindProcedureError,
		Message: fmt.Sprintf("procedure %s failed", name),
		Err:     err,
	}
}

func NewUpstreamUnavailableError(err error) *Error {
	return &Error{
		Kind:    KindUpstreamUnavailable,
		Message: "microservice unreachable",
		Err:     err,
	}
}

func NewUpstreamRejectedError(err *UpstreamError) *Error {
	return &Error{
		Kind:    KindUpstreamRejected,
		Message: fmt.Sprintf("microservice rejected the request with status %d", err.StatusCode),
		Err:     err,
	}
}

func NewNormalizationError(name string, err error) *Error {
	return &Error{
		Kind:    KindNormalizationError,
		Message: fmt.Sprintf("response procedure %s failed", name),
		Err:     err,
	}
}

func NewConflictError(uniqueID string) *Error {
	return &Error{
		Kind:    KindConflictInProgress,
		Message: fmt.Sprintf("transaction %s is already in progress", uniqueID),
	}
}

func NewInvalidTransitionError(from, to TransactionStatus) *Error {
	return &Error{
		Kind:    KindConflictInProgress,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewTransactionNotFoundError(uniqueID string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("transaction %s not found", uniqueID),
	}
}

func NewServiceNotFoundError(name string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Service %s not found or inactive", name),
	}
}

func NewBindingNotFoundError(serviceName, route string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("no active binding for service %s route %s", serviceName, route),
	}
}

// UpstreamError preserves the status code and raw body of a non-success
// microservice response.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, string(e.Body))
}

func IsUpstreamError(err error) (*UpstreamError, bool) {
	var upErr *UpstreamError
	ok := errors.As(err, &upErr)
	return upErr, ok
}
