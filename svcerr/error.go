package svcerr

import (
	"errors"
	"fmt"
	"time"
)

// FieldError is one entry in a validation error's field-level list.
type FieldError struct {
	Field   string
	Message string
	Code    string
}

// ServiceError is the sum type of every terminal failure this module
// produces. It always carries exactly one Kind, the Category that Kind maps
// to, a deterministic retryability verdict, a suggested retry delay, and the
// ErrorContext describing the call that failed.
type ServiceError struct {
	kind          Kind
	category      Category
	retryable     bool
	suggestedWait time.Duration
	context       ErrorContext
	message       string
	cause         error

	// FieldErrors is populated for KindUnprocessable; nil otherwise.
	FieldErrors []FieldError

	// SoapFaultCode is populated for KindSoapFault; empty otherwise.
	SoapFaultCode string
}

// New constructs a ServiceError of the given kind, looking up its category,
// retryability, and default suggested delay from the kind profile table.
// message should be a short, human-readable description (the enriched form
// is produced by Error()).
func New(kind Kind, message string, context ErrorContext, cause error) *ServiceError {
	p, ok := profiles[kind]
	if !ok {
		p = profiles[KindUnknown]
	}
	return &ServiceError{
		kind:          kind,
		category:      p.category,
		retryable:     p.retryable,
		suggestedWait: p.suggestedWait,
		context:       context,
		message:       message,
		cause:         cause,
	}
}

// NewSoapFault constructs a SoapFault ServiceError; the category is client
// unless isServerFault is set, mirroring the SOAP fault code's client/server
// split.
func NewSoapFault(faultCode, message string, isServerFault bool, context ErrorContext, cause error) *ServiceError {
	e := New(KindSoapFault, message, context, cause)
	e.SoapFaultCode = faultCode
	if isServerFault {
		e.category = CategoryServer
	}
	return e
}

// WithSuggestedDelay overrides the suggested retry delay (used when a
// Retry-After header or RESOURCE_EXHAUSTED detail supplies one).
func (e *ServiceError) WithSuggestedDelay(d time.Duration) *ServiceError {
	e.suggestedWait = d
	return e
}

// WithFieldErrors attaches a field-level validation error list (KindUnprocessable).
func (e *ServiceError) WithFieldErrors(fe []FieldError) *ServiceError {
	e.FieldErrors = fe
	return e
}

// Kind returns the error variant.
func (e *ServiceError) Kind() Kind { return e.kind }

// Category returns the coarse observability class.
func (e *ServiceError) Category() Category { return e.category }

// Retryable reports the deterministic retryability verdict for this error.
// The retry policy consults only this and SuggestedDelay.
func (e *ServiceError) Retryable() bool { return e.retryable }

// SuggestedDelay returns the delay the retry policy should wait before the
// next attempt, honouring a wire-supplied Retry-After if one was attached.
func (e *ServiceError) SuggestedDelay() time.Duration { return e.suggestedWait }

// Context returns the attached ErrorContext.
func (e *ServiceError) Context() ErrorContext { return e.context }

// WithContext returns a copy of e with a new ErrorContext (used by the retry
// policy to stamp RetryAttempt onto a reused error's context without
// mutating the original value, keeping ServiceError instances immutable
// after construction).
func (e *ServiceError) WithContext(ctx ErrorContext) *ServiceError {
	cp := *e
	cp.context = ctx
	return &cp
}

// Unwrap exposes the originating cause for errors.Is/errors.As chains.
func (e *ServiceError) Unwrap() error { return e.cause }

// Error renders an enriched message: service, endpoint, status, request id,
// elapsed time, and retry attempt, in that order.
func (e *ServiceError) Error() string {
	msg := e.message
	if msg == "" {
		msg = e.kind.String()
	}

	s := fmt.Sprintf("%s: %s [service=%s endpoint=%s", e.kind, msg, e.context.Service, e.context.Endpoint)

	if e.context.HTTPStatus > 0 {
		s += fmt.Sprintf(" status=%d", e.context.HTTPStatus)
	} else if e.context.GRPCStatus != "" {
		s += fmt.Sprintf(" status=%s", e.context.GRPCStatus)
	}

	if e.context.RequestID != "" {
		s += fmt.Sprintf(" request_id=%s", e.context.RequestID)
	}

	s += fmt.Sprintf(" elapsed=%s", e.context.Elapsed)

	if e.context.RetryAttempt > 0 {
		s += fmt.Sprintf(" attempt=%d", e.context.RetryAttempt)
	}

	s += "]"
	return s
}

// As reports whether err is (or wraps) a *ServiceError, following the
// errors.As protocol. Convenience wrapper so callers don't need to declare
// the target variable inline at every call site.
func As(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsRetryable reports whether err is a retryable ServiceError. Non-ServiceError
// errors are treated as non-retryable (unmapped failures are conservative by
// default).
func IsRetryable(err error) bool {
	se, ok := As(err)
	return ok && se.Retryable()
}
