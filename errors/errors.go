// Package errors provides the unified error type for vendor adapters and the
// pipeline. Every failure that crosses an adapter boundary is an *AppError
// with a taxonomy code, so the orchestrator can decide retry and surface a
// tagged failure reason without inspecting vendor specifics.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context (vendor, stage, raw body excerpt).
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithVendor tags the error with the vendor id that produced it.
func (e *AppError) WithVendor(vendor string) *AppError {
	return e.WithDetail("vendor", vendor)
}

// WithStage tags the error with the pipeline stage it occurred in.
func (e *AppError) WithStage(stage string) *AppError {
	return e.WithDetail("stage", stage)
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Taxonomy constructors ---

// AuthFailed creates an error for rejected or incomplete credentials.
// Never retried.
func AuthFailed(vendor, reason string) *AppError {
	if reason == "" {
		reason = "vendor rejected the supplied credentials"
	}
	return &AppError{
		Code: ErrCodeAuthFailed, Message: reason,
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
		Details: map[string]any{"vendor": vendor},
	}
}

// MissingCredential creates an error for a required credential field that was
// not supplied. Signing fails closed on this before any request is built.
func MissingCredential(vendor, field string) *AppError {
	return &AppError{
		Code: ErrCodeAuthFailed, Message: fmt.Sprintf("missing required credential field %q", field),
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
		Details: map[string]any{"vendor": vendor, "field": field},
	}
}

// QuotaExceeded creates an error for a throttled vendor call. Retried with backoff.
func QuotaExceeded(vendor string) *AppError {
	return &AppError{
		Code: ErrCodeQuotaExceeded, Message: "vendor quota or rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
		Details: map[string]any{"vendor": vendor},
	}
}

// NetworkTransient creates an error for a connection failure or vendor 5xx.
func NetworkTransient(vendor string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeNetworkTransient, Message: "transient network or vendor failure",
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"vendor": vendor}, Cause: cause,
	}
}

// UnsupportedFormat creates a fatal error for media the vendor cannot process.
func UnsupportedFormat(vendor, detail string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("unsupported media format: %s", detail),
		HTTPStatus: http.StatusUnsupportedMediaType, Retryable: false,
		Details: map[string]any{"vendor": vendor},
	}
}

// VendorProtocol creates a fatal error for an unexpected vendor response
// shape. The raw body excerpt is attached for the audit log.
func VendorProtocol(vendor string, body []byte) *AppError {
	excerpt := string(body)
	if len(excerpt) > 512 {
		excerpt = excerpt[:512]
	}
	return &AppError{
		Code: ErrCodeVendorProtocol, Message: "unexpected vendor response shape",
		HTTPStatus: http.StatusBadGateway, Retryable: false,
		Details: map[string]any{"vendor": vendor, "raw": excerpt},
	}
}

// Timeout creates a terminal error for an exhausted call or poll deadline.
func Timeout(vendor, operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: false,
		Details: map[string]any{"vendor": vendor, "operation": operation},
	}
}

// CacheCorrupt creates a non-fatal error for an unparsable persisted record.
// Lookup skips the record and logs; the request falls through to execution.
func CacheCorrupt(taskID string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCacheCorrupt, Message: "persisted task record is unparsable",
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"task_id": taskID}, Cause: cause,
	}
}

// InvalidInput creates an error for invalid caller input.
func InvalidInput(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: reason,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// NotFound creates an error for a missing resource.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("the requested %s was not found", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"resource": resource, "id": id},
	}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// --- Inspection helpers ---

// AsAppError extracts an *AppError from an error chain. Unclassified errors
// are wrapped as internal.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// CodeOf returns the taxonomy code of an error, or ErrCodeInternal for
// unclassified errors.
func CodeOf(err error) ErrorCode {
	return AsAppError(err).Code
}

// IsRetryable reports whether the error may be retried by an adapter.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// Is reports whether the error chain contains an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
