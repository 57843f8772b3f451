package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Vendor call failures.
const (
	// ErrCodeAuthFailed indicates rejected or missing vendor credentials.
	ErrCodeAuthFailed ErrorCode = "AUTH_FAILED"
	// ErrCodeQuotaExceeded indicates the vendor throttled or rate-limited the call.
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
	// ErrCodeNetworkTransient indicates a connection failure or vendor-side 5xx.
	ErrCodeNetworkTransient ErrorCode = "NETWORK_TRANSIENT"
	// ErrCodeUnsupportedFormat indicates the vendor rejected the media format.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeVendorProtocol indicates an unexpected vendor response shape.
	ErrCodeVendorProtocol ErrorCode = "VENDOR_PROTOCOL"
	// ErrCodeTimeout indicates a per-call or poll-deadline timeout.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Local failures.
const (
	// ErrCodeCacheCorrupt indicates an unparsable persisted task record.
	ErrCodeCacheCorrupt ErrorCode = "CACHE_CORRUPT"
	// ErrCodeInvalidInput indicates invalid caller input.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates a missing resource.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// retryableCodes are the codes adapters may retry per their bounded policy.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeQuotaExceeded:    true,
	ErrCodeNetworkTransient: true,
}

// IsRetryableCode reports whether an error code is safe to retry.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
