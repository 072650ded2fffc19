package errors

// ErrorCode identifies the kind of failure an operation hit.
// Codes are strings so they read well in logs and serialize naturally.
type ErrorCode string

const (
	// CodeNotFound indicates the location holds no object. Callers may recover
	// from it, for example by creating the file.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeCodec indicates stored bytes could not be decoded for the declared
	// format, or a payload has a shape the format cannot represent.
	CodeCodec ErrorCode = "CODEC_ERROR"

	// CodeBackend indicates an I/O failure in the storage backend: permission
	// denied, disk full, or a transient failure that outlived the retry policy.
	CodeBackend ErrorCode = "BACKEND_ERROR"

	// CodeValidation indicates malformed input detected before any I/O:
	// unknown format tags, path traversal, ragged Parquet tables.
	CodeValidation ErrorCode = "VALIDATION_ERROR"

	// Transient backend conditions. These never escape a backend; the retry
	// policy converts them to CodeBackend once attempts run out.

	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates a request exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates the store throttled the request.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeUnavailable indicates the store answered with a server-side failure.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// CodeInternal indicates a bug or broken invariant inside this module.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unclassified error.
	CodeUnknown ErrorCode = "UNKNOWN"
)
