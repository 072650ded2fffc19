package errors

import "fmt"

// ProviderError is the error type returned by every package in this module.
//
// It carries a code for categorization, a classification for retry
// decisions, and context metadata such as the format or location involved.
// It works with errors.Is, errors.As, and errors.Unwrap.
type ProviderError interface {
	error

	// Code returns the error code identifying the type of error.
	Code() ErrorCode

	// Classification returns whether the error is retryable or permanent.
	Classification() ErrorClassification

	// Message returns the human-readable error message.
	Message() string

	// Context returns attached metadata as a read-only copy.
	// Returns nil if no context has been attached.
	Context() map[string]interface{}

	// Unwrap returns the wrapped error, or nil.
	Unwrap() error
}

// providerError is the only ProviderError implementation. Construction goes
// through the package functions so values stay immutable.
type providerError struct {
	code           ErrorCode
	classification ErrorClassification
	message        string
	context        map[string]interface{}
	cause          error
}

// Error formats as "[CODE] message" or "[CODE] message: cause".
func (e *providerError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Code returns the error code.
func (e *providerError) Code() ErrorCode {
	return e.code
}

// Classification returns the error classification.
func (e *providerError) Classification() ErrorClassification {
	return e.classification
}

// Message returns the error message.
func (e *providerError) Message() string {
	return e.message
}

// Context returns a copy of the context map.
func (e *providerError) Context() map[string]interface{} {
	return copyContext(e.context)
}

// Unwrap returns the wrapped error.
func (e *providerError) Unwrap() error {
	return e.cause
}

func copyContext(ctx map[string]interface{}) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
