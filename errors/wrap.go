package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps err under a new code and message. The result unwraps to err.
//
// If err already is a ProviderError its classification is kept, so a
// transient failure stays retryable after a backend adds context.
//
// Returns nil if err is nil.
//
// Example:
//
//	if _, err := client.PutObject(ctx, input); err != nil {
//	    return errors.Wrap(err, errors.CodeNetwork, "put object")
//	}
func Wrap(err error, code ErrorCode, message string) ProviderError {
	if err == nil {
		return nil
	}
	return &providerError{
		code:           code,
		classification: inheritClassification(err, code),
		message:        message,
		cause:          err,
	}
}

// Wrapf wraps err with a formatted message.
//
// Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) ProviderError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WrapWithContext wraps err and attaches context metadata in one step.
// The map is copied.
//
// Returns nil if err is nil.
//
// Example:
//
//	return errors.WrapWithContext(err, errors.CodeCodec, "decode csv", map[string]interface{}{
//	    "format": "csv",
//	    "line":   12,
//	})
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) ProviderError {
	if err == nil {
		return nil
	}
	return &providerError{
		code:           code,
		classification: inheritClassification(err, code),
		message:        message,
		context:        copyContext(ctx),
		cause:          err,
	}
}

func inheritClassification(err error, code ErrorCode) ErrorClassification {
	var providerErr ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Classification()
	}
	return getDefaultClassification(code)
}
