package errors

import "fmt"

// New creates a ProviderError with the given code and message.
// The classification comes from the code's default.
//
// Example:
//
//	err := errors.New(errors.CodeValidation, "location must not be empty")
func New(code ErrorCode, message string) ProviderError {
	return &providerError{
		code:           code,
		classification: getDefaultClassification(code),
		message:        message,
	}
}

// Newf creates a ProviderError with a formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodeValidation, "unknown format %q", tag)
func Newf(code ErrorCode, format string, args ...interface{}) ProviderError {
	return New(code, fmt.Sprintf(format, args...))
}
