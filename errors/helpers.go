package errors

import (
	stderrors "errors"
)

// Is reports whether any error in err's chain matches target.
// It wraps the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// It wraps the standard library errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// GetCode extracts the ErrorCode from the outermost ProviderError in err's
// chain. Returns CodeUnknown if there is none.
//
// Example:
//
//	if errors.GetCode(err) == errors.CodeNotFound {
//	    // create instead
//	}
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	var providerErr ProviderError
	if stderrors.As(err, &providerErr) {
		return providerErr.Code()
	}
	return CodeUnknown
}

// GetClassification extracts the classification from the outermost
// ProviderError in err's chain. Returns ClassificationPermanent if there is
// none so unknown failures are never retried.
func GetClassification(err error) ErrorClassification {
	if err == nil {
		return ClassificationPermanent
	}
	var providerErr ProviderError
	if stderrors.As(err, &providerErr) {
		return providerErr.Classification()
	}
	return ClassificationPermanent
}

// IsRetryable returns true if err is classified as retryable.
func IsRetryable(err error) bool {
	return GetClassification(err).IsRetryable()
}

// IsNotFound reports whether err means the location holds no object.
func IsNotFound(err error) bool {
	return err != nil && GetCode(err) == CodeNotFound
}

// IsCodec reports whether err is an encode or decode failure.
func IsCodec(err error) bool {
	return err != nil && GetCode(err) == CodeCodec
}

// IsBackend reports whether err is a storage I/O failure.
func IsBackend(err error) bool {
	return err != nil && GetCode(err) == CodeBackend
}

// IsValidation reports whether err was raised by input validation.
func IsValidation(err error) bool {
	return err != nil && GetCode(err) == CodeValidation
}
