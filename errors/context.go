package errors

import "errors"

// WithContext returns a copy of err with one context field added.
// Existing fields are kept.
//
// A plain error is first converted to a ProviderError with CodeUnknown.
// Returns nil if err is nil.
//
// Example:
//
//	err = errors.WithContext(err, "location", loc.String())
func WithContext(err error, key string, value interface{}) ProviderError {
	if err == nil {
		return nil
	}
	return WithContextMap(err, map[string]interface{}{key: value})
}

// WithContextMap returns a copy of err with the given fields merged into its
// context. New fields override existing ones with the same key.
//
// A plain error is first converted to a ProviderError with CodeUnknown.
// Returns nil if err is nil.
func WithContextMap(err error, ctx map[string]interface{}) ProviderError {
	if err == nil {
		return nil
	}

	base := asProviderError(err)
	merged := make(map[string]interface{}, len(ctx))
	for k, v := range base.Context() {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}

	return &providerError{
		code:           base.Code(),
		classification: base.Classification(),
		message:        base.Message(),
		context:        merged,
		cause:          base.Unwrap(),
	}
}

// WithClassification returns a copy of err with its classification replaced.
//
// The retry policy uses it to mark an exhausted transient failure permanent.
//
// A plain error is first converted to a ProviderError with CodeUnknown.
// Returns nil if err is nil.
func WithClassification(err error, classification ErrorClassification) ProviderError {
	if err == nil {
		return nil
	}

	base := asProviderError(err)
	return &providerError{
		code:           base.Code(),
		classification: classification,
		message:        base.Message(),
		context:        base.Context(),
		cause:          base.Unwrap(),
	}
}

func asProviderError(err error) ProviderError {
	var providerErr ProviderError
	if errors.As(err, &providerErr) {
		return providerErr
	}
	return &providerError{
		code:           CodeUnknown,
		classification: ClassificationPermanent,
		message:        err.Error(),
		cause:          err,
	}
}
