package errors

// ErrorClassification tells the retry policy whether another attempt can help.
type ErrorClassification string

const (
	// ClassificationRetryable marks temporary failures such as throttling or
	// a dropped connection.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent marks failures that will repeat on retry.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be attempted.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeNetwork:     ClassificationRetryable,
	CodeTimeout:     ClassificationRetryable,
	CodeRateLimit:   ClassificationRetryable,
	CodeUnavailable: ClassificationRetryable,

	CodeNotFound:   ClassificationPermanent,
	CodeCodec:      ClassificationPermanent,
	CodeBackend:    ClassificationPermanent,
	CodeValidation: ClassificationPermanent,
	CodeInternal:   ClassificationPermanent,
	CodeUnknown:    ClassificationPermanent,
}

// getDefaultClassification returns the default classification for an error code.
// Codes missing from the table are permanent.
func getDefaultClassification(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
