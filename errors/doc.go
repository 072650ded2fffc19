// Package errors provides the structured errors returned by file-provider.
//
// Every failure carries an ErrorCode, a retry classification, and optional
// context metadata. The package stays compatible with the standard library
// (errors.Is, errors.As, errors.Unwrap).
//
// # Taxonomy
//
// Four codes reach callers:
//
//   - CodeNotFound: the location holds no object (retrieve, delete)
//   - CodeCodec: bytes are undecodable for the format, or the payload shape
//     does not fit the format
//   - CodeBackend: an I/O failure, including transient failures that
//     outlived the retry policy
//   - CodeValidation: malformed input rejected before any I/O
//
// Backends also produce retryable codes (CodeNetwork, CodeTimeout,
// CodeRateLimit, CodeUnavailable) internally. The backend retry policy
// turns them into CodeBackend once it gives up.
//
// # Usage
//
//	p, err := fp.Retrieve(ctx, h)
//	switch {
//	case errors.IsNotFound(err):
//	    // nothing stored yet
//	case errors.IsCodec(err):
//	    meta := errors.ToJSON(err).Context
//	    log.Printf("bad %v at offset %v", meta["format"], meta["offset"])
//	case err != nil:
//	    return err
//	}
//
// # Classification
//
// Use IsRetryable to decide whether to try again. Wrap keeps the
// classification of a wrapped ProviderError; WithClassification overrides it.
package errors
