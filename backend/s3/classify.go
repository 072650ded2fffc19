package s3

import (
	stderrors "errors"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/mkpace/file-provider/backend"
	"github.com/mkpace/file-provider/errors"
)

// classify maps an SDK error onto the error taxonomy. API error codes take
// precedence over HTTP status because HeadObject responses carry no body.
func classify(err error, loc backend.Location, op string) error {
	meta := map[string]interface{}{"location": loc.String(), "op": op}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		meta["aws_code"] = apiErr.ErrorCode()
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return errors.WrapWithContext(err, errors.CodeNotFound, "no object at "+loc.String(), meta)
		case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequestsException":
			return errors.WrapWithContext(err, errors.CodeRateLimit, op+" throttled", meta)
		case "RequestTimeout", "RequestTimeoutException":
			return errors.WrapWithContext(err, errors.CodeTimeout, op+" timed out", meta)
		case "InternalError", "ServiceUnavailable", "ServiceUnavailableException":
			return errors.WrapWithContext(err, errors.CodeUnavailable, op+" unavailable", meta)
		}
	}

	var respErr *awshttp.ResponseError
	if stderrors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		meta["status"] = status
		switch {
		case status == http.StatusNotFound:
			return errors.WrapWithContext(err, errors.CodeNotFound, "no object at "+loc.String(), meta)
		case status == http.StatusTooManyRequests:
			return errors.WrapWithContext(err, errors.CodeRateLimit, op+" throttled", meta)
		case status >= http.StatusInternalServerError:
			return errors.WrapWithContext(err, errors.CodeUnavailable, op+" unavailable", meta)
		case status > 0:
			return errors.WrapWithContext(err, errors.CodeBackend, op+" failed", meta)
		}
	}

	return backend.ClassifyTransport(err, loc, op)
}
