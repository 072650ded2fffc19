// Package minio implements the backend contract on MinIO and other
// S3-compatible endpoints through minio-go.
package minio

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mkpace/file-provider/backend"
	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
)

// Config holds MinIO connection settings.
type Config struct {
	// Endpoint is the server address without scheme, e.g. "localhost:9000".
	Endpoint string

	AccessKey    string
	SecretKey    string
	SessionToken string

	// UseSSL selects HTTPS.
	UseSSL bool

	// Region is sent with requests; MinIO ignores it unless configured.
	Region string

	// Client is an optional pre-configured client. When set, the connection
	// fields above are ignored.
	Client *minio.Client
}

func (c *Config) validate() error {
	if c.Client != nil {
		return nil
	}
	if c.Endpoint == "" {
		return errors.New(errors.CodeValidation, "minio endpoint is required when client is not provided")
	}
	if c.AccessKey == "" {
		return errors.New(errors.CodeValidation, "minio access key is required when client is not provided")
	}
	if c.SecretKey == "" {
		return errors.New(errors.CodeValidation, "minio secret key is required when client is not provided")
	}
	return nil
}

// Backend stores files as objects on a MinIO server.
type Backend struct {
	client *minio.Client
	policy backend.RetryPolicy
	logger *slog.Logger
}

var _ backend.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger for debug output and retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRetryPolicy overrides backend.DefaultRetryPolicy.
func WithRetryPolicy(p backend.RetryPolicy) Option {
	return func(b *Backend) { b.policy = p }
}

// New validates cfg and returns a backend. No request is made until the
// first operation.
func New(cfg Config, opts ...Option) (*Backend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, errors.WithContext(
				errors.Wrap(err, errors.CodeValidation, "create minio client"),
				"endpoint", cfg.Endpoint,
			)
		}
	}

	b := &Backend{
		client: client,
		policy: backend.DefaultRetryPolicy(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Kind implements backend.Backend.
func (b *Backend) Kind() handle.Kind {
	return handle.KindS3
}

// Read implements backend.Backend.
func (b *Backend) Read(ctx context.Context, loc backend.Location) ([]byte, error) {
	if err := requireBucket(loc); err != nil {
		return nil, err
	}

	var data []byte
	err := backend.Retry(ctx, b.policy, b.logger, "get object", func(ctx context.Context) error {
		obj, err := b.client.GetObject(ctx, loc.Bucket, loc.Key, minio.GetObjectOptions{})
		if err != nil {
			return translate(err, loc, "get object")
		}
		defer obj.Close()

		// The request is sent lazily; a missing key surfaces here.
		data, err = io.ReadAll(obj)
		if err != nil {
			return translate(err, loc, "get object")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.logger.Debug("read minio object", "location", loc.String(), "bytes", len(data))
	return data, nil
}

// Write implements backend.Backend.
func (b *Backend) Write(ctx context.Context, loc backend.Location, data []byte) error {
	if err := requireBucket(loc); err != nil {
		return err
	}

	err := backend.Retry(ctx, b.policy, b.logger, "put object", func(ctx context.Context) error {
		_, err := b.client.PutObject(ctx, loc.Bucket, loc.Key,
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/octet-stream"},
		)
		if err != nil {
			return translate(err, loc, "put object")
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Debug("wrote minio object", "location", loc.String(), "bytes", len(data))
	return nil
}

// Exists implements backend.Backend.
func (b *Backend) Exists(ctx context.Context, loc backend.Location) (bool, error) {
	if err := requireBucket(loc); err != nil {
		return false, err
	}

	err := b.stat(ctx, loc)
	switch {
	case err == nil:
		return true, nil
	case errors.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Delete implements backend.Backend.
func (b *Backend) Delete(ctx context.Context, loc backend.Location) error {
	if err := requireBucket(loc); err != nil {
		return err
	}
	if err := b.stat(ctx, loc); err != nil {
		return err
	}

	err := backend.Retry(ctx, b.policy, b.logger, "remove object", func(ctx context.Context) error {
		if err := b.client.RemoveObject(ctx, loc.Bucket, loc.Key, minio.RemoveObjectOptions{}); err != nil {
			return translate(err, loc, "remove object")
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Debug("deleted minio object", "location", loc.String())
	return nil
}

func (b *Backend) stat(ctx context.Context, loc backend.Location) error {
	return backend.Retry(ctx, b.policy, b.logger, "stat object", func(ctx context.Context) error {
		if _, err := b.client.StatObject(ctx, loc.Bucket, loc.Key, minio.StatObjectOptions{}); err != nil {
			return translate(err, loc, "stat object")
		}
		return nil
	})
}

// translate converts minio-go errors to the error taxonomy.
func translate(err error, loc backend.Location, op string) error {
	resp := minio.ToErrorResponse(err)
	meta := map[string]interface{}{"location": loc.String(), "op": op}
	if resp.Code != "" {
		meta["minio_code"] = resp.Code
	}

	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return errors.WrapWithContext(err, errors.CodeNotFound, "no object at "+loc.String(), meta)
	case "SlowDown", "SlowDownRead", "SlowDownWrite":
		return errors.WrapWithContext(err, errors.CodeRateLimit, op+" throttled", meta)
	case "RequestTimeout":
		return errors.WrapWithContext(err, errors.CodeTimeout, op+" timed out", meta)
	case "InternalError", "ServiceUnavailable", "XMinioServerNotInitialized":
		return errors.WrapWithContext(err, errors.CodeUnavailable, op+" unavailable", meta)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.WrapWithContext(err, errors.CodeNotFound, "no object at "+loc.String(), meta)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.WrapWithContext(err, errors.CodeRateLimit, op+" throttled", meta)
	case resp.StatusCode >= http.StatusInternalServerError:
		return errors.WrapWithContext(err, errors.CodeUnavailable, op+" unavailable", meta)
	case resp.Code != "":
		return errors.WrapWithContext(err, errors.CodeBackend, op+" failed", meta)
	}
	return backend.ClassifyTransport(err, loc, op)
}

func requireBucket(loc backend.Location) error {
	if loc.Bucket == "" {
		return errors.WithContext(
			errors.New(errors.CodeValidation, "minio location has no bucket"),
			"key", loc.Key,
		)
	}
	return nil
}
