// Package s3 implements the backend contract on Amazon S3 through
// aws-sdk-go-v2.
//
// Each write is a single PutObject, so readers see either the previous
// object or the new one. Transient failures are retried with
// backend.Retry; the SDK's own retryer is disabled so the two policies
// never multiply.
package s3

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mkpace/file-provider/backend"
	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
)

// Client is the subset of the S3 API the backend calls. *s3.Client
// satisfies it.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds connection settings for NewFromConfig. Empty credentials
// fall back to the SDK's default chain.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	UsePathStyle    bool
}

// Backend stores files as S3 objects.
type Backend struct {
	client Client
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

// New returns a backend that issues requests through client.
func New(client Client, opts ...Option) *Backend {
	b := &Backend{
		client: client,
		policy: backend.DefaultRetryPolicy(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromConfig loads the AWS configuration, applies cfg on top of it, and
// returns a backend over the resulting client.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*Backend, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackend, "load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.Retryer = aws.NopRetryer{}
	})
	return New(client, opts...), nil
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
		out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
		})
		if err != nil {
			return classify(err, loc, "get object")
		}
		defer out.Body.Close()

		data, err = io.ReadAll(out.Body)
		if err != nil {
			return backend.ClassifyTransport(err, loc, "read object body")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.logger.Debug("read s3 object", "location", loc.String(), "bytes", len(data))
	return data, nil
}

// Write implements backend.Backend.
func (b *Backend) Write(ctx context.Context, loc backend.Location, data []byte) error {
	if err := requireBucket(loc); err != nil {
		return err
	}

	err := backend.Retry(ctx, b.policy, b.logger, "put object", func(ctx context.Context) error {
		_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(loc.Bucket),
			Key:           aws.String(loc.Key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
		})
		if err != nil {
			return classify(err, loc, "put object")
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Debug("wrote s3 object", "location", loc.String(), "bytes", len(data))
	return nil
}

// Exists implements backend.Backend.
func (b *Backend) Exists(ctx context.Context, loc backend.Location) (bool, error) {
	if err := requireBucket(loc); err != nil {
		return false, err
	}

	err := b.head(ctx, loc)
	switch {
	case err == nil:
		return true, nil
	case errors.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Delete implements backend.Backend. S3 deletes succeed for missing keys,
// so the object is checked first to report CodeNotFound.
func (b *Backend) Delete(ctx context.Context, loc backend.Location) error {
	if err := requireBucket(loc); err != nil {
		return err
	}
	if err := b.head(ctx, loc); err != nil {
		return err
	}

	err := backend.Retry(ctx, b.policy, b.logger, "delete object", func(ctx context.Context) error {
		_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
		})
		if err != nil {
			return classify(err, loc, "delete object")
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Debug("deleted s3 object", "location", loc.String())
	return nil
}

func (b *Backend) head(ctx context.Context, loc backend.Location) error {
	return backend.Retry(ctx, b.policy, b.logger, "head object", func(ctx context.Context) error {
		_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
		})
		if err != nil {
			return classify(err, loc, "head object")
		}
		return nil
	})
}

func requireBucket(loc backend.Location) error {
	if loc.Bucket == "" {
		return errors.WithContext(
			errors.New(errors.CodeValidation, "s3 location has no bucket"),
			"key", loc.Key,
		)
	}
	return nil
}
