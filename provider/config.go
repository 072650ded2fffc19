package provider

import (
	"strings"

	"github.com/mkpace/file-provider/backend"
	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
)

// Client flavors for the s3 backend kind.
const (
	ClientAWS   = "aws"
	ClientMinIO = "minio"
)

// Config selects and configures the backend a Provider is built on.
type Config struct {
	// Backend is the backend kind: "local" or "s3".
	Backend string `mapstructure:"backend"`

	Local LocalConfig `mapstructure:"local"`
	S3    S3Config    `mapstructure:"s3"`

	// Retry bounds retries of transient remote failures. Zero fields take
	// backend.DefaultRetryPolicy values.
	Retry backend.RetryPolicy `mapstructure:"retry"`

	// KeyColumn is the default upsert key for table updates.
	KeyColumn string `mapstructure:"key_column"`
}

// LocalConfig configures the local backend.
type LocalConfig struct {
	// Root is the directory every local handle is relative to. It is created
	// if missing.
	Root string `mapstructure:"root"`
}

// S3Config configures the s3 backend.
type S3Config struct {
	// Bucket is used for handles that do not name their own.
	Bucket string `mapstructure:"bucket"`
	// Prefix is prepended to every object key.
	Prefix string `mapstructure:"prefix"`

	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`

	// Client picks the SDK: "aws" (default) or "minio".
	Client string `mapstructure:"client"`
}

// Kind parses the configured backend kind.
func (c Config) Kind() (handle.Kind, error) {
	return handle.ParseKind(c.Backend)
}

// Validate reports the first missing or inconsistent setting.
func (c Config) Validate() error {
	kind, err := c.Kind()
	if err != nil {
		return err
	}
	if c.Retry.MaxAttempts < 0 {
		return invalid("retry.max_attempts", "must not be negative")
	}

	switch kind {
	case handle.KindLocal:
		if strings.TrimSpace(c.Local.Root) == "" {
			return invalid("local.root", "is required for the local backend")
		}
	case handle.KindS3:
		switch c.S3.client() {
		case ClientAWS:
		case ClientMinIO:
			if c.S3.Endpoint == "" {
				return invalid("s3.endpoint", "is required for the minio client")
			}
			if c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" {
				return invalid("s3.access_key_id", "and s3.secret_access_key are required for the minio client")
			}
		default:
			return invalid("s3.client", "must be "+ClientAWS+" or "+ClientMinIO)
		}
	}
	return nil
}

func (c S3Config) client() string {
	if c.Client == "" {
		return ClientAWS
	}
	return strings.ToLower(c.Client)
}

func invalid(field, reason string) error {
	return errors.WithContext(
		errors.Newf(errors.CodeValidation, "config: %s %s", field, reason),
		"field", field,
	)
}
