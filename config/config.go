// Package config loads provider configuration from a file and the
// environment.
//
// Values are layered: defaults, then the config file (YAML, JSON, or TOML,
// chosen by extension), then FILEPROVIDER_* environment variables. Nested
// keys join with underscores, so s3.bucket is FILEPROVIDER_S3_BUCKET and
// retry.max_attempts is FILEPROVIDER_RETRY_MAX_ATTEMPTS.
package config

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/mkpace/file-provider/backend"
	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/provider"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FILEPROVIDER"

// DefaultName is the file searched for in the working directory when Load
// gets no explicit path.
const DefaultName = "fileprovider"

// DefaultLocalRoot is the local backend root when none is configured.
const DefaultLocalRoot = "data"

// Load reads configuration from path, or from ./fileprovider.{yaml,json,toml}
// when path is empty, applies environment overrides, and validates the
// result. A missing file is an error only when path was given explicitly.
func Load(path string) (provider.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrors.As(err, &notFound) {
			return provider.Config{}, errors.WithContext(
				errors.Wrap(err, errors.CodeValidation, "read config file"),
				"path", path,
			)
		}
	}

	var cfg provider.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return provider.Config{}, errors.WithContext(
			errors.Wrap(err, errors.CodeValidation, "decode config"),
			"path", v.ConfigFileUsed(),
		)
	}
	if err := cfg.Validate(); err != nil {
		return provider.Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// the file omits them.
func setDefaults(v *viper.Viper) {
	retry := backend.DefaultRetryPolicy()

	v.SetDefault("backend", "local")
	v.SetDefault("key_column", "")
	v.SetDefault("local.root", DefaultLocalRoot)

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.session_token", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.use_path_style", false)
	v.SetDefault("s3.client", provider.ClientAWS)

	v.SetDefault("retry.max_attempts", retry.MaxAttempts)
	v.SetDefault("retry.initial_interval", retry.InitialInterval)
	v.SetDefault("retry.max_interval", retry.MaxInterval)
	v.SetDefault("retry.multiplier", retry.Multiplier)
}
