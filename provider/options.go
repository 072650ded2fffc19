package provider

import (
	"log/slog"

	"github.com/mkpace/file-provider/codec"
)

// Options contains configuration options for the Provider.
type Options struct {
	// Logger receives debug output for every operation. Backends built by
	// New share it. Defaults to a discarding logger.
	Logger *slog.Logger

	// KeyColumn is the default upsert key for table updates. Empty means
	// updates append rows.
	KeyColumn string

	// Codecs maps formats to codecs. Defaults to codec.Default().
	Codecs *codec.Registry
}

// Option is a functional option for configuring the Provider.
type Option func(*Options)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithKeyColumn sets the default upsert key for table updates.
func WithKeyColumn(column string) Option {
	return func(opts *Options) {
		opts.KeyColumn = column
	}
}

// WithCodecs replaces the codec registry.
func WithCodecs(codecs *codec.Registry) Option {
	return func(opts *Options) {
		opts.Codecs = codecs
	}
}

func defaultOptions() *Options {
	return &Options{
		Logger: slog.New(slog.DiscardHandler),
		Codecs: codec.Default(),
	}
}

func (o *Options) apply(opts []Option) {
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Codecs == nil {
		o.Codecs = codec.Default()
	}
}

// UpdateOptions contains per-call options for Update.
type UpdateOptions struct {
	// Key overrides the provider's default key column when set.
	Key *string
}

// UpdateOption is a functional option for configuring Update calls.
type UpdateOption func(*UpdateOptions)

// WithKey sets the upsert key column for one update. An empty column
// forces append even when the provider has a default key.
func WithKey(column string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Key = &column
	}
}
