// Package provider saves, retrieves, and updates structured files on any
// supported backend in any supported format.
//
// A Provider pairs one backend with the resolver for its handle kind and a
// codec registry:
//
//	p, err := provider.New(ctx, provider.Config{
//	    Backend: "local",
//	    Local:   provider.LocalConfig{Root: "data"},
//	}, provider.WithKeyColumn("id"))
//
//	h, _ := handle.New(handle.KindLocal, "reports/q1", "csv")
//	err = p.Update(ctx, h, payload.Tabular(rows))
//
// Every write replaces the stored object in one step. Providers hold no
// locks; two processes updating the same file may lose an update.
package provider

import (
	"context"
	"log/slog"

	"github.com/mkpace/file-provider/backend"
	"github.com/mkpace/file-provider/backend/local"
	miniobackend "github.com/mkpace/file-provider/backend/minio"
	s3backend "github.com/mkpace/file-provider/backend/s3"
	"github.com/mkpace/file-provider/codec"
	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
	"github.com/mkpace/file-provider/payload"
	"github.com/mkpace/file-provider/resolve"
)

// Provider is the entry point for file operations. It is safe for
// concurrent use.
type Provider struct {
	backend   backend.Backend
	resolver  resolve.Resolver
	codecs    *codec.Registry
	keyColumn string
	logger    *slog.Logger
}

// New builds the backend and resolver described by cfg.
func New(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	o.KeyColumn = cfg.KeyColumn
	o.apply(opts)

	kind, _ := cfg.Kind()
	var (
		b   backend.Backend
		r   resolve.Resolver
		err error
	)
	switch kind {
	case handle.KindLocal:
		var lb *local.Backend
		lb, err = local.New(cfg.Local.Root, local.WithLogger(o.Logger))
		if err != nil {
			return nil, err
		}
		b = lb
		r, err = resolve.Local(lb.Root())
	case handle.KindS3:
		b, err = newObjectBackend(ctx, cfg, o.Logger)
		r = resolve.Bucket(cfg.S3.Bucket, cfg.S3.Prefix)
	}
	if err != nil {
		return nil, err
	}

	o.Logger.Debug("file provider ready", "backend", kind.String())
	return build(b, r, o)
}

func newObjectBackend(ctx context.Context, cfg Config, logger *slog.Logger) (backend.Backend, error) {
	if cfg.S3.client() == ClientMinIO {
		return miniobackend.New(miniobackend.Config{
			Endpoint:     cfg.S3.Endpoint,
			AccessKey:    cfg.S3.AccessKeyID,
			SecretKey:    cfg.S3.SecretAccessKey,
			SessionToken: cfg.S3.SessionToken,
			UseSSL:       cfg.S3.UseSSL,
			Region:       cfg.S3.Region,
		},
			miniobackend.WithLogger(logger),
			miniobackend.WithRetryPolicy(cfg.Retry),
		)
	}
	return s3backend.NewFromConfig(ctx, s3backend.Config{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		SessionToken:    cfg.S3.SessionToken,
		UsePathStyle:    cfg.S3.UsePathStyle,
	},
		s3backend.WithLogger(logger),
		s3backend.WithRetryPolicy(cfg.Retry),
	)
}

// NewWithBackend assembles a provider from prebuilt parts. The resolver
// must accept the backend's handle kind.
func NewWithBackend(b backend.Backend, r resolve.Resolver, opts ...Option) (*Provider, error) {
	o := defaultOptions()
	o.apply(opts)
	return build(b, r, o)
}

func build(b backend.Backend, r resolve.Resolver, o *Options) (*Provider, error) {
	if b == nil || r == nil {
		return nil, errors.New(errors.CodeValidation, "backend and resolver are required")
	}
	if b.Kind() != r.Kind() {
		return nil, errors.Newf(errors.CodeValidation,
			"%s resolver cannot address a %s backend", r.Kind(), b.Kind())
	}
	return &Provider{
		backend:   b,
		resolver:  r,
		codecs:    o.Codecs,
		keyColumn: o.KeyColumn,
		logger:    o.Logger,
	}, nil
}

// Kind returns the handle kind this provider serves.
func (p *Provider) Kind() handle.Kind {
	return p.backend.Kind()
}

// Save encodes data in h's format and replaces whatever is stored at h.
func (p *Provider) Save(ctx context.Context, h handle.Handle, data payload.Payload) error {
	return p.failed("save", h, p.save(ctx, h, data))
}

func (p *Provider) save(ctx context.Context, h handle.Handle, data payload.Payload) error {
	loc, c, err := p.prepare(h)
	if err != nil {
		return err
	}
	return p.write(ctx, h, loc, c, data)
}

// Retrieve reads and decodes the file at h. It fails with CodeNotFound when
// nothing is stored and CodeCodec when the bytes are not valid for h's
// format.
func (p *Provider) Retrieve(ctx context.Context, h handle.Handle) (payload.Payload, error) {
	out, err := p.retrieve(ctx, h)
	return out, p.failed("retrieve", h, err)
}

func (p *Provider) retrieve(ctx context.Context, h handle.Handle) (payload.Payload, error) {
	loc, c, err := p.prepare(h)
	if err != nil {
		return payload.Payload{}, err
	}

	raw, err := p.backend.Read(ctx, loc)
	if err != nil {
		return payload.Payload{}, err
	}
	out, err := c.Decode(raw)
	if err != nil {
		return payload.Payload{}, errors.WithContext(err, "handle", h.String())
	}
	p.logger.Debug("retrieved file", "handle", h.String(), "format", h.Format().String(), "bytes", len(raw))
	return out, nil
}

// Update merges data into the file at h, creating it when absent.
//
// Tables merge with tables by appending rows, or by upserting on a key
// column when one is configured (WithKeyColumn, WithKey). JSON objects
// merge shallowly. Any other combination is appended into one array. The
// merged result is written with the same guarantees as Save.
func (p *Provider) Update(ctx context.Context, h handle.Handle, data payload.Payload, opts ...UpdateOption) error {
	uo := UpdateOptions{}
	for _, opt := range opts {
		opt(&uo)
	}
	key := p.keyColumn
	if uo.Key != nil {
		key = *uo.Key
	}
	return p.failed("update", h, p.update(ctx, h, data, key))
}

func (p *Provider) update(ctx context.Context, h handle.Handle, data payload.Payload, key string) error {
	loc, c, err := p.prepare(h)
	if err != nil {
		return err
	}

	raw, err := p.backend.Read(ctx, loc)
	if errors.IsNotFound(err) {
		p.logger.Info("creating file on update", "handle", h.String(), "format", h.Format().String())
		return p.write(ctx, h, loc, c, data)
	}
	if err != nil {
		return err
	}

	// The incoming schema is a hint: CSV cells that do not fit it decode
	// wider, and Merge reports any remaining conflict.
	var schema payload.Schema
	if t, ok := data.Table(); ok {
		schema = t.Schema()
	}
	existing, err := codec.Decode(c, raw, schema)
	if err != nil {
		return errors.WithContext(err, "handle", h.String())
	}

	merged, err := payload.Merge(existing, data, payload.MergeOptions{KeyColumn: key})
	if err != nil {
		return errors.WithContext(err, "handle", h.String())
	}
	return p.write(ctx, h, loc, c, merged)
}

// Exists reports whether a file is stored at h.
func (p *Provider) Exists(ctx context.Context, h handle.Handle) (bool, error) {
	loc, err := p.locate(h)
	if err != nil {
		return false, p.failed("exists", h, err)
	}
	ok, err := p.backend.Exists(ctx, loc)
	return ok, p.failed("exists", h, err)
}

// Delete removes the file at h. It fails with CodeNotFound when nothing is
// stored.
func (p *Provider) Delete(ctx context.Context, h handle.Handle) error {
	loc, err := p.locate(h)
	if err != nil {
		return p.failed("delete", h, err)
	}
	if err := p.backend.Delete(ctx, loc); err != nil {
		return p.failed("delete", h, err)
	}
	p.logger.Debug("deleted file", "handle", h.String())
	return nil
}

func (p *Provider) write(ctx context.Context, h handle.Handle, loc backend.Location, c codec.Codec, data payload.Payload) error {
	raw, err := c.Encode(data)
	if err != nil {
		return errors.WithContext(err, "handle", h.String())
	}
	if err := p.backend.Write(ctx, loc, raw); err != nil {
		return err
	}
	p.logger.Debug("saved file", "handle", h.String(), "format", h.Format().String(), "bytes", len(raw))
	return nil
}

// failed logs err with its code and context at debug level and returns it
// unchanged.
func (p *Provider) failed(op string, h handle.Handle, err error) error {
	if err == nil || !p.logger.Enabled(context.Background(), slog.LevelDebug) {
		return err
	}
	resp := errors.ToJSON(err)
	p.logger.Debug(op+" failed",
		"handle", h.String(),
		"code", resp.Code,
		"classification", resp.Classification,
		"message", resp.Message,
		"context", resp.Context,
	)
	return err
}

// prepare runs every check that needs no I/O and returns the location and
// codec for h.
func (p *Provider) prepare(h handle.Handle) (backend.Location, codec.Codec, error) {
	loc, err := p.locate(h)
	if err != nil {
		return backend.Location{}, nil, err
	}
	c, err := p.codecs.Lookup(h.Format())
	if err != nil {
		return backend.Location{}, nil, err
	}
	return loc, c, nil
}

func (p *Provider) locate(h handle.Handle) (backend.Location, error) {
	if h.IsZero() {
		return backend.Location{}, errors.New(errors.CodeValidation, "handle is not initialized")
	}
	if h.Kind() != p.backend.Kind() {
		return backend.Location{}, errors.WithContext(
			errors.Newf(errors.CodeValidation, "%s handle used with a %s provider", h.Kind(), p.backend.Kind()),
			"handle", h.String(),
		)
	}
	return p.resolver.Resolve(h)
}
