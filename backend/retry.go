package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mkpace/file-provider/errors"
)

// RetryPolicy bounds the exponential backoff applied to transient backend
// failures. Zero fields take the values of DefaultRetryPolicy.
type RetryPolicy struct {
	// MaxAttempts counts the first try. 1 disables retries.
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// DefaultRetryPolicy allows three attempts starting 100ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.Multiplier = p.Multiplier
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts.
//
// Non-retryable errors such as CodeNotFound are returned unchanged after
// the first attempt. A retryable error that survives every attempt is
// returned as a permanent CodeBackend error with an "attempts" field.
// Errors without a code are treated as backend failures.
func Retry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, op string, fn func(context.Context) error) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CodeBackend, op+" canceled")
	}

	p := policy.withDefaults()
	attempts := 0
	err := backoff.RetryNotify(
		func() error {
			attempts++
			err := fn(ctx)
			if err != nil && !errors.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		p.backOff(ctx),
		func(err error, delay time.Duration) {
			logger.Warn("retrying backend operation",
				"op", op,
				"attempt", attempts,
				"delay", delay,
				"error", err,
			)
		},
	)

	switch {
	case err == nil:
		return nil
	case errors.IsRetryable(err):
		return errors.WithClassification(
			errors.WrapWithContext(err, errors.CodeBackend, op+" failed after retries", map[string]interface{}{
				"op":       op,
				"attempts": attempts,
			}),
			errors.ClassificationPermanent,
		)
	case errors.GetCode(err) == errors.CodeUnknown:
		return errors.WithContext(errors.Wrap(err, errors.CodeBackend, op+" failed"), "attempts", attempts)
	default:
		return err
	}
}
