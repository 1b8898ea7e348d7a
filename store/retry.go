package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig tunes the retry decorator.
type RetryConfig struct {
	// MaxRetries bounds the number of attempts after the first.
	MaxRetries uint64
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// MaxInterval caps the backoff delay.
	MaxInterval time.Duration
}

// DefaultRetryConfig is the decorator's tuning when the caller passes the
// zero value.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:      4,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

// WithRetry wraps a store so operations failing with a transient error are
// retried with exponential backoff. Non-transient errors, including
// ErrNotFound, return immediately.
func WithRetry(s Store, cfg RetryConfig) Store {
	if cfg == (RetryConfig{}) {
		cfg = DefaultRetryConfig
	}
	return &retryStore{inner: s, cfg: cfg}
}

type retryStore struct {
	inner Store
	cfg   RetryConfig
}

func (r *retryStore) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx)
}

// retry runs op, converting non-transient errors to permanent so backoff
// stops immediately.
func retry[T any](ctx context.Context, r *retryStore, op func() (T, error)) (T, error) {
	return backoff.RetryWithData(func() (T, error) {
		v, err := op()
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, r.backoff(ctx))
}

func (r *retryStore) Get(ctx context.Context, key string) ([]byte, error) {
	return retry(ctx, r, func() ([]byte, error) { return r.inner.Get(ctx, key) })
}

func (r *retryStore) GetRange(ctx context.Context, key string, off, length int64) ([]byte, error) {
	return retry(ctx, r, func() ([]byte, error) { return r.inner.GetRange(ctx, key, off, length) })
}

func (r *retryStore) Size(ctx context.Context, key string) (int64, error) {
	return retry(ctx, r, func() (int64, error) { return r.inner.Size(ctx, key) })
}

func (r *retryStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := retry(ctx, r, func() (struct{}, error) { return struct{}{}, r.inner.Set(ctx, key, value) })
	return err
}

func (r *retryStore) Delete(ctx context.Context, key string) error {
	_, err := retry(ctx, r, func() (struct{}, error) { return struct{}{}, r.inner.Delete(ctx, key) })
	return err
}

func (r *retryStore) List(ctx context.Context, prefix string) ([]string, error) {
	return retry(ctx, r, func() ([]string, error) { return r.inner.List(ctx, prefix) })
}

func (r *retryStore) SupportsRange() bool { return r.inner.SupportsRange() }
