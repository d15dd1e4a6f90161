package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
)

const (
	defaultInitialInterval = 50 * time.Millisecond
	defaultMaxInterval     = 500 * time.Millisecond
)

// Policy controls how often a transient failure is retried.
type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

// Once retries a transient failure a single time.
var Once = Policy{MaxRetries: 1, InitialInterval: defaultInitialInterval}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultInitialInterval
	}
	b.MaxInterval = defaultMaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Do runs op, retrying backend failures according to the policy. Domain
// errors and context cancellation pass through untouched; a backend failure
// that survives the retries is wrapped as ErrStorage.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	res, err := backoff.RetryWithData(func() (T, error) {
		v, err := op(ctx)
		if err != nil && !Transient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, p.backOff(ctx))
	if err == nil {
		return res, nil
	}
	if Transient(err) {
		return res, appErr.Storage(err)
	}
	return res, err
}

// Transient reports whether err is worth another attempt. Domain outcomes,
// errors already classified as storage failures and internal defects are not.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if appErr.IsDomain(err) || errors.Is(err, appErr.ErrStorage) || errors.Is(err, appErr.ErrInternal) {
		return false
	}
	return true
}
