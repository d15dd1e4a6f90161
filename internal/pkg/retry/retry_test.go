package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
)

var fast = Policy{MaxRetries: 1, InitialInterval: time.Millisecond}

func TestDoRetriesTransientOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestDoWrapsPersistentFailureAsStorage(t *testing.T) {
	calls := 0
	cause := errors.New("connection refused")
	err := Do(context.Background(), fast, func(ctx context.Context) error {
		calls++
		return cause
	})
	require.Equal(t, 2, calls)
	require.ErrorIs(t, err, appErr.ErrStorage)
	require.ErrorIs(t, err, cause)
}

func TestDoDoesNotRetryDomainErrors(t *testing.T) {
	for _, domainErr := range []error{
		appErr.ErrNotFound,
		appErr.ErrConflict,
		appErr.ErrExpired,
		appErr.NewValidationError("password", "min_length=4"),
	} {
		calls := 0
		err := Do(context.Background(), fast, func(ctx context.Context) error {
			calls++
			return domainErr
		})
		require.Equal(t, 1, calls)
		require.ErrorIs(t, err, domainErr)
		require.NotErrorIs(t, err, appErr.ErrStorage)
	}
}

func TestDoValueReturnsValue(t *testing.T) {
	got, err := DoValue(context.Background(), fast, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestTransient(t *testing.T) {
	require.False(t, Transient(nil))
	require.False(t, Transient(context.Canceled))
	require.False(t, Transient(appErr.ErrNotFound))
	require.False(t, Transient(appErr.Storage(errors.New("x"))))
	require.False(t, Transient(appErr.ErrInternal))
	require.False(t, Transient(appErr.Internal(errors.New("bad builder input"))))
	require.True(t, Transient(errors.New("i/o timeout")))
}

func TestDoDoesNotRetryInternalErrors(t *testing.T) {
	calls := 0
	cause := appErr.Internal(errors.New("invalid file key"))
	err := Do(context.Background(), fast, func(ctx context.Context) error {
		calls++
		return cause
	})
	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, appErr.ErrInternal)
	require.NotErrorIs(t, err, appErr.ErrStorage)
}
