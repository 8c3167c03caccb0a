package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/stretchr/testify/require"
)

func TestCallProviderBoundedWhenContextIgnored(t *testing.T) {
	t.Parallel()
	start := time.Now()
	_, err := CallProvider(context.Background(), 20*time.Millisecond, "stuck", func(context.Context) (int, error) {
		time.Sleep(300 * time.Millisecond)
		return 1, nil
	})
	require.ErrorIs(t, err, core.ErrProviderTimeout)
	require.ErrorIs(t, err, core.ErrProviderFailure)
	require.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestCallProviderClassifies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	v, err := CallProvider(ctx, time.Second, "ok", func(context.Context) (string, error) { return "v", nil })
	require.NoError(t, err)
	require.Equal(t, "v", v)

	_, err = CallProvider(ctx, time.Second, "consume", func(context.Context) (int, error) { return 0, core.ErrCannotConsume })
	require.ErrorIs(t, err, core.ErrCannotConsume)
	require.NotErrorIs(t, err, core.ErrProviderFailure)

	raw := errors.New("ice agent died")
	_, err = CallProvider(ctx, time.Second, "connect", func(context.Context) (int, error) { return 0, raw })
	require.ErrorIs(t, err, core.ErrProviderFailure)
	require.ErrorIs(t, err, raw)
	require.Contains(t, err.Error(), "connect")
}

func TestCallProviderCanceledByCaller(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CallProvider(ctx, time.Second, "produce", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, core.ErrProviderTimeout)
}
