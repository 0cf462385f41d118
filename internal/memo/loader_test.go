package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoaderCachesFirstSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	l := New(func(context.Context) (string, error) {
		calls.Add(1)
		return "toc", nil
	}, time.Second)
	require.Equal(t, StateUnloaded, l.State())

	for i := 0; i < 3; i++ {
		v, err := l.Get(context.Background())
		require.NoError(t, err)
		require.Equal(t, "toc", v)
	}
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, StateLoaded, l.State())
}

func TestLoaderCollapsesConcurrentCallers(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	l := New(func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}, time.Second)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Get(context.Background())
			if err == nil {
				results[i] = v
			}
		}(i)
	}

	require.Eventually(t, func() bool {
		return l.State() == StateLoading
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		require.Equal(t, 42, v)
	}
}

func TestLoaderRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls atomic.Int32
	l := New(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", boom
		}
		return "ok", nil
	}, time.Second)

	_, err := l.Get(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, StateFailed, l.State())
	require.ErrorIs(t, l.Err(), boom)

	v, err := l.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, StateLoaded, l.State())
	require.NoError(t, l.Err())
	require.Equal(t, int32(2), calls.Load())
}

func TestLoaderTimeoutSurfacesAsError(t *testing.T) {
	t.Parallel()

	l := New(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}, 20*time.Millisecond)

	_, err := l.Get(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, StateFailed, l.State())
}

func TestLoaderCallerCancellationDoesNotAbortLoad(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	l := New(func(ctx context.Context) (string, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := l.Get(ctx)
		errCh <- err
	}()
	require.Eventually(t, func() bool {
		return l.State() == StateLoading
	}, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	v, err := l.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "done", v)
}

func TestStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "unloaded", StateUnloaded.String())
	require.Equal(t, "loading", StateLoading.String())
	require.Equal(t, "loaded", StateLoaded.String())
	require.Equal(t, "failed", StateFailed.String())
	require.Equal(t, "state(9)", State(9).String())
}
