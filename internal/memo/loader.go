// Package memo memoizes a single expensive load. Concurrent callers that
// arrive before the first load completes share one in-flight call.
package memo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a load when no timeout is configured.
const DefaultTimeout = 10 * time.Second

const flightKey = "load"

// State describes where a Loader is in its lifecycle.
type State int

// Loader states.
const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// LoadFunc produces the value a Loader caches.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Loader caches the first successful result of its LoadFunc for the lifetime
// of the process. Failures are not cached: the next Get starts a new load.
type Loader[T any] struct {
	load    LoadFunc[T]
	timeout time.Duration
	group   singleflight.Group

	mu    sync.RWMutex
	state State
	value T
	err   error
}

// New builds a Loader. A non-positive timeout selects DefaultTimeout.
func New[T any](load LoadFunc[T], timeout time.Duration) *Loader[T] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Loader[T]{load: load, timeout: timeout}
}

// Get returns the cached value, loading it first if needed. The load itself
// is detached from ctx so that one impatient caller cannot fail the others;
// ctx only bounds how long this caller waits.
func (l *Loader[T]) Get(ctx context.Context) (T, error) {
	if v, ok := l.cached(); ok {
		return v, nil
	}

	ch := l.group.DoChan(flightKey, func() (any, error) {
		return l.fill(ctx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, fmt.Errorf("await load: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("unexpected loaded type %T", res.Val)
		}
		return v, nil
	}
}

// State reports the current lifecycle state.
func (l *Loader[T]) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Err returns the error from the most recent failed load, if any.
func (l *Loader[T]) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

func (l *Loader[T]) cached() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state == StateLoaded {
		return l.value, true
	}
	var zero T
	return zero, false
}

func (l *Loader[T]) fill(ctx context.Context) (T, error) {
	l.mu.Lock()
	if l.state == StateLoaded {
		v := l.value
		l.mu.Unlock()
		return v, nil
	}
	l.state = StateLoading
	l.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()
	v, err := l.load(loadCtx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = StateFailed
		l.err = err
		var zero T
		return zero, err
	}
	l.state = StateLoaded
	l.value = v
	l.err = nil
	return v, nil
}
