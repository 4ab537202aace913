// Package async holds the two suspension points the studio relies on: a
// one-shot Future for results produced off the caller's goroutine, and a
// cancel-and-restart Debouncer.
package async

import (
	"context"
	"sync"
)

// Future is a one-shot result that completes exactly once.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// NewFuture returns a pending future and the function that completes it.
// Only the first call to resolve has any effect.
func NewFuture[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.resolve
}

// Go runs fn on a new goroutine and returns a future for its result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f, resolve := NewFuture[T]()
	go func() {
		resolve(fn(ctx))
	}()
	return f
}

// Resolved returns an already completed future.
func Resolved[T any](v T, err error) *Future[T] {
	f, resolve := NewFuture[T]()
	resolve(v, err)
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future has a result.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the future completes or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
