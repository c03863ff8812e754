package schedule

import "context"

// Future is the handle returned by Submit. It resolves exactly once with the
// task's outcome.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// complete delivers the task's outcome and releases all waiters. Called
// exactly once by the scheduler.
func (f *Future[T]) complete(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Wait blocks until the task has completed or the context is cancelled and
// returns the task's outcome.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
