package worker

import (
	"context"
	"fmt"
)

// Future is the pending result of a submitted task.
type Future[T any] struct {
	// done is closed once value and err are set.
	done  chan struct{}
	value T
	err   error
}

// Submit runs task on executor and returns its future.
// A panicking task resolves the future with ErrTaskPanicked.
func Submit[T any](ctx context.Context, executor Executor, task func() (T, error)) (*Future[T], error) {
	future := &Future[T]{done: make(chan struct{})}

	err := executor.Go(ctx, func() {
		defer close(future.done)

		defer func() {
			if r := recover(); r != nil {
				future.err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
			}
		}()

		future.value, future.err = task()
	})
	if err != nil {
		return nil, err
	}

	return future, nil
}

// Await blocks until the task has finished and returns its result.
func (f *Future[T]) Await() (T, error) {
	<-f.done

	return f.value, f.err
}

// Done is closed when the task has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
