package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"github.com/oshokin/alarm-panel/internal/logger"
)

// DefaultSize is the pool size used when none is configured.
const DefaultSize = 4

var (
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrTaskPanicked is returned by a Future whose task panicked.
	ErrTaskPanicked = errors.New("task panicked")
)

// Executor schedules a function on some other goroutine.
type Executor interface {
	Go(ctx context.Context, fn func()) error
}

// Pool is an Executor backed by an ants goroutine pool.
type Pool struct {
	// pool runs the submitted functions.
	pool *ants.Pool
}

// NewPool creates a pool with at most size concurrent workers.
func NewPool(ctx context.Context, size int) (*Pool, error) {
	if size <= 0 {
		size = DefaultSize
	}

	p, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		logger.ErrorKV(ctx, "Worker recovered from panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Pool{pool: p}, nil
}

// Go submits fn. It blocks while all workers are busy.
func (p *Pool) Go(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.pool.Submit(fn); err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}

		return fmt.Errorf("submit task: %w", err)
	}

	return nil
}

// Running returns the number of busy workers.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release stops accepting tasks. Running tasks are not interrupted.
func (p *Pool) Release() {
	p.pool.Release()
}
