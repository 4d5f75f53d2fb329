package federa

import (
	"context"
	"sync"
)

// Future represents an asynchronous module load result.
type Future struct {
	value     any
	err       error
	completed bool
	done      chan struct{}
	cancel    chan struct{}
	mu        sync.RWMutex
}

// Await waits for the future to complete and returns the module value.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		f.mu.RLock()
		defer f.mu.RUnlock()
		return f.value, f.err
	}
}

// Done returns true if the future has completed.
func (f *Future) Done() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.completed
}

// Result returns the value if completed, or ErrNotCompleted if not.
func (f *Future) Result() (any, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.completed {
		return nil, ErrNotCompleted
	}
	return f.value, f.err
}

// Cancel cancels the pending load.
func (f *Future) Cancel() {
	select {
	case f.cancel <- struct{}{}:
	default:
	}
}
