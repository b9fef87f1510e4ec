package node

import (
	"context"
	"sync"
)

// Future is used to represent the completion of a task that may occur in the
// future.
type Future struct {
	done chan struct{}
	err  error
	once sync.Once
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the future arrives.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Error blocks until the future arrives and then returns its error status.
// It may be called any number of times; all calls return the same value.
func (f *Future) Error() error {
	<-f.done
	return f.err
}

// Wait is like Error but gives up when ctx is done, returning ctx.Err().
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
