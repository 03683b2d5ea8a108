// Package deadline runs a unit of work against a hard deadline.
package deadline

import (
	"context"
	"time"
)

type outcome[T any] struct {
	value    T
	panicked any
}

// Race runs work with a context that expires after timeout and returns its
// result. If work has not returned by the time the context is done,
// onTimeout is called with the context error and its value is returned
// instead; work keeps its cancelled context and is expected to unwind on
// its own. A non-positive timeout only inherits the parent's deadline.
//
// A panic in work is re-raised in the caller's goroutine, unless the
// deadline has already passed.
func Race[T any](ctx context.Context, timeout time.Duration, work func(context.Context) T, onTimeout func(error) T) T {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// buffered so a late worker never blocks
	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome[T]{panicked: p}
			}
		}()
		done <- outcome[T]{value: work(ctx)}
	}()

	select {
	case o := <-done:
		return o.unwrap()
	case <-ctx.Done():
		// prefer a result that raced the deadline
		select {
		case o := <-done:
			return o.unwrap()
		default:
		}
		return onTimeout(ctx.Err())
	}
}

func (o outcome[T]) unwrap() T {
	if o.panicked != nil {
		panic(o.panicked)
	}
	return o.value
}
