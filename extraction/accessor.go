package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Handle is an opaque reference to a node owned by a TextAccessor.
type Handle = any

// TextAccessor is the only way the engine touches a document. Implementations return a nil
// Handle with a nil error for "not found"; any error is treated the same way by the engine.
type TextAccessor interface {
	QueryOne(ctx context.Context, scope Handle, selector string) (Handle, error)
	QueryAll(ctx context.Context, scope Handle, selector string) ([]Handle, error)
	TextOf(ctx context.Context, h Handle) (string, error)
	ParentOf(ctx context.Context, h Handle) (Handle, error)
	NextSiblingOf(ctx context.Context, h Handle) (Handle, error)
}

var ErrCallTimeout = errors.New("accessor call timed out")

// WithCallTimeout wraps acc so that every call runs under its own deadline of d.
// A call that overruns returns ErrCallTimeout; its goroutine is abandoned, not killed.
func WithCallTimeout(acc TextAccessor, d time.Duration) TextAccessor {
	if d <= 0 {
		return acc
	}
	return &boundedAccessor{inner: acc, timeout: d}
}

type boundedAccessor struct {
	inner   TextAccessor
	timeout time.Duration
}

func (b *boundedAccessor) QueryOne(ctx context.Context, scope Handle, selector string) (Handle, error) {
	return bounded(ctx, b.timeout, func(ctx context.Context) (Handle, error) {
		return b.inner.QueryOne(ctx, scope, selector)
	})
}

func (b *boundedAccessor) QueryAll(ctx context.Context, scope Handle, selector string) ([]Handle, error) {
	return bounded(ctx, b.timeout, func(ctx context.Context) ([]Handle, error) {
		return b.inner.QueryAll(ctx, scope, selector)
	})
}

func (b *boundedAccessor) TextOf(ctx context.Context, h Handle) (string, error) {
	return bounded(ctx, b.timeout, func(ctx context.Context) (string, error) {
		return b.inner.TextOf(ctx, h)
	})
}

func (b *boundedAccessor) ParentOf(ctx context.Context, h Handle) (Handle, error) {
	return bounded(ctx, b.timeout, func(ctx context.Context) (Handle, error) {
		return b.inner.ParentOf(ctx, h)
	})
}

func (b *boundedAccessor) NextSiblingOf(ctx context.Context, h Handle) (Handle, error) {
	return bounded(ctx, b.timeout, func(ctx context.Context) (Handle, error) {
		return b.inner.NextSiblingOf(ctx, h)
	})
}

// Unwrap returns the accessor the deadlines are applied to.
func (b *boundedAccessor) Unwrap() TextAccessor {
	return b.inner
}

func bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrCallTimeout, ctx.Err())
	}
}
