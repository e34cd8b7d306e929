package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/sparqlkit/logger"
)

// Lazy is a Component owning one resource of type T. Start builds it,
// Stop releases it. A failed build leaves the component stopped, and the
// next Start tries again.
type Lazy[T any] struct {
	name    string
	build   func(ctx context.Context) (T, error)
	check   func(ctx context.Context, v T) error
	release func(v T) error

	mu       sync.RWMutex
	value    T
	ready    bool
	buildErr error
}

var _ Component = (*Lazy[struct{}])(nil)

// NewLazy creates a component named name whose resource is made by build.
func NewLazy[T any](name string, build func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{name: name, build: build}
}

// WithHealthCheck sets a check run against the live resource. Wrap the
// returned error with Degraded to report degraded instead of unhealthy.
func (l *Lazy[T]) WithHealthCheck(fn func(ctx context.Context, v T) error) *Lazy[T] {
	l.check = fn
	return l
}

// WithRelease sets the function that frees the resource on Stop.
func (l *Lazy[T]) WithRelease(fn func(v T) error) *Lazy[T] {
	l.release = fn
	return l
}

// Name returns the component name.
func (l *Lazy[T]) Name() string { return l.name }

// Start builds the resource unless it is already live.
func (l *Lazy[T]) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready {
		return nil
	}
	v, err := l.build(ctx)
	if err != nil {
		l.buildErr = err
		return fmt.Errorf("component %s: %w", l.name, err)
	}
	l.value, l.ready, l.buildErr = v, true, nil
	logger.Get("component").Debug("component built", logger.Fields(logger.FieldComponent, l.name))
	return nil
}

// Stop releases the resource. Stopping a stopped component does nothing.
func (l *Lazy[T]) Stop(_ context.Context) error {
	l.mu.Lock()
	v, ready := l.value, l.ready
	var zero T
	l.value, l.ready = zero, false
	l.mu.Unlock()
	if !ready || l.release == nil {
		return nil
	}
	return l.release(v)
}

// Get returns the live resource; ok is false before Start or after Stop.
func (l *Lazy[T]) Get() (v T, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.ready
}

// Health is unhealthy while stopped, otherwise the outcome of the health
// check.
func (l *Lazy[T]) Health(ctx context.Context) Health {
	h := Health{Name: l.name, Status: StatusHealthy}
	l.mu.RLock()
	v, ready, buildErr := l.value, l.ready, l.buildErr
	l.mu.RUnlock()

	switch {
	case !ready && buildErr != nil:
		h.Status, h.Message = StatusUnhealthy, "build failed: "+buildErr.Error()
	case !ready:
		h.Status, h.Message = StatusUnhealthy, "not started"
	case l.check != nil:
		if err := l.check(ctx, v); err != nil {
			h.Status, h.Message = StatusUnhealthy, err.Error()
			if IsDegraded(err) {
				h.Status = StatusDegraded
			}
		}
	}
	return h
}
