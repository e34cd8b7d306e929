package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/logger"
)

// DefaultStopTimeout bounds the Stop of each component.
const DefaultStopTimeout = 10 * time.Second

type entry struct {
	c       Component
	started bool
}

// Registry starts components in registration order and stops them in
// reverse. It is safe for concurrent use.
type Registry struct {
	// StopTimeout bounds each component's Stop; zero means DefaultStopTimeout.
	StopTimeout time.Duration

	mu      sync.Mutex
	entries []*entry
	names   map[string]*entry
	log     *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]*entry),
		log:   logger.Get("component"),
	}
}

// Register adds c. Names must be unique; register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	if _, ok := r.names[name]; ok {
		return errors.InvalidRequest(fmt.Sprintf("component %q already registered", name))
	}
	e := &entry{c: c}
	r.entries = append(r.entries, e)
	r.names[name] = e
	return nil
}

// Start starts every component not yet started. When one fails, the
// components started by this call are stopped again in reverse order.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var started []*entry
	for _, e := range r.entries {
		if e.started {
			continue
		}
		name := e.c.Name()
		if err := e.c.Start(ctx); err != nil {
			r.log.WithError(err).Error("component start failed", logger.Fields(logger.FieldComponent, name))
			for i := len(started) - 1; i >= 0; i-- {
				r.stop(ctx, started[i])
			}
			return fmt.Errorf("start %s: %w", name, err)
		}
		e.started = true
		started = append(started, e)
		r.log.Debug("component started", logger.Fields(logger.FieldComponent, name))
	}
	return nil
}

// Stop stops the started components in reverse order and joins their
// errors.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		if e := r.entries[i]; e.started {
			if err := r.stop(ctx, e); err != nil {
				errs = append(errs, fmt.Errorf("stop %s: %w", e.c.Name(), err))
			}
		}
	}
	return stderrors.Join(errs...)
}

// stop runs one Stop under the stop timeout. r.mu is held.
func (r *Registry) stop(ctx context.Context, e *entry) error {
	timeout := r.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := e.c.Stop(ctx)
	e.started = false
	if err != nil {
		r.log.WithError(err).Warn("component stop failed", logger.Fields(logger.FieldComponent, e.c.Name()))
	}
	return err
}

// Report is the aggregated health of a registry. Status is the worst
// component status; an empty registry is healthy.
type Report struct {
	Status     HealthStatus `json:"status"`
	Components []Health     `json:"components"`
}

// Health checks every component in registration order.
func (r *Registry) Health(ctx context.Context) Report {
	rep := Report{Status: StatusHealthy}
	for _, c := range r.All() {
		h := c.Health(ctx)
		if h.Status.worse(rep.Status) {
			rep.Status = h.Status
		}
		rep.Components = append(rep.Components, h)
	}
	return rep
}

// Describe summarizes the components that implement Describable.
func (r *Registry) Describe() []Description {
	var out []Description
	for _, c := range r.All() {
		d, ok := c.(Describable)
		if !ok {
			continue
		}
		desc := d.Describe()
		if desc.Name == "" {
			desc.Name = c.Name()
		}
		out = append(out, desc)
	}
	return out
}

// Get returns the component named name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.names[name]; ok {
		return e.c
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Component, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.c)
	}
	return out
}
