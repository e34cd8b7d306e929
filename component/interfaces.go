package component

import (
	"context"
	stderrors "errors"
)

// HealthStatus is the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// worse reports whether s is a worse state than o.
func (s HealthStatus) worse(o HealthStatus) bool {
	return s.rank() > o.rank()
}

func (s HealthStatus) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	}
	return 2
}

// Health is the health of one component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed part of the process.
type Component interface {
	// Name is unique within a Registry.
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description summarizes a component.
type Description struct {
	// Name defaults to the component's Name().
	Name string
	// Type categorizes the component, e.g. "sparql-client".
	Type string
	// Details is a one-line summary such as the send mode or timeout.
	Details string
}

// Describable is optionally implemented by components.
type Describable interface {
	Describe() Description
}

type degradedError struct{ error }

func (e degradedError) Unwrap() error { return e.error }

// Degraded marks a health check failure as degraded rather than unhealthy:
// the component still serves, with reduced capacity.
func Degraded(err error) error {
	if err == nil {
		return nil
	}
	return degradedError{err}
}

// IsDegraded reports whether err was marked with Degraded.
func IsDegraded(err error) bool {
	var d degradedError
	return stderrors.As(err, &d)
}
