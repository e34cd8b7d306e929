package sparql

import (
	"context"
	"fmt"

	"github.com/kbukum/sparqlkit/component"
	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/resilience"
)

// Component manages a Client's lifecycle: Start builds it, Stop closes it
// and Health reports degraded while the circuit breaker is open.
type Component struct {
	*component.Lazy[*Client]
	cfg Config
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a client component named name.
func NewComponent(name string, cfg Config, opts ...ClientOption) *Component {
	build := func(context.Context) (*Client, error) {
		return New(cfg, opts...)
	}
	checkCircuit := func(_ context.Context, c *Client) error {
		if c.CircuitState() == resilience.StateOpen {
			return component.Degraded(errors.CircuitOpen(name))
		}
		return nil
	}
	release := func(c *Client) error {
		return c.Close(context.Background())
	}
	return &Component{
		Lazy: component.NewLazy(name, build).WithHealthCheck(checkCircuit).WithRelease(release),
		cfg:  cfg,
	}
}

// Describe summarizes the client configuration.
func (c *Component) Describe() component.Description {
	cfg := c.cfg
	cfg.ApplyDefaults()
	return component.Description{
		Type:    "sparql-client",
		Details: fmt.Sprintf("mode=%s timeout=%s max_get_length=%d", cfg.Mode, cfg.HTTP.Timeout, cfg.MaxGetLength),
	}
}

// Client returns the running client, or nil before Start and after Stop.
func (c *Component) Client() *Client {
	client, _ := c.Get()
	return client
}
