package config

import (
	"fmt"
	"strings"

	"github.com/kbukum/sparqlkit/component"
	"github.com/kbukum/sparqlkit/endpoint"
	"github.com/kbukum/sparqlkit/httpclient"
	"github.com/kbukum/sparqlkit/logger"
	"github.com/kbukum/sparqlkit/sparql"
)

// ServiceConfig is the root configuration of a process that talks to SPARQL
// endpoints.
type ServiceConfig struct {
	Name        string           `yaml:"name" mapstructure:"name"`
	Environment string           `yaml:"environment" mapstructure:"environment"`
	Version     string           `yaml:"version" mapstructure:"version"`
	Debug       bool             `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config    `yaml:"logging" mapstructure:"logging"`
	Client      sparql.Config    `yaml:"client" mapstructure:"client"`
	Endpoints   []EndpointConfig `yaml:"endpoints" mapstructure:"endpoints"`
}

// EndpointConfig is a static override registered for one endpoint URL, or
// for every endpoint under a prefix when Key ends in "/".
type EndpointConfig struct {
	Key         string            `yaml:"key" mapstructure:"key"`
	Headers     map[string]string `yaml:"headers" mapstructure:"headers"`
	Params      map[string]string `yaml:"params" mapstructure:"params"`
	BearerToken string            `yaml:"bearer_token" mapstructure:"bearer_token"`
}

// Override converts e into an endpoint override.
func (e EndpointConfig) Override() endpoint.Override {
	var o endpoint.Override
	var mods []endpoint.Modifier
	if len(e.Params) > 0 {
		mods = append(mods, endpoint.SetParams(e.Params))
	}
	if len(e.Headers) > 0 {
		mods = append(mods, endpoint.SetHeaders(e.Headers))
	}
	if len(mods) > 0 {
		o.Modifier = endpoint.Chain(mods...)
	}
	if e.BearerToken != "" {
		o.Auth = httpclient.BearerAuth(e.BearerToken)
	}
	return o
}

// ApplyDefaults fills unset fields.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	c.Client.ApplyDefaults()
}

var validEnvironments = []string{"development", "staging", "production"}

// Validate checks c after ApplyDefaults.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	found := false
	for _, v := range validEnvironments {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", validEnvironments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("config.client: %w", err)
	}
	for i, e := range c.Endpoints {
		if strings.TrimSpace(e.Key) == "" {
			return fmt.Errorf("config.endpoints[%d].key is required", i)
		}
	}
	return nil
}

// Register adds every configured endpoint override to r.
func (c *ServiceConfig) Register(r *endpoint.Registry) error {
	for i, e := range c.Endpoints {
		if err := r.RegisterOverride(e.Key, e.Override()); err != nil {
			return fmt.Errorf("config.endpoints[%d]: %w", i, err)
		}
	}
	return nil
}

// Components validates c, registers its endpoint overrides in r and returns
// a component registry holding a client component named after the service.
// Starting the registry builds the client; stopping it closes the client.
func (c *ServiceConfig) Components(r *endpoint.Registry, opts ...sparql.ClientOption) (*component.Registry, *sparql.Component, error) {
	r, err := c.prepare(r)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]sparql.ClientOption{sparql.WithEndpointRegistry(r)}, opts...)
	comp := sparql.NewComponent(c.Name, c.Client, opts...)
	reg := component.NewRegistry()
	if err := reg.Register(comp); err != nil {
		return nil, nil, err
	}
	return reg, comp, nil
}

// Build validates c, registers its endpoint overrides in r and returns a
// client bound to r. A nil r uses the process-wide registry.
func (c *ServiceConfig) Build(r *endpoint.Registry, opts ...sparql.ClientOption) (*sparql.Client, error) {
	r, err := c.prepare(r)
	if err != nil {
		return nil, err
	}
	opts = append([]sparql.ClientOption{sparql.WithEndpointRegistry(r)}, opts...)
	return sparql.New(c.Client, opts...)
}

func (c *ServiceConfig) prepare(r *endpoint.Registry) (*endpoint.Registry, error) {
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = endpoint.Default()
	}
	if err := c.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}
