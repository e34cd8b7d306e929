package sparql

import (
	"github.com/kbukum/sparqlkit/httpclient"
	"github.com/kbukum/sparqlkit/negotiation"
	"github.com/kbukum/sparqlkit/validation"
)

// Config configures a Client. It is copied at construction; later changes
// have no effect on the client.
type Config struct {
	// HTTP configures the transport, timeouts, auth and guards.
	HTTP httpclient.Config `yaml:"http" mapstructure:"http"`

	// Mode is the default send mode for queries and updates.
	Mode SendMode `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=get-with-limit get post-form post-body"`

	// MaxGetLength is the URL length limit of GetWithLimit. Defaults to 2048.
	MaxGetLength int `yaml:"max_get_length" mapstructure:"max_get_length" validate:"gte=0"`

	// Headers are sent with every request. Per-call headers and endpoint
	// overrides replace them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// GraphFormat is the payload format of GraphPost and GraphPut.
	GraphFormat negotiation.Format `yaml:"graph_format" mapstructure:"graph_format"`

	// DatasetFormat is the payload format of DatasetPost and DatasetPut.
	DatasetFormat negotiation.Format `yaml:"dataset_format" mapstructure:"dataset_format"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	c.HTTP.ApplyDefaults()
	if c.Mode == "" {
		c.Mode = GetWithLimit
	}
	if c.MaxGetLength <= 0 {
		c.MaxGetLength = DefaultMaxGetLength
	}
	if c.GraphFormat == negotiation.FormatNone {
		c.GraphFormat = negotiation.FormatNTriples
	}
	if c.DatasetFormat == negotiation.FormatNone {
		c.DatasetFormat = negotiation.FormatNQuads
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.HTTP.Validate()
}
