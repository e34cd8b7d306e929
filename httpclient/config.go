package httpclient

import (
	"time"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/resilience"
	"github.com/kbukum/sparqlkit/validation"
	"github.com/kbukum/sparqlkit/version"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultConnectTimeout = 10 * time.Second
	defaultMaxRedirects   = 10
	defaultIdleConns      = 16
)

// Config configures the HTTP transport shared by all protocol operations.
type Config struct {
	// Name identifies the client in logs, health reports and breaker errors.
	Name string `yaml:"name" mapstructure:"name"`

	// Timeout bounds a whole exchange, body reads included. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// ConnectTimeout bounds dialing. Defaults to 10s.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gte=0"`

	// UserAgent is sent unless a request sets its own.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// FollowRedirects lets the transport follow up to MaxRedirects redirects.
	// A redirect that still reaches the client is reported as an error.
	FollowRedirects bool `yaml:"follow_redirects" mapstructure:"follow_redirects"`

	// MaxRedirects caps followed redirects. Defaults to 10.
	MaxRedirects int `yaml:"max_redirects" mapstructure:"max_redirects" validate:"gte=0"`

	// DrainLimit bounds the bytes discarded when an unread body is closed.
	// Defaults to 1 MiB.
	DrainLimit int64 `yaml:"drain_limit" mapstructure:"drain_limit" validate:"gte=0"`

	// MaxIdleConnsPerHost sizes the keep-alive pool. Defaults to 16.
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host" validate:"gte=0"`

	// Auth configures default authentication applied to all requests.
	// Endpoint overrides can replace it.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// TLS configures trust settings for HTTPS endpoints.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// HTTP2 enables HTTP/2 over TLS with connection health checks.
	HTTP2 *HTTP2Config `yaml:"http2" mapstructure:"http2"`

	// CircuitBreaker guards dispatch. Nil disables it. It never re-sends.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimiter throttles dispatch. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"rate_limiter" mapstructure:"rate_limiter"`
}

// HTTP2Config tunes the HTTP/2 transport.
type HTTP2Config struct {
	// ReadIdleTimeout triggers a health-check ping on an idle connection.
	// Zero disables pings.
	ReadIdleTimeout time.Duration `yaml:"read_idle_timeout" mapstructure:"read_idle_timeout" validate:"gte=0"`
	// PingTimeout closes a connection whose ping is not answered in time.
	PingTimeout time.Duration `yaml:"ping_timeout" mapstructure:"ping_timeout" validate:"gte=0"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "sparql"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	if c.DrainLimit <= 0 {
		c.DrainLimit = DefaultDrainLimit
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = defaultIdleConns
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return errors.InvalidRequest("httpclient: timeout must be positive")
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// DefaultCircuitBreakerConfig returns a default circuit breaker config.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}

// DefaultRateLimiterConfig returns a default rate limiter config.
func DefaultRateLimiterConfig(name string) *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig(name)
	return &cfg
}
