package httpclient

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/sparqlkit/errors"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Timeout)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("expected 10s connect timeout, got %v", cfg.ConnectTimeout)
	}
	if cfg.DrainLimit != DefaultDrainLimit {
		t.Errorf("expected drain limit %d, got %d", DefaultDrainLimit, cfg.DrainLimit)
	}
	if cfg.MaxRedirects != 10 || cfg.FollowRedirects {
		t.Errorf("expected 10 max redirects and no following, got %d/%v", cfg.MaxRedirects, cfg.FollowRedirects)
	}
	if cfg.Name != "sparql" || !strings.HasPrefix(cfg.UserAgent, "sparqlkit/") {
		t.Errorf("unexpected name/user agent %q/%q", cfg.Name, cfg.UserAgent)
	}
}

func TestConfig_ApplyDefaults_KeepsValues(t *testing.T) {
	cfg := Config{Timeout: 5 * time.Second, DrainLimit: 10}
	cfg.ApplyDefaults()
	if cfg.Timeout != 5*time.Second || cfg.DrainLimit != 10 {
		t.Errorf("defaults overwrote explicit values: %v/%d", cfg.Timeout, cfg.DrainLimit)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"timeout only", Config{Timeout: time.Second}, false},
		{"negative redirects", Config{Timeout: time.Second, MaxRedirects: -1}, true},
		{"tls cert without key", Config{Timeout: time.Second, TLS: &TLSConfig{CertFile: "c.pem"}}, true},
		{"tls bad version", Config{Timeout: time.Second, TLS: &TLSConfig{MinVersion: "1.0"}}, true},
		{"bearer without token", Config{Timeout: time.Second, Auth: BearerAuth("")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.HasCode(err, errors.ErrCodeInvalidRequest) {
				t.Errorf("expected INVALID_REQUEST, got %v", err)
			}
		})
	}
}

func TestConfig_Validate_ZeroTimeout(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero timeout without defaults")
	}
}

func TestDefaultGuardConfigs(t *testing.T) {
	cb := DefaultCircuitBreakerConfig("ep")
	if cb.Name != "ep" || cb.MaxFailures != 5 {
		t.Errorf("unexpected breaker defaults: %+v", cb)
	}
	rl := DefaultRateLimiterConfig("ep")
	if rl.Name != "ep" || rl.Rate != 10 {
		t.Errorf("unexpected limiter defaults: %+v", rl)
	}
}
