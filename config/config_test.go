package config

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/sparqlkit/component"
	"github.com/kbukum/sparqlkit/endpoint"
	"github.com/kbukum/sparqlkit/sparql"
	"github.com/kbukum/sparqlkit/sparqltest"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{Name: "svc"}
	cfg.ApplyDefaults()
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("expected debug development, got %q debug=%v", cfg.Environment, cfg.Debug)
	}
	if cfg.Logging.ServiceName != "svc" || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected logging defaults %+v", cfg.Logging)
	}
	if cfg.Client.Mode != sparql.GetWithLimit || cfg.Client.MaxGetLength != sparql.DefaultMaxGetLength {
		t.Errorf("unexpected client defaults mode=%s max=%d", cfg.Client.Mode, cfg.Client.MaxGetLength)
	}

	prod := ServiceConfig{Name: "svc", Environment: "production"}
	prod.ApplyDefaults()
	if prod.Debug || prod.Logging.Level != "info" {
		t.Errorf("expected info level in production, got %q", prod.Logging.Level)
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc"}, ""},
		{"missing name", ServiceConfig{}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
		{"invalid mode", ServiceConfig{Name: "svc", Client: sparql.Config{Mode: "teleport"}}, "config.client"},
		{"empty endpoint key", ServiceConfig{Name: "svc", Endpoints: []EndpointConfig{{}}}, "config.endpoints[0].key"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yaml := `
name: sparql-sync
environment: staging
client:
  mode: post-form
  max_get_length: 512
  http:
    timeout: 5s
endpoints:
  - key: http://example.org/sparql
    headers:
      X-Team: data
    params:
      timeout: "30"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg ServiceConfig
	if err := LoadConfig("sparql-sync", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, ".env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "sparql-sync" || cfg.Environment != "staging" {
		t.Errorf("unexpected base fields %q %q", cfg.Name, cfg.Environment)
	}
	if cfg.Client.Mode != sparql.PostForm || cfg.Client.MaxGetLength != 512 {
		t.Errorf("unexpected client mode=%s max=%d", cfg.Client.Mode, cfg.Client.MaxGetLength)
	}
	if cfg.Client.HTTP.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.Client.HTTP.Timeout)
	}
	if len(cfg.Endpoints) != 1 || cfg.Endpoints[0].Params["timeout"] != "30" {
		t.Errorf("unexpected endpoints %+v", cfg.Endpoints)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("name: svc\nclient:\n  max_get_length: 512\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CLIENT_MAX_GET_LENGTH", "100")

	var cfg ServiceConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, ".env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.MaxGetLength != 100 {
		t.Errorf("expected env override 100, got %d", cfg.Client.MaxGetLength)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg ServiceConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnvFile("/nonexistent/.env"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func TestResolverFindsServiceFiles(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"cmd/sync/config.yml":   true,
		"config/.env.acme-sync": true,
	}}
	files := (&Resolver{FileSystem: fs}).ResolveFiles("acme-sync", LoaderConfig{})
	if files.ConfigFile != "cmd/sync/config.yml" {
		t.Errorf("expected short-name config file, got %q", files.ConfigFile)
	}
	if files.EnvFile != "config/.env.acme-sync" {
		t.Errorf("expected service env file, got %q", files.EnvFile)
	}

	explicit := (&Resolver{FileSystem: fs}).ResolveFiles("acme-sync", LoaderConfig{ConfigFile: "x.yml"})
	if explicit.ConfigFile != "x.yml" {
		t.Errorf("expected explicit path, got %q", explicit.ConfigFile)
	}
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	fs := &mockFS{files: map[string]bool{".env": true}}
	var cfg ServiceConfig
	if err := LoadConfig("svc", &cfg, WithFileSystem(fs)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.loaded) != 1 || fs.loaded[0] != ".env" {
		t.Errorf("expected .env loaded, got %v", fs.loaded)
	}
}

func TestEnvKeys(t *testing.T) {
	keys := envKeys("CLIENT_MAX_GET_LENGTH")
	want := map[string]bool{"client.max_get_length": false, "client_max_get_length": false, "client.max.get.length": false}
	for _, k := range keys {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("expected key %q in %v", k, keys)
		}
	}
	if got := envKeys("NAME"); len(got) != 1 || got[0] != "name" {
		t.Errorf("expected [name], got %v", got)
	}
}

func TestBuildRegistersOverrides(t *testing.T) {
	srv := sparqltest.New(t, sparqltest.WithBearer("s3cret"))
	cfg := ServiceConfig{
		Name: "svc",
		Endpoints: []EndpointConfig{{
			Key:         srv.URL + "/",
			Headers:     map[string]string{"X-Team": "data"},
			BearerToken: "s3cret",
		}},
	}
	reg := endpoint.NewRegistry()
	client, err := cfg.Build(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close(context.Background())

	if reg.Len() != 1 {
		t.Errorf("expected 1 override, got %d", reg.Len())
	}
	ok, err := client.Ask(context.Background(), srv.QueryURL(), "ASK {}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected an empty pattern to match")
	}
	req, _ := srv.LastRequest()
	if req.Header.Get("X-Team") != "data" {
		t.Errorf("expected override header, got %q", req.Header.Get("X-Team"))
	}
	if req.Method != http.MethodGet {
		t.Errorf("expected GET, got %s", req.Method)
	}
}

func TestComponentsLifecycle(t *testing.T) {
	srv := sparqltest.New(t)
	cfg := ServiceConfig{
		Name:      "svc",
		Endpoints: []EndpointConfig{{Key: srv.URL + "/", Headers: map[string]string{"X-Team": "data"}}},
	}
	reg, comp, err := cfg.Components(endpoint.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp.Client() != nil {
		t.Fatal("expected no client before Start")
	}
	ctx := context.Background()
	if err := reg.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client := comp.Client()
	if client == nil {
		t.Fatal("expected a client after Start")
	}
	if rep := reg.Health(ctx); rep.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %+v", rep)
	}
	if _, err := client.Ask(ctx, srv.QueryURL(), "ASK {}"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, _ := srv.LastRequest()
	if req.Header.Get("X-Team") != "data" {
		t.Errorf("expected override header, got %q", req.Header.Get("X-Team"))
	}

	if err := reg.Stop(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp.Client() != nil {
		t.Error("expected no client after Stop")
	}
}

func TestComponentsRejectsInvalidConfig(t *testing.T) {
	cfg := ServiceConfig{Name: "svc", Endpoints: []EndpointConfig{{}}}
	if _, _, err := cfg.Components(endpoint.NewRegistry()); err == nil {
		t.Fatal("expected a validation error")
	}
}
