package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/flownote/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStorageConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	s := cfg.Storage
	if got, want := s.HandleDBPath(), filepath.Join(".flownote", "handles.db"); got != want {
		t.Errorf("handle db = %q, want %q", got, want)
	}
	if got, want := s.SearchDBPath(), filepath.Join(".flownote", "search.db"); got != want {
		t.Errorf("search db = %q, want %q", got, want)
	}
	if got := s.FallbackStoreDSN(); !strings.HasPrefix(got, "sqlite:") {
		t.Errorf("fallback dsn = %q", got)
	}
	s.FallbackDSN = "redis://localhost:6379/0"
	if got := s.FallbackStoreDSN(); got != "redis://localhost:6379/0" {
		t.Errorf("explicit dsn = %q", got)
	}
}

func TestStorageConfig_Invalid(t *testing.T) {
	cases := map[string]func(*StorageConfig){
		"no state dir":   func(c *StorageConfig) { c.StateDir = "" },
		"negative quota": func(c *StorageConfig) { c.FallbackQuotaBytes = -1 },
		"negative wait":  func(c *StorageConfig) { c.RestoreWait = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			mutate(&cfg.Storage)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestLoadYAMLWithEnv(t *testing.T) {
	t.Setenv("FLOWNOTE_TEST_STATE", "/var/lib/flownote")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  http:
    port: 9090
storage:
  state_dir: ${FLOWNOTE_TEST_STATE}
  restore_wait: 2s
  watch: false
auth:
  mode: token
  token: abc
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Storage.StateDir != "/var/lib/flownote" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Storage.RestoreWait != 2*time.Second || cfg.Storage.Watch {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.SuggestedName != "flownote" {
		t.Errorf("unset fields should keep defaults, got %q", cfg.Storage.SuggestedName)
	}
	if !cfg.Auth.AuthEnabled() {
		t.Error("auth should be enabled")
	}
}
