package internal

import (
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/sowilo/pkg/config"
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

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
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
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestWatchConfig_RequiresRoots(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Watch.Roots = nil
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "watch") {
		t.Fatalf("expected watch error, got %v", err)
	}

	cfg.Watch.Roots = []string{"./a", ""}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty root should fail validation")
	}
}

func TestSearchConfig_PageSizes(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Search.DefaultPageSize = 50
	cfg.Search.MaxPageSize = 10
	if err := cfg.Validate(); err == nil {
		t.Fatal("default page size above max should fail")
	}

	cfg.Search.MaxPageSize = 5000
	cfg.Search.DefaultPageSize = 20
	if err := cfg.Validate(); err == nil {
		t.Fatal("max page size above the hard limit should fail")
	}
}

func TestSearchConfig_EngineConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Search.ContentCap = 42
	ec := cfg.Search.EngineConfig()
	if ec.ContentCap != 42 || ec.CommitEvery != cfg.Search.CommitEvery {
		t.Errorf("unexpected engine config: %+v", ec)
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("APP_AUTH_TOKEN", "")
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load("../config/config.yaml", cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.ReconcileDelay != 200*time.Millisecond || cfg.Search.CommitTimeout != 30*time.Second {
		t.Errorf("durations not decoded: %+v %+v", cfg.Watch, cfg.Search)
	}
	if cfg.Auth.AuthEnabled() {
		t.Error("sample config should leave auth disabled")
	}
}
