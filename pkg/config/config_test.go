package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Name  string   `yaml:"name"`
	Roots []string `yaml:"roots"`
}

func (c *testConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SOWILO_TEST_ROOT", "/srv/docs")
	p := writeConfig(t, "name: test\nroots:\n  - ${SOWILO_TEST_ROOT}\n")

	var cfg testConfig
	if err := Load(p, &cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Roots) != 1 || cfg.Roots[0] != "/srv/docs" {
		t.Errorf("roots = %v", cfg.Roots)
	}
}

func TestLoad_RunsValidation(t *testing.T) {
	p := writeConfig(t, "roots: []\n")
	var cfg testConfig
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadOrDefault_MissingFileKeepsDefaults(t *testing.T) {
	cfg := testConfig{Name: "default"}
	if err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "default" {
		t.Errorf("name = %q", cfg.Name)
	}

	var empty testConfig
	if err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), &empty); err == nil {
		t.Error("defaults should still be validated")
	}
}

func TestLoadOrDefault_OverridesDefaults(t *testing.T) {
	p := writeConfig(t, "name: from-file\n")
	cfg := testConfig{Name: "default", Roots: []string{"./data"}}
	if err := LoadOrDefault(p, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "from-file" || len(cfg.Roots) != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
}
