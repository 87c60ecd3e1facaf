package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koyomi-dev/koyomi/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	if cfg.AWS.Region != "ap-northeast-1" {
		t.Errorf("region = %q", cfg.AWS.Region)
	}
	if cfg.Output.Format != "summary" || !cfg.Output.Color {
		t.Errorf("output defaults = %+v", cfg.Output)
	}
	if cfg.Server.RefreshSchedule != "@daily" {
		t.Errorf("refresh schedule = %q", cfg.Server.RefreshSchedule)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.Server.ShutdownTimeout)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_PROFILE", "")

	path := writeConfig(t, `
aws:
  region: us-west-2
  profile: staging
output:
  format: json
  color: false
server:
  addr: ":9999"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AWS.Region != "us-west-2" || cfg.AWS.Profile != "staging" {
		t.Errorf("aws = %+v", cfg.AWS)
	}
	if cfg.Output.Format != "json" || cfg.Output.Color {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.RefreshSchedule != "@daily" {
		t.Errorf("refresh schedule = %q", cfg.Server.RefreshSchedule)
	}
}

func TestLoadEnvironmentWins(t *testing.T) {
	path := writeConfig(t, `
aws:
  region: us-west-2
  profile: staging
`)
	t.Setenv("AWS_DEFAULT_REGION", "eu-central-1")
	t.Setenv("AWS_PROFILE", "prod")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AWS.Region != "eu-central-1" || cfg.AWS.Profile != "prod" {
		t.Errorf("aws = %+v, want env values", cfg.AWS)
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load succeeded for a missing explicit path")
	}
}

func TestLoadRejectsBadFormat(t *testing.T) {
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_PROFILE", "")

	path := writeConfig(t, "output:\n  format: fancy\n")
	if _, err := config.Load(path); err == nil {
		t.Fatal("Load accepted an unknown output format")
	}
}
