package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ewanmck/rentscout/pkg/score"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.ReferencePoints[0].Name != "edinburgh" || cfg.ReferencePoints[1].Name != "glasgow" {
		t.Errorf("unexpected default reference points: %+v", cfg.ReferencePoints)
	}
	w, err := cfg.Scoring.ResolveWeights()
	if err != nil {
		t.Fatalf("ResolveWeights: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Errorf("default weights: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scoring:
  mode: minimal
cleaning:
  enabled: false
routes:
  api_key: file-key
server:
  port: 9090
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scoring.Mode != "minimal" {
		t.Errorf("mode = %q, want minimal", cfg.Scoring.Mode)
	}
	if cfg.Cleaning.Enabled {
		t.Error("cleaning should be disabled")
	}
	if cfg.Routes.APIKey != "file-key" {
		t.Errorf("api key = %q", cfg.Routes.APIKey)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	// Untouched sections keep their defaults.
	if cfg.Database.Path != "./rentscout.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if len(cfg.ReferencePoints) != 2 {
		t.Errorf("reference points = %+v", cfg.ReferencePoints)
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scoring:\n  mode: turbo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROUTES_API_KEY", "env-key")
	t.Setenv("RENTSCOUT_MODE", "no-transit")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Routes.APIKey != "env-key" {
		t.Errorf("api key = %q, want env-key", cfg.Routes.APIKey)
	}
	if cfg.Scoring.Mode != string(score.ModeNoTransit) {
		t.Errorf("mode = %q, want no-transit", cfg.Scoring.Mode)
	}
}

func TestExplicitWeightsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scoring:
  mode: minimal
  weights:
    distance: 0.25
    drive_time: 0.15
    bedrooms: 0.15
    bathrooms: 0.05
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	w, err := cfg.Scoring.ResolveWeights()
	if err != nil {
		t.Fatalf("ResolveWeights: %v", err)
	}
	if w.Distance != 0.25 {
		t.Errorf("distance weight = %v, want 0.25", w.Distance)
	}
	if err := w.Validate(); err != nil {
		t.Errorf("override weights: %v", err)
	}
}
