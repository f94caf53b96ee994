package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadConfigMissingPathIsNotAnError(t *testing.T) {
	cfg, err := readConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("readConfig() error = %v, want nil for a missing file", err)
	}
	want := defaultConfig()
	if cfg.DefaultRefreshHz != want.DefaultRefreshHz || cfg.DamageCoalesceThreshold != want.DamageCoalesceThreshold {
		t.Errorf("readConfig() with missing file = %+v, want defaults %+v", cfg, want)
	}
}

func TestReadConfigEmptyPath(t *testing.T) {
	cfg, err := readConfig("")
	if err != nil {
		t.Fatalf("readConfig(\"\") error = %v", err)
	}
	if cfg.path != "" {
		t.Errorf("path = %q, want empty", cfg.path)
	}
}

func TestReadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
DefaultRefreshHz = 75
MinPaintIntervalMillis = 5
DamageCoalesceThreshold = 20
DisabledPlugins = ["screensaver"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cfg, err := readConfig(path)
	if err != nil {
		t.Fatalf("readConfig() error = %v", err)
	}
	if cfg.DefaultRefreshHz != 75 {
		t.Errorf("DefaultRefreshHz = %v, want 75", cfg.DefaultRefreshHz)
	}
	if cfg.DamageCoalesceThreshold != 20 {
		t.Errorf("DamageCoalesceThreshold = %v, want 20", cfg.DamageCoalesceThreshold)
	}
	if len(cfg.DisabledPlugins) != 1 || cfg.DisabledPlugins[0] != "screensaver" {
		t.Errorf("DisabledPlugins = %v, want [screensaver]", cfg.DisabledPlugins)
	}
	if cfg.path != path {
		t.Errorf("path = %q, want %q", cfg.path, path)
	}
}

func TestPaintIntervalClampedToMinimum(t *testing.T) {
	cfg := &config{DefaultRefreshHz: 1000, MinPaintIntervalMillis: 10}
	if got := cfg.paintInterval(); got != 10*time.Millisecond {
		t.Errorf("paintInterval() = %v, want 10ms floor", got)
	}
}

func TestPaintIntervalFollowsRefreshRate(t *testing.T) {
	cfg := &config{DefaultRefreshHz: 50, MinPaintIntervalMillis: 10}
	got := cfg.paintInterval()
	want := 20 * time.Millisecond
	if got != want {
		t.Errorf("paintInterval() = %v, want %v", got, want)
	}
}

func TestPaintIntervalZeroRefreshFallsBackTo50Hz(t *testing.T) {
	cfg := &config{DefaultRefreshHz: 0, MinPaintIntervalMillis: 10}
	got := cfg.paintInterval()
	want := 20 * time.Millisecond
	if got != want {
		t.Errorf("paintInterval() with zero refresh = %v, want %v", got, want)
	}
}
