package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// config holds the ambient tuning knobs the command-line wrapper may load
// from a TOML file. Parsing it is explicitly non-core (spec §1); the core
// only ever sees the resulting struct.
type config struct {
	// DefaultRefreshHz is used when the display server offers no
	// refresh-rate hint (§4.2).
	DefaultRefreshHz float64
	// MinPaintIntervalMillis clamps the paint interval (§4.2: "clamped to
	// >= 10ms").
	MinPaintIntervalMillis int
	// DamageCoalesceThreshold is the per-frame notification count after
	// which a window's damage is promoted to "fully damaged" (§4.2).
	DamageCoalesceThreshold int
	// BackendRetryBackoffMillis is the supplemental backoff base for
	// repeated backend-init-failure retries (SPEC_FULL §[SUPPLEMENT]).
	BackendRetryBackoffMillis int
	// DisabledPlugins names plugins (by vtable Name) never to enable, even
	// if present in the plugin directory; their shared objects are still
	// opened to read the name.
	DisabledPlugins []string

	// path records where this config was loaded from, if anywhere, so a
	// SIGHUP reload (mainloop.go's run) knows what to re-read. Never set from
	// the TOML file itself.
	path string
}

func defaultConfig() *config {
	return &config{
		DefaultRefreshHz:          50,
		MinPaintIntervalMillis:    10,
		DamageCoalesceThreshold:   10,
		BackendRetryBackoffMillis: 100,
	}
}

func (c *config) paintInterval() time.Duration {
	hz := c.DefaultRefreshHz
	if hz <= 0 {
		hz = 50
	}
	interval := time.Duration(float64(time.Second) / hz)
	min := time.Duration(c.MinPaintIntervalMillis) * time.Millisecond
	if min <= 0 {
		min = 10 * time.Millisecond
	}
	if interval < min {
		interval = min
	}
	return interval
}

// readConfig loads path if non-empty and present; a missing path is not an
// error (spec §6 "configuration file path (optional)"), matching the
// teacher's tolerant config loading policy but without the teacher's
// eager on-disk initialization of a default file.
func readConfig(path string) (*config, error) {
	conf := defaultConfig()
	conf.path = path
	if path == "" {
		return conf, nil
	}
	if ok, err := exists(path); err != nil {
		return nil, err
	} else if !ok {
		return conf, nil
	}
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, err
	}
	conf.path = path
	return conf, nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func defaultConfigPath() string {
	dir := xdgOrFallback("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config"))
	return filepath.Join(dir, "compositor", "config.toml")
}

func xdgOrFallback(xdg string, fallback string) string {
	if dir := os.Getenv(xdg); dir != "" {
		if ok, err := exists(dir); ok && err == nil {
			return dir
		}
	}
	return fallback
}
