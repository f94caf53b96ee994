package main

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/jezek/xgb/xproto"

	"compositor/pluginapi"
)

// pluginTable loads and dispatches to every enabled plugin (spec §4.7).
// Built on the standard library's plugin package rather than
// hashicorp/go-plugin: go-plugin's RPC/subprocess model cannot serve the
// in-process, once-per-event vtable calls (window_get_opacity,
// render_windows) the main loop makes without adding IPC latency to the
// paint path (see DESIGN.md).
type pluginTable struct {
	entries  []*loadedPlugin
	disabled map[string]bool
}

type loadedPlugin struct {
	vtable         pluginapi.Vtable
	path           string
	enabled        bool
	disabledReason string
}

func newPluginTable(disabledNames []string) *pluginTable {
	disabled := make(map[string]bool, len(disabledNames))
	for _, n := range disabledNames {
		disabled[n] = true
	}
	return &pluginTable{disabled: disabled}
}

// loadDir opens every *.so in dir and registers its Vtable symbol. A
// plugin that fails to open is skipped with a warning, and one whose
// required extensions are unmet is recorded disabled; neither aborts the
// others (spec §4.7, same tolerant-batch policy as addExisting).
func (pt *pluginTable) loadDir(c *compositor, dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read plugin dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".so") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		lp, err := pt.load(c, path)
		if err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("plugin load failed")
			continue
		}
		pt.entries = append(pt.entries, lp)
	}
	return nil
}

func (pt *pluginTable) load(c *compositor, path string) (*loadedPlugin, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, wrapError(kindPluginLoadFailure, err)
	}
	sym, err := p.Lookup("Vtable")
	if err != nil {
		return nil, wrapError(kindPluginLoadFailure, fmt.Errorf("missing Vtable symbol: %w", err))
	}
	vt, ok := sym.(*pluginapi.Vtable)
	if !ok {
		return nil, wrapError(kindPluginLoadFailure, fmt.Errorf("Vtable symbol has wrong type"))
	}

	lp := &loadedPlugin{vtable: *vt, path: path, enabled: true}
	if pt.disabled[vt.Name] {
		lp.enabled = false
		lp.disabledReason = "disabled by configuration"
		return lp, nil
	}
	if reason, ok := pt.unmetRequirements(c, vt); ok {
		lp.enabled = false
		lp.disabledReason = reason
	}
	return lp, nil
}

func (pt *pluginTable) unmetRequirements(c *compositor, vt *pluginapi.Vtable) (string, bool) {
	for _, ext := range vt.RequiredExtensions {
		if !c.extensionPresent(ext) {
			return fmt.Sprintf("requires missing extension %q", ext), true
		}
	}
	return "", false
}

// recheckRequirements re-evaluates every disabled plugin's requirements,
// re-enabling any that now hold (spec §4.7 "Re-enablement on a
// property-notify affecting extension support"). onPropertyNotify calls
// it once after every unclaimed property-notify event; there is no
// per-frame coalescing.
func (pt *pluginTable) recheckRequirements(c *compositor) {
	for _, lp := range pt.entries {
		if lp.enabled || pt.disabled[lp.vtable.Name] {
			continue
		}
		if _, unmet := pt.unmetRequirements(c, &lp.vtable); !unmet {
			lp.enabled = true
			lp.disabledReason = ""
			c.log.Info().Str("plugin", lp.vtable.Name).Msg("plugin re-enabled")
		}
	}
}

func (pt *pluginTable) windowOpacity(w xproto.Window) (uint16, bool) {
	for _, lp := range pt.entries {
		if !lp.enabled || lp.vtable.WindowOpacity == nil {
			continue
		}
		if op, ok := lp.vtable.WindowOpacity(w); ok {
			return op, true
		}
	}
	return 0, false
}

// renderOrder lets the first enabled plugin whose RenderWindows returns a
// non-nil list substitute the paint order for this frame; a plugin that
// returns nil defers to the next one.
func (pt *pluginTable) renderOrder(ids []xproto.Window) []xproto.Window {
	for _, lp := range pt.entries {
		if !lp.enabled || lp.vtable.RenderWindows == nil {
			continue
		}
		if reordered := lp.vtable.RenderWindows(ids); reordered != nil {
			return reordered
		}
	}
	return nil
}

func (pt *pluginTable) onKey(c *compositor, sym uint32, mods uint16, press bool) {
	for _, lp := range pt.entries {
		if lp.enabled && lp.vtable.OnKey != nil {
			lp.vtable.OnKey(sym, mods, press)
		}
	}
}

func (pt *pluginTable) onPropertyNotify(c *compositor, e xproto.PropertyNotifyEvent) {
	name := c.atoms.nameOf(c.conn, e.Atom)
	for _, lp := range pt.entries {
		if lp.enabled && lp.vtable.OnPropertyChange != nil {
			lp.vtable.OnPropertyChange(e.Window, name)
		}
	}
	pt.recheckRequirements(c)
}
