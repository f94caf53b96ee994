package main

import (
	"testing"

	"github.com/jezek/xgb/xproto"

	"compositor/pluginapi"
)

func TestPluginTableWindowOpacityFirstProviderWins(t *testing.T) {
	pt := newPluginTable(nil)
	pt.entries = []*loadedPlugin{
		{
			enabled: true,
			vtable: pluginapi.Vtable{
				Name:          "no-opinion",
				WindowOpacity: func(w xproto.Window) (uint16, bool) { return 0, false },
			},
		},
		{
			enabled: true,
			vtable: pluginapi.Vtable{
				Name:          "dimmer",
				WindowOpacity: func(w xproto.Window) (uint16, bool) { return 0x8000, true },
			},
		},
		{
			enabled: true,
			vtable: pluginapi.Vtable{
				Name:          "never-reached",
				WindowOpacity: func(w xproto.Window) (uint16, bool) { return 0x1, true },
			},
		},
	}

	got, ok := pt.windowOpacity(1)
	if !ok || got != 0x8000 {
		t.Errorf("windowOpacity() = (%#x, %v), want (0x8000, true)", got, ok)
	}
}

func TestPluginTableWindowOpacityDisabledPluginSkipped(t *testing.T) {
	pt := newPluginTable(nil)
	pt.entries = []*loadedPlugin{
		{
			enabled: false,
			vtable: pluginapi.Vtable{
				WindowOpacity: func(w xproto.Window) (uint16, bool) { return 0x1234, true },
			},
		},
	}
	if _, ok := pt.windowOpacity(1); ok {
		t.Error("windowOpacity() consulted a disabled plugin")
	}
}

func TestPluginTableRenderOrderFallsBackToNil(t *testing.T) {
	pt := newPluginTable(nil)
	if got := pt.renderOrder([]xproto.Window{1, 2, 3}); got != nil {
		t.Errorf("renderOrder() with no plugins = %v, want nil", got)
	}
}

func TestPluginTableRenderOrderFirstNonNilWins(t *testing.T) {
	pt := newPluginTable(nil)
	pt.entries = []*loadedPlugin{
		{
			enabled: true,
			vtable: pluginapi.Vtable{
				RenderWindows: func(ids []xproto.Window) []xproto.Window { return nil },
			},
		},
		{
			enabled: true,
			vtable: pluginapi.Vtable{
				RenderWindows: func(ids []xproto.Window) []xproto.Window {
					reversed := make([]xproto.Window, len(ids))
					for i, id := range ids {
						reversed[len(ids)-1-i] = id
					}
					return reversed
				},
			},
		},
	}
	got := pt.renderOrder([]xproto.Window{1, 2, 3})
	want := []xproto.Window{3, 2, 1}
	if !idSlicesEqual(got, want) {
		t.Errorf("renderOrder() = %v, want %v", got, want)
	}
}

func TestPluginTableOnKeyDispatchesToAllEnabled(t *testing.T) {
	pt := newPluginTable(nil)
	var calls []string
	pt.entries = []*loadedPlugin{
		{enabled: true, vtable: pluginapi.Vtable{Name: "a", OnKey: func(sym uint32, mods uint16, press bool) {
			calls = append(calls, "a")
		}}},
		{enabled: false, vtable: pluginapi.Vtable{Name: "b", OnKey: func(sym uint32, mods uint16, press bool) {
			calls = append(calls, "b")
		}}},
		{enabled: true, vtable: pluginapi.Vtable{Name: "c", OnKey: func(sym uint32, mods uint16, press bool) {
			calls = append(calls, "c")
		}}},
	}

	pt.onKey(nil, 'a', 0, true)

	want := []string{"a", "c"}
	if len(calls) != len(want) || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("onKey() dispatched to %v, want %v", calls, want)
	}
}

func TestNewPluginTableDisabledSet(t *testing.T) {
	pt := newPluginTable([]string{"screensaver", "blur"})
	if !pt.disabled["screensaver"] || !pt.disabled["blur"] {
		t.Errorf("disabled set = %v, want both names present", pt.disabled)
	}
	if pt.disabled["unrelated"] {
		t.Error("disabled set should not contain names never passed in")
	}
}
