// Package pluginapi is the contract between the compositor and the
// shared objects loaded through the standard library's plugin package
// (spec §4.7). It exists as its own importable package, separate from
// package main, because Go's plugin mechanism identifies types by their
// defining package path: a plugin built against this package and the
// host built against this same package agree on the Vtable type even
// though they are compiled and loaded independently. A plugin built
// against a Vtable defined inside package main could never satisfy a
// type assertion against the host's own copy.
package pluginapi

import "github.com/jezek/xgb/xproto"

// Vtable is the value a plugin's shared object must export as a
// package-level variable named "Vtable". The runtime calls only the
// slots that are non-nil; every slot is optional.
type Vtable struct {
	Name string

	// WindowOpacity overrides the opacity the core would otherwise read
	// from the _NET_WM_WINDOW_OPACITY property. Returning ok=false defers
	// to the property-derived value.
	WindowOpacity func(w xproto.Window) (opacity uint16, ok bool)

	// RenderWindows lets a plugin substitute the paint order for one
	// frame (render_windows). Receives ids bottom-to-top; returning nil
	// defers to the next plugin, and the registry's own order stays in
	// effect when no plugin returns a list.
	RenderWindows func(ids []xproto.Window) []xproto.Window

	// OnKey is called for every key press/release the core doesn't
	// itself consume.
	OnKey func(sym uint32, mods uint16, press bool)

	// OnPropertyChange is called for property-notify events on atoms the
	// core does not already own (anything other than opacity, background,
	// or _NET_SUPPORTED).
	OnPropertyChange func(w xproto.Window, atomName string)

	// RequiredExtensions names X extensions (by Init-style key, e.g.
	// "damage", "render") the plugin needs present; the runtime loads the
	// plugin but keeps it disabled while one is missing, and re-checks on
	// every unclaimed property-notify.
	RequiredExtensions []string
}
