package main

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// atomRegistry interns the handful of well-known names the core cares
// about and tracks the server's extensible-hints set (spec §3, §4.6).
type atomRegistry struct {
	conn *xgb.Conn
	root xproto.Window

	opacity      xproto.Atom
	backgroundAtoms map[xproto.Atom]bool
	supportedHintsAtom xproto.Atom // _NET_SUPPORTED itself

	supported      map[xproto.Atom]bool
	supportedValid bool
}

// well-known names, matching the conventions xcompmgr-style compositors
// and window managers publish (EWMH and the de facto _XROOTPMAP_ID /
// _XSETROOT_ID background-pixmap properties).
const (
	atomNameOpacity        = "_NET_WM_WINDOW_OPACITY"
	atomNameRootPixmap     = "_XROOTPMAP_ID"
	atomNameSetRootPixmap  = "_XSETROOT_ID"
	atomNameNetSupported   = "_NET_SUPPORTED"
)

// newAtomRegistry interns every well-known atom with request/reply
// pipelining: every InternAtom request is issued before any reply is
// collected, minimizing round-trips (spec §4.6), grounded on the
// teacher's and FocusStreamer's InternAtom(...).Reply() idiom generalized
// to a batch.
func newAtomRegistry(conn *xgb.Conn, root xproto.Window) (*atomRegistry, error) {
	names := []string{atomNameOpacity, atomNameRootPixmap, atomNameSetRootPixmap, atomNameNetSupported}
	cookies := make([]xproto.InternAtomCookie, len(names))
	for i, n := range names {
		cookies[i] = xproto.InternAtom(conn, false, uint16(len(n)), n)
	}

	atoms := make([]xproto.Atom, len(names))
	for i, c := range cookies {
		r, err := c.Reply()
		if err != nil {
			return nil, fmt.Errorf("intern atom %q: %w", names[i], err)
		}
		atoms[i] = r.Atom
	}

	ar := &atomRegistry{
		conn: conn,
		root: root,
		opacity:            atoms[0],
		supportedHintsAtom: atoms[3],
		backgroundAtoms: map[xproto.Atom]bool{
			atoms[1]: true,
			atoms[2]: true,
		},
	}
	return ar, nil
}

func (ar *atomRegistry) isBackgroundAtom(a xproto.Atom) bool {
	return ar.backgroundAtoms[a]
}

func (ar *atomRegistry) isNetSupportedAtom(a xproto.Atom) bool {
	return a == ar.supportedHintsAtom
}

// isSupported reports membership in the current hints-advertisement set,
// fetching it lazily on first use (spec §4.6).
func (ar *atomRegistry) isSupported(conn *xgb.Conn, a xproto.Atom) bool {
	if !ar.supportedValid {
		ar.refreshSupported(conn)
	}
	return ar.supported[a]
}

// updateSupported invalidates the cached set; the next isSupported call
// re-fetches it (spec §4.6 "invalidate and re-request on a
// property-notify").
func (ar *atomRegistry) updateSupported() {
	ar.supportedValid = false
	ar.supported = nil
}

func (ar *atomRegistry) refreshSupported(conn *xgb.Conn) {
	reply, err := xproto.GetProperty(conn, false, ar.root, ar.supportedHintsAtom,
		xproto.AtomAtom, 0, (1<<32)-1).Reply()
	ar.supported = make(map[xproto.Atom]bool)
	ar.supportedValid = true
	if err != nil || reply == nil || reply.Format != 32 {
		// malformed-property: treated as absence (spec §7).
		return
	}
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		a := xproto.Atom(uint32(reply.Value[i]) |
			uint32(reply.Value[i+1])<<8 |
			uint32(reply.Value[i+2])<<16 |
			uint32(reply.Value[i+3])<<24)
		ar.supported[a] = true
	}
}

// rootBackgroundPixmap reads whichever of _XROOTPMAP_ID / _XSETROOT_ID is
// set on the root window, the de facto convention background-setting
// tools (and the original implementation) use to publish the pixmap a
// compositing manager should tile behind everything (spec §4.5, §4.6).
func (ar *atomRegistry) rootBackgroundPixmap(conn *xgb.Conn) (xproto.Pixmap, bool) {
	for a := range ar.backgroundAtoms {
		reply, err := xproto.GetProperty(conn, false, ar.root, a, xproto.AtomPixmap, 0, 1).Reply()
		if err != nil || reply == nil || reply.Format != 32 || len(reply.Value) < 4 {
			continue
		}
		raw := uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 |
			uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24
		if raw != 0 {
			return xproto.Pixmap(raw), true
		}
	}
	return 0, false
}

// nameOf resolves an atom back to its textual name, used only for handing
// plugins a human-readable property name on unclaimed property-notify
// events (spec §4.7); failures degrade to an empty string rather than an
// error since this path is advisory.
func (ar *atomRegistry) nameOf(conn *xgb.Conn, a xproto.Atom) string {
	reply, err := xproto.GetAtomName(conn, a).Reply()
	if err != nil {
		return ""
	}
	return reply.Name
}

// windowOpacity reads the opacity property, defaulting to fully opaque on
// absence or malformed data (spec §7 malformed-property policy).
func (ar *atomRegistry) windowOpacity(conn *xgb.Conn, w xproto.Window) uint16 {
	reply, err := xproto.GetProperty(conn, false, w, ar.opacity,
		xproto.AtomCardinal, 0, 1).Reply()
	if err != nil || reply == nil || reply.Format != 32 || len(reply.Value) < 4 {
		return fullyOpaque
	}
	raw := uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 |
		uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24
	// The property is a 32-bit fraction of UINT32_MAX; scale down to the
	// 16-bit range the rest of the core works in.
	return uint16(uint64(raw) * fullyOpaque / 0xffffffff)
}
