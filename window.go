package main

import (
	"github.com/jezek/xgb/damage"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
)

// Geometry mirrors the server's notion of a window's position and size,
// excluding the border (spec §3: "Width/height always exclude border").
type Geometry struct {
	X, Y          int16
	Width, Height uint16
	BorderWidth   uint16
}

// rect is an axis-aligned bounding box in root-window coordinates, used
// for the screen size, the cheap visibility test of §4.1's visible
// operation, and whole-screen damage (enqueueRect); the authoritative
// damaged area lives server-side as an xfixes region.
type rect struct {
	x0, y0, x1, y1 int32
}

func (g Geometry) rootRect() rect {
	return rect{
		x0: int32(g.X),
		y0: int32(g.Y),
		x1: int32(g.X) + int32(g.Width),
		y1: int32(g.Y) + int32(g.Height),
	}
}

func (r rect) intersects(o rect) bool {
	return r.x0 < o.x1 && o.x0 < r.x1 && r.y0 < o.y1 && o.y0 < r.y1
}

// backendWindowState is an opaque handle the active rendering backend
// stashes on a Window; only the backend that produced it interprets the
// concrete type (spec §3: "Owned by the backend; the window owns the
// slot.").
type backendWindowState interface {
	release()
}

// Window represents one top-level window of the display (spec §3).
type Window struct {
	ID xproto.Window

	// attributes mirrored from the server.
	InputOnly        bool
	OverrideRedirect bool
	Viewable         bool
	Visual           xproto.Visualid

	Geom Geometry

	DamageHandle damage.Damage // 0 means none
	Damaged      bool
	damageNotifyCounter   int
	firstDamage           bool // true until the pixmap's first damage notification is consumed
	fullyDamagedThisFrame bool // coalescing threshold crossed; further notifications just discard

	Pixmap xproto.Pixmap // 0 means none

	Region        xfixes.Region // 0 means none
	IsRectangular bool

	RenderState backendWindowState

	// opacity is the last opacity resolved for this window (a plugin
	// override, else the opacity property), cached so the backend doesn't
	// need to re-query every paint. Fully opaque (0xffff) is the default
	// absent a provider or property (§4.7).
	opacity uint16
	haveOpacity bool
}

const fullyOpaque = 0xffff

func newWindow(id xproto.Window) *Window {
	return &Window{ID: id, opacity: fullyOpaque, firstDamage: true}
}

// hasPixmap reports whether the window currently owns an off-screen
// buffer. Spec invariant: pixmap is non-none iff the window is viewable
// and intersects the screen (§3).
func (w *Window) hasPixmap() bool {
	return w.Pixmap != 0
}

// checkInvariants is used by tests (spec §8 invariant 1): an input-only
// window carries no damage handle and no pixmap. screen is not consulted.
func (w *Window) checkInvariants(screen rect) error {
	if w.InputOnly {
		if w.DamageHandle != 0 {
			return errInvariant("input-only window has a damage handle")
		}
		if w.Pixmap != 0 {
			return errInvariant("input-only window has a pixmap")
		}
	}
	return nil
}

func errInvariant(msg string) error {
	return &invariantError{msg: msg}
}

type invariantError struct{ msg string }

func (e *invariantError) Error() string { return "invariant violated: " + e.msg }
