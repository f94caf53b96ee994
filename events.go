package main

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/composite"
	"github.com/jezek/xgb/damage"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
)

// dispatch demultiplexes one server event (spec §4.3). It is the only
// place that mutates the registry, atom cache, or damage accumulator in
// response to server notifications; the main loop calls it once per
// received event.
func (c *compositor) dispatch(ev xgb.Event) error {
	switch e := ev.(type) {
	case damage.NotifyEvent:
		return c.onDamageNotifyEvent(e)
	case xproto.CreateNotifyEvent:
		return c.onCreateNotify(e)
	case xproto.DestroyNotifyEvent:
		return c.onDestroyNotify(e)
	case xproto.MapNotifyEvent:
		return c.onMapNotify(e)
	case xproto.UnmapNotifyEvent:
		return c.onUnmapNotify(e)
	case xproto.ConfigureNotifyEvent:
		return c.onConfigureNotify(e)
	case xproto.CirculateNotifyEvent:
		return c.onCirculateNotify(e)
	case xproto.ReparentNotifyEvent:
		return c.onReparentNotify(e)
	case xproto.PropertyNotifyEvent:
		return c.onPropertyNotify(e)
	case xproto.MappingNotifyEvent:
		return c.onMappingNotify(e)
	case xproto.KeyPressEvent:
		c.onKeyEvent(uint8(e.Detail), e.State, true)
		return nil
	case xproto.KeyReleaseEvent:
		c.onKeyEvent(uint8(e.Detail), e.State, false)
		return nil
	case xproto.ButtonPressEvent, xproto.ButtonReleaseEvent:
		return nil // consumed but not acted on by the core (spec §4.3)
	default:
		return nil
	}
}

func (c *compositor) onDamageNotifyEvent(e damage.NotifyEvent) error {
	w := c.reg.get(e.Drawable)
	if w == nil || w.DamageHandle == 0 {
		return nil
	}
	c.dmg.onDamageNotify(w, e)
	return nil
}

// onCreateNotify registers a new top-level child of root (spec §4.1, §4.3).
// Attribute/geometry fetch failures mean the window vanished already; it is
// silently dropped rather than treated as an error (§4.1 "Error handling").
func (c *compositor) onCreateNotify(e xproto.CreateNotifyEvent) error {
	if e.Parent != c.root {
		return nil
	}
	if c.reg.get(e.Window) != nil {
		return nil
	}

	attrCookie := xproto.GetWindowAttributes(c.conn, e.Window)
	geomCookie := xproto.GetGeometry(c.conn, xproto.Drawable(e.Window))

	attr, err := attrCookie.Reply()
	if err != nil {
		return nil
	}
	geom, err := geomCookie.Reply()
	if err != nil {
		return nil
	}

	w := c.reg.append(e.Window)
	w.InputOnly = attr.Class == xproto.WindowClassInputOnly
	w.OverrideRedirect = attr.OverrideRedirect
	w.Viewable = attr.MapState == xproto.MapStateViewable
	w.Visual = attr.Visual
	w.Geom = Geometry{X: geom.X, Y: geom.Y, Width: geom.Width, Height: geom.Height, BorderWidth: geom.BorderWidth}
	return nil
}

// onDestroyNotify releases every server-side resource attached to the
// window and removes it from the registry (spec §4.1, §4.4 teardown
// ordering: backend state, then damage, then region/pixmap, then the
// registry entry).
func (c *compositor) onDestroyNotify(e xproto.DestroyNotifyEvent) error {
	w := c.reg.get(e.Window)
	if w == nil {
		return nil
	}
	// The server frees the damage object implicitly once its drawable is
	// destroyed (confirmed against the original implementation, which
	// zeroes the equivalent field for this exact reason before tearing
	// the window down); zero the handle first so releaseWindowResources'
	// guard skips issuing a free-damage request against an id the server
	// already reclaimed.
	w.DamageHandle = 0
	c.releaseWindowResources(w)
	c.reg.removeEntry(w)
	return nil
}

// handleAsyncXError implements spec §7's resource-vanished policy for an
// asynchronous X protocol error surfaced outside of any request's direct
// Reply()/Check() (typically a race between a DestroyNotify and a
// request issued against the window just before it died). It is always
// logged at debug; if the bad resource id belongs to a window still in
// the registry, that window is dropped as stale.
func (c *compositor) handleAsyncXError(err error, resource uint32, sequence uint16) {
	c.log.Debug().
		Err(err).
		Uint32("resource", resource).
		Uint16("sequence", sequence).
		Msg("X protocol error")

	w := c.windowOwning(resource)
	if w == nil {
		return
	}
	c.releaseWindowResources(w)
	c.reg.removeEntry(w)
}

// windowOwning finds the registered window that owns the given
// server-side resource id, whether that id names the window itself, its
// damage object, or its named pixmap.
func (c *compositor) windowOwning(resource uint32) *Window {
	if w := c.reg.get(xproto.Window(resource)); w != nil {
		return w
	}
	for _, w := range c.reg.snapshot() {
		if uint32(w.DamageHandle) == resource || uint32(w.Pixmap) == resource {
			return w
		}
	}
	return nil
}

// onMapNotify transitions a window to viewable and allocates the pixmap
// and damage object the backend needs (spec §4.1 "Map transition").
func (c *compositor) onMapNotify(e xproto.MapNotifyEvent) error {
	w := c.reg.get(e.Window)
	if w == nil {
		return nil
	}
	w.Viewable = true
	w.OverrideRedirect = e.OverrideRedirect
	if w.InputOnly {
		return nil
	}
	if !c.reg.visible(w, c.screen) {
		return nil
	}
	return c.allocateWindowResources(w)
}

// onUnmapNotify reverses the map transition: the old shape is enqueued as
// damage (so whatever it was covering repaints), then every server-side
// resource is released (spec §4.1/§4.2 "Unmap enqueues the window's last
// known region... then releases resources").
func (c *compositor) onUnmapNotify(e xproto.UnmapNotifyEvent) error {
	w := c.reg.get(e.Window)
	if w == nil {
		return nil
	}
	w.Viewable = false
	if w.Region != 0 {
		c.dmg.enqueueRegion(w.Region)
	}
	c.releaseWindowResources(w)
	return nil
}

// onConfigureNotify handles both root resizes and ordinary window
// reconfiguration (spec §4.1/§4.4).
func (c *compositor) onConfigureNotify(e xproto.ConfigureNotifyEvent) error {
	if e.Window == c.root {
		c.screen = rect{x0: 0, y0: 0, x1: int32(e.Width), y1: int32(e.Height)}
		if c.backend != nil {
			if err := c.backend.resetBackground(c); err != nil {
				c.log.Warn().Err(err).Msg("reset background after root resize failed")
			}
		}
		c.dmg.enqueueRect(c.screen)
		return nil
	}

	w := c.reg.get(e.Window)
	if w == nil {
		return nil
	}

	oldRegion := w.Region
	oldGeom := w.Geom
	w.Geom = Geometry{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height, BorderWidth: e.BorderWidth}

	if e.AboveSibling != w.ID {
		c.reg.restack(w, e.AboveSibling)
	}

	sizeChanged := oldGeom.Width != w.Geom.Width || oldGeom.Height != w.Geom.Height
	if sizeChanged && w.hasPixmap() {
		// The old pixmap and picture are stale at the new size; rebuild
		// everything as if the window were freshly mapped (spec §4.4
		// "size change invalidates the pixmap").
		if oldRegion != 0 {
			c.dmg.enqueueRegion(oldRegion)
		}
		c.releaseWindowResources(w)
		if w.Viewable && !w.InputOnly && c.reg.visible(w, c.screen) {
			if err := c.allocateWindowResources(w); err != nil {
				return err
			}
		}
		return nil
	}

	if oldGeom.X != w.Geom.X || oldGeom.Y != w.Geom.Y {
		if oldRegion != 0 {
			c.dmg.enqueueRegion(oldRegion)
		}
		if w.Region != 0 {
			xfixes.TranslateRegion(c.conn, w.Region, w.Geom.X-oldGeom.X, w.Geom.Y-oldGeom.Y)
			c.dmg.enqueueRegion(w.Region)
		}
	}
	return nil
}

func (c *compositor) onCirculateNotify(e xproto.CirculateNotifyEvent) error {
	w := c.reg.get(e.Window)
	if w == nil {
		return nil
	}
	if e.Place == xproto.PlaceOnTop {
		stack := c.reg.snapshot()
		var currentTop xproto.Window
		if n := len(stack); n > 0 {
			currentTop = stack[n-1].ID
		}
		c.reg.restack(w, currentTop)
	} else {
		c.reg.restack(w, 0)
	}
	return nil
}

// onReparentNotify drops a window whose new parent is not root; a
// reparent back onto root is treated like a fresh create (spec §4.1
// "reparent-to-non-root" resolution recorded in DESIGN.md).
func (c *compositor) onReparentNotify(e xproto.ReparentNotifyEvent) error {
	if e.Parent == c.root {
		return c.onCreateNotify(xproto.CreateNotifyEvent{
			Parent: c.root, Window: e.Window, X: e.X, Y: e.Y, OverrideRedirect: e.OverrideRedirect,
		})
	}
	if w := c.reg.get(e.Window); w != nil {
		c.releaseWindowResources(w)
		c.reg.removeEntry(w)
	}
	return nil
}

// onPropertyNotify routes the handful of properties the core watches:
// per-window opacity, background atoms (which rebuild the backend's
// background and repaint the whole screen), and the EWMH supported-hints
// set; anything else goes to the plugins (spec §4.3, §4.6, §4.7).
func (c *compositor) onPropertyNotify(e xproto.PropertyNotifyEvent) error {
	switch {
	case c.atoms.isNetSupportedAtom(e.Atom):
		c.atoms.updateSupported()
	case e.Atom == c.atoms.opacity:
		if w := c.reg.get(e.Window); w != nil {
			c.resolveOpacity(w)
			if w.Region != 0 {
				c.dmg.enqueueRegion(w.Region)
			}
		}
	case c.atoms.isBackgroundAtom(e.Atom):
		if c.backend != nil {
			if err := c.backend.resetBackground(c); err != nil {
				c.log.Warn().Err(err).Msg("reset background after property change failed")
			}
		}
		c.screenFullyDamaged()
	default:
		if c.plugins != nil {
			c.plugins.onPropertyNotify(c, e)
		}
	}
	return nil
}

func (c *compositor) onMappingNotify(e xproto.MappingNotifyEvent) error {
	if c.keys != nil {
		c.keys.rebuild(c.conn)
	}
	return nil
}

func (c *compositor) onKeyEvent(keycode uint8, state uint16, press bool) {
	if c.keys == nil || c.plugins == nil {
		return
	}
	sym, mods := c.keys.lookup(keycode, state)
	c.plugins.onKey(c, sym, mods, press)
}

// resolveOpacity applies plugin overrides before falling back to the
// _NET_WM_WINDOW_OPACITY property (spec §4.7 window_get_opacity).
func (c *compositor) resolveOpacity(w *Window) {
	if c.plugins != nil {
		if op, ok := c.plugins.windowOpacity(w.ID); ok {
			w.opacity = op
			w.haveOpacity = true
			return
		}
	}
	w.opacity = c.atoms.windowOpacity(c.conn, w.ID)
	w.haveOpacity = true
}

// screenFullyDamaged enqueues the whole screen, used when a
// background-pixmap property changes underneath everything (spec §4.6):
// every visible window's region needs repainting against the new
// background, and so does whatever desktop area no window covers.
func (c *compositor) screenFullyDamaged() {
	c.dmg.enqueueRect(c.screen)
	for _, w := range c.reg.snapshot() {
		if w.Region != 0 && c.reg.visible(w, c.screen) {
			c.dmg.enqueueRegion(w.Region)
		}
	}
}

// addExisting populates the registry from the windows already present at
// startup (spec §4.3 "add_existing"), using go-multierror so one failed
// fetch doesn't abort the others — consistent with §4.1's policy of
// silently dropping individual windows whose attributes can't be read.
func (c *compositor) addExisting() error {
	tree, err := xproto.QueryTree(c.conn, c.root).Reply()
	if err != nil {
		return fmt.Errorf("query tree: %w", err)
	}

	type fetch struct {
		id    xproto.Window
		attr  xproto.GetWindowAttributesCookie
		geom  xproto.GetGeometryCookie
	}
	fetches := make([]fetch, len(tree.Children))
	for i, id := range tree.Children {
		fetches[i] = fetch{
			id:   id,
			attr: xproto.GetWindowAttributes(c.conn, id),
			geom: xproto.GetGeometry(c.conn, xproto.Drawable(id)),
		}
	}

	var errs *multierror.Error
	for _, f := range fetches {
		attr, err := f.attr.Reply()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("window %d attributes: %w", f.id, err))
			continue
		}
		geom, err := f.geom.Reply()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("window %d geometry: %w", f.id, err))
			continue
		}
		w := c.reg.append(f.id)
		w.InputOnly = attr.Class == xproto.WindowClassInputOnly
		w.OverrideRedirect = attr.OverrideRedirect
		w.Viewable = attr.MapState == xproto.MapStateViewable
		w.Visual = attr.Visual
		w.Geom = Geometry{X: geom.X, Y: geom.Y, Width: geom.Width, Height: geom.Height, BorderWidth: geom.BorderWidth}
		if w.Viewable && !w.InputOnly && c.reg.visible(w, c.screen) {
			if err := c.allocateWindowResources(w); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("window %d resources: %w", f.id, err))
			}
		}
	}
	return errs.ErrorOrNil()
}

// allocateWindowResources names the backing pixmap, derives the window's
// region, creates a damage object, and asks the backend to prepare
// whatever render-side state it needs (spec §4.1, §4.5).
func (c *compositor) allocateWindowResources(w *Window) error {
	pixmapID, err := xproto.NewPixmapId(c.conn)
	if err != nil {
		return err
	}
	if err := composite.NameWindowPixmapChecked(c.conn, w.ID, pixmapID).Check(); err != nil {
		return wrapError(kindResourceVanished, err)
	}
	w.Pixmap = pixmapID
	c.resolveOpacity(w)

	regionID, err := xfixes.NewRegionId(c.conn)
	if err != nil {
		return err
	}
	rects := []xproto.Rectangle{{X: w.Geom.X, Y: w.Geom.Y, Width: w.Geom.Width, Height: w.Geom.Height}}
	if err := xfixes.CreateRegionChecked(c.conn, regionID, rects).Check(); err != nil {
		return err
	}
	w.Region = regionID
	w.IsRectangular = true

	dmgID, err := damage.NewDamageId(c.conn)
	if err != nil {
		return err
	}
	if err := damage.CreateChecked(c.conn, dmgID, xproto.Drawable(w.ID), damage.ReportLevelNonEmpty).Check(); err != nil {
		return wrapError(kindResourceVanished, err)
	}
	w.DamageHandle = dmgID
	w.firstDamage = true
	w.fullyDamagedThisFrame = false
	w.damageNotifyCounter = 0

	if c.backend != nil {
		if err := c.backend.prepareWindow(w); err != nil {
			return wrapError(kindBackendInitFailure, err)
		}
	}

	c.dmg.enqueueRegion(w.Region)
	return nil
}

// releaseWindowResources is idempotent teardown in the reverse order of
// allocation (spec §4.4): backend state, then damage, then pixmap/region.
func (c *compositor) releaseWindowResources(w *Window) {
	if w.RenderState != nil {
		w.RenderState.release()
		w.RenderState = nil
	}
	if w.DamageHandle != 0 {
		damage.Destroy(c.conn, w.DamageHandle)
		w.DamageHandle = 0
	}
	if w.Region != 0 {
		xfixes.DestroyRegion(c.conn, w.Region)
		w.Region = 0
	}
	if w.Pixmap != 0 {
		xproto.FreePixmap(c.conn, w.Pixmap)
		w.Pixmap = 0
	}
}
