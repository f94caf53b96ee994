package main

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/render"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
)

// renderBackend is the reference implementation of backend (spec §4.5),
// built on the Render extension the same way jezek/xgb's own examples
// and sarvex-go-exp's driver issue render/composite requests: allocate
// picture ids up front, issue the composite requests back to back, never
// wait on a reply the paint path doesn't need.
//
// Rendering state mirrors spec §3's "Rendering Backend State": a root
// picture, an off-screen buffer picture the frame is assembled into, and
// a background picture tiled from the desktop's root pixmap, the same
// three-picture shape the original rendering backend keeps (root,
// buffer_picture, background_picture).
type renderBackend struct {
	conn *xgb.Conn

	rootPicture render.Picture
	format32    render.Pictformat // ARGB32, windows with an alpha channel
	format24    render.Pictformat // RGB24, opaque windows

	bufferPixmap      xproto.Pixmap
	bufferPicture     render.Picture
	backgroundPicture render.Picture
	screenW, screenH  uint16

	alphas *alphaCache
}

// renderWindowState is the backend-owned state stashed on Window.RenderState
// (spec §3). Besides the window's own composited picture, it remembers the
// opacity it is currently attached to the alpha cache at, so paint only
// touches the cache's refcounts on an actual opacity change rather than
// every frame (spec §4.5, §8.9's at-most-one-surface-per-opacity invariant,
// grounded on the original's per-window alpha_picture attachment pointer).
type renderWindowState struct {
	backend *renderBackend
	picture render.Picture

	hasAlpha     bool
	alphaOpacity uint16
	alphaMask    render.Picture
}

func (s *renderWindowState) release() {
	if s.hasAlpha {
		s.backend.alphas.release(s.alphaOpacity)
		s.hasAlpha = false
		s.alphaMask = 0
	}
	if s.picture != 0 {
		render.FreePicture(s.backend.conn, s.picture)
		s.picture = 0
	}
}

func newRenderBackend(c *compositor) (backend, error) {
	formats, err := render.QueryPictFormats(c.conn).Reply()
	if err != nil {
		return nil, wrapError(kindBackendInitFailure, fmt.Errorf("query pict formats: %w", err))
	}
	f32, f24, err := pickStandardFormats(formats)
	if err != nil {
		return nil, wrapError(kindBackendInitFailure, err)
	}

	rootPid, err := render.NewPictureId(c.conn)
	if err != nil {
		return nil, wrapError(kindBackendInitFailure, err)
	}
	if err := render.CreatePictureChecked(
		c.conn, rootPid, xproto.Drawable(c.root), f24,
		render.CpSubwindowMode, []uint32{xproto.SubwindowModeIncludeInferiors},
	).Check(); err != nil {
		return nil, wrapError(kindBackendInitFailure, fmt.Errorf("create root picture: %w", err))
	}

	b := &renderBackend{
		conn:        c.conn,
		rootPicture: rootPid,
		format32:    f32,
		format24:    f24,
		alphas:      newAlphaCache(c.conn),
	}
	if err := b.resetBackground(c); err != nil {
		render.FreePicture(c.conn, rootPid)
		return nil, wrapError(kindBackendInitFailure, fmt.Errorf("init background: %w", err))
	}
	return b, nil
}

func (b *renderBackend) name() string { return "render" }

// prepareWindow creates the per-window picture from its named pixmap
// (spec §4.5: "attach whatever render-side state it needs"). The format
// is ARGB32 for windows hasAlphaVisual reports (an opacity below fully
// opaque), RGB24 for everything else; the window's own visual and depth
// are not consulted. The picture
// uses the clip-by-children subwindow mode, since each top-level window
// is painted as a flat unit and its own children are painted separately
// as their own top-level entries in the stack (the root picture, by
// contrast, uses include-inferiors so it can show through anything this
// backend hasn't redirected).
func (b *renderBackend) prepareWindow(w *Window) error {
	format := b.format24
	if hasAlphaVisual(w) {
		format = b.format32
	}

	pid, err := render.NewPictureId(b.conn)
	if err != nil {
		return err
	}
	if err := render.CreatePictureChecked(
		b.conn, pid, xproto.Drawable(w.Pixmap), format,
		render.CpSubwindowMode, []uint32{xproto.SubwindowModeClipByChildren},
	).Check(); err != nil {
		return fmt.Errorf("create window picture: %w", err)
	}
	w.RenderState = &renderWindowState{backend: b, picture: pid}
	return nil
}

// paint runs the three-step pipeline a frame requires (spec §4.5 paint
// ordering): background into the buffer, each eligible window composited
// onto the buffer in turn, then the assembled buffer blitted to the root
// window. The background and the blit are clipped to dirty; each window
// step is clipped to that window's own region.
func (b *renderBackend) paint(c *compositor, windows []*Window, dirty xfixes.Region) error {
	if err := b.paintBackground(dirty); err != nil {
		return err
	}
	for _, w := range windows {
		if w.InputOnly || !w.Viewable || !w.hasPixmap() || w.RenderState == nil {
			continue
		}
		if !c.reg.visible(w, c.screen) {
			continue
		}
		if err := b.paintWindow(w); err != nil {
			return err
		}
	}
	if err := b.paintAll(dirty); err != nil {
		return err
	}
	b.alphas.sweep(8)
	return nil
}

// paintBackground composites the tiled background picture onto the
// buffer, clipped to the dirty region (spec §4.5 paint_background).
func (b *renderBackend) paintBackground(dirty xfixes.Region) error {
	if err := render.SetPictureClipRegionChecked(b.conn, b.bufferPicture, render.Region(dirty), 0, 0).Check(); err != nil {
		return fmt.Errorf("clip buffer to dirty region: %w", err)
	}
	render.Composite(
		b.conn, byte(render.PictOpSrc), b.backgroundPicture, 0, b.bufferPicture,
		0, 0, 0, 0, 0, 0, b.screenW, b.screenH,
	)
	return nil
}

// paintWindow composites one window's picture onto the buffer, clipped
// to the window's own region, using the alpha cache's current mask for
// its opacity if it isn't fully opaque (spec §4.5 paint_window). The
// buffer's clip is reset to none afterward so the next window (or the
// final blit) isn't left clipped to this one's shape.
func (b *renderBackend) paintWindow(w *Window) error {
	state := w.RenderState.(*renderWindowState)

	mask, err := b.syncWindowAlpha(state, w.opacity)
	if err != nil {
		return fmt.Errorf("sync alpha mask: %w", err)
	}

	if err := render.SetPictureClipRegionChecked(b.conn, b.bufferPicture, render.Region(w.Region), 0, 0).Check(); err != nil {
		return fmt.Errorf("clip buffer to window region: %w", err)
	}
	render.Composite(
		b.conn, byte(render.PictOpOver), state.picture, mask, b.bufferPicture,
		0, 0, 0, 0, w.Geom.X, w.Geom.Y, w.Geom.Width, w.Geom.Height,
	)
	if err := render.SetPictureClipRegionChecked(b.conn, b.bufferPicture, 0, 0, 0).Check(); err != nil {
		return fmt.Errorf("reset buffer clip: %w", err)
	}
	return nil
}

// paintAll blits the assembled buffer onto the root window, clipped to
// dirty, with PictOpSrc so it replaces rather than blends (spec §4.5
// paint_all).
func (b *renderBackend) paintAll(dirty xfixes.Region) error {
	if err := render.SetPictureClipRegionChecked(b.conn, b.rootPicture, render.Region(dirty), 0, 0).Check(); err != nil {
		return fmt.Errorf("clip root to dirty region: %w", err)
	}
	render.Composite(
		b.conn, byte(render.PictOpSrc), b.bufferPicture, 0, b.rootPicture,
		0, 0, 0, 0, 0, 0, b.screenW, b.screenH,
	)
	return nil
}

// syncWindowAlpha implements the cache's attach/detach-per-window
// contract (spec §4.5, §8.9): a same-opacity re-query is a no-op, a
// changed opacity detaches the old entry before attaching (or not
// attaching, if the new opacity is fully opaque) a new one. This is the
// one place paint touches alphaCache's refcounts, grounded on the
// original's _render_get_window_alpha_picture.
func (b *renderBackend) syncWindowAlpha(state *renderWindowState, opacity uint16) (render.Picture, error) {
	if state.hasAlpha && state.alphaOpacity == opacity {
		return state.alphaMask, nil
	}
	if state.hasAlpha {
		b.alphas.release(state.alphaOpacity)
		state.hasAlpha = false
		state.alphaMask = 0
	}
	state.alphaOpacity = opacity
	if opacity >= fullyOpaque {
		return 0, nil
	}
	pic, err := b.alphas.acquire(opacity)
	if err != nil {
		return 0, err
	}
	state.alphaMask = pic
	state.hasAlpha = true
	return pic, nil
}

// resetBackground rebuilds the buffer and background pictures from the
// current screen size and root background pixmap (spec §3, §4.5
// reset_background, §8.10). It is called once at startup and again
// whenever the root window resizes or the background-pixmap property
// changes (events.go). The buffer is rebuilt alongside the background,
// rather than only on resize as the original does, because the two are
// coupled here: the background picture always fills exactly the buffer's
// extent.
func (b *renderBackend) resetBackground(c *compositor) error {
	w := uint16(c.screen.x1 - c.screen.x0)
	h := uint16(c.screen.y1 - c.screen.y0)

	if err := b.resizeBuffer(c, w, h); err != nil {
		return err
	}

	if b.backgroundPicture != 0 {
		render.FreePicture(b.conn, b.backgroundPicture)
		b.backgroundPicture = 0
	}

	pid, err := render.NewPictureId(b.conn)
	if err != nil {
		return err
	}
	if pixmap, ok := c.atoms.rootBackgroundPixmap(b.conn); ok {
		if err := render.CreatePictureChecked(
			b.conn, pid, xproto.Drawable(pixmap), b.format24,
			render.CpRepeat, []uint32{1},
		).Check(); err == nil {
			b.backgroundPicture = pid
			return nil
		}
	}

	// No usable root background pixmap (spec §7 malformed-property policy
	// degrades to a default rather than failing startup): fall back to a
	// solid black fill, matching the original's own degrade-gracefully
	// behavior when no desktop background is set.
	if err := render.CreateSolidFillChecked(b.conn, pid, render.Color{}).Check(); err != nil {
		return fmt.Errorf("create fallback background picture: %w", err)
	}
	b.backgroundPicture = pid
	return nil
}

func (b *renderBackend) resizeBuffer(c *compositor, w, h uint16) error {
	if b.bufferPicture != 0 {
		render.FreePicture(b.conn, b.bufferPicture)
		b.bufferPicture = 0
	}
	if b.bufferPixmap != 0 {
		xproto.FreePixmap(b.conn, b.bufferPixmap)
		b.bufferPixmap = 0
	}

	pid, err := xproto.NewPixmapId(b.conn)
	if err != nil {
		return err
	}
	if err := xproto.CreatePixmapChecked(b.conn, c.xsi.RootDepth, pid, xproto.Drawable(c.root), w, h).Check(); err != nil {
		return fmt.Errorf("create buffer pixmap: %w", err)
	}
	b.bufferPixmap = pid

	picID, err := render.NewPictureId(b.conn)
	if err != nil {
		return err
	}
	if err := render.CreatePictureChecked(b.conn, picID, xproto.Drawable(pid), b.format24, 0, nil).Check(); err != nil {
		return fmt.Errorf("create buffer picture: %w", err)
	}
	b.bufferPicture = picID
	b.screenW, b.screenH = w, h
	return nil
}

func (b *renderBackend) close() {
	b.alphas.close()
	if b.bufferPicture != 0 {
		render.FreePicture(b.conn, b.bufferPicture)
	}
	if b.bufferPixmap != 0 {
		xproto.FreePixmap(b.conn, b.bufferPixmap)
	}
	if b.backgroundPicture != 0 {
		render.FreePicture(b.conn, b.backgroundPicture)
	}
	render.FreePicture(b.conn, b.rootPicture)
}

func hasAlphaVisual(w *Window) bool {
	// Without a visual->depth table wired from the server's Setup info,
	// the cheap and commonly correct signal is an explicit opacity
	// property; anything else is treated as opaque-format.
	return w.haveOpacity && w.opacity < fullyOpaque
}

func pickStandardFormats(formats *render.QueryPictFormatsReply) (argb32, rgb24 render.Pictformat, err error) {
	for _, f := range formats.Formats {
		if f.Type != render.PictTypeDirect || f.Depth != 32 {
			continue
		}
		if f.Direct.AlphaMask != 0 {
			argb32 = f.Id
		}
	}
	for _, f := range formats.Formats {
		if f.Type != render.PictTypeDirect || f.Depth != 24 {
			continue
		}
		rgb24 = f.Id
		break
	}
	if argb32 == 0 || rgb24 == 0 {
		return 0, 0, fmt.Errorf("server does not advertise standard ARGB32/RGB24 picture formats")
	}
	return argb32, rgb24, nil
}
