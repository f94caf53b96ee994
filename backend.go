package main

import (
	"time"

	"github.com/jezek/xgb/xfixes"
)

// backend is the rendering interface the core drives once per paint tick
// (spec §4.5). A backend owns every render/composite resource beyond the
// pixmap and region the core itself allocates; prepareWindow attaches
// whatever per-window state it needs onto Window.RenderState. paint
// performs the full ordered pipeline a frame requires: background into
// the buffer, each window composited onto the buffer in turn, then the
// buffer blitted to the root window (background and blit clipped to
// dirty, each window to its own region) — the same three steps the
// original rendering vtable splits into
// paint_background/paint_window/paint_all, collapsed here into one call
// since nothing else in the core needs to interleave between them.
// resetBackground is its own method because two distinct external
// events trigger it (a root resize and a background-pixmap property
// change), neither of which happens on the paint tick.
//
// Unlike the effect vtable (pluginapi.Vtable), this interface is not
// exposed across a plugin.Open boundary: its methods carry *Window and
// *compositor, both package-main types, and Go's plugin mechanism has no
// way for a separately built .so to reference a host's package main at
// all. A real alternate backend is added by implementing this interface
// in this module, not by dropping a .so in a directory (see DESIGN.md).
type backend interface {
	name() string
	prepareWindow(w *Window) error
	paint(c *compositor, windows []*Window, dirty xfixes.Region) error
	resetBackground(c *compositor) error
	close()
}

// newBackend constructs the configured backend. name is accepted for
// forward compatibility with a future compile-time backend registry but
// today only "render" (or empty, the default) resolves to anything;
// anything else falls back to the reference backend with a warning
// rather than refusing to start, since compositing without the
// requested backend is still useful.
func newBackend(c *compositor, name string) (backend, error) {
	if name != "" && name != "render" {
		c.log.Warn().Str("backend", name).Msg("unknown backend, using reference render backend")
	}
	return newRenderBackend(c)
}

// initBackendWithRetry wraps newBackend with the exponential backoff
// policy of SPEC_FULL's backend-retry supplement: a failed backend never
// crashes the loop, it schedules a retry and keeps compositing disabled
// (screen passes through unpainted) until one succeeds.
func (c *compositor) initBackendWithRetry() {
	b, err := newBackend(c, c.backendName)
	if err != nil {
		c.backendRetry.failures++
		shift := min(c.backendRetry.failures-1, 6)
		backoff := time.Duration(c.cfg.BackendRetryBackoffMillis) * time.Millisecond * time.Duration(1<<uint(shift))
		c.backendRetry.nextRetry = time.Now().Add(backoff)
		c.log.Warn().Err(err).Int("failures", c.backendRetry.failures).Dur("retry_in", backoff).Msg("backend init failed")
		return
	}
	c.backend = b
	c.backendRetry = retryState{}
	c.log.Info().Str("backend", b.name()).Msg("backend ready")
}
