package main

import (
	"github.com/jezek/xgb/xproto"
)

// registry is the stack-ordered sequence of top-level windows paired with
// an id->position index (spec §3 "Window Registry", §4.1). Per spec §1,
// the O(log n)-lookup structure is explicitly "a generic map with no
// domain logic" and lives outside the core; Go's builtin map is exactly
// that externalized collaborator (see DESIGN.md), so no ordered-map or
// btree library is introduced here.
//
// Both views are mutated only from the main loop's goroutine (spec §5);
// there is deliberately no mutex.
type registry struct {
	windows []*Window
	index   map[xproto.Window]int
}

func newRegistry() *registry {
	return &registry{index: make(map[xproto.Window]int)}
}

// append creates and appends a window to the top of the stack (spec
// §4.1). It does not fetch attributes; the caller does that and may
// silently drop the window again on failure (§4.1 "Error handling").
func (r *registry) append(id xproto.Window) *Window {
	w := newWindow(id)
	r.index[id] = len(r.windows)
	r.windows = append(r.windows, w)
	return w
}

// get performs O(1) lookup by window id; callers must tolerate a nil
// result (spec §4.1: "Lookup of an unknown id returns none").
func (r *registry) get(id xproto.Window) *Window {
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	return r.windows[i]
}

// removeEntry detaches w from both views without touching any server-side
// resource. Safe to call with a window not currently registered (no-op).
func (r *registry) removeEntry(w *Window) {
	i, ok := r.index[w.ID]
	if !ok {
		return
	}
	r.windows = append(r.windows[:i], r.windows[i+1:]...)
	delete(r.index, w.ID)
	for j := i; j < len(r.windows); j++ {
		r.index[r.windows[j].ID] = j
	}
}

// restack detaches w and reinserts it immediately above the window
// identified by above, or at the bottom when above is 0 ("none", spec
// §4.1/§4.4). O(n), invoked rarely.
func (r *registry) restack(w *Window, above xproto.Window) {
	r.removeEntry(w)

	if above == 0 {
		r.windows = append([]*Window{w}, r.windows...)
		r.reindexFrom(0)
		return
	}

	i, ok := r.index[above]
	if !ok {
		// The sibling is unknown; fall back to the top, matching the
		// "restack rarely racing with destroy" tolerance of §4.1.
		r.windows = append(r.windows, w)
		r.index[w.ID] = len(r.windows) - 1
		return
	}
	insertAt := i + 1
	r.windows = append(r.windows, nil)
	copy(r.windows[insertAt+1:], r.windows[insertAt:])
	r.windows[insertAt] = w
	r.reindexFrom(insertAt)
}

func (r *registry) reindexFrom(start int) {
	for j := start; j < len(r.windows); j++ {
		r.index[r.windows[j].ID] = j
	}
}

// visible reports whether w's bounding box intersects the screen
// rectangle (spec §4.1, invariant boundary behavior §8.11).
func (r *registry) visible(w *Window, screen rect) bool {
	return w.Geom.rootRect().intersects(screen)
}

// snapshot returns the current stack order, bottom-first, for the
// painter. Plugins may substitute their own list (§4.7 render_windows);
// this is only the registry's default view.
func (r *registry) snapshot() []*Window {
	out := make([]*Window, len(r.windows))
	copy(out, r.windows)
	return out
}
