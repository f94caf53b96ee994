package main

import (
	"container/list"
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/render"
)

// alphaCache hands out a shared, repeating solid-fill picture per opacity
// level for use as a render mask (spec §4.5's "cache of alpha-mask
// surfaces keyed by opacity level"). Multiple windows attached to the
// same opacity share one picture; refcounts track how many windows
// currently hold it. acquire/release are called only when a window's
// backend state (renderWindowState, backend_render.go) attaches to a
// new opacity or tears down, never on every paint, so an entry's
// refcount reflects how many windows are currently AT that opacity
// rather than how many were merely painted this frame (spec §8.9).
//
// container/list backs the refcount bookkeeping rather than
// hashicorp/golang-lru (wired instead in keysyms.go): an LRU cache models
// eviction-on-capacity, not the attach/detach/multi-owner contract this
// cache needs, where an entry must survive exactly as long as something
// holds it and otherwise becomes sweep-eligible.
type alphaCache struct {
	conn        *xgb.Conn
	liveEntries map[uint16]*alphaCacheEntry // refs > 0
	entries     map[uint16]*list.Element    // refs == 0, sweep-eligible
	order       *list.List                  // Value is *alphaCacheEntry; front = most recently released
}

type alphaCacheEntry struct {
	opacity uint16
	picture render.Picture
	refs    int
}

func newAlphaCache(conn *xgb.Conn) *alphaCache {
	return &alphaCache{
		conn:        conn,
		liveEntries: make(map[uint16]*alphaCacheEntry),
		entries:     make(map[uint16]*list.Element),
		order:       list.New(),
	}
}

// acquire returns the shared picture for opacity, creating it on first
// use and incrementing its refcount.
func (a *alphaCache) acquire(opacity uint16) (render.Picture, error) {
	if el, ok := a.entries[opacity]; ok {
		entry := el.Value.(*alphaCacheEntry)
		entry.refs++
		a.order.Remove(el)
		delete(a.entries, opacity)
		a.liveEntries[opacity] = entry
		return entry.picture, nil
	}

	pid, err := render.NewPictureId(a.conn)
	if err != nil {
		return 0, err
	}
	color := render.Color{Red: 0, Green: 0, Blue: 0, Alpha: opacity}
	if err := render.CreateSolidFillChecked(a.conn, pid, color).Check(); err != nil {
		return 0, fmt.Errorf("create alpha mask for opacity %d: %w", opacity, err)
	}
	entry := &alphaCacheEntry{opacity: opacity, picture: pid, refs: 1}
	a.liveEntries[opacity] = entry
	return pid, nil
}

// release drops one reference; at zero it moves to the front of the
// sweep list instead of being destroyed immediately, so a window that
// flickers between two opacities doesn't thrash render picture creation.
func (a *alphaCache) release(opacity uint16) {
	entry, ok := a.liveEntries[opacity]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs > 0 {
		return
	}
	delete(a.liveEntries, opacity)
	el := a.order.PushFront(entry)
	a.entries[opacity] = el
}

// sweep destroys zero-ref entries beyond keep, oldest first. Called
// periodically by the main loop rather than on every release, so a brief
// dip to zero references doesn't pay a render round-trip.
func (a *alphaCache) sweep(keep int) {
	for a.order.Len() > keep {
		el := a.order.Back()
		if el == nil {
			return
		}
		entry := el.Value.(*alphaCacheEntry)
		a.order.Remove(el)
		delete(a.entries, entry.opacity)
		render.FreePicture(a.conn, entry.picture)
	}
}

func (a *alphaCache) close() {
	for _, entry := range a.liveEntries {
		render.FreePicture(a.conn, entry.picture)
	}
	a.sweep(0)
}
