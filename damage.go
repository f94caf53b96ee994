package main

import (
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/damage"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
)

// damageScheduler accumulates dirty regions and decides when a frame is
// painted (spec §4.2). It owns the single server-side accumulator region
// described in spec §3; it never touches the window registry's ordering,
// only per-window damage bookkeeping fields.
type damageScheduler struct {
	conn *xgb.Conn

	accumulator xfixes.Region
	hasWork     bool

	interval  time.Duration
	refreshHz float64

	coalesceThreshold int
}

func newDamageScheduler(conn *xgb.Conn, cfg *config) (*damageScheduler, error) {
	regionID, err := xfixes.NewRegionId(conn)
	if err != nil {
		return nil, err
	}
	if err := xfixes.CreateRegionChecked(conn, regionID, nil).Check(); err != nil {
		return nil, err
	}
	return &damageScheduler{
		conn:              conn,
		accumulator:       regionID,
		coalesceThreshold: cfg.DamageCoalesceThreshold,
		interval:          cfg.paintInterval(),
	}, nil
}

// discoverRefreshRate queries RandR for the active mode's refresh rate
// and recomputes the paint interval (spec §4.2, §6 "Optionally a
// display-mode facility"). Absence of RandR, or any failure, leaves the
// configured default in place.
func (d *damageScheduler) discoverRefreshRate(root xproto.Window, cfg *config) {
	info, err := randr.GetScreenInfo(d.conn, randr.Window(root)).Reply()
	if err != nil || info == nil || info.Rate == 0 {
		return
	}
	d.refreshHz = float64(info.Rate)
	interval := time.Duration(float64(time.Second) / d.refreshHz)
	min := time.Duration(cfg.MinPaintIntervalMillis) * time.Millisecond
	if min <= 0 {
		min = 10 * time.Millisecond
	}
	if interval < min {
		interval = min
	}
	d.interval = interval
}

// enqueueRegion unions an arbitrary region (e.g. a window's old shape on
// unmap or resize) into the accumulator (spec §4.3's several "enqueue
// into the accumulator" bullets).
func (d *damageScheduler) enqueueRegion(r xfixes.Region) {
	if r == 0 {
		return
	}
	xfixes.UnionRegion(d.conn, d.accumulator, d.accumulator, r)
	d.hasWork = true
}

// onDamageNotify implements spec §4.2's per-notification policy.
func (d *damageScheduler) onDamageNotify(w *Window, ev damage.NotifyEvent) {
	switch {
	case w.firstDamage:
		d.enqueueRegionNoFlag(w.Region)
		damage.SubtractChecked(d.conn, w.DamageHandle, xfixes.RegionNone, xfixes.RegionNone)
		w.firstDamage = false
		w.fullyDamagedThisFrame = true

	case w.fullyDamagedThisFrame:
		damage.SubtractChecked(d.conn, w.DamageHandle, xfixes.RegionNone, xfixes.RegionNone)

	default:
		temp, err := xfixes.NewRegionId(d.conn)
		if err == nil {
			if err := xfixes.CreateRegionChecked(d.conn, temp, nil).Check(); err == nil {
				damage.SubtractChecked(d.conn, w.DamageHandle, xfixes.RegionNone, temp)
				xfixes.TranslateRegion(d.conn, temp, w.Geom.X, w.Geom.Y)
				xfixes.UnionRegion(d.conn, d.accumulator, d.accumulator, temp)
				xfixes.DestroyRegion(d.conn, temp)
				d.hasWork = true
			}
		}
	}

	w.damageNotifyCounter++
	if w.damageNotifyCounter >= d.coalesceThreshold {
		w.fullyDamagedThisFrame = true
	}
	w.Damaged = true
}

func (d *damageScheduler) enqueueRegionNoFlag(r xfixes.Region) {
	d.enqueueRegion(r)
}

// enqueueRect unions an arbitrary rectangle into the accumulator, used
// when the whole screen needs repainting (a root resize or a background
// pixmap change, spec §4.3/§4.6) rather than a specific window's region.
func (d *damageScheduler) enqueueRect(r rect) {
	regionID, err := xfixes.NewRegionId(d.conn)
	if err != nil {
		return
	}
	rects := []xproto.Rectangle{{
		X: int16(r.x0), Y: int16(r.y0),
		Width:  uint16(r.x1 - r.x0),
		Height: uint16(r.y1 - r.y0),
	}}
	if err := xfixes.CreateRegionChecked(d.conn, regionID, rects).Check(); err != nil {
		return
	}
	d.enqueueRegion(regionID)
	xfixes.DestroyRegion(d.conn, regionID)
}

// afterPaint resets every window's per-frame damage state and clears the
// accumulator (spec §4.2 "on return..."; §8 invariants 4 and 5).
func (d *damageScheduler) afterPaint(windows []*Window) {
	for _, w := range windows {
		w.Damaged = false
		w.damageNotifyCounter = 0
		w.fullyDamagedThisFrame = false
	}
	xfixes.SetRegion(d.conn, d.accumulator, nil)
	d.hasWork = false
}

func (d *damageScheduler) destroy() {
	xfixes.DestroyRegion(d.conn, d.accumulator)
}
