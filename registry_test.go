package main

import (
	"testing"

	"github.com/jezek/xgb/xproto"
)

func geomAt(x, y int16, w, h uint16) Geometry {
	return Geometry{X: x, Y: y, Width: w, Height: h}
}

// TestRegistryIndexAgreement exercises invariant 3 (§8): the id->position
// index must agree with the slice position for every window, through a
// sequence of appends, restacks and removals.
func TestRegistryIndexAgreement(t *testing.T) {
	r := newRegistry()
	ids := []xproto.Window{10, 11, 12, 13}
	for _, id := range ids {
		r.append(id)
	}

	r.restack(r.get(11), 13) // move 11 above 13: order becomes 10,12,13,11
	r.removeEntry(r.get(12))

	for i, w := range r.windows {
		if got := r.index[w.ID]; got != i {
			t.Errorf("index[%d] = %d, want %d", w.ID, got, i)
		}
	}
	if len(r.windows) != len(r.index) {
		t.Errorf("slice/index length mismatch: %d vs %d", len(r.windows), len(r.index))
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := newRegistry()
	r.append(1)
	if w := r.get(999); w != nil {
		t.Errorf("get of unregistered id returned %v, want nil", w)
	}
}

// TestRegistryRestackRoundTrip is invariant 7: restacking a window above X
// and then back above its previous neighbour restores the original order.
func TestRegistryRestackRoundTrip(t *testing.T) {
	r := newRegistry()
	for _, id := range []xproto.Window{1, 2, 3, 4} {
		r.append(id)
	}
	before := snapshotIDs(r)

	w := r.get(2)
	previousAbove := idBelow(r, 2) // id that 2 currently sits directly above

	r.restack(w, 4) // 2 now above 4 (top)
	r.restack(w, previousAbove)

	after := snapshotIDs(r)
	if !idSlicesEqual(before, after) {
		t.Errorf("restack round trip: got %v, want %v", after, before)
	}
}

func idBelow(r *registry, id xproto.Window) xproto.Window {
	i := r.index[id]
	if i == 0 {
		return 0
	}
	return r.windows[i-1].ID
}

func snapshotIDs(r *registry) []xproto.Window {
	out := make([]xproto.Window, len(r.windows))
	for i, w := range r.windows {
		out[i] = w.ID
	}
	return out
}

func idSlicesEqual(a, b []xproto.Window) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRegistryRestackUnknownAboveFallsBackToTop(t *testing.T) {
	r := newRegistry()
	r.append(1)
	r.append(2)
	w := r.get(1)
	r.restack(w, 999) // unknown sibling
	got := snapshotIDs(r)
	want := []xproto.Window{2, 1}
	if !idSlicesEqual(got, want) {
		t.Errorf("restack onto unknown sibling: got %v, want %v", got, want)
	}
}

// TestRegistryVisible is boundary behavior invariant 11: a window fully
// outside the screen rectangle never counts as visible.
func TestRegistryVisible(t *testing.T) {
	r := newRegistry()
	screen := rect{x0: 0, y0: 0, x1: 1920, y1: 1080}

	cases := []struct {
		name string
		geom Geometry
		want bool
	}{
		{"fully inside", geomAt(100, 100, 200, 200), true},
		{"straddles right edge", geomAt(1900, 100, 200, 200), true},
		{"fully off right", geomAt(2000, 100, 200, 200), false},
		{"fully off bottom", geomAt(100, 2000, 200, 200), false},
		{"negative origin overlapping", geomAt(-50, -50, 100, 100), true},
		{"negative origin clear of screen", geomAt(-500, -500, 100, 100), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := &Window{ID: 1, Geom: c.geom}
			if got := r.visible(w, screen); got != c.want {
				t.Errorf("visible(%+v) = %v, want %v", c.geom, got, c.want)
			}
		})
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := newRegistry()
	r.append(1)
	snap := r.snapshot()
	r.append(2)
	if len(snap) != 1 {
		t.Errorf("snapshot mutated after later append: len=%d, want 1", len(snap))
	}
}
