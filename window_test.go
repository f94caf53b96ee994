package main

import "testing"

func TestNewWindowDefaults(t *testing.T) {
	w := newWindow(42)
	if w.ID != 42 {
		t.Errorf("ID = %d, want 42", w.ID)
	}
	if w.opacity != fullyOpaque {
		t.Errorf("opacity = %#x, want fullyOpaque", w.opacity)
	}
	if !w.firstDamage {
		t.Error("firstDamage should start true")
	}
	if w.hasPixmap() {
		t.Error("freshly created window should have no pixmap")
	}
}

// TestWindowCheckInvariants is invariant 1 (§8): an input-only window must
// never carry a damage handle or a pixmap.
func TestWindowCheckInvariants(t *testing.T) {
	screen := rect{x0: 0, y0: 0, x1: 1920, y1: 1080}

	cases := []struct {
		name    string
		w       *Window
		wantErr bool
	}{
		{"drawable with pixmap ok", &Window{ID: 1, Pixmap: 7}, false},
		{"input-only clean ok", &Window{ID: 2, InputOnly: true}, false},
		{"input-only with pixmap violates", &Window{ID: 3, InputOnly: true, Pixmap: 7}, true},
		{"input-only with damage handle violates", &Window{ID: 4, InputOnly: true, DamageHandle: 9}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.w.checkInvariants(screen)
			if (err != nil) != c.wantErr {
				t.Errorf("checkInvariants() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestGeometryRootRect(t *testing.T) {
	g := Geometry{X: 10, Y: 20, Width: 200, Height: 100, BorderWidth: 1}
	got := g.rootRect()
	want := rect{x0: 10, y0: 20, x1: 210, y1: 120}
	if got != want {
		t.Errorf("rootRect() = %+v, want %+v", got, want)
	}
}

func TestRectIntersects(t *testing.T) {
	a := rect{x0: 0, y0: 0, x1: 10, y1: 10}
	cases := []struct {
		name string
		b    rect
		want bool
	}{
		{"overlapping", rect{x0: 5, y0: 5, x1: 15, y1: 15}, true},
		{"touching edge only", rect{x0: 10, y0: 0, x1: 20, y1: 10}, false},
		{"disjoint", rect{x0: 20, y0: 20, x1: 30, y1: 30}, false},
		{"contained", rect{x0: 2, y0: 2, x1: 4, y1: 4}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := a.intersects(c.b); got != c.want {
				t.Errorf("intersects(%+v, %+v) = %v, want %v", a, c.b, got, c.want)
			}
		})
	}
}
