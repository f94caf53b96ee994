package main

import "testing"

func TestWindowOwningMatchesByID(t *testing.T) {
	c := &compositor{reg: newRegistry()}
	w := c.reg.append(10)
	w.DamageHandle = 20
	w.Pixmap = 30

	if got := c.windowOwning(10); got != w {
		t.Error("windowOwning() should match by window id")
	}
	if got := c.windowOwning(20); got != w {
		t.Error("windowOwning() should match by damage handle")
	}
	if got := c.windowOwning(30); got != w {
		t.Error("windowOwning() should match by pixmap id")
	}
	if got := c.windowOwning(999); got != nil {
		t.Error("windowOwning() should return nil for an unrelated resource id")
	}
}
