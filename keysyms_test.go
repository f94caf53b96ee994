package main

import "testing"

// TestRawKeysymTableLookup exercises the shift/mode-switch/ISO-level-3
// selection logic adapted from x11key.KeysymTable.Lookup, without the
// rune/key.Code translation stage this core has no use for.
func TestRawKeysymTableLookup(t *testing.T) {
	var table rawKeysymTable
	const keycode = 38 // arbitrary, matches 'a' on a typical layout
	table.table[keycode] = [6]uint32{
		'a', 'A', // unshifted plane
		'1', '!', // mode-switch plane
		'b', 'B', // ISO level 3 plane
	}
	table.modeSwitchMod = 1 << 3
	table.isoLevel3ShiftMod = 1 << 5

	cases := []struct {
		name  string
		state uint16
		want  uint32
	}{
		{"unshifted", 0, 'a'},
		{"shifted", x11ShiftMask, 'A'},
		{"mode switch unshifted", 1 << 3, '1'},
		{"mode switch shifted", 1<<3 | x11ShiftMask, '!'},
		{"iso level 3 unshifted", 1 << 5, 'b'},
		{"iso level 3 shifted", 1<<5 | x11ShiftMask, 'B'},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := table.lookupRaw(keycode, c.state); got != c.want {
				t.Errorf("lookupRaw(state=%#x) = %q, want %q", c.state, rune(got), rune(c.want))
			}
		})
	}
}

// TestRawKeysymTableShiftFallsBackWhenUnset mirrors a keysym table entry
// that defines no distinct shifted form (common for symbol keys): shift
// falls back to the unshifted keysym rather than returning 0.
func TestRawKeysymTableShiftFallsBackWhenUnset(t *testing.T) {
	var table rawKeysymTable
	const keycode = 10
	table.table[keycode] = [6]uint32{'1', 0, 0, 0, 0, 0}

	if got := table.lookupRaw(keycode, x11ShiftMask); got != '1' {
		t.Errorf("lookupRaw with no shifted entry = %q, want fallback %q", rune(got), '1')
	}
}
