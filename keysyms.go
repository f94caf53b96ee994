package main

import (
	"fmt"

	"github.com/hashicorp/golang-lru"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// rawKeysymTable is the 6-entry-per-keycode layout (unshifted, shifted,
// mode-switch unshifted/shifted, ISO-level-3 unshifted/shifted) and
// modifier-mask discovery of the vendored x11key.KeysymTable, adapted
// in place of importing it: x11key lives under an internal/ directory
// of golang.org/x/exp and is not importable outside that module. The
// selection rule in lookupRaw below is the same one x11key.KeysymTable.Lookup
// applies before converting to a rune; this core only needs the raw
// keysym, not a rune/key.Code translation, so that stage is dropped.
type rawKeysymTable struct {
	table [256][6]uint32

	numLockMod, modeSwitchMod, isoLevel3ShiftMod uint16
}

func (t *rawKeysymTable) lookupRaw(detail uint8, state uint16) uint32 {
	te := t.table[detail][0:2]
	if state&t.modeSwitchMod != 0 {
		te = t.table[detail][2:4]
	}
	if state&t.isoLevel3ShiftMod != 0 {
		te = t.table[detail][4:6]
	}
	unshifted := te[0]
	sym := unshifted
	if state&x11ShiftMask != 0 {
		sym = te[1]
		if sym == 0 {
			sym = unshifted
		}
	}
	return sym
}

const x11ShiftMask = 1 << 0

// keysymTable translates keycode/state pairs into keysyms for the plugin
// key-event hooks (spec §4.3, §4.8), with a repeated-lookup cache in
// front of rawKeysymTable.
type keysymTable struct {
	table rawKeysymTable
	cache *lru.Cache // key: uint32(detail)<<16|state, value: lookupResult
}

type lookupResult struct {
	sym  uint32
	mods uint16
}

func newKeysymTable(conn *xgb.Conn) (*keysymTable, error) {
	cache, err := lru.New(512)
	if err != nil {
		return nil, err
	}
	t := &keysymTable{cache: cache}
	if err := t.rebuild(conn); err != nil {
		return nil, err
	}
	return t, nil
}

// rebuild reloads the keycode->keysym table and re-derives the numlock /
// mode-switch / ISO-level-3-shift modifier masks, grounded on
// x11driver.screenImpl.initKeyboardMapping generalized from a one-time
// setup call into a repeatable rebuild invoked on every MappingNotify.
func (t *keysymTable) rebuild(conn *xgb.Conn) error {
	const keyLo, keyHi = 8, 255
	km, err := xproto.GetKeyboardMapping(conn, keyLo, keyHi-keyLo+1).Reply()
	if err != nil {
		return fmt.Errorf("get keyboard mapping: %w", err)
	}
	n := int(km.KeysymsPerKeycode)
	if n < 2 {
		return fmt.Errorf("too few keysyms per keycode: %d", n)
	}
	for i := keyLo; i <= keyHi; i++ {
		for j := 0; j < 6; j++ {
			if j < n {
				t.table.table[i][j] = uint32(km.Keysyms[(i-keyLo)*n+j])
			} else {
				t.table.table[i][j] = 0
			}
		}
	}

	mm, err := xproto.GetModifierMapping(conn).Reply()
	if err != nil {
		return fmt.Errorf("get modifier mapping: %w", err)
	}
	t.table.numLockMod, t.table.modeSwitchMod, t.table.isoLevel3ShiftMod = 0, 0, 0
	const (
		xkNumLock        = 0xff7f
		xkModeSwitch     = 0xff7e
		xkISOLevel3Shift = 0xfe03
	)
	found := 0
modifierSearch:
	for modifier := 0; modifier < 8; modifier++ {
		for i := 0; i < int(mm.KeycodesPerModifier); i++ {
			code := mm.Keycodes[modifier*int(mm.KeycodesPerModifier)+i]
			switch t.table.table[code][0] {
			case xkNumLock:
				t.table.numLockMod = 1 << uint(modifier)
				found++
			case xkModeSwitch:
				t.table.modeSwitchMod = 1 << uint(modifier)
				found++
			case xkISOLevel3Shift:
				t.table.isoLevel3ShiftMod = 1 << uint(modifier)
				found++
			}
			if found == 3 {
				break modifierSearch
			}
		}
	}

	t.cache.Purge()
	return nil
}

// lookup resolves a keycode/state pair to a keysym and the modifier mask,
// caching repeated lookups (the same key held down generates many
// identical (detail, state) pairs per second).
func (t *keysymTable) lookup(detail uint8, state uint16) (uint32, uint16) {
	key := uint32(detail)<<16 | uint32(state)
	if v, ok := t.cache.Get(key); ok {
		r := v.(lookupResult)
		return r.sym, r.mods
	}
	sym := t.table.lookupRaw(detail, state)
	result := lookupResult{sym: sym, mods: state}
	t.cache.Add(key, result)
	return result.sym, result.mods
}
