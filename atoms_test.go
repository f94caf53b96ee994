package main

import (
	"testing"

	"github.com/jezek/xgb/xproto"
)

func TestAtomRegistryIsBackgroundAtom(t *testing.T) {
	ar := &atomRegistry{
		backgroundAtoms: map[xproto.Atom]bool{100: true, 101: true},
	}
	if !ar.isBackgroundAtom(100) {
		t.Error("100 should be a background atom")
	}
	if ar.isBackgroundAtom(200) {
		t.Error("200 should not be a background atom")
	}
}

func TestAtomRegistryIsNetSupportedAtom(t *testing.T) {
	ar := &atomRegistry{supportedHintsAtom: 55}
	if !ar.isNetSupportedAtom(55) {
		t.Error("55 should be the _NET_SUPPORTED atom")
	}
	if ar.isNetSupportedAtom(56) {
		t.Error("56 should not be the _NET_SUPPORTED atom")
	}
}

func TestAtomRegistryUpdateSupportedInvalidatesCache(t *testing.T) {
	ar := &atomRegistry{
		supported:      map[xproto.Atom]bool{1: true},
		supportedValid: true,
	}
	ar.updateSupported()
	if ar.supportedValid {
		t.Error("updateSupported() should clear supportedValid")
	}
	if ar.supported != nil {
		t.Error("updateSupported() should clear the cached set")
	}
}
