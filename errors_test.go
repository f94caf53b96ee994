package main

import (
	"errors"
	"testing"
)

func TestWrapErrorNilPassthrough(t *testing.T) {
	if err := wrapError(kindTransportLost, nil); err != nil {
		t.Errorf("wrapError(kind, nil) = %v, want nil", err)
	}
}

func TestKindOfRoundTrip(t *testing.T) {
	cases := []errorKind{
		kindTransportLost,
		kindExtensionMissing,
		kindSelectionConflict,
		kindResourceVanished,
		kindBackendInitFailure,
		kindPluginLoadFailure,
		kindPluginRequirementsUnmet,
		kindMalformedProperty,
	}
	for _, k := range cases {
		wrapped := wrapError(k, errResourceVanished)
		got, ok := kindOf(wrapped)
		if !ok {
			t.Fatalf("kindOf(%v) ok = false, want true", wrapped)
		}
		if got != k {
			t.Errorf("kindOf() = %v, want %v", got, k)
		}
	}
}

func TestKindOfUnwrappedError(t *testing.T) {
	if _, ok := kindOf(errors.New("plain")); ok {
		t.Error("kindOf() on a plain error should report ok=false")
	}
}

func TestCoreErrorUnwraps(t *testing.T) {
	wrapped := wrapError(kindTransportLost, errTransportLost)
	if !errors.Is(wrapped, errTransportLost) {
		t.Error("errors.Is should see through coreError to its cause")
	}
}
