package main

import (
	"errors"
	"testing"
)

// fakeProtocolError stands in for a generated jezek/xgb per-extension
// error (e.g. xproto.WindowError, damage's BadDamage) without requiring
// a live connection: it implements the same xgb.Error interface.
type fakeProtocolError struct {
	msg      string
	badID    uint32
	sequence uint16
}

func (e *fakeProtocolError) Error() string      { return e.msg }
func (e *fakeProtocolError) BadId() uint32      { return e.badID }
func (e *fakeProtocolError) SequenceId() uint16 { return e.sequence }

func TestClassifyXErrorProtocolErrorIsRecoverable(t *testing.T) {
	err := &fakeProtocolError{msg: "BadWindow", badID: 0xabc, sequence: 7}
	kind, resource, sequence, recoverable := classifyXError(err)
	if !recoverable {
		t.Fatal("a protocol error implementing xgb.Error should be recoverable")
	}
	if kind != kindResourceVanished {
		t.Errorf("kind = %v, want kindResourceVanished", kind)
	}
	if resource != 0xabc {
		t.Errorf("resource = %#x, want 0xabc", resource)
	}
	if sequence != 7 {
		t.Errorf("sequence = %d, want 7", sequence)
	}
}

func TestClassifyXErrorPlainErrorIsFatal(t *testing.T) {
	kind, _, _, recoverable := classifyXError(errors.New("connection reset by peer"))
	if recoverable {
		t.Error("a plain error not implementing xgb.Error should be fatal")
	}
	if kind != kindTransportLost {
		t.Errorf("kind = %v, want kindTransportLost", kind)
	}
}
