package main

import (
	"github.com/jezek/xgb"
)

// classifyXError distinguishes a genuine transport failure from an
// asynchronous X protocol error (spec §7's error-kind table). jezek/xgb
// delivers both through the same Conn.WaitForEvent error return: every
// generated per-extension protocol error (BadWindow, BadDamage,
// BadPixmap, BadRegion, ...) implements xgb.Error, while a dead
// connection surfaces as a plain error that does not. Only the latter
// is transport-lost; everything else is resource-vanished and
// recoverable, matching the "log and keep reading" policy the
// vendored x11driver shiny screen loop uses for the same WaitForEvent
// error channel.
func classifyXError(err error) (kind errorKind, resource uint32, sequence uint16, recoverable bool) {
	if xerr, ok := err.(xgb.Error); ok {
		return kindResourceVanished, xerr.BadId(), xerr.SequenceId(), true
	}
	return kindTransportLost, 0, 0, false
}
