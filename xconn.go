package main

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/composite"
	"github.com/jezek/xgb/damage"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/render"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
)

// minimum extension versions the core requires (spec §6).
const (
	minCompositeMajor, minCompositeMinor = 0, 4 // NameWindowPixmap sub-version
	minDamageMajor, minDamageMinor       = 1, 0
	minXFixesMajor, minXFixesMinor       = 2, 0
	minRenderMajor, minRenderMinor       = 0, 1
)

// connectDisplay opens the transport and negotiates every extension the
// core depends on, two-phase (issue every version-query request, then
// collect replies), matching §4.5's "two-phase (request, then reply)
// handshake" pattern generalized to connection setup.
func connectDisplay(displayName string) (*xgb.Conn, *xproto.ScreenInfo, error) {
	conn, err := xgb.NewConnDisplay(displayName)
	if err != nil {
		return nil, nil, wrapError(kindTransportLost, fmt.Errorf("connect: %w", err))
	}

	if err := composite.Init(conn); err != nil {
		conn.Close()
		return nil, nil, wrapError(kindExtensionMissing, fmt.Errorf("composite extension: %w", err))
	}
	if err := damage.Init(conn); err != nil {
		conn.Close()
		return nil, nil, wrapError(kindExtensionMissing, fmt.Errorf("damage extension: %w", err))
	}
	if err := xfixes.Init(conn); err != nil {
		conn.Close()
		return nil, nil, wrapError(kindExtensionMissing, fmt.Errorf("xfixes extension: %w", err))
	}
	if err := render.Init(conn); err != nil {
		conn.Close()
		return nil, nil, wrapError(kindExtensionMissing, fmt.Errorf("render extension: %w", err))
	}
	// RandR is optional (spec §6 "Optionally a display-mode facility");
	// absence only disables refresh-rate discovery (§4.2 default 50Hz).
	_ = randr.Init(conn)

	compCookie := composite.QueryVersion(conn, minCompositeMajor, minCompositeMinor)
	dmgCookie := damage.QueryVersion(conn, minDamageMajor, minDamageMinor)
	fixCookie := xfixes.QueryVersion(conn, minXFixesMajor, minXFixesMinor)
	renCookie := render.QueryVersion(conn, minRenderMajor, minRenderMinor)

	compReply, err := compCookie.Reply()
	if err != nil || compReply.MajorVersion < minCompositeMajor ||
		(compReply.MajorVersion == minCompositeMajor && compReply.MinorVersion < minCompositeMinor) {
		conn.Close()
		return nil, nil, wrapError(kindExtensionMissing, fmt.Errorf("composite version too old"))
	}
	if _, err := dmgCookie.Reply(); err != nil {
		conn.Close()
		return nil, nil, wrapError(kindExtensionMissing, fmt.Errorf("damage version query: %w", err))
	}
	if _, err := fixCookie.Reply(); err != nil {
		conn.Close()
		return nil, nil, wrapError(kindExtensionMissing, fmt.Errorf("xfixes version query: %w", err))
	}
	renReply, err := renCookie.Reply()
	if err != nil || (renReply.MajorVersion == 0 && renReply.MinorVersion < minRenderMinor) {
		conn.Close()
		return nil, nil, wrapError(kindExtensionMissing, fmt.Errorf("render version too old"))
	}

	xsi := xproto.Setup(conn).DefaultScreen(conn)
	return conn, xsi, nil
}

// extensionPresent reports whether the named X extension was successfully
// negotiated at connect time (spec §4.7 plugin requirement checks).
func (c *compositor) extensionPresent(name string) bool {
	switch name {
	case "composite":
		return extInList(c.conn, "COMPOSITE")
	case "damage":
		return extInList(c.conn, "DAMAGE")
	case "xfixes":
		return extInList(c.conn, "XFIXES")
	case "render":
		return extInList(c.conn, "RENDER")
	case "randr":
		return extInList(c.conn, "RANDR")
	default:
		return false
	}
}

func extInList(conn *xgb.Conn, name string) bool {
	_, ok := conn.Extensions[name]
	return ok
}

// redirectSubwindows asks the server to divert every child of root into
// off-screen storage (spec §4, composite-redirect-subwindows).
func redirectSubwindows(conn *xgb.Conn, root xproto.Window) error {
	return composite.RedirectSubwindowsChecked(conn, root, composite.RedirectManual).Check()
}

// acquireSelection implements the compositing-manager selection ownership
// convention of spec §6: a magic per-screen atom, a dummy window, and a
// set-owner call timestamped via a property-change echo. Returns a
// selection-conflict error if another manager already owns it.
func acquireSelection(conn *xgb.Conn, root xproto.Window, screenNum int) (xproto.Window, error) {
	name := fmt.Sprintf("_NET_WM_CM_S%d", screenNum)
	atomReply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern selection atom: %w", err)
	}
	selAtom := atomReply.Atom

	ownerReply, err := xproto.GetSelectionOwner(conn, selAtom).Reply()
	if err != nil {
		return 0, fmt.Errorf("query selection owner: %w", err)
	}
	if ownerReply.Owner != 0 {
		return 0, wrapError(kindSelectionConflict, errSelectionConflict)
	}

	dummy, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, fmt.Errorf("allocate dummy window id: %w", err)
	}
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)
	if err := xproto.CreateWindowChecked(
		conn, screen.RootDepth, dummy, root,
		-1, -1, 1, 1, 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange},
	).Check(); err != nil {
		return 0, fmt.Errorf("create selection window: %w", err)
	}

	ts, err := echoTimestamp(conn, dummy)
	if err != nil {
		xproto.DestroyWindow(conn, dummy)
		return 0, fmt.Errorf("obtain timestamp: %w", err)
	}

	if err := xproto.SetSelectionOwnerChecked(conn, dummy, selAtom, ts).Check(); err != nil {
		xproto.DestroyWindow(conn, dummy)
		return 0, fmt.Errorf("set selection owner: %w", err)
	}

	// Re-check: another manager may have raced us between the initial
	// query and the set (spec §8 S6: no redirection if conflict found).
	confirm, err := xproto.GetSelectionOwner(conn, selAtom).Reply()
	if err != nil || confirm.Owner != dummy {
		xproto.DestroyWindow(conn, dummy)
		return 0, wrapError(kindSelectionConflict, errSelectionConflict)
	}

	return dummy, nil
}

// echoTimestamp obtains a server timestamp by writing a zero-length
// property to w and waiting for the PropertyNotify it provokes, the
// standard ICCCM convention also used by real window managers.
func echoTimestamp(conn *xgb.Conn, w xproto.Window) (xproto.Timestamp, error) {
	atomReply, err := xproto.InternAtom(conn, false, uint16(len("WM_CLASS")), "WM_CLASS").Reply()
	if err != nil {
		return 0, err
	}
	if err := xproto.ChangePropertyChecked(
		conn, xproto.PropModeAppend, w, atomReply.Atom, xproto.AtomString, 8, 0, nil,
	).Check(); err != nil {
		return 0, err
	}
	for {
		ev, err := conn.WaitForEvent()
		if err != nil {
			return 0, err
		}
		if pn, ok := ev.(xproto.PropertyNotifyEvent); ok && pn.Window == w {
			return pn.Time, nil
		}
	}
}
