package main

import (
	"fmt"
	"os"

	"github.com/jezek/xgb/xproto"
)

func main() {
	opt := parseCLIOpts()
	initLogging(opt.verbose)
	log := withComponent("main")

	cfg, err := readConfig(opt.configPath)
	if err != nil {
		die(exitCannotConnect, "load config: %v", err)
	}

	conn, xsi, err := connectDisplay("")
	if err != nil {
		if kind, ok := kindOf(err); ok && kind == kindExtensionMissing {
			die(exitExtensionMissing, "%v", err)
		}
		die(exitCannotConnect, "connect to display: %v", err)
	}

	screenNum := 0
	selectionWindow, err := acquireSelection(conn, xsi.Root, screenNum)
	if err != nil {
		conn.Close()
		die(exitSelectionConflict, "%v", err)
	}

	if err := redirectSubwindows(conn, xsi.Root); err != nil {
		xproto.DestroyWindow(conn, selectionWindow)
		conn.Close()
		die(exitCannotConnect, "redirect subwindows: %v", err)
	}

	atoms, err := newAtomRegistry(conn, xsi.Root)
	if err != nil {
		xproto.DestroyWindow(conn, selectionWindow)
		conn.Close()
		die(exitCannotConnect, "build atom registry: %v", err)
	}

	dmg, err := newDamageScheduler(conn, cfg)
	if err != nil {
		xproto.DestroyWindow(conn, selectionWindow)
		conn.Close()
		die(exitCannotConnect, "create damage accumulator: %v", err)
	}
	dmg.discoverRefreshRate(xsi.Root, cfg)

	keys, err := newKeysymTable(conn)
	if err != nil {
		log.Warn().Err(err).Msg("keysym table unavailable, key events will be ignored")
	}

	c := &compositor{
		conn:         conn,
		root:         xsi.Root,
		xsi:          xsi,
		screen:       rect{x0: 0, y0: 0, x1: int32(xsi.WidthInPixels), y1: int32(xsi.HeightInPixels)},
		atoms:        atoms,
		reg:          newRegistry(),
		dmg:          dmg,
		keys:         keys,
		backendName:  opt.backendName,
		cfg:          cfg,
		log:          withComponent("compositor"),
		startupPhase: true,
	}

	c.plugins = newPluginTable(cfg.DisabledPlugins)
	if err := c.plugins.loadDir(c, opt.pluginDir); err != nil {
		log.Warn().Err(err).Msg("plugin directory load failed")
	}

	if err := c.addExisting(); err != nil {
		log.Warn().Err(err).Msg("some existing windows could not be registered")
	}

	c.initBackendWithRetry()
	if c.backend == nil {
		xproto.DestroyWindow(conn, selectionWindow)
		conn.Close()
		die(exitBackendLoadFailure, "no rendering backend available")
	}

	if opt.printDiagnostics {
		printDiagnostics(c)
		c.shutdown(selectionWindow)
		os.Exit(exitOK)
	}

	c.startupPhase = false
	log.Info().
		Int("windows", len(c.reg.snapshot())).
		Str("backend", c.backend.name()).
		Msg("compositor running")

	runErr := c.run()
	c.shutdown(selectionWindow)

	if runErr != nil {
		die(exitCannotConnect, "compositor stopped: %v", runErr)
	}
}

func printDiagnostics(c *compositor) {
	fmt.Printf("screen: %dx%d\n", c.screen.x1-c.screen.x0, c.screen.y1-c.screen.y0)
	fmt.Printf("backend: %s\n", c.backend.name())
	fmt.Printf("windows:\n")
	for _, w := range c.reg.snapshot() {
		fmt.Printf("  id=%d viewable=%t input_only=%t geom=%dx%d+%d+%d opacity=%d\n",
			w.ID, w.Viewable, w.InputOnly, w.Geom.Width, w.Geom.Height, w.Geom.X, w.Geom.Y, w.opacity)
	}
}
