package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/composite"
	"github.com/jezek/xgb/xproto"
)

// run drives the event loop (spec §4.8, §5): a dedicated goroutine reads
// raw events off the wire and forwards them on a channel without
// touching any shared state; everything else happens on this goroutine's
// single select loop, so the registry, damage accumulator, and backend
// never need a mutex.
func (c *compositor) run() error {
	events := make(chan xgb.Event, 64)
	errs := make(chan error, 8)
	go c.readEvents(events, errs)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(c.dmg.interval)
	defer ticker.Stop()

	for !c.exitRequested {
		select {
		case ev, ok := <-events:
			if !ok {
				return wrapError(kindTransportLost, errTransportLost)
			}
			if err := c.dispatch(ev); err != nil {
				if c.startupPhase {
					return err
				}
				c.log.Error().Err(err).Msg("event dispatch failed")
			}

		case err := <-errs:
			kind, resource, sequence, recoverable := classifyXError(err)
			if !recoverable {
				return wrapError(kind, err)
			}
			c.handleAsyncXError(err, resource, sequence)

		case s := <-sig:
			c.log.Info().Str("signal", s.String()).Msg("received signal")
			switch s {
			case syscall.SIGHUP:
				if reloaded, err := readConfig(c.cfg.path); err == nil {
					c.cfg = reloaded
					ticker.Reset(c.cfg.paintInterval())
					c.log.Info().Msg("configuration reloaded")
				} else {
					c.log.Warn().Err(err).Msg("configuration reload failed")
				}
			default:
				c.exitRequested = true
			}

		case <-ticker.C:
			c.maybeRetryBackend()
			if err := c.paintIfDamaged(); err != nil {
				c.log.Error().Err(err).Msg("paint failed")
			}
		}
	}
	return nil
}

// readEvents forwards every raw event and error off the wire; it
// classifies an error only to decide whether to keep reading and never
// acts on one itself, since handling touches the registry and log, both
// owned by run's goroutine (spec §5). It only
// stops reading once WaitForEvent reports a genuine transport failure
// (spec §7); an asynchronous X protocol error (BadWindow, BadDamage,
// ...) is forwarded but the read loop keeps going, since the
// connection underneath it is still alive.
func (c *compositor) readEvents(events chan<- xgb.Event, errs chan<- error) {
	defer close(events)
	for {
		ev, err := c.conn.WaitForEvent()
		if err != nil {
			errs <- err
			if _, _, _, recoverable := classifyXError(err); recoverable {
				continue
			}
			return
		}
		if ev == nil {
			continue
		}
		events <- ev
	}
}

func (c *compositor) maybeRetryBackend() {
	if c.backend != nil {
		return
	}
	if c.backendRetry.failures > 0 && time.Now().Before(c.backendRetry.nextRetry) {
		return
	}
	c.initBackendWithRetry()
}

// paintIfDamaged runs one paint pass when the accumulator is non-empty
// (spec §4.2 paint tick policy). A plugin's render order substitution, if
// any, is applied to the bottom-to-top registry snapshot before handing
// it to the backend.
func (c *compositor) paintIfDamaged() error {
	if !c.dmg.hasWork || c.backend == nil {
		return nil
	}

	windows := c.applyPluginOrder(c.reg.snapshot())

	if err := c.backend.paint(c, windows, c.dmg.accumulator); err != nil {
		return err
	}
	c.dmg.afterPaint(c.reg.snapshot())
	return nil
}

func (c *compositor) applyPluginOrder(windows []*Window) []*Window {
	if c.plugins == nil {
		return windows
	}
	ids := make([]xproto.Window, len(windows))
	for i, w := range windows {
		ids[i] = w.ID
	}
	reordered := c.plugins.renderOrder(ids)
	if reordered == nil {
		return windows
	}
	out := make([]*Window, 0, len(reordered))
	for _, id := range reordered {
		if w := c.reg.get(id); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// shutdown releases every server-side resource in the reverse order of
// acquisition (spec §4.4 teardown ordering generalized to the whole
// process): per-window state, the backend, the damage scheduler's
// accumulator, composite redirection, the selection window, then the
// connection itself.
func (c *compositor) shutdown(selectionWindow xproto.Window) {
	for _, w := range c.reg.snapshot() {
		c.releaseWindowResources(w)
	}
	if c.backend != nil {
		c.backend.close()
	}
	if c.dmg != nil {
		c.dmg.destroy()
	}
	composite.UnredirectSubwindows(c.conn, c.root, composite.RedirectManual)
	if selectionWindow != 0 {
		xproto.DestroyWindow(c.conn, selectionWindow)
	}
	c.conn.Close()
}
