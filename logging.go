package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// base is the process-wide root logger. It is the one piece of state that
// legitimately lives at package scope: every other mutable structure in
// this repository is owned by the compositor context (spec §9).
var base zerolog.Logger

func initLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	base = zerolog.New(writer).With().Timestamp().Logger()
}

// withComponent returns a sub-logger tagged with a component name, in the
// same style as FocusStreamer's logger.WithComponent("x11-backend").
func withComponent(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
