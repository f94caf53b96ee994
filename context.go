package main

import (
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog"
)

// compositor is the single explicit context threaded through every
// operation in the core (spec §9: "Re-architect as an explicit context
// value threaded through every call; this preserves testability and
// removes the implicit singleton."). It plays the role the teacher's
// ntcontext struct plays for NoiseTorch-ng, generalized to this domain.
//
// Every field below is owned by the main loop's goroutine and is never
// accessed concurrently (spec §5); there is intentionally no mutex here.
type compositor struct {
	conn *xgb.Conn
	root xproto.Window
	xsi  *xproto.ScreenInfo

	screen rect

	atoms *atomRegistry
	reg   *registry
	dmg   *damageScheduler
	keys  *keysymTable

	backend      backend
	backendName  string
	backendRetry retryState

	plugins *pluginTable

	cfg *config
	log zerolog.Logger

	startupPhase bool // stricter error handling until the initial handshake completes (§4.3)

	exitRequested bool
}

type retryState struct {
	failures  int
	nextRetry time.Time
}
