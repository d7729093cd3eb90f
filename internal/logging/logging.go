// Package logging provides named structured loggers for villabot
// components, mirroring the component-scoped logger factory of the game
// bot this module reimplements.
package logging

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.Mutex
	base    zerolog.Logger
	inited  bool
	verbose bool
)

// Init configures the process-wide base logger. Call once at startup
// before any Get call. If never called, Get falls back to a sane default.
func Init(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().
		Timestamp().
		Logger()
	inited = true
}

// Get returns a logger scoped to component, e.g. Get("scavenge") logs
// with component=scavenge on every entry -- the Go analogue of the
// original's get_logger("screen.farm") factory.
func Get(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !inited {
		base = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
		inited = true
	}
	return base.With().Str("component", component).Logger()
}
