// Package logx provides package-scoped structured loggers shared across padgrid.
package logx

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu    sync.Mutex
	level = zerolog.InfoLevel
	base  = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
)

// Get returns a logger tagged with the given component name.
func Get(name string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base.Level(level).With().Str("component", name).Logger()
}

// SetLevel adjusts the global minimum log level for all loggers obtained via Get.
func SetLevel(l zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}
