package corovm

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the structured-logging surface used for lifecycle and error
// events. zerolog.Logger's level methods have pointer receivers, so a
// *zerolog.Logger satisfies it directly.
type Logger interface {
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

// zerologAdapter wraps a zerolog.Logger to satisfy Logger.
type zerologAdapter struct {
	*zerolog.Logger
}

var _ Logger = zerologAdapter{}

// newDefaultLogger builds a Logger that writes warn-level and higher
// events to w, or to stderr when w is nil. The constructors in this
// package do not use it: unless a logger is supplied through an option
// they log to nopLogger. The hot paths (park, unpark, schedule) never
// log.
func newDefaultLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	l := zerolog.New(w).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	return zerologAdapter{&l}
}

// nopLogger discards everything; used when logging is disabled entirely.
type nopLogger struct{}

func (nopLogger) Info() *zerolog.Event  { return nopEvent() }
func (nopLogger) Warn() *zerolog.Event  { return nopEvent() }
func (nopLogger) Error() *zerolog.Event { return nopEvent() }

func nopEvent() *zerolog.Event {
	l := zerolog.New(io.Discard)
	return l.Info()
}
