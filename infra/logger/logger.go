package logger

import (
	"os"

	corelogger "github.com/zacharyweiss/demandscheduling/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards everything.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. The output format is picked
// from APP_ENV and the level from LOG_LEVEL.
func New(component string) Logger {
	return NewZerologLogger(component, WithLevel(os.Getenv("LOG_LEVEL")))
}
