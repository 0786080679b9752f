package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// Option customises a ZerologLogger.
type Option func(*options)

type options struct {
	out   io.Writer
	level zerolog.Level
	dev   bool
}

// WithWriter sends log output to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithLevel sets the minimum level. Unknown names keep the default (debug).
func WithLevel(level string) Option {
	return func(o *options) {
		if l, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && level != "" {
			o.level = l
		}
	}
}

// WithConsole selects the human readable console writer. APP_ENV=dev
// selects it as well.
func WithConsole(on bool) Option {
	return func(o *options) { o.dev = o.dev || on }
}

// NewZerologLogger creates a ZerologLogger using the APP_ENV environment variable
// to determine the output format. All logs include the provided component field.
func NewZerologLogger(component string, opts ...Option) Logger {
	o := options{
		out:   os.Stdout,
		level: zerolog.DebugLevel,
		dev:   strings.ToLower(os.Getenv("APP_ENV")) == "dev",
	}
	for _, opt := range opts {
		opt(&o)
	}
	out := o.out
	if o.dev {
		out = zerolog.ConsoleWriter{Out: o.out, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(out).Level(o.level).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
