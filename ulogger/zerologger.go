package ulogger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ordishs/gocore"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// ZLoggerWrapper wraps a zerolog.Logger to satisfy the Logger interface.
type ZLoggerWrapper struct {
	zerolog.Logger
	service string
	opts    *Options
}

// NewZeroLogger creates a zerolog-backed logger for the named service.
// On a terminal (or when PRETTY_LOGS is set) it uses the console writer,
// otherwise it emits JSON lines.
func NewZeroLogger(service string, options ...Option) *ZLoggerWrapper {
	if service == "" {
		service = "chain"
	}

	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	if level, ok := gocore.Config().Get("logLevel"); ok {
		opts.logLevel = level
	}

	var z *ZLoggerWrapper

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if gocore.Config().GetBool("PRETTY_LOGS", isTerminal) {
		output := zerolog.ConsoleWriter{
			Out:        opts.writer,
			NoColor:    !isTerminal,
			TimeFormat: time.RFC3339,
		}

		z = &ZLoggerWrapper{
			Logger:  zerolog.New(output).With().Timestamp().Str("service", service).Logger(),
			service: service,
			opts:    opts,
		}
	} else {
		z = &ZLoggerWrapper{
			Logger:  zerolog.New(opts.writer).With().Timestamp().Str("service", service).Logger(),
			service: service,
			opts:    opts,
		}
	}

	z.SetLogLevel(opts.logLevel)

	return z
}

// LogLevel returns the current log level as an int, matching zerolog's levels.
func (z *ZLoggerWrapper) LogLevel() int {
	return int(z.Logger.GetLevel())
}

// SetLogLevel sets the minimum level from a string, defaulting to INFO for
// unknown values.
func (z *ZLoggerWrapper) SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		z.Logger = z.Logger.Level(zerolog.DebugLevel)
	case "WARN":
		z.Logger = z.Logger.Level(zerolog.WarnLevel)
	case "ERROR":
		z.Logger = z.Logger.Level(zerolog.ErrorLevel)
	default:
		z.Logger = z.Logger.Level(zerolog.InfoLevel)
	}
}

func (z *ZLoggerWrapper) Debugf(format string, args ...interface{}) {
	z.Logger.Debug().Msg(fmt.Sprintf(format, args...))
}

func (z *ZLoggerWrapper) Infof(format string, args ...interface{}) {
	z.Logger.Info().Msg(fmt.Sprintf(format, args...))
}

func (z *ZLoggerWrapper) Warnf(format string, args ...interface{}) {
	z.Logger.Warn().Msg(fmt.Sprintf(format, args...))
}

func (z *ZLoggerWrapper) Errorf(format string, args ...interface{}) {
	z.Logger.Error().Msg(fmt.Sprintf(format, args...))
}

func (z *ZLoggerWrapper) Fatalf(format string, args ...interface{}) {
	z.Logger.Fatal().Msg(fmt.Sprintf(format, args...))
}

// New creates a new logger for a different service, inheriting this logger's
// options.
func (z *ZLoggerWrapper) New(service string, options ...Option) Logger {
	merged := []Option{WithLevel(z.opts.logLevel), WithWriter(z.opts.writer)}
	merged = append(merged, options...)

	return NewZeroLogger(service, merged...)
}

// Duplicate returns a copy of this logger with the given options applied.
func (z *ZLoggerWrapper) Duplicate(options ...Option) Logger {
	return z.New(z.service, options...)
}
