// Package ulogger provides the logging interface used by every service in the
// engine, with a zerolog-backed default implementation.
package ulogger

import (
	"io"
	"os"
)

// Logger is the logging interface passed into every component. Structured
// chain events should carry height and a hash prefix in the message so log
// lines remain grep-able by block.
type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

// Options holds the configurable settings for a logger.
type Options struct {
	logLevel string
	writer   io.Writer
}

// Option is a functional option for configuring a logger.
type Option func(*Options)

// DefaultOptions returns the default logger options.
func DefaultOptions() *Options {
	return &Options{
		logLevel: "INFO",
		writer:   os.Stdout,
	}
}

// WithLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR).
func WithLevel(level string) Option {
	return func(o *Options) {
		o.logLevel = level
	}
}

// WithWriter sets the output writer.
func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.writer = w
	}
}

// New creates a new logger for the named service.
func New(service string, options ...Option) Logger {
	return NewZeroLogger(service, options...)
}
