// Package logging carries a structured logger through context.Context so
// every layer of a restore run logs with the run, type and resource fields
// added by its callers.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey struct{}

var defaultLogger = logrus.New()
var defaultEntry = logrus.NewEntry(defaultLogger)

func init() {
	defaultLogger.SetOutput(os.Stderr)
	defaultLogger.SetLevel(logrus.WarnLevel)
}

// NewContextWithFields returns a child of parent whose logger carries fields
// in addition to any fields already present.
func NewContextWithFields(parent context.Context, fields logrus.Fields) context.Context {
	return context.WithValue(parent, contextKey{}, For(parent).WithFields(fields))
}

// SetLoggerOptions applies optionsFunc to the process-wide logger.
func SetLoggerOptions(optionsFunc func(logger *logrus.Logger)) {
	optionsFunc(defaultLogger)
}

// For returns the logger stored in ctx, or the default logger.
func For(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return defaultEntry
	}

	if entry, ok := ctx.Value(contextKey{}).(*logrus.Entry); ok {
		return entry.WithContext(ctx)
	}

	return defaultEntry.WithContext(ctx)
}

// Options controls Configure.
type Options struct {
	Level   string // trace, debug, info, warn, error; empty keeps the current level
	Verbose bool   // forces debug level
	File    string // append JSON logs to this file instead of stderr
}

// Configure sets up the process-wide logger. The returned closer releases
// the log file, if one was opened, and is never nil.
func Configure(opts Options) (io.Closer, error) {
	var closer io.Closer = nopCloser{}

	level := defaultLogger.GetLevel()
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return closer, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	if opts.Verbose && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}

	var out io.Writer = os.Stderr
	var formatter logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closer, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		formatter = &logrus.JSONFormatter{}
		closer = f
	}

	SetLoggerOptions(func(logger *logrus.Logger) {
		logger.SetLevel(level)
		logger.SetOutput(out)
		logger.SetFormatter(formatter)
	})

	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
