// Package gokit provides a log.Logger implementation backed by go-kit's
// structured logger.
package gokit

import (
	"fmt"
	"os"

	gklog "github.com/go-kit/kit/log"
	gklevel "github.com/go-kit/kit/log/level"

	"github.com/miniftpd/miniftpd/log"
)

type gkLogger struct {
	logger gklog.Logger
}

func (l *gkLogger) checkErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging failed:", err)
	}
}

func (l *gkLogger) log(leveled gklog.Logger, event string, keyvals ...interface{}) {
	kv := append([]interface{}{"event", event}, keyvals...)
	l.checkErr(leveled.Log(kv...))
}

// Debug logs key-values at debug level.
func (l *gkLogger) Debug(event string, keyvals ...interface{}) {
	l.log(gklevel.Debug(l.logger), event, keyvals...)
}

// Info logs key-values at info level.
func (l *gkLogger) Info(event string, keyvals ...interface{}) {
	l.log(gklevel.Info(l.logger), event, keyvals...)
}

// Warn logs key-values at warn level.
func (l *gkLogger) Warn(event string, keyvals ...interface{}) {
	l.log(gklevel.Warn(l.logger), event, keyvals...)
}

// Error logs key-values at error level. Callers include the failing error
// as an "err" keyval, same as Debug/Info/Warn.
func (l *gkLogger) Error(event string, keyvals ...interface{}) {
	l.log(gklevel.Error(l.logger), event, keyvals...)
}

// With returns a logger that always includes the given key-values.
func (l *gkLogger) With(keyvals ...interface{}) log.Logger {
	return New(gklog.With(l.logger, keyvals...))
}

// New wraps an existing go-kit logger.
func New(logger gklog.Logger) log.Logger {
	return &gkLogger{logger: logger}
}

// NewStdout returns a logfmt logger writing to stdout, with a timestamp
// and caller attached, suitable for a server's default logger.
func NewStdout() log.Logger {
	base := gklog.NewLogfmtLogger(gklog.NewSyncWriter(os.Stdout))
	base = gklog.With(base, "ts", gklog.DefaultTimestampUTC, "caller", gklog.Caller(5))

	return New(base)
}
