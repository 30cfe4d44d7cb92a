// Package log provides the leveled-logger interface used by the server and
// its sessions so neither hardcodes a backend.
package log

import (
	golog "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"
)

// Logger is an alias for the teacher's own public logger interface
// (github.com/fclairamb/go-log.Logger), the type its FtpServer.Logger field
// carries. Aliasing it here, rather than redeclaring an identical interface,
// means a caller that already holds a go-log.Logger (or one of its other
// adapters) can pass it straight into WithLogger with no shim.
type Logger = golog.Logger

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return lognoop.NewNoOpLogger()
}
