//go:build windows
// +build windows

package ftpd

import (
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

// listenControl sets SO_REUSEADDR on the listening socket. Windows has no
// SO_REUSEPORT equivalent worth emulating.
func listenControl(_, _ string, c syscall.RawConn) error {
	var errSetOpts error

	err := c.Control(func(fd uintptr) {
		errSetOpts = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}

	return errSetOpts
}

// tuneAcceptedConn sets SO_SNDTIMEO on the accepted control socket.
// SO_LINGER and TCP_NODELAY are not set on Windows, here or by the caller.
func tuneAcceptedConn(rc syscall.RawConn) error {
	var errSetOpts error

	err := rc.Control(func(fd uintptr) {
		tv := windows.Timeval{Sec: 5}
		errSetOpts = windows.SetsockoptTimeval(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_SNDTIMEO, &tv)
	})
	if err != nil {
		return err
	}

	return errSetOpts
}

const sendTimeout = 5 * time.Second
