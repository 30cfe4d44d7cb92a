//go:build linux || freebsd || darwin || aix || dragonfly || netbsd || openbsd
// +build linux freebsd darwin aix dragonfly netbsd openbsd

package ftpd

import (
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// listenControl is used as a net.ListenConfig.Control to set SO_REUSEADDR
// and SO_REUSEPORT on the listening socket before bind, per spec §4.A.
func listenControl(_, _ string, c syscall.RawConn) error {
	var errSetOpts error

	err := c.Control(func(fd uintptr) {
		errSetOpts = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if errSetOpts != nil {
			return
		}

		errSetOpts = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return fmt.Errorf("unable to set listen control options: %w", err)
	}

	if errSetOpts != nil {
		return fmt.Errorf("unable to set listen control options: %w", errSetOpts)
	}

	return nil
}

// tuneAcceptedConn applies the SO_LINGER, SO_SNDTIMEO and TCP_NODELAY
// options spec §4.A requires on every accepted control socket.
func tuneAcceptedConn(rc syscall.RawConn) error {
	var errSetOpts error

	err := rc.Control(func(fd uintptr) {
		errSetOpts = unix.SetsockoptLinger(int(fd), unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{
			Onoff:  1,
			Linger: 15,
		})
		if errSetOpts != nil {
			return
		}

		errSetOpts = unix.SetsockoptTimeval(int(fd), unix.SOL_SOCKET, unix.SO_SNDTIMEO, &unix.Timeval{
			Sec: 5,
		})
		if errSetOpts != nil {
			return
		}

		errSetOpts = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if err != nil {
		return fmt.Errorf("unable to set accepted conn options: %w", err)
	}

	if errSetOpts != nil {
		return fmt.Errorf("unable to set accepted conn options: %w", errSetOpts)
	}

	return nil
}

// sendTimeout is the SO_SNDTIMEO duration mirrored at the io.Writer level
// for platforms/paths where the syscall option alone isn't enough (see
// Session.writeLine's use of SetWriteDeadline).
const sendTimeout = 5 * time.Second
