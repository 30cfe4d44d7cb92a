package ftpd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/miniftpd/miniftpd/log"
)

// TestSessionCountTracksConnections asserts SessionCount equals the number
// of distinct control connections currently being served.
func TestSessionCountTracksConnections(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, 0, s.SessionCount())

	conn1, _ := dialControl(t, s)
	require.Eventually(t, func() bool { return s.SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	conn2, _ := dialControl(t, s)
	require.Eventually(t, func() bool { return s.SessionCount() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn1.Close())
	require.Eventually(t, func() bool { return s.SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn2.Close())
	require.Eventually(t, func() bool { return s.SessionCount() == 0 }, time.Second, 10*time.Millisecond)
}

// TestListenTwiceOnSameAddrFails mirrors spec §6's exit-code-1 bind
// failure: a second Listen on an address already bound must fail cleanly.
func TestListenTwiceOnSameAddrFails(t *testing.T) {
	s1 := newTestServer(t)

	auth := AuthenticatorFunc(func(string, string) bool { return false })
	s2 := NewServer(s1.Addr(), auth, newMemFS(), WithLogger(log.NewNopLogger()))

	err := s2.Listen()
	require.Error(t, err)
}

// TestStopClosesListenerButLeavesSessionsRunning asserts Stop only tears
// down the listener; already-connected sessions are left alone to finish.
func TestStopClosesListenerButLeavesSessionsRunning(t *testing.T) {
	s := newTestServer(t)

	conn, r := dialControl(t, s)

	require.NoError(t, s.Stop())

	// the already-open control connection still answers commands
	require.Contains(t, sendCmd(t, conn, r, "NOOP"), "200 ")
}
