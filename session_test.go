package ftpd

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func dialControl(t *testing.T, s *Server) (net.Conn, *bufio.Reader) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", s.Addr(), 5*time.Second)
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	r := bufio.NewReader(conn)

	_, err = r.ReadString('\n') // greeting
	require.NoError(t, err)

	return conn, r
}

func sendCmd(t *testing.T, conn net.Conn, r *bufio.Reader, line string) string {
	t.Helper()

	_, err := conn.Write([]byte(line + "\r\n"))
	require.NoError(t, err)

	resp, err := r.ReadString('\n')
	require.NoError(t, err)

	return resp
}

// TestPreAuthWhitelist asserts spec §4.B's whitelist: commands outside
// {USER, PASS, QUIT, NOOP, FEAT, SYST, HELP, AUTH} are rejected with 530
// before authentication.
func TestPreAuthWhitelist(t *testing.T) {
	s := newTestServer(t)
	conn, r := dialControl(t, s)

	require.Contains(t, sendCmd(t, conn, r, "NOOP"), "200 ")
	require.Contains(t, sendCmd(t, conn, r, "SYST"), "215 ")
	require.Contains(t, sendCmd(t, conn, r, "PWD"), "530 ")
	require.Contains(t, sendCmd(t, conn, r, "LIST"), "530 ")
	require.Contains(t, sendCmd(t, conn, r, "MKD /x"), "530 ")
}

func TestLoginSuccessAndFailure(t *testing.T) {
	s := newTestServer(t)
	conn, r := dialControl(t, s)

	require.Contains(t, sendCmd(t, conn, r, "USER "+authUser), "331 ")
	require.Contains(t, sendCmd(t, conn, r, "PASS wrongpassword"), "530 ")
	require.Contains(t, sendCmd(t, conn, r, "PWD"), "530 ") // still not authenticated

	require.Contains(t, sendCmd(t, conn, r, "USER "+authUser), "331 ")
	require.Contains(t, sendCmd(t, conn, r, "PASS "+authPass), "230 ")
	require.Contains(t, sendCmd(t, conn, r, "PWD"), "257 ")
}

// TestRenameFromConsumedByOtherCommands asserts the invariant that RNFR's
// pending state is cleared by any command other than RNTO.
func TestRenameFromConsumedByOtherCommands(t *testing.T) {
	s := newTestServer(t)
	conn, r := dialControl(t, s)

	sendCmd(t, conn, r, "USER "+authUser)
	sendCmd(t, conn, r, "PASS "+authPass)

	require.Contains(t, sendCmd(t, conn, r, "MKD /a-dir"), "257 ")
	require.Contains(t, sendCmd(t, conn, r, "RNFR /a-dir"), "350 ")
	require.Contains(t, sendCmd(t, conn, r, "NOOP"), "200 ") // clears renameFrom
	require.Contains(t, sendCmd(t, conn, r, "RNTO /b-dir"), "503 ")
}

func TestRNTOWithoutRNFR(t *testing.T) {
	s := newTestServer(t)
	conn, r := dialControl(t, s)

	sendCmd(t, conn, r, "USER "+authUser)
	sendCmd(t, conn, r, "PASS "+authPass)

	require.Contains(t, sendCmd(t, conn, r, "RNTO /b.txt"), "503 ")
}

func TestPWDQuoteDoubling(t *testing.T) {
	s := newTestServer(t)
	conn, r := dialControl(t, s)

	sendCmd(t, conn, r, "USER "+authUser)
	sendCmd(t, conn, r, "PASS "+authPass)

	resp := sendCmd(t, conn, r, "PWD")
	require.Equal(t, "257 \"/\" is the current directory\r\n", resp)

	require.Equal(t, "257 \"/a\"\"b\" created\r\n", sendCmd(t, conn, r, "MKD /a\"b"))
	require.Contains(t, sendCmd(t, conn, r, "CWD /a\"b"), "250 ")

	resp = sendCmd(t, conn, r, "PWD")
	require.Equal(t, "257 \"/a\"\"b\" is the current directory\r\n", resp)
}

func TestCleanFTPPath(t *testing.T) {
	cases := map[string]string{
		"/a/b/../c":  "/a/c",
		"/a/./b":     "/a/b",
		"/../../a":   "/a",
		"//a//b":     "/a/b",
		"/":          "/",
	}

	for in, want := range cases {
		require.Equal(t, want, cleanFTPPath(in), "input %q", in)
	}
}

func TestParseCommandLineToleratesBareLF(t *testing.T) {
	verb, param := parseCommandLine("USER bob\n")
	require.Equal(t, "USER", verb)
	require.Equal(t, "bob", param)

	verb, param = parseCommandLine("NOOP\r\n")
	require.Equal(t, "NOOP", verb)
	require.Equal(t, "", param)
}
