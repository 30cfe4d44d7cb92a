package ftpd

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/secsy/goftp"
	"github.com/stretchr/testify/require"
)

// dialPASVData sends PASV on conn/r, parses the h1,h2,h3,h4,p1,p2 reply, and
// dials the announced data port.
func dialPASVData(t *testing.T, conn net.Conn, r *bufio.Reader) net.Conn {
	t.Helper()

	resp := sendCmd(t, conn, r, "PASV")
	require.Contains(t, resp, "227 ")

	open := strings.Index(resp, "(")
	closeParen := strings.Index(resp, ")")
	require.True(t, open >= 0 && closeParen > open, "malformed PASV reply: %q", resp)

	fields := strings.Split(resp[open+1:closeParen], ",")
	require.Len(t, fields, 6)

	p1, err := strconv.Atoi(fields[4])
	require.NoError(t, err)
	p2, err := strconv.Atoi(fields[5])
	require.NoError(t, err)

	host := strings.Join(fields[0:4], ".")
	port := p1*256 + p2

	dataConn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), 5*time.Second)
	require.NoError(t, err)

	t.Cleanup(func() { _ = dataConn.Close() })

	return dataConn
}

func dialClient(t *testing.T, s *Server, active bool) *goftp.Client {
	t.Helper()

	conf := goftp.Config{
		User:            authUser,
		Password:        authPass,
		ActiveTransfers: active,
	}

	c, err := goftp.DialConfig(conf, s.Addr())
	require.NoError(t, err, "couldn't connect")

	t.Cleanup(func() { _ = c.Close() })

	return c
}

// TestStoreThenRetrieveRoundTrip is spec §8's canonical scenario: a STOR
// followed by a RETR of the same path returns the exact bytes uploaded.
func TestStoreThenRetrieveRoundTrip(t *testing.T) {
	for _, active := range []bool{false, true} {
		active := active
		t.Run(fmt.Sprintf("active=%v", active), func(t *testing.T) {
			s := newTestServer(t)
			c := dialClient(t, s, active)

			payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 2000)

			require.NoError(t, c.Store("round-trip.bin", bytes.NewReader(payload)))

			var out bytes.Buffer
			require.NoError(t, c.Retrieve("round-trip.bin", &out))

			require.Equal(t, payload, out.Bytes())
		})
	}
}

// TestAppendConcatenates asserts APPE appends rather than truncates.
func TestAppendConcatenates(t *testing.T) {
	s := newTestServer(t)
	c := dialClient(t, s, false)

	require.NoError(t, c.Store("appended.txt", bytes.NewReader([]byte("hello "))))

	raw, err := c.OpenRawConn()
	require.NoError(t, err)

	t.Cleanup(func() { _ = raw.Close() })

	dcGetter, err := raw.PrepareDataConn()
	require.NoError(t, err)

	rc, resp, err := raw.SendCommand("APPE appended.txt")
	require.NoError(t, err)
	require.Equal(t, StatusFileStatusOK, rc, resp)

	dc, err := dcGetter()
	require.NoError(t, err)

	_, err = dc.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, dc.Close())

	rc, resp, err = raw.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, StatusClosingDataConn, rc, resp)

	var out bytes.Buffer
	require.NoError(t, c.Retrieve("appended.txt", &out))
	require.Equal(t, "hello world", out.String())
}

// TestRESTResumesUpload asserts REST seeks the write handle instead of
// truncating, so a resumed STOR only replaces bytes from the offset on.
func TestRESTResumesUpload(t *testing.T) {
	s := newTestServer(t)
	c := dialClient(t, s, false)

	require.NoError(t, c.Store("resume.bin", bytes.NewReader([]byte("0123456789"))))

	raw, err := c.OpenRawConn()
	require.NoError(t, err)

	t.Cleanup(func() { _ = raw.Close() })

	rc, resp, err := raw.SendCommand("REST 5")
	require.NoError(t, err)
	require.Equal(t, StatusFileActionPending, rc, resp)

	dcGetter, err := raw.PrepareDataConn()
	require.NoError(t, err)

	rc, resp, err = raw.SendCommand("STOR resume.bin")
	require.NoError(t, err)
	require.Equal(t, StatusFileStatusOK, rc, resp)

	dc, err := dcGetter()
	require.NoError(t, err)

	_, err = dc.Write([]byte("XXXXX"))
	require.NoError(t, err)
	require.NoError(t, dc.Close())

	rc, resp, err = raw.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, StatusClosingDataConn, rc, resp)

	var out bytes.Buffer
	require.NoError(t, c.Retrieve("resume.bin", &out))
	require.Equal(t, "01234XXXXX", out.String())
}

// TestABORDuringTransferReportsAbortedThenClosed covers spec scenario 5: an
// ABOR sent while a transfer is in flight yields a 426 from the transfer
// goroutine, followed by ABOR's own 226, in that order, on the same control
// connection the transfer was started on.
func TestABORDuringTransferReportsAbortedThenClosed(t *testing.T) {
	s := newTestServer(t)
	uploader := dialClient(t, s, false)

	big := bytes.Repeat([]byte("x"), 8*1024*1024)
	require.NoError(t, uploader.Store("big.bin", bytes.NewReader(big)))

	conn, r := dialControl(t, s)
	sendCmd(t, conn, r, "USER "+authUser)
	sendCmd(t, conn, r, "PASS "+authPass)

	data := dialPASVData(t, conn, r)

	_, err := conn.Write([]byte("RETR big.bin\r\n"))
	require.NoError(t, err)

	resp, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, resp, "150 ")

	buf := make([]byte, 4096)
	_, err = data.Read(buf)
	require.NoError(t, err)

	// Abort without draining the rest of the data connection: the transfer
	// goroutine's io.CopyBuffer is still blocked writing to it. The
	// transfer's own terminal reply (426) reaches the wire before ABOR's
	// reply (226), since ABOR blocks on the same transferWg the transfer
	// goroutine signals when it finishes.
	_, err = conn.Write([]byte("ABOR\r\n"))
	require.NoError(t, err)

	transferResp, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, transferResp, "426 ")

	abortResp, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, abortResp, "226 ")
}
