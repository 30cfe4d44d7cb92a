package ftpd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miniftpd/miniftpd/log"
)

// sessionState is the control-channel state machine of spec §4.B.
type sessionState int

// States of the control-channel state machine.
const (
	stateGreeting sessionState = iota
	stateAwaitingUser
	stateAwaitingPass
	stateAuthenticated
	stateClosed
)

// Endpoint is a captured (ip, port) pair, announced via PASV (227) or
// supplied via PORT.
type Endpoint struct {
	IP   net.IP
	Port int
}

// transferHandler opens the data connection for a pending transfer. Active
// mode (transfer_active.go) dials out; passive mode (transfer_pasv.go)
// accepts on the listener PASV created.
type transferHandler interface {
	Open() (net.Conn, error)
	Close() error
}

// Session is the per-client state of spec §4.B (data model "Session"). One
// Session owns exactly one control connection and, transiently, at most one
// data connection.
type Session struct {
	id     uint32
	server *Server
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	logger log.Logger

	wMu sync.Mutex // serializes writes to the control connection

	mu          sync.Mutex // guards everything below
	state       sessionState
	user        string
	cwd         string
	typeBinary  bool
	restOffset  int64
	renameFrom  string
	pasvEndpoint *Endpoint
	portEndpoint *Endpoint
	dataHandler  transferHandler
	dataConn     net.Conn // the currently-open data connection, for ABOR
	transfer     *Transfer
	aborted      bool
	lastCmd      string

	transferWg sync.WaitGroup
}

func newSession(id uint32, conn net.Conn, server *Server) *Session {
	return &Session{
		id:         id,
		server:     server,
		conn:       conn,
		reader:     bufio.NewReaderSize(conn, controlBufSize),
		writer:     bufio.NewWriterSize(conn, controlBufSize),
		logger:     server.logger.With("sessionId", id),
		state:      stateGreeting,
		cwd:        "/",
		typeBinary: true,
	}
}

// serve drains the control connection until the peer disconnects, QUIT is
// received, or a fatal read error occurs. It is meant to run on its own
// goroutine, one per accepted connection (spec §9: "Implementations on
// richer platforms may replace [the polled stop flag] with a cancellation
// primitive without changing semantics" — here that richer platform
// primitive is simply a dedicated goroutine per session rather than a
// single poll() loop multiplexing every socket by hand).
func (s *Session) serve() {
	defer s.cleanup()

	s.writeCode(StatusServiceReady, "miniftpd ready")
	s.setState(stateAwaitingUser)

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("control read error", "err", err)
			}

			return
		}

		s.handleCommand(line)

		if s.getState() == stateClosed {
			return
		}
	}
}

func (s *Session) cleanup() {
	s.transferWg.Wait()

	s.mu.Lock()
	dh := s.dataHandler
	s.mu.Unlock()

	if dh != nil {
		_ = dh.Close()
	}

	_ = s.conn.Close()
	s.server.removeSession(s.id)
}

func (s *Session) setState(st sessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) getState() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) isAuthenticated() bool {
	return s.getState() == stateAuthenticated
}

// handleCommand parses one command line and routes it through the
// dispatcher (spec §4.D).
func (s *Session) handleCommand(line string) {
	verb, param := parseCommandLine(line)
	verb = strings.ToUpper(verb)

	desc := commandsMap[verb]
	if desc == nil {
		s.writeCode(StatusSyntaxErrorNotRecognised, fmt.Sprintf("unknown command %q", verb))

		return
	}

	if !desc.open && !s.isAuthenticated() {
		s.writeCode(StatusNotLoggedIn, "please login with USER and PASS")

		return
	}

	s.mu.Lock()
	s.lastCmd = verb

	if verb != "RNTO" {
		s.renameFrom = ""
	}
	s.mu.Unlock()

	if !desc.special {
		s.transferWg.Wait()
	}

	if desc.transferRelated {
		s.mu.Lock()
		s.aborted = false
		s.mu.Unlock()

		s.transferWg.Add(1)

		go func() {
			defer s.transferWg.Done()
			s.runHandler(desc, verb, param)
		}()
	} else {
		s.runHandler(desc, verb, param)
	}
}

func (s *Session) runHandler(desc *commandDescriptor, verb, param string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("internal command handling error", "err", r, "command", verb)
			s.writeCode(StatusSyntaxErrorNotRecognised, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := desc.fn(s, param); err != nil {
		s.logger.Warn("command error", "command", verb, "err", err)
		s.writeCode(StatusSyntaxErrorNotRecognised, fmt.Sprintf("error: %v", err))
	}
}

// writeLine sends one CRLF-terminated line, applying the §4.A send timeout.
func (s *Session) writeLine(line string) {
	s.wMu.Lock()
	defer s.wMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(sendTimeout)); err != nil {
		s.logger.Warn("set write deadline failed", "err", err)
	}

	if _, err := s.writer.WriteString(line + "\r\n"); err != nil {
		s.logger.Warn("write failed", "line", line, "err", err)

		return
	}

	if err := s.writer.Flush(); err != nil {
		s.logger.Warn("flush failed", "err", err)
	}
}

// writeCode formats a single- or multi-line FTP reply (spec §4.B
// send_code): continuation lines use "NNN-", the final line uses "NNN ".
func (s *Session) writeCode(code int, message string) {
	lines := splitReplyLines(message)

	for i, l := range lines {
		if i < len(lines)-1 {
			s.writeLine(fmt.Sprintf("%d-%s", code, l))
		} else {
			s.writeLine(fmt.Sprintf("%d %s", code, l))
		}
	}
}

func splitReplyLines(message string) []string {
	lines := make([]string, 0, 1)
	sc := bufio.NewScanner(strings.NewReader(message))

	for sc.Scan() {
		lines = append(lines, sc.Text())
	}

	if len(lines) == 0 {
		lines = append(lines, "")
	}

	return lines
}

// parseCommandLine splits "VERB arg...\r\n" into verb and the raw remainder,
// tolerating either CRLF or a bare LF terminator (spec §9 open question).
func parseCommandLine(line string) (string, string) {
	line = strings.TrimRight(line, "\r\n")

	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}

	return parts[0], parts[1]
}

// absPath resolves a client-supplied path against the session's cwd (spec
// §4.B "Path resolution"). The result always starts with "/", so callers
// do not check for a non-absolute path.
func (s *Session) absPath(raw string) string {
	if raw == "" {
		return s.getCwd()
	}

	var joined string
	if strings.HasPrefix(raw, "/") {
		joined = raw
	} else {
		joined = s.getCwd() + "/" + raw
	}

	return cleanFTPPath(joined)
}

// cleanFTPPath normalises "." / ".." / duplicate separators the way
// path.Clean does, but guarantees a leading "/" and forbids escaping the
// root via a surplus of "..".
func cleanFTPPath(p string) string {
	segments := strings.Split(p, "/")
	stack := make([]string, 0, len(segments))

	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}

	return "/" + strings.Join(stack, "/")
}

func (s *Session) getCwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cwd
}

func (s *Session) setCwd(p string) {
	s.mu.Lock()
	s.cwd = p
	s.mu.Unlock()
}

// beginTransfer opens the pending data connection (PORT dial or PASV
// accept), emits 150, runs t to completion, and emits the single terminal
// response spec §4.C and §8 require (226/425/426/451).
func (s *Session) beginTransfer(t *Transfer, info string) error {
	s.mu.Lock()
	dh := s.dataHandler
	s.mu.Unlock()

	if dh == nil {
		_ = t.Close()
		s.writeCode(StatusCannotOpenDataConnection, "no data connection established, use PORT or PASV first")

		return nil
	}

	conn, err := dh.Open()
	if err != nil {
		_ = t.Close()
		s.clearDataEndpoints()
		s.writeCode(StatusCannotOpenDataConnection, fmt.Sprintf("could not open data connection: %v", err))

		return nil
	}

	s.mu.Lock()
	s.transfer = t
	s.dataConn = conn
	s.mu.Unlock()

	s.writeCode(StatusFileStatusOK, info)

	runErr := t.run(conn)
	closeErr := t.Close()

	s.mu.Lock()
	aborted := s.aborted
	s.aborted = false
	s.transfer = nil
	s.dataConn = nil
	s.mu.Unlock()

	s.clearDataEndpoints()

	switch {
	case aborted:
		s.writeCode(StatusConnectionClosed, "transfer aborted")
	case runErr != nil:
		s.writeCode(StatusActionAbortedLocalError, fmt.Sprintf("transfer error: %v", runErr))
	case closeErr != nil:
		s.writeCode(StatusActionAbortedLocalError, fmt.Sprintf("error closing file: %v", closeErr))
	default:
		s.writeCode(StatusClosingDataConn, "transfer complete")
	}

	return nil
}

func (s *Session) clearDataEndpoints() {
	s.mu.Lock()
	dh := s.dataHandler
	s.pasvEndpoint = nil
	s.portEndpoint = nil
	s.dataHandler = nil
	s.mu.Unlock()

	if dh != nil {
		_ = dh.Close()
	}
}

// handleABOR interrupts any in-flight transfer by closing the data
// connection, which makes the blocked io.CopyBuffer in Transfer.run return
// an error; that goroutine then reports 426 before this handler reports
// 226, satisfying spec scenario 5.
func (s *Session) handleABOR(_ string) error {
	s.mu.Lock()
	conn := s.dataConn
	active := s.transfer != nil

	if active {
		s.aborted = true
	}
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	s.transferWg.Wait()

	s.writeCode(StatusClosingDataConn, "ABOR command successful")

	return nil
}
