package ftpd

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/miniftpd/miniftpd/log"
)

// Server owns the listener, the session table, and the lifecycle of both
// (spec §3 "Server", §4.F).
type Server struct {
	listenAddr string
	auth       Authenticator
	fs         FileSystem
	logger     log.Logger

	mu       sync.Mutex
	listener net.Listener
	sessions map[uint32]*Session

	clientCounter uint32
	running       int32
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the default no-op logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer builds a Server listening on addr (host:port, or ":port" for
// all interfaces) once Listen/ListenAndServe is called, authenticating
// USER/PASS against authenticator and serving files through fs (spec §6).
func NewServer(addr string, authenticator Authenticator, fs FileSystem, opts ...Option) *Server {
	s := &Server{
		listenAddr: addr,
		auth:       authenticator,
		fs:         fs,
		logger:     log.NewNopLogger(),
		sessions:   make(map[uint32]*Session),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Listen binds the listening socket. It is not a blocking call.
func (s *Server) Listen() error {
	lc := net.ListenConfig{Control: listenControl}

	listener, err := lc.Listen(context.Background(), "tcp", s.listenAddr)
	if err != nil {
		return newNetworkError("cannot listen on main port", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	atomic.StoreInt32(&s.running, 1)

	s.logger.Info("listening", "address", listener.Addr())

	return nil
}

// Addr reports the listening address, or "" if not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Serve accepts and processes incoming control connections until Stop is
// called (spec §4.F). Each accepted connection is served by a dedicated
// goroutine, which is this implementation's stand-in for the single
// poll()-driven readiness loop of spec §5 — see SPEC_FULL.md §5 for why
// that substitution preserves the spec's concurrency contract.
func (s *Server) Serve() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	if listener == nil {
		return ErrNotListening
	}

	var tempDelay time.Duration

	for {
		conn, err := listener.Accept()
		if err != nil {
			if stop, finalErr := s.handleAcceptError(err, &tempDelay); stop {
				return finalErr
			}

			continue
		}

		tempDelay = 0

		s.clientArrival(conn)
	}
}

// handleAcceptError classifies an Accept error: temporary errors sleep with
// backoff and keep serving; closed-listener (Stop was called) and any other
// error stop the loop, matching the teacher's accept-error handling.
func (s *Server) handleAcceptError(err error, tempDelay *time.Duration) (bool, error) {
	if errors.Is(err, net.ErrClosed) {
		return true, nil
	}

	if isTemporaryAcceptError(err) {
		if *tempDelay == 0 {
			*tempDelay = 5 * time.Millisecond
		} else {
			*tempDelay *= 2
		}

		if maxDelay := time.Second; *tempDelay > maxDelay {
			*tempDelay = maxDelay
		}

		s.logger.Warn("accept error, retrying", "err", err, "delay", *tempDelay)
		time.Sleep(*tempDelay)

		return false, nil
	}

	s.logger.Error("listener accept error", "err", err)

	return true, newNetworkError("listener accept error", err)
}

// isTemporaryAcceptError reports whether an Accept error is worth retrying
// rather than shutting the server down.
func isTemporaryAcceptError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ECONNABORTED || errno == syscall.ECONNRESET
	}

	return false
}

// ListenAndServe chains Listen and Serve.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}

	return s.Serve()
}

// Stop closes the listener; Serve's accept loop then returns nil. Sessions
// already connected keep running until their clients disconnect.
func (s *Server) Stop() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	if listener == nil {
		return ErrNotListening
	}

	atomic.StoreInt32(&s.running, 0)

	if err := listener.Close(); err != nil {
		return newNetworkError("couldn't close listener", err)
	}

	return nil
}

// IsRunning reports whether the server is listening: true after Listen
// succeeds, false again once Stop is called.
func (s *Server) IsRunning() bool {
	return atomic.LoadInt32(&s.running) == 1
}

// SessionCount reports the number of active sessions. Exposed mainly so
// tests can assert spec §8's "session count equals distinct control
// handles" invariant.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *Server) clientArrival(conn net.Conn) {
	id := atomic.AddUint32(&s.clientCounter, 1)

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if rc, err := tcpConn.SyscallConn(); err == nil {
			if err := tuneAcceptedConn(rc); err != nil {
				s.logger.Warn("could not tune accepted connection", "err", err)
			}
		}
	}

	sess := newSession(id, conn, s)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	sess.logger.Debug("client connected", "remoteAddr", conn.RemoteAddr())

	go sess.serve()
}

func (s *Server) removeSession(id uint32) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	s.logger.Debug("client disconnected", "sessionId", id)
}
