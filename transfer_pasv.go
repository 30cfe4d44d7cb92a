package ftpd

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miniftpd/miniftpd/log"
)

const pasvAcceptTimeout = 30 * time.Second

// passiveTransferHandler accepts the single data connection a PASV listener
// will ever receive.
type passiveTransferHandler struct {
	tcpListener *net.TCPListener
	conn        net.Conn
	logger      log.Logger
}

func (p *passiveTransferHandler) Open() (net.Conn, error) {
	if p.conn != nil {
		return p.conn, nil
	}

	if err := p.tcpListener.SetDeadline(time.Now().Add(pasvAcceptTimeout)); err != nil {
		return nil, fmt.Errorf("failed to set accept deadline: %w", err)
	}

	conn, err := p.tcpListener.Accept()
	if err != nil {
		return nil, err
	}

	p.conn = conn

	return conn, nil
}

// Close tears down the passive listener and the accepted data connection
// together. Open does not close the listener after accepting: it stays open
// until Close, though Open never accepts on it a second time.
func (p *passiveTransferHandler) Close() error {
	if err := p.tcpListener.Close(); err != nil {
		p.logger.Warn("problem closing passive listener", "err", err)
	}

	if p.conn != nil {
		return p.conn.Close()
	}

	return nil
}

// Handle the "PASV" command: bind an ephemeral port, listen, and announce
// it as h1,h2,h3,h4,p1,p2 (spec §4.B, §6).
func (s *Session) handlePASV(_ string) error {
	tcpListener, err := net.ListenTCP("tcp", &net.TCPAddr{})
	if err != nil {
		s.writeCode(StatusServiceNotAvailable, fmt.Sprintf("could not listen for passive connection: %v", err))

		return nil
	}

	port := tcpListener.Addr().(*net.TCPAddr).Port //nolint:forcetypeassert

	quads, err := s.localIPQuads()
	if err != nil {
		_ = tcpListener.Close()
		s.writeCode(StatusServiceNotAvailable, fmt.Sprintf("could not determine local address: %v", err))

		return nil
	}

	s.clearDataEndpoints()

	s.mu.Lock()
	s.pasvEndpoint = &Endpoint{Port: port}
	s.dataHandler = &passiveTransferHandler{tcpListener: tcpListener, logger: s.logger}
	s.mu.Unlock()

	p1, p2 := port/256, port%256

	s.writeCode(StatusEnteringPASV, fmt.Sprintf(
		"Entering Passive Mode (%s,%s,%s,%s,%d,%d)", quads[0], quads[1], quads[2], quads[3], p1, p2))

	return nil
}

// localIPQuads returns the control socket's local IPv4 address as four
// dotted-decimal components, as spec §6 requires for the 227 response.
func (s *Session) localIPQuads() ([]string, error) {
	host, _, err := net.SplitHostPort(s.conn.LocalAddr().String())
	if err != nil {
		return nil, err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("could not parse local address %q", host)
	}

	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("local address %q is not IPv4", host)
	}

	return strings.Split(ip4.String(), "."), nil
}
