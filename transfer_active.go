package ftpd

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Handle the "PORT" command.
func (s *Session) handlePORT(param string) error {
	raddr, err := parseRemoteAddr(param)
	if err != nil {
		s.writeCode(StatusSyntaxErrorParameters, fmt.Sprintf("could not parse PORT: %v", err))

		return nil
	}

	s.clearDataEndpoints()

	s.mu.Lock()
	s.portEndpoint = &Endpoint{IP: raddr.IP, Port: raddr.Port}
	s.dataHandler = &activeTransferHandler{raddr: raddr}
	s.mu.Unlock()

	s.writeCode(StatusOK, "PORT command successful")

	return nil
}

// activeTransferHandler dials the client-announced address for active-mode
// transfers.
type activeTransferHandler struct {
	raddr *net.TCPAddr
	conn  net.Conn
}

const activeDialTimeout = 5 * time.Second

func (a *activeTransferHandler) Open() (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", a.raddr.String(), activeDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("could not establish active connection: %w", err)
	}

	a.conn = conn

	return conn, nil
}

func (a *activeTransferHandler) Close() error {
	if a.conn != nil {
		return a.conn.Close()
	}

	return nil
}

var remoteAddrRegex = regexp.MustCompile(`^([0-9]{1,3},){5}[0-9]{1,3}$`)

// ErrRemoteAddrFormat is returned when a PORT argument has a bad format.
var ErrRemoteAddrFormat = errors.New("remote address has a bad format")

// parseRemoteAddr parses the h1,h2,h3,h4,p1,p2 argument of PORT into a
// dialable address (spec §4.B).
func parseRemoteAddr(param string) (*net.TCPAddr, error) {
	if !remoteAddrRegex.MatchString(param) {
		return nil, fmt.Errorf("could not parse %q: %w", param, ErrRemoteAddrFormat)
	}

	parts := strings.Split(param, ",")
	ip := strings.Join(parts[0:4], ".")

	p1, err := strconv.Atoi(parts[4])
	if err != nil {
		return nil, fmt.Errorf("could not parse %q: %w", param, ErrRemoteAddrFormat)
	}

	p2, err := strconv.Atoi(parts[5])
	if err != nil {
		return nil, fmt.Errorf("could not parse %q: %w", param, ErrRemoteAddrFormat)
	}

	port := p1<<8 + p2

	return net.ResolveTCPAddr("tcp", fmt.Sprintf("%s:%d", ip, port))
}
