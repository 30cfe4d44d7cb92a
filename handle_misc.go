package ftpd

import "fmt"

// Handle the "NOOP" command.
func (s *Session) handleNOOP(_ string) error {
	s.writeCode(StatusOK, "OK")

	return nil
}

// Handle the "SYST" command.
func (s *Session) handleSYST(_ string) error {
	s.writeCode(StatusSystemType, "UNIX Type: L8")

	return nil
}

// Handle the "FEAT" command.
func (s *Session) handleFEAT(_ string) error {
	s.writeLine(fmt.Sprintf("%d-Features", StatusSystemStatus))
	s.writeLine(" SIZE")
	s.writeLine(" MDTM")
	s.writeLine(" REST STREAM")
	s.writeCode(StatusSystemStatus, "end")

	return nil
}

// Handle the "HELP" command.
func (s *Session) handleHELP(_ string) error {
	s.writeLine(fmt.Sprintf("%d-The following commands are recognized", StatusHelp))
	s.writeLine(" USER PASS QUIT NOOP SYST FEAT HELP TYPE STRU MODE")
	s.writeLine(" PWD CWD CDUP MKD RMD DELE RNFR RNTO SIZE MDTM REST ALLO")
	s.writeLine(" PORT PASV LIST NLST RETR STOR APPE ABOR SITE")
	s.writeCode(StatusHelp, "end")

	return nil
}

// Handle the "TYPE" command. Only the two forms every client actually sends
// are recognised: "I" (image/binary) and "A" (ASCII).
func (s *Session) handleTYPE(param string) error {
	switch param {
	case "I":
		s.mu.Lock()
		s.typeBinary = true
		s.mu.Unlock()
		s.writeCode(StatusOK, "switching to binary mode")
	case "A":
		s.mu.Lock()
		s.typeBinary = false
		s.mu.Unlock()
		s.writeCode(StatusOK, "switching to ASCII mode")
	default:
		s.writeCode(StatusSyntaxErrorParameters, "unsupported TYPE")
	}

	return nil
}

// Handle the "STRU" command. Only file structure (F) is supported, as on
// every real-world FTP server still in use.
func (s *Session) handleSTRU(param string) error {
	if param == "F" {
		s.writeCode(StatusOK, "structure set to file")

		return nil
	}

	s.writeCode(StatusCommandNotImplemented, "unsupported STRU")

	return nil
}

// Handle the "MODE" command. Only stream mode (S) is supported.
func (s *Session) handleMODE(param string) error {
	if param == "S" {
		s.writeCode(StatusOK, "mode set to stream")

		return nil
	}

	s.writeCode(StatusCommandNotImplemented, "unsupported MODE")

	return nil
}

// Handle the "AUTH" command. TLS is out of scope (spec §1 Non-goals), so
// AUTH is reachable pre-auth (it's in the whitelist) but always rejected.
func (s *Session) handleAUTH(_ string) error {
	s.writeCode(StatusCommandNotImplemented, "TLS is not supported")

	return nil
}

// Handle the "SITE" command. No vendor subcommands are implemented; it is
// kept as a named extension hook per spec §4.B.
func (s *Session) handleSITE(_ string) error {
	s.writeCode(StatusCommandNotImplemented, "no SITE subcommands are implemented")

	return nil
}

// Handle "EPSV"/"EPRT". IPv6 is out of scope (spec §1 Non-goals); both are
// acknowledged but rejected so well-behaved clients fall back to PASV/PORT.
func (s *Session) handleEPSVEPRT(_ string) error {
	s.writeCode(StatusCommandNotImplemented, "extended passive/active mode is not supported, use PASV or PORT")

	return nil
}
