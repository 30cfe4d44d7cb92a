package ftpd

import (
	"fmt"
	"strconv"
)

// Handle the "STOR" command.
func (s *Session) handleSTOR(param string) error {
	return s.transferFile(true, false, param)
}

// Handle the "APPE" command.
func (s *Session) handleAPPE(param string) error {
	return s.transferFile(true, true, param)
}

// Handle the "RETR" command.
func (s *Session) handleRETR(param string) error {
	return s.transferFile(false, false, param)
}

// transferFile drives STOR/APPE/RETR: open the file (consuming rest_offset),
// build the matching Transfer descriptor, and hand it to beginTransfer.
// Opening the file, seeking, and opening the data connection all happen in
// order so a failure at any step aborts cleanly without starting the other
// two (spec §4.C).
func (s *Session) transferFile(write, appendMode bool, param string) error {
	path := s.absPath(param)

	s.mu.Lock()
	offset := s.restOffset
	s.restOffset = 0
	ascii := !s.typeBinary
	s.mu.Unlock()

	if write {
		mode := OpenTruncate
		if appendMode {
			mode = OpenAppend
		}

		fh, err := s.server.fs.OpenWrite(path, mode, offset)
		if err != nil {
			s.writeCode(fsErrorCode(err), fmt.Sprintf("could not open %s for writing: %v", path, err))

			return nil
		}

		info := fmt.Sprintf("STOR %s", param)
		if appendMode {
			info = fmt.Sprintf("APPE %s", param)
		}

		t := newRecvTransfer(fh, fh, ascii, info)

		return s.beginTransfer(t, "opening data connection for upload of "+path)
	}

	fh, err := s.server.fs.OpenRead(path, offset)
	if err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("could not open %s for reading: %v", path, err))

		return nil
	}

	t := newSendTransfer(fh, fh, ascii, "RETR "+param)

	return s.beginTransfer(t, "opening data connection for download of "+path)
}

// Handle the "DELE" command.
func (s *Session) handleDELE(param string) error {
	p := s.absPath(param)

	if err := s.server.fs.Unlink(p); err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("could not delete %s: %v", p, err))

		return nil
	}

	s.writeCode(StatusFileOK, fmt.Sprintf("%s deleted", p))

	return nil
}

// Handle the "RNFR" command.
func (s *Session) handleRNFR(param string) error {
	p := s.absPath(param)

	if _, err := s.server.fs.Stat(p); err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("could not access %s: %v", p, err))

		return nil
	}

	s.mu.Lock()
	s.renameFrom = p
	s.mu.Unlock()

	s.writeCode(StatusFileActionPending, "ready for RNTO")

	return nil
}

// Handle the "RNTO" command.
func (s *Session) handleRNTO(param string) error {
	s.mu.Lock()
	from := s.renameFrom
	s.renameFrom = ""
	s.mu.Unlock()

	if from == "" {
		s.writeCode(StatusBadCommandSequence, "RNFR required first")

		return nil
	}

	to := s.absPath(param)

	if err := s.server.fs.Rename(from, to); err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("could not rename %s to %s: %v", from, to, err))

		return nil
	}

	s.writeCode(StatusFileOK, fmt.Sprintf("renamed %s to %s", from, to))

	return nil
}

// Handle the "SIZE" command.
func (s *Session) handleSIZE(param string) error {
	p := s.absPath(param)

	info, err := s.server.fs.Stat(p)
	if err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("could not stat %s: %v", p, err))

		return nil
	}

	if info.IsDir() {
		s.writeCode(StatusFileActionNotTaken, fmt.Sprintf("%s is a directory", p))

		return nil
	}

	s.writeCode(StatusFileStatus, strconv.FormatInt(info.Size, 10))

	return nil
}

// Handle the "MDTM" command.
func (s *Session) handleMDTM(param string) error {
	p := s.absPath(param)

	info, err := s.server.fs.Stat(p)
	if err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("could not stat %s: %v", p, err))

		return nil
	}

	s.writeCode(StatusFileStatus, info.ModTime.UTC().Format("20060102150405"))

	return nil
}

// Handle the "REST" command.
func (s *Session) handleREST(param string) error {
	offset, err := strconv.ParseInt(param, 10, 64)
	if err != nil || offset < 0 {
		s.writeCode(StatusSyntaxErrorParameters, "invalid REST offset")

		return nil
	}

	s.mu.Lock()
	s.restOffset = offset
	s.mu.Unlock()

	s.writeCode(StatusFileActionPending, fmt.Sprintf("restarting at %d", offset))

	return nil
}

// Handle the "ALLO" command. There is nothing to preallocate against a
// general-purpose filesystem adapter; it is accepted as a no-op, as every
// client that still sends it expects.
func (s *Session) handleALLO(_ string) error {
	s.writeCode(StatusOK, "ALLO command successful")

	return nil
}
