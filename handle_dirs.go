package ftpd

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	listDateFormatRecent = "Jan _2 15:04" // LIST date formatting within the last 6 months
	listDateFormatOld    = "Jan _2  2006" // LIST date formatting for anything older
	listDateOldSwitch    = time.Hour * 24 * 30 * 6
)

// Handle the "PWD" command.
func (s *Session) handlePWD(_ string) error {
	s.writeCode(StatusPathCreated, fmt.Sprintf("\"%s\" is the current directory", quoteDoubled(s.getCwd())))

	return nil
}

// Handle the "CWD" command.
func (s *Session) handleCWD(param string) error {
	p := s.absPath(param)

	info, err := s.server.fs.Stat(p)
	if err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("can't change directory to %s: %v", p, err))

		return nil
	}

	if !info.IsDir() {
		s.writeCode(StatusFileActionNotTaken, fmt.Sprintf("%s is not a directory", p))

		return nil
	}

	s.setCwd(p)
	s.writeCode(StatusFileOK, fmt.Sprintf("directory changed to %s", p))

	return nil
}

// Handle the "CDUP" command.
func (s *Session) handleCDUP(_ string) error {
	return s.handleCWD("..")
}

// Handle the "MKD" command.
func (s *Session) handleMKD(param string) error {
	p := s.absPath(param)

	if err := s.server.fs.Mkdir(p); err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("could not create \"%s\": %v", quoteDoubled(p), err))

		return nil
	}

	s.writeCode(StatusPathCreated, fmt.Sprintf("\"%s\" created", quoteDoubled(p)))

	return nil
}

// Handle the "RMD" command.
func (s *Session) handleRMD(param string) error {
	p := s.absPath(param)

	if err := s.server.fs.Rmdir(p); err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("could not remove directory %s: %v", p, err))

		return nil
	}

	s.writeCode(StatusFileOK, fmt.Sprintf("directory %s removed", p))

	return nil
}

// Handle the "LIST" command: Unix ls -l style listing.
func (s *Session) handleLIST(param string) error {
	entries, err := s.server.fs.ListDir(s.absPath(param))
	if err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("could not list: %v", err))

		return nil
	}

	var body strings.Builder

	now := time.Now()

	for _, e := range entries {
		body.WriteString(formatListLine(e, now))
		body.WriteString("\r\n")
	}

	t := newSendTransfer(strings.NewReader(body.String()), nil, false, "LIST "+param)

	return s.beginTransfer(t, "opening ASCII mode data connection for directory listing")
}

// Handle the "NLST" command: bare names, one per line.
func (s *Session) handleNLST(param string) error {
	entries, err := s.server.fs.ListDir(s.absPath(param))
	if err != nil {
		s.writeCode(fsErrorCode(err), fmt.Sprintf("could not list: %v", err))

		return nil
	}

	var body strings.Builder
	for _, e := range entries {
		body.WriteString(e.Name)
		body.WriteString("\r\n")
	}

	t := newSendTransfer(strings.NewReader(body.String()), nil, false, "NLST "+param)

	return s.beginTransfer(t, "opening ASCII mode data connection for name listing")
}

// formatListLine renders one spec §4.B listing line: mode string, link
// count, owner, group, size, month/day, time-or-year, name.
func formatListLine(fi FileInfo, now time.Time) string {
	nlink := fi.NLink
	if nlink == 0 {
		nlink = 1
	}

	dateFormat := listDateFormatRecent
	if now.Sub(fi.ModTime) > listDateOldSwitch || fi.ModTime.After(now) {
		dateFormat = listDateFormatOld
	}

	return fmt.Sprintf(
		"%s %s %s %s %12s %s %s",
		fi.Mode.String(),
		strconv.FormatUint(nlink, 10),
		fi.Owner,
		fi.Group,
		strconv.FormatInt(fi.Size, 10),
		fi.ModTime.Format(dateFormat),
		fi.Name,
	)
}

// quoteDoubled implements RFC 959's quote-doubling rule for 257 responses
// that embed a path containing a double quote.
func quoteDoubled(s string) string {
	if !strings.Contains(s, "\"") {
		return s
	}

	return strings.ReplaceAll(s, "\"", `""`)
}
