package ftpd

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotListening is returned when performing an action that requires the
// server to be listening.
var ErrNotListening = errors.New("server isn't listening")

// NetworkError wraps any error that occurred at the socket layer.
type NetworkError struct {
	str string
	err error
}

func newNetworkError(str string, err error) NetworkError {
	return NetworkError{str: str, err: err}
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.str, e.err)
}

func (e NetworkError) Unwrap() error {
	return e.err
}

// FileAccessError wraps a filesystem operation failure that is not a
// plain "not found", used to decide 451 vs 550 at the control layer.
type FileAccessError struct {
	str string
	err error
}

func newFileAccessError(str string, err error) FileAccessError {
	return FileAccessError{str: str, err: err}
}

// NewFileAccessError lets a FileSystem adapter outside this package (e.g.
// package drivers) mark an error as a local access failure rather than a
// plain "doesn't exist", so fsErrorCode maps it to 451 instead of 550.
func NewFileAccessError(str string, err error) FileAccessError {
	return newFileAccessError(str, err)
}

func (e FileAccessError) Error() string {
	return fmt.Sprintf("file access error: %s: %v", e.str, e.err)
}

func (e FileAccessError) Unwrap() error {
	return e.err
}

// fsErrorCode maps a filesystem error to the FTP status code that should be
// returned on the control channel: 451 for a FileAccessError (a local,
// likely transient failure), 550 for everything else, including "doesn't
// exist" and "not permitted", per spec §7.
func fsErrorCode(err error) int {
	if err == nil {
		return StatusFileOK
	}

	if os.IsNotExist(err) || os.IsPermission(err) {
		return StatusFileActionNotTaken
	}

	var fae FileAccessError
	if errors.As(err, &fae) {
		return StatusActionAbortedLocalError
	}

	return StatusFileActionNotTaken
}
