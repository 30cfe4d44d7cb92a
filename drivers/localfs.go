// Package drivers provides filesystem adapters implementing ftpd.FileSystem.
package drivers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/miniftpd/miniftpd"
)

// LocalFS is the FileSystem adapter of spec §4.E, rooted at a base
// directory on the local disk. All paths it receives are already
// normalised, "/"-rooted, FTP-style paths (see Session.absPath); LocalFS
// only needs to strip the leading "/" before handing them to afero.
type LocalFS struct {
	fs afero.Fs
}

// NewLocalFS roots a LocalFS at baseDir. Every operation is confined to
// baseDir by afero.BasePathFs, which rejects ".." escapes at the afero
// layer as a second line of defense behind Session.absPath's own
// normalisation.
func NewLocalFS(baseDir string) *LocalFS {
	return &LocalFS{fs: afero.NewBasePathFs(afero.NewOsFs(), baseDir)}
}

func (l *LocalFS) rel(path string) string {
	if path == "/" {
		return "."
	}

	return "." + path
}

// Stat implements ftpd.FileSystem.
func (l *LocalFS) Stat(path string) (ftpd.FileInfo, error) {
	info, err := l.fs.Stat(l.rel(path))
	if err != nil {
		return ftpd.FileInfo{}, err
	}

	return toFileInfo(info), nil
}

// ListDir implements ftpd.FileSystem.
func (l *LocalFS) ListDir(path string) ([]ftpd.FileInfo, error) {
	entries, err := afero.ReadDir(l.fs, l.rel(path))
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	result := make([]ftpd.FileInfo, 0, len(entries))
	for _, e := range entries {
		result = append(result, toFileInfo(e))
	}

	return result, nil
}

// OpenRead implements ftpd.FileSystem.
func (l *LocalFS) OpenRead(path string, offset int64) (ftpd.FileHandle, error) {
	f, err := l.fs.OpenFile(l.rel(path), os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			_ = f.Close()

			return nil, ftpd.NewFileAccessError(fmt.Sprintf("could not seek to offset %d", offset), err)
		}
	}

	return f, nil
}

// OpenWrite implements ftpd.FileSystem. For OpenTruncate with a non-zero
// offset (a resumed STOR, spec §4.C), the file is opened without the
// truncate flag and the handle is seeked instead, matching the source's
// "seek-to-rest_offset-then-truncate-on-open" rule: truncation only
// happens when there is nothing to resume from.
func (l *LocalFS) OpenWrite(path string, mode ftpd.OpenMode, offset int64) (ftpd.FileHandle, error) {
	flags := os.O_WRONLY | os.O_CREATE

	switch {
	case mode == ftpd.OpenAppend:
		flags |= os.O_APPEND
	case offset == 0:
		flags |= os.O_TRUNC
	}

	f, err := l.fs.OpenFile(l.rel(path), flags, 0o644)
	if err != nil {
		return nil, err
	}

	if mode == ftpd.OpenTruncate && offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			_ = f.Close()

			return nil, ftpd.NewFileAccessError(fmt.Sprintf("could not seek to offset %d", offset), err)
		}
	}

	return f, nil
}

// Mkdir implements ftpd.FileSystem.
func (l *LocalFS) Mkdir(path string) error {
	return l.fs.Mkdir(l.rel(path), 0o755)
}

// Rmdir implements ftpd.FileSystem.
func (l *LocalFS) Rmdir(path string) error {
	return l.fs.Remove(l.rel(path))
}

// Unlink implements ftpd.FileSystem.
func (l *LocalFS) Unlink(path string) error {
	return l.fs.Remove(l.rel(path))
}

// Rename implements ftpd.FileSystem.
func (l *LocalFS) Rename(from, to string) error {
	if err := l.fs.MkdirAll(filepath.Dir(l.rel(to)), 0o755); err != nil {
		return ftpd.NewFileAccessError("could not create destination directory", err)
	}

	return l.fs.Rename(l.rel(from), l.rel(to))
}

func toFileInfo(info os.FileInfo) ftpd.FileInfo {
	kind := ftpd.KindFile

	switch {
	case info.IsDir():
		kind = ftpd.KindDir
	case info.Mode()&os.ModeType != 0:
		kind = ftpd.KindOther
	}

	owner, group, nlink := ownerGroupNLink(info)

	return ftpd.FileInfo{
		Name:    info.Name(),
		Kind:    kind,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
		Owner:   owner,
		Group:   group,
		NLink:   nlink,
	}
}
