package ftpd

import (
	"io"
	"os"
	"sort"
	"testing"

	"github.com/spf13/afero"

	"github.com/miniftpd/miniftpd/log"
)

const (
	authUser = "test"
	authPass = "test"
)

// memFS is a minimal FileSystem backed by an in-memory afero filesystem,
// grounded on the teacher's own driver_test.go TestClientDriver (which also
// wraps an afero.Fs directly rather than going through a separate package,
// to avoid a test-only import cycle with the concrete drivers package).
type memFS struct {
	fs afero.Fs
}

func newMemFS() *memFS {
	return &memFS{fs: afero.NewMemMapFs()}
}

func (m *memFS) rel(path string) string {
	if path == "/" {
		return "."
	}

	return "." + path
}

func (m *memFS) Stat(path string) (FileInfo, error) {
	info, err := m.fs.Stat(m.rel(path))
	if err != nil {
		return FileInfo{}, err
	}

	return toMemFileInfo(info), nil
}

func (m *memFS) ListDir(path string) ([]FileInfo, error) {
	entries, err := afero.ReadDir(m.fs, m.rel(path))
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	result := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		result = append(result, toMemFileInfo(e))
	}

	return result, nil
}

func (m *memFS) OpenRead(path string, offset int64) (FileHandle, error) {
	f, err := m.fs.OpenFile(m.rel(path), os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			_ = f.Close()

			return nil, err
		}
	}

	return f, nil
}

func (m *memFS) OpenWrite(path string, mode OpenMode, offset int64) (FileHandle, error) {
	flags := os.O_WRONLY | os.O_CREATE

	switch {
	case mode == OpenAppend:
		flags |= os.O_APPEND
	case offset == 0:
		flags |= os.O_TRUNC
	}

	f, err := m.fs.OpenFile(m.rel(path), flags, 0o644)
	if err != nil {
		return nil, err
	}

	if mode == OpenTruncate && offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			_ = f.Close()

			return nil, err
		}
	}

	return f, nil
}

func (m *memFS) Mkdir(path string) error { return m.fs.Mkdir(m.rel(path), 0o755) }
func (m *memFS) Rmdir(path string) error { return m.fs.Remove(m.rel(path)) }
func (m *memFS) Unlink(path string) error { return m.fs.Remove(m.rel(path)) }

func (m *memFS) Rename(from, to string) error {
	return m.fs.Rename(m.rel(from), m.rel(to))
}

func toMemFileInfo(info os.FileInfo) FileInfo {
	kind := KindFile
	if info.IsDir() {
		kind = KindDir
	}

	return FileInfo{
		Name:    info.Name(),
		Kind:    kind,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
		NLink:   1,
	}
}

// newTestServer starts a Server on 127.0.0.1:0 backed by a fresh memFS,
// accepting authUser/authPass, and registers its shutdown with t.Cleanup.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	auth := AuthenticatorFunc(func(user, pass string) bool {
		return user == authUser && pass == authPass
	})

	s := NewServer("127.0.0.1:0", auth, newMemFS(), WithLogger(log.NewNopLogger()))

	if err := s.Listen(); err != nil {
		t.Fatalf("could not listen: %v", err)
	}

	go func() {
		_ = s.Serve()
	}()

	t.Cleanup(func() {
		_ = s.Stop()
	})

	return s
}
