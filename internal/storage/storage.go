// Package storage opens the content root and provides the file helpers the
// repositories share: atomic writes, existence checks and per-key locks.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/pathguard"
)

// Top-level directories under the content root.
const (
	CoursesDir = "courses"
	FilesDir   = "file_storage"
	DataDir    = "data"
)

var layout = []string{CoursesDir, FilesDir, DataDir}

// OpenOS opens root on disk. Every layout directory is checked to resolve
// inside root before it is created, and the returned filesystem is bound to
// root so no later operation can follow a symlink out of it.
func OpenOS(root string, log zerolog.Logger) (billy.Filesystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create content root: %w", err)
	}

	for _, dir := range layout {
		resolved, err := pathguard.Within(root, dir)
		if err != nil {
			return nil, fmt.Errorf("content directory %q: %w", dir, err)
		}
		if err := os.MkdirAll(resolved, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %q: %w", dir, err)
		}
	}

	log.Info().Str("component", "storage").Str("root", root).Msg("Content root ready")

	return osfs.New(root, osfs.WithBoundOS()), nil
}

// NewMemory returns an in-memory filesystem with the content layout created.
func NewMemory() billy.Filesystem {
	fs := memfs.New()
	for _, dir := range layout {
		_ = fs.MkdirAll(dir, 0o755)
	}
	return fs
}

// Exists reports whether name exists in fs.
func Exists(fs billy.Basic, name string) (bool, error) {
	_, err := fs.Stat(name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// IsDir reports whether name exists and is a directory.
func IsDir(fs billy.Basic, name string) (bool, error) {
	info, err := fs.Stat(name)
	switch {
	case err == nil:
		return info.IsDir(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// ReadFile reads the whole file.
func ReadFile(fs billy.Basic, name string) ([]byte, error) {
	return util.ReadFile(fs, name)
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over name, so readers never observe a partial write.
func WriteFileAtomic(fs billy.Filesystem, name string, data []byte) error {
	_, err := WriteAtomic(fs, name, bytes.NewReader(data))
	return err
}

// WriteAtomic streams r into name the same way as WriteFileAtomic and returns
// the number of bytes written.
func WriteAtomic(fs billy.Filesystem, name string, r io.Reader) (int64, error) {
	dir := path.Dir(name)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("mkdir %q: %w", dir, err)
	}

	tmp, err := util.TempFile(fs, dir, "."+path.Base(name)+".tmp-")
	if err != nil {
		return 0, fmt.Errorf("create temp file for %q: %w", name, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		fs.Remove(tmpName)
		return 0, fmt.Errorf("write %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName)
		return 0, fmt.Errorf("close %q: %w", name, err)
	}
	if err := fs.Rename(tmpName, name); err != nil {
		fs.Remove(tmpName)
		return 0, fmt.Errorf("rename %q: %w", name, err)
	}
	return n, nil
}

// RemoveAll removes name and everything below it.
func RemoveAll(fs billy.Basic, name string) error {
	return util.RemoveAll(fs, name)
}
