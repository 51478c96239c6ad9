package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/pathguard"
	"github.com/course-portal/internal/storage"
)

// Local stores blobs as files in a directory of a billy filesystem
type Local struct {
	fs billy.Filesystem
}

// NewLocal returns a store rooted at the file_storage directory of fs
func NewLocal(fs billy.Filesystem) (*Local, error) {
	if err := fs.MkdirAll(storage.FilesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", storage.FilesDir, err)
	}
	root, err := fs.Chroot(storage.FilesDir)
	if err != nil {
		return nil, fmt.Errorf("chroot %s: %w", storage.FilesDir, err)
	}
	return &Local{fs: root}, nil
}

// Put writes the file through a temp file and rename
func (l *Local) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if !pathguard.IsSafe(name) {
		return apperr.Invalid("invalid file name %q", name)
	}
	if _, err := storage.WriteAtomic(l.fs, name, r); err != nil {
		return fmt.Errorf("store %q: %w", name, err)
	}
	return nil
}

// Open opens a stored file for reading
func (l *Local) Open(ctx context.Context, name string) (io.ReadCloser, Info, error) {
	info, err := l.Stat(ctx, name)
	if err != nil {
		return nil, Info{}, err
	}
	f, err := l.fs.Open(name)
	if err != nil {
		return nil, Info{}, l.wrap(name, err)
	}
	return f, info, nil
}

// Stat returns the size and modification time of a stored file
func (l *Local) Stat(ctx context.Context, name string) (Info, error) {
	if !pathguard.IsSafe(name) {
		return Info{}, apperr.NotFound("file %q not found", name)
	}
	fi, err := l.fs.Stat(name)
	if err != nil {
		return Info{}, l.wrap(name, err)
	}
	if fi.IsDir() {
		return Info{}, apperr.NotFound("file %q not found", name)
	}
	return Info{Name: name, Size: fi.Size(), Modified: fi.ModTime()}, nil
}

// Delete removes a stored file
func (l *Local) Delete(ctx context.Context, name string) error {
	if _, err := l.Stat(ctx, name); err != nil {
		return err
	}
	if err := l.fs.Remove(name); err != nil {
		return l.wrap(name, err)
	}
	return nil
}

// List returns every regular file in the directory
func (l *Local) List(ctx context.Context) ([]Info, error) {
	entries, err := l.fs.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", storage.FilesDir, err)
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, Info{Name: e.Name(), Size: e.Size(), Modified: e.ModTime()})
	}
	return out, nil
}

func (l *Local) wrap(name string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return apperr.NotFound("file %q not found", name)
	}
	return fmt.Errorf("file %q: %w", name, err)
}
