// Package blob stores uploaded files. The local backend writes into the
// file_storage directory of the content root; the S3 backend writes objects
// into a bucket.
package blob

import (
	"context"
	"io"
	"time"
)

// Info describes a stored object
type Info struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Store is the interface implemented by every blob backend. Names are single
// path segments; callers validate them before use.
type Store interface {
	// Put writes r under name, replacing any existing object.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Open returns the object's content. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, Info, error)

	// Stat returns apperr NOT_FOUND when the object is absent.
	Stat(ctx context.Context, name string) (Info, error)

	// Delete returns apperr NOT_FOUND when the object is absent.
	Delete(ctx context.Context, name string) error

	// List returns every object, including dot-prefixed ones.
	List(ctx context.Context) ([]Info, error)
}
