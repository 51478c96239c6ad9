package blob_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/blob"
	"github.com/course-portal/internal/storage"
)

func TestLocal_PutOpenDelete(t *testing.T) {
	fs := storage.NewMemory()
	store, err := blob.NewLocal(fs)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "notes.txt", strings.NewReader("hello"), 5))

	// Files land in the file_storage directory of the content root.
	ok, err := storage.Exists(fs, storage.FilesDir+"/notes.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, info, err := store.Open(ctx, "notes.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), info.Size)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "notes.txt", list[0].Name)

	require.NoError(t, store.Delete(ctx, "notes.txt"))
	_, err = store.Stat(ctx, "notes.txt")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.True(t, errors.Is(store.Delete(ctx, "notes.txt"), apperr.ErrNotFound))
}

func TestLocal_RejectsUnsafeNames(t *testing.T) {
	store, err := blob.NewLocal(storage.NewMemory())
	require.NoError(t, err)
	ctx := context.Background()

	err = store.Put(ctx, "../courses/x.md", strings.NewReader("x"), 1)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, _, err = store.Open(ctx, "../data/likes.json")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
