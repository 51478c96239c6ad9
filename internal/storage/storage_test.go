package storage_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/course-portal/internal/storage"
)

func TestWriteFileAtomic(t *testing.T) {
	fs := storage.NewMemory()

	require.NoError(t, storage.WriteFileAtomic(fs, "data/likes.json", []byte(`{"c1":1}`)))
	require.NoError(t, storage.WriteFileAtomic(fs, "data/likes.json", []byte(`{"c1":2}`)))

	data, err := storage.ReadFile(fs, "data/likes.json")
	require.NoError(t, err)
	assert.Equal(t, `{"c1":2}`, string(data))

	entries, err := fs.ReadDir("data")
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "likes.json", entries[0].Name())
}

func TestWriteFileAtomicCreatesParents(t *testing.T) {
	fs := storage.NewMemory()

	require.NoError(t, storage.WriteFileAtomic(fs, "courses/intro/docs/a.md", []byte("# A")))

	ok, err := storage.IsDir(fs, "courses/intro/docs")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExists(t *testing.T) {
	fs := storage.NewMemory()

	ok, err := storage.Exists(fs, "courses")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = storage.Exists(fs, "courses/missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveAll(t *testing.T) {
	fs := storage.NewMemory()
	require.NoError(t, storage.WriteFileAtomic(fs, "courses/intro/course.json", []byte("{}")))
	require.NoError(t, storage.WriteFileAtomic(fs, "courses/intro/docs/a.md", []byte("a")))

	require.NoError(t, storage.RemoveAll(fs, "courses/intro"))

	ok, err := storage.Exists(fs, "courses/intro")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenOSCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "content")

	fs, err := storage.OpenOS(root, zerolog.Nop())
	require.NoError(t, err)

	for _, dir := range []string{storage.CoursesDir, storage.FilesDir, storage.DataDir} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	require.NoError(t, storage.WriteFileAtomic(fs, "data/likes.json", []byte("{}")))
	_, err = os.Stat(filepath.Join(root, "data", "likes.json"))
	assert.NoError(t, err)
}

func TestLockerSerializesSameKey(t *testing.T) {
	locker := storage.NewLocker()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("likes")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}
