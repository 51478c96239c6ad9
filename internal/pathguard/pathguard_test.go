package pathguard_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/course-portal/internal/pathguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSafe(t *testing.T) {
	tests := []struct {
		segment string
		want    bool
	}{
		{"my-course_1", true},
		{"1-welcome.md", true},
		{"notes.v2.txt", true},
		{"../etc/passwd", false},
		{"/etc/passwd", false},
		{"..", false},
		{"a..b", false},
		{"docs/intro.md", false},
		{`docs\intro.md`, false},
		{"", false},
		{".", false},
		{"bad\x00name", false},
	}

	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			assert.Equal(t, tt.want, pathguard.IsSafe(tt.segment))
		})
	}
}

func TestClean(t *testing.T) {
	p, err := pathguard.Clean("courses", "intro_101", "docs", "1-welcome.md")
	require.NoError(t, err)
	assert.Equal(t, "courses/intro_101/docs/1-welcome.md", p)

	_, err = pathguard.Clean("courses", "../secrets")
	assert.ErrorIs(t, err, pathguard.ErrUnsafePath)

	_, err = pathguard.Clean()
	assert.ErrorIs(t, err, pathguard.ErrUnsafePath)
}

func TestWithin(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "courses"), 0o755))

	resolved, err := pathguard.Within(root, "courses")
	require.NoError(t, err)
	assert.Equal(t, "courses", filepath.Base(resolved))

	_, err = pathguard.Within(root, "..")
	assert.ErrorIs(t, err, pathguard.ErrUnsafePath)

	// The root itself is never addressable
	_, err = pathguard.Within(root)
	assert.ErrorIs(t, err, pathguard.ErrUnsafePath)
}

func TestWithinRejectsEscapingSymlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "data")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := pathguard.Within(root, "data")
	assert.ErrorIs(t, err, pathguard.ErrUnsafePath)
}
