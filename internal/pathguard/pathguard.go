// Package pathguard validates path segments taken from requests before they
// reach the content filesystem.
package pathguard

import (
	"errors"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// ErrUnsafePath is returned for segments that could leave the content root.
var ErrUnsafePath = errors.New("unsafe path")

// IsSafe reports whether segment may be used as a single path element
// (a course id, document filename or stored file name).
func IsSafe(segment string) bool {
	if segment == "" || segment == "." {
		return false
	}
	if strings.Contains(segment, "..") {
		return false
	}
	if strings.HasPrefix(segment, "/") || strings.HasPrefix(segment, `\`) || filepath.IsAbs(segment) {
		return false
	}
	if strings.ContainsAny(segment, "/\\\x00") {
		return false
	}
	return true
}

// Clean validates every segment and joins them into a slash-separated path
// relative to the content root.
func Clean(segments ...string) (string, error) {
	if len(segments) == 0 {
		return "", ErrUnsafePath
	}
	for _, s := range segments {
		if !IsSafe(s) {
			return "", ErrUnsafePath
		}
	}
	joined := path.Join(segments...)
	if joined == "" || joined == "." || strings.HasPrefix(joined, "../") {
		return "", ErrUnsafePath
	}
	return joined, nil
}

// Within resolves segments against root on disk, evaluating symlinks, and
// returns the absolute path. It fails when the resolved path differs from the
// lexical join, which happens when a symlink points elsewhere.
func Within(root string, segments ...string) (string, error) {
	rel, err := Clean(segments...)
	if err != nil {
		return "", err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}
	resolved, err := securejoin.SecureJoin(resolvedRoot, filepath.FromSlash(rel))
	if err != nil {
		return "", err
	}
	if resolved != filepath.Join(resolvedRoot, filepath.FromSlash(rel)) {
		return "", ErrUnsafePath
	}
	return resolved, nil
}
