package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/markdown"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/pathguard"
	"github.com/course-portal/internal/storage"
)

// documentRepo is the filesystem implementation of DocumentRepository
type documentRepo struct {
	fs    billy.Filesystem
	locks *storage.Locker
}

// NewDocumentRepo creates a new document repository
func NewDocumentRepo(fs billy.Filesystem, locks *storage.Locker) DocumentRepository {
	return &documentRepo{fs: fs, locks: locks}
}

// List returns the course's markdown files sorted by title
func (r *documentRepo) List(ctx context.Context, courseID string) ([]models.DocumentSummary, error) {
	names, err := r.names(courseID)
	if err != nil {
		return nil, err
	}

	docs := make([]models.DocumentSummary, 0, len(names))
	for _, name := range names {
		docs = append(docs, models.DocumentSummary{
			Filename: name,
			Title:    markdown.Humanize(markdown.Stem(name)),
		})
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Title < docs[j].Title
	})
	return docs, nil
}

// Read returns the raw markdown of one document
func (r *documentRepo) Read(ctx context.Context, courseID, filename string) ([]byte, error) {
	if !isMarkdown(filename) {
		return nil, apperr.NotFound("document %q not found", filename)
	}
	p, err := docPath(courseID, filename)
	if err != nil {
		return nil, err
	}

	data, err := storage.ReadFile(r.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("document %q not found in course %q", filename, courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s/%s: %w", courseID, filename, err)
	}
	return data, nil
}

// Create writes a new document, failing if the filename is taken
func (r *documentRepo) Create(ctx context.Context, courseID, filename string, content []byte) error {
	p, err := r.writable(courseID, filename)
	if err != nil {
		return err
	}

	unlock := r.locks.Lock("doc:" + p)
	defer unlock()

	exists, err := storage.Exists(r.fs, p)
	if err != nil {
		return fmt.Errorf("stat document %s/%s: %w", courseID, filename, err)
	}
	if exists {
		return apperr.Exists("a document named %q already exists in this course", filename)
	}
	return r.write(p, content)
}

// Save overwrites a document, creating the docs folder if missing
func (r *documentRepo) Save(ctx context.Context, courseID, filename string, content []byte) error {
	p, err := r.writable(courseID, filename)
	if err != nil {
		return err
	}

	unlock := r.locks.Lock("doc:" + p)
	defer unlock()

	return r.write(p, content)
}

// Delete removes a document
func (r *documentRepo) Delete(ctx context.Context, courseID, filename string) error {
	p, err := docPath(courseID, filename)
	if err != nil {
		return err
	}

	unlock := r.locks.Lock("doc:" + p)
	defer unlock()

	exists, err := storage.Exists(r.fs, p)
	if err != nil {
		return fmt.Errorf("stat document %s/%s: %w", courseID, filename, err)
	}
	if !exists {
		return apperr.NotFound("document %q not found in course %q", filename, courseID)
	}
	if err := r.fs.Remove(p); err != nil {
		return fmt.Errorf("delete document %s/%s: %w", courseID, filename, err)
	}
	return nil
}

// Walk calls fn for every markdown document of every course, in directory
// order. Unreadable files are skipped.
func (r *documentRepo) Walk(ctx context.Context, fn func(courseID, filename string, content []byte) error) error {
	courses, err := r.fs.ReadDir(storage.CoursesDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read courses directory: %w", err)
	}

	for _, course := range courses {
		id := course.Name()
		if !course.IsDir() || strings.HasPrefix(id, ".") || !pathguard.IsSafe(id) {
			continue
		}
		names, err := r.names(id)
		if err != nil {
			continue
		}
		for _, name := range names {
			if err := checkContext(ctx); err != nil {
				return err
			}
			p, err := docPath(id, name)
			if err != nil {
				continue
			}
			data, err := storage.ReadFile(r.fs, p)
			if err != nil {
				continue
			}
			if err := fn(id, name, data); err != nil {
				return err
			}
		}
	}
	return nil
}

// names lists the markdown filenames of a course in directory order
func (r *documentRepo) names(courseID string) ([]string, error) {
	dir, err := coursePath(courseID, docsDir)
	if err != nil {
		return nil, err
	}
	entries, err := r.fs.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read docs of %q: %w", courseID, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !isMarkdown(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func (r *documentRepo) writable(courseID, filename string) (string, error) {
	if !pathguard.IsSafe(courseID) || !pathguard.IsSafe(filename) {
		return "", &apperr.Error{Code: apperr.CodeInvalidInput, Message: "invalid document path", Err: pathguard.ErrUnsafePath}
	}
	if !isMarkdown(filename) || strings.HasPrefix(filename, ".") {
		return "", apperr.Invalid("document filename must end in %s", models.DocumentExt)
	}
	return docPath(courseID, filename)
}

func (r *documentRepo) write(p string, content []byte) error {
	if err := storage.WriteFileAtomic(r.fs, p, content); err != nil {
		return fmt.Errorf("save document %s: %w", p, err)
	}
	return nil
}

func isMarkdown(name string) bool {
	return path.Ext(name) == models.DocumentExt
}
