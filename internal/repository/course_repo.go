package repository

import (
	"context"
	"encoding/json"
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

const (
	courseFileName = "course.json"
	docsDir        = "docs"
)

// courseFile is the on-disk shape of course.json
type courseFile struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Instructor  string `json:"instructor,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Level       string `json:"level,omitempty"`
}

// courseRepo is the filesystem implementation of CourseRepository
type courseRepo struct {
	fs    billy.Filesystem
	locks *storage.Locker
}

// NewCourseRepo creates a new course repository
func NewCourseRepo(fs billy.Filesystem, locks *storage.Locker) CourseRepository {
	return &courseRepo{fs: fs, locks: locks}
}

// List loads every course directory, sorted by title
func (r *courseRepo) List(ctx context.Context) ([]models.Course, error) {
	entries, err := r.fs.ReadDir(storage.CoursesDir)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Course{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read courses directory: %w", err)
	}

	courses := make([]models.Course, 0, len(entries))
	for _, entry := range entries {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		id := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(id, ".") || !pathguard.IsSafe(id) {
			continue
		}
		course := r.load(id)
		count, err := r.CountDocuments(ctx, id)
		if err != nil {
			return nil, err
		}
		course.DocsCount = count
		courses = append(courses, course)
	}

	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].Title != courses[j].Title {
			return courses[i].Title < courses[j].Title
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

// Get loads one course. Malformed course.json falls back to defaults.
func (r *courseRepo) Get(ctx context.Context, id string) (*models.Course, error) {
	ok, err := r.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("course %q not found", id)
	}

	course := r.load(id)
	count, err := r.CountDocuments(ctx, id)
	if err != nil {
		return nil, err
	}
	course.DocsCount = count
	return &course, nil
}

// Exists checks if the course directory exists
func (r *courseRepo) Exists(ctx context.Context, id string) (bool, error) {
	dir, err := coursePath(id)
	if err != nil {
		return false, nil
	}
	ok, err := storage.IsDir(r.fs, dir)
	if err != nil {
		return false, fmt.Errorf("stat course %q: %w", id, err)
	}
	return ok, nil
}

// Create makes the course directory, its docs folder and course.json.
// Fails if the directory already exists.
func (r *courseRepo) Create(ctx context.Context, id string, in *models.CourseInput) error {
	dir, err := coursePath(id)
	if err != nil {
		return apperr.Invalid("invalid course id %q", id)
	}

	unlock := r.locks.Lock("course:" + id)
	defer unlock()

	exists, err := storage.Exists(r.fs, dir)
	if err != nil {
		return fmt.Errorf("stat course %q: %w", id, err)
	}
	if exists {
		return apperr.Exists("a course with id %q already exists", id)
	}
	return r.write(id, in)
}

// Save overwrites course.json, creating the directory if needed
func (r *courseRepo) Save(ctx context.Context, id string, in *models.CourseInput) error {
	if _, err := coursePath(id); err != nil {
		return apperr.Invalid("invalid course id %q", id)
	}

	unlock := r.locks.Lock("course:" + id)
	defer unlock()

	return r.write(id, in)
}

// Delete removes the course directory and everything in it
func (r *courseRepo) Delete(ctx context.Context, id string) error {
	dir, err := coursePath(id)
	if err != nil {
		return err
	}

	unlock := r.locks.Lock("course:" + id)
	defer unlock()

	ok, err := storage.IsDir(r.fs, dir)
	if err != nil {
		return fmt.Errorf("stat course %q: %w", id, err)
	}
	if !ok {
		return apperr.NotFound("course %q not found", id)
	}
	if err := storage.RemoveAll(r.fs, dir); err != nil {
		return fmt.Errorf("remove course %q: %w", id, err)
	}
	return nil
}

// CountDocuments counts the markdown files in the course docs folder
func (r *courseRepo) CountDocuments(ctx context.Context, id string) (int, error) {
	dir, err := coursePath(id, docsDir)
	if err != nil {
		return 0, nil
	}
	entries, err := r.fs.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read docs of %q: %w", id, err)
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == models.DocumentExt {
			count++
		}
	}
	return count, nil
}

// write must be called with the course lock held
func (r *courseRepo) write(id string, in *models.CourseInput) error {
	docs, _ := coursePath(id, docsDir)
	if err := r.fs.MkdirAll(docs, 0o755); err != nil {
		return fmt.Errorf("create course %q: %w", id, err)
	}

	data, err := json.MarshalIndent(courseFile{
		Title:       in.Title,
		Description: in.Description,
		Instructor:  in.Instructor,
		Duration:    in.Duration,
		Level:       in.Level,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode course %q: %w", id, err)
	}

	file, _ := coursePath(id, courseFileName)
	if err := storage.WriteFileAtomic(r.fs, file, data); err != nil {
		return fmt.Errorf("save course %q: %w", id, err)
	}
	return nil
}

// load applies course.json over the defaults. Keys present in the file win;
// a missing or malformed file leaves the defaults untouched.
func (r *courseRepo) load(id string) models.Course {
	defaults := courseFile{
		Title:       markdown.Humanize(id),
		Description: models.DefaultDescription,
		Instructor:  models.DefaultInstructor,
	}
	f := defaults

	if file, err := coursePath(id, courseFileName); err == nil {
		if data, err := storage.ReadFile(r.fs, file); err == nil {
			if err := json.Unmarshal(data, &f); err != nil {
				f = defaults
			}
		}
	}

	return models.Course{
		ID:          id,
		Title:       f.Title,
		Description: f.Description,
		Instructor:  f.Instructor,
		Duration:    f.Duration,
		Level:       f.Level,
	}
}
