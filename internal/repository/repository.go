package repository

import (
	"context"

	"github.com/go-git/go-billy/v5"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/pathguard"
	"github.com/course-portal/internal/storage"
)

// CourseRepository defines the interface for course metadata operations
type CourseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, id string, in *models.CourseInput) error
	Save(ctx context.Context, id string, in *models.CourseInput) error
	Delete(ctx context.Context, id string) error
	CountDocuments(ctx context.Context, id string) (int, error)
}

// DocumentRepository defines the interface for markdown document operations
type DocumentRepository interface {
	List(ctx context.Context, courseID string) ([]models.DocumentSummary, error)
	Read(ctx context.Context, courseID, filename string) ([]byte, error)
	Create(ctx context.Context, courseID, filename string, content []byte) error
	Save(ctx context.Context, courseID, filename string, content []byte) error
	Delete(ctx context.Context, courseID, filename string) error
	Walk(ctx context.Context, fn func(courseID, filename string, content []byte) error) error
}

// LikeRepository defines the interface for the shared like counters
type LikeRepository interface {
	Get(ctx context.Context, courseID string) (int, error)
	Increment(ctx context.Context, courseID string) (int, error)
	Decrement(ctx context.Context, courseID string) (int, error)
	All(ctx context.Context) (map[string]int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Course   CourseRepository
	Document DocumentRepository
	Like     LikeRepository
}

// New creates the filesystem-backed repositories on fs. like selects the
// like counter backend; nil uses the shared likes.json file.
func New(fs billy.Filesystem, like LikeRepository) *Repositories {
	locks := storage.NewLocker()
	if like == nil {
		like = NewFileLikeRepo(fs)
	}
	return &Repositories{
		Course:   NewCourseRepo(fs, locks),
		Document: NewDocumentRepo(fs, locks),
		Like:     like,
	}
}

func coursePath(id string, rest ...string) (string, error) {
	p, err := pathguard.Clean(append([]string{storage.CoursesDir, id}, rest...)...)
	if err != nil {
		return "", &apperr.Error{Code: apperr.CodeNotFound, Message: "course not found", Err: err}
	}
	return p, nil
}

func docPath(courseID, filename string) (string, error) {
	p, err := pathguard.Clean(storage.CoursesDir, courseID, docsDir, filename)
	if err != nil {
		return "", &apperr.Error{Code: apperr.CodeNotFound, Message: "document not found", Err: err}
	}
	return p, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperr.IO("request cancelled", err)
	}
	return nil
}
