package service

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/rs/zerolog"

	"github.com/course-portal/internal/blob"
	"github.com/course-portal/internal/cache"
	"github.com/course-portal/internal/config"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/repository"
	"github.com/course-portal/internal/validation"
)

// CourseService defines the interface for reading and managing courses and
// their documents
type CourseService interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	ListDocuments(ctx context.Context, courseID string) ([]models.DocumentSummary, error)
	GetDocument(ctx context.Context, courseID, filename string) (*models.Document, error)
	GetRawDocument(ctx context.Context, courseID, filename string) (*models.RawDocument, error)

	CreateCourse(ctx context.Context, in *models.CourseInput) (*models.Course, error)
	UpdateCourse(ctx context.Context, id string, in *models.CourseInput) (*models.Course, error)
	DeleteCourse(ctx context.Context, id string) error
	CreateDocument(ctx context.Context, courseID string, in *models.DocumentInput) (*models.DocumentSummary, error)
	UpdateDocument(ctx context.Context, courseID, filename string, in *models.DocumentInput) error
	DeleteDocument(ctx context.Context, courseID, filename string) error
}

// SearchService defines the interface for full-text document search
type SearchService interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// LikeService defines the interface for the shared like counters
type LikeService interface {
	Count(ctx context.Context, courseID string) (int, error)
	All(ctx context.Context) (map[string]int, error)
	Like(ctx context.Context, courseID string, liked models.LikedCourses) (int, models.LikedCourses, error)
	Unlike(ctx context.Context, courseID string, liked models.LikedCourses) (int, models.LikedCourses, error)
}

// ProgressService defines the interface for reading progress
type ProgressService interface {
	RecordVisit(progress models.Progress, filename string) models.Progress
	Completed(progress models.Progress, docs []models.DocumentSummary) int
	Summary(ctx context.Context, lookup func(courseID string) models.Progress) (map[string]models.ProgressSummary, error)
}

// FileService defines the interface for the uploaded file area
type FileService interface {
	List(ctx context.Context) ([]models.StoredFile, error)
	Upload(ctx context.Context, files []*multipart.FileHeader) (*models.UploadResult, error)
	Save(ctx context.Context, name string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, name string) error
	TogglePublic(ctx context.Context, name string) (bool, error)
	Open(ctx context.Context, name string) (io.ReadCloser, *models.StoredFile, error)
	ImportLegacyFlags(ctx context.Context) (int, error)
}

// AuthService defines the interface for the admin session
type AuthService interface {
	Authenticate(username, password string) bool
	IssueToken() (string, error)
	ValidateToken(token string) bool
}

// Services holds all service interfaces
type Services struct {
	Course   CourseService
	Search   SearchService
	Like     LikeService
	Progress ProgressService
	File     FileService
	Auth     AuthService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, files blob.Store, c cache.Cache, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	authSvc, err := newAuthService(&cfg.Auth, log)
	if err != nil {
		return nil, err
	}

	validator := validation.NewValidator(cfg.Storage.AllowedExtensions, cfg.Storage.MaxFileSize)
	courseSvc := newCourseService(repos, c, cfg.Content.CacheTTL, validator, log)

	return &Services{
		Course:   courseSvc,
		Search:   newSearchService(repos, log),
		Like:     newLikeService(repos, log),
		Progress: newProgressService(courseSvc),
		File:     newFileService(files, validator, log),
		Auth:     authSvc,
	}, nil
}
