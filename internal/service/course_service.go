package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/cache"
	"github.com/course-portal/internal/markdown"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/repository"
	"github.com/course-portal/internal/validation"
)

// Cache keys. Course mutations invalidate coursesKey and the course prefix;
// document mutations also invalidate the document prefix.
const coursesKey = "courses"

func courseKey(id string) string { return "course:" + id }
func docsKey(id string) string   { return "course:" + id + "/docs" }
func docPrefix(id string) string { return "doc:" + id + "/" }

// courseService is the concrete implementation of CourseService
type courseService struct {
	repos     *repository.Repositories
	cache     cache.Cache
	ttl       time.Duration
	validator *validation.Validator
	log       zerolog.Logger
}

// newCourseService creates a new CourseService
func newCourseService(repos *repository.Repositories, c cache.Cache, ttl time.Duration, validator *validation.Validator, log zerolog.Logger) *courseService {
	if c == nil {
		c = cache.Nop{}
	}
	return &courseService{
		repos:     repos,
		cache:     c,
		ttl:       ttl,
		validator: validator,
		log:       log.With().Str("service", "course").Logger(),
	}
}

// ListCourses returns all courses sorted by title. The returned slice is
// shared with the cache and must not be modified.
func (s *courseService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := cache.Fetch(s.cache, coursesKey, s.ttl, func() ([]models.Course, error) {
		return s.repos.Course.List(detach(ctx))
	})
	if err != nil {
		return nil, apperr.IO("failed to list courses", err)
	}
	return courses, nil
}

// GetCourse returns one course
func (s *courseService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := cache.Fetch(s.cache, courseKey(id), s.ttl, func() (models.Course, error) {
		c, err := s.repos.Course.Get(detach(ctx), id)
		if err != nil {
			return models.Course{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, s.wrap(err, "failed to load course")
	}
	return &course, nil
}

// ListDocuments returns the documents of an existing course
func (s *courseService) ListDocuments(ctx context.Context, courseID string) ([]models.DocumentSummary, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	docs, err := cache.Fetch(s.cache, docsKey(courseID), s.ttl, func() ([]models.DocumentSummary, error) {
		return s.repos.Document.List(detach(ctx), courseID)
	})
	if err != nil {
		return nil, s.wrap(err, "failed to list documents")
	}
	return docs, nil
}

// GetDocument returns a document rendered to HTML with its table of contents
func (s *courseService) GetDocument(ctx context.Context, courseID, filename string) (*models.Document, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	doc, err := cache.Fetch(s.cache, docPrefix(courseID)+filename, s.ttl, func() (models.Document, error) {
		raw, err := s.repos.Document.Read(detach(ctx), courseID, filename)
		if err != nil {
			return models.Document{}, err
		}
		out := markdown.Render(raw)
		return models.Document{
			Filename: filename,
			Title:    markdown.Title(string(raw), filename),
			Content:  out.HTML,
			TOC:      out.TOC,
		}, nil
	})
	if err != nil {
		return nil, s.wrap(err, "failed to read document")
	}
	return &doc, nil
}

// GetRawDocument returns the unrendered markdown for editing
func (s *courseService) GetRawDocument(ctx context.Context, courseID, filename string) (*models.RawDocument, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	raw, err := s.repos.Document.Read(ctx, courseID, filename)
	if err != nil {
		return nil, s.wrap(err, "failed to read document")
	}
	return &models.RawDocument{
		Filename: filename,
		Title:    markdown.Title(string(raw), filename),
		Content:  string(raw),
	}, nil
}

// CreateCourse normalizes the submitted id and creates the course
func (s *courseService) CreateCourse(ctx context.Context, in *models.CourseInput) (*models.Course, error) {
	in = trimCourseInput(in)
	in.ID = NormalizeCourseID(in.ID)
	if err := validation.Err(s.validator.ValidateCourse(in, true)); err != nil {
		return nil, err
	}
	id := in.ID

	if err := s.repos.Course.Create(ctx, id, in); err != nil {
		return nil, s.wrap(err, "failed to create course")
	}
	s.invalidateCourse(id)

	s.log.Info().Str("course_id", id).Str("title", in.Title).Msg("Course created")
	return s.GetCourse(ctx, id)
}

// UpdateCourse overwrites the metadata of an existing course
func (s *courseService) UpdateCourse(ctx context.Context, id string, in *models.CourseInput) (*models.Course, error) {
	in = trimCourseInput(in)
	if err := validation.Err(s.validator.ValidateCourse(in, false)); err != nil {
		return nil, err
	}
	if err := s.requireCourse(ctx, id); err != nil {
		return nil, err
	}

	if err := s.repos.Course.Save(ctx, id, in); err != nil {
		return nil, s.wrap(err, "failed to update course")
	}
	s.invalidateCourse(id)

	s.log.Info().Str("course_id", id).Msg("Course updated")
	return s.GetCourse(ctx, id)
}

// DeleteCourse removes a course and all of its documents
func (s *courseService) DeleteCourse(ctx context.Context, id string) error {
	if err := s.repos.Course.Delete(ctx, id); err != nil {
		return s.wrap(err, "failed to delete course")
	}
	s.invalidateCourse(id)
	s.cache.Invalidate(docPrefix(id))

	s.log.Info().Str("course_id", id).Msg("Course deleted")
	return nil
}

// CreateDocument derives the filename from the title and writes a new
// document. An existing document with the same filename is never overwritten.
func (s *courseService) CreateDocument(ctx context.Context, courseID string, in *models.DocumentInput) (*models.DocumentSummary, error) {
	if err := validation.Err(s.validator.ValidateDocument(in)); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}

	filename := markdown.Slug(title)
	if err := s.repos.Document.Create(ctx, courseID, filename, []byte(strings.TrimSpace(in.Content))); err != nil {
		return nil, s.wrap(err, "failed to create document")
	}
	s.invalidateDocuments(courseID)

	s.log.Info().Str("course_id", courseID).Str("filename", filename).Msg("Document created")
	return &models.DocumentSummary{Filename: filename, Title: title}, nil
}

// UpdateDocument overwrites an existing document
func (s *courseService) UpdateDocument(ctx context.Context, courseID, filename string, in *models.DocumentInput) error {
	if err := validation.Err(s.validator.ValidateDocument(in)); err != nil {
		return err
	}
	if err := s.requireCourse(ctx, courseID); err != nil {
		return err
	}
	if _, err := s.repos.Document.Read(ctx, courseID, filename); err != nil {
		return s.wrap(err, "failed to read document")
	}

	if err := s.repos.Document.Save(ctx, courseID, filename, []byte(strings.TrimSpace(in.Content))); err != nil {
		return s.wrap(err, "failed to update document")
	}
	s.invalidateDocuments(courseID)

	s.log.Info().Str("course_id", courseID).Str("filename", filename).Msg("Document updated")
	return nil
}

// DeleteDocument removes a document
func (s *courseService) DeleteDocument(ctx context.Context, courseID, filename string) error {
	if err := s.repos.Document.Delete(ctx, courseID, filename); err != nil {
		return s.wrap(err, "failed to delete document")
	}
	s.invalidateDocuments(courseID)

	s.log.Info().Str("course_id", courseID).Str("filename", filename).Msg("Document deleted")
	return nil
}

// NormalizeCourseID trims the id, replaces spaces with underscores and
// lower-cases it
func NormalizeCourseID(id string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), " ", "_"))
}

func (s *courseService) requireCourse(ctx context.Context, id string) error {
	_, err := s.GetCourse(ctx, id)
	return err
}

// detach keeps ctx values but drops its cancellation. Cached loads are shared
// between callers, so one caller going away must not fail the others.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (s *courseService) invalidateCourse(id string) {
	s.cache.Invalidate(coursesKey)
	s.cache.Invalidate(courseKey(id))
}

func (s *courseService) invalidateDocuments(id string) {
	s.invalidateCourse(id)
	s.cache.Invalidate(docPrefix(id))
}

// wrap keeps coded errors and turns anything else into an IO failure
func (s *courseService) wrap(err error, message string) error {
	if apperr.CodeOf(err) != apperr.CodeIOFailure {
		return err
	}
	s.log.Error().Err(err).Msg(message)
	return apperr.IO(message, err)
}

func trimCourseInput(in *models.CourseInput) *models.CourseInput {
	return &models.CourseInput{
		ID:          strings.TrimSpace(in.ID),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Instructor:  strings.TrimSpace(in.Instructor),
		Duration:    strings.TrimSpace(in.Duration),
		Level:       strings.TrimSpace(in.Level),
	}
}
