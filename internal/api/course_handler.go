package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/clientstate"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/service"
)

// CourseHandler handles the public course, document, search and progress
// endpoints
type CourseHandler struct {
	services *service.Services
	progress clientstate.ProgressStore
	liked    clientstate.LikedStore
	log      zerolog.Logger
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(services *service.Services, progress clientstate.ProgressStore, liked clientstate.LikedStore, log zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		services: services,
		progress: progress,
		liked:    liked,
		log:      log.With().Str("handler", "course").Logger(),
	}
}

// ListCourses handles GET / and GET /api/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	ctx := c.Request.Context()

	courses, err := h.services.Course.ListCourses(ctx)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	// Counts are decoration; a failing like backend still lists courses.
	likes, err := h.services.Like.All(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to load like counts")
		likes = map[string]int{}
	}
	liked := h.liked.Load(c.Request)

	items := make([]models.CourseListItem, 0, len(courses))
	for _, course := range courses {
		items = append(items, models.CourseListItem{
			Course: course,
			Likes:  likes[course.ID],
			Liked:  liked[course.ID],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"courses": items,
		"total":   len(items),
	})
}

// GetCourse handles GET /course/:course_id and GET /api/courses/:course_id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	ctx := c.Request.Context()
	courseID := c.Param("course_id")

	course, err := h.services.Course.GetCourse(ctx, courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	docs, err := h.services.Course.ListDocuments(ctx, courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	likes, err := h.services.Like.Count(ctx, courseID)
	if err != nil {
		h.log.Warn().Err(err).Str("course_id", courseID).Msg("Failed to load like count")
	}

	progress := h.progress.Load(c.Request, courseID)

	c.JSON(http.StatusOK, models.CourseDetail{
		Course:    *course,
		Documents: docs,
		Progress:  progress,
		Completed: h.services.Progress.Completed(progress, docs),
		Likes:     likes,
		Liked:     h.liked.Load(c.Request)[courseID],
	})
}

// GetDocument handles GET /course/:course_id/document/:filename. The visit
// is recorded in the course's progress cookie.
func (h *CourseHandler) GetDocument(c *gin.Context) {
	ctx := c.Request.Context()
	courseID := c.Param("course_id")
	filename := c.Param("filename")

	course, err := h.services.Course.GetCourse(ctx, courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	doc, err := h.services.Course.GetDocument(ctx, courseID, filename)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	docs, err := h.services.Course.ListDocuments(ctx, courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	progress := h.services.Progress.RecordVisit(h.progress.Load(c.Request, courseID), doc.Filename)
	if err := h.progress.Save(c.Writer, courseID, progress); err != nil {
		h.log.Warn().Err(err).Str("course_id", courseID).Msg("Failed to save progress cookie")
	}

	c.JSON(http.StatusOK, models.DocumentPage{
		Course:    *course,
		Document:  doc,
		Documents: docs,
	})
}

// Search handles GET /search and GET /api/search
func (h *CourseHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))

	results, err := h.services.Search.Search(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"total":   len(results),
	})
}

// UserProgress handles GET /api/user-progress
func (h *CourseHandler) UserProgress(c *gin.Context) {
	summary, err := h.services.Progress.Summary(c.Request.Context(), func(courseID string) models.Progress {
		return h.progress.Load(c.Request, courseID)
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
