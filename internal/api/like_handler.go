package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/clientstate"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/service"
)

// LikeHandler handles the like counter endpoints
type LikeHandler struct {
	services *service.Services
	liked    clientstate.LikedStore
	log      zerolog.Logger
}

// NewLikeHandler creates a new like handler
func NewLikeHandler(services *service.Services, liked clientstate.LikedStore, log zerolog.Logger) *LikeHandler {
	return &LikeHandler{
		services: services,
		liked:    liked,
		log:      log.With().Str("handler", "like").Logger(),
	}
}

// GetLikes handles GET /api/courses/:course_id/likes
func (h *LikeHandler) GetLikes(c *gin.Context) {
	count, err := h.services.Like.Count(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"likes":   count,
	})
}

// Like handles POST /api/courses/:course_id/like
func (h *LikeHandler) Like(c *gin.Context) {
	h.update(c, h.services.Like.Like)
}

// Unlike handles POST /api/courses/:course_id/unlike
func (h *LikeHandler) Unlike(c *gin.Context) {
	h.update(c, h.services.Like.Unlike)
}

type likeUpdate func(ctx context.Context, courseID string, liked models.LikedCourses) (int, models.LikedCourses, error)

func (h *LikeHandler) update(c *gin.Context, fn likeUpdate) {
	courseID := c.Param("course_id")

	count, liked, err := fn(c.Request.Context(), courseID, h.liked.Load(c.Request))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.liked.Save(c.Writer, liked); err != nil {
		h.log.Warn().Err(err).Str("course_id", courseID).Msg("Failed to save liked cookie")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"likes":   count,
		"liked":   liked[courseID],
	})
}
