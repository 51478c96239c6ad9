package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/config"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/service"
)

// AdminHandler handles login and the admin course/document management
// endpoints
type AdminHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "admin").Logger(),
	}
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login handles POST /admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, h.log, apperr.Invalid("invalid login request"))
		return
	}

	if !h.services.Auth.Authenticate(req.Username, req.Password) {
		respondError(c, h.log, &apperr.Error{Code: apperr.CodeUnauthorized, Message: "invalid credentials"})
		return
	}

	token, err := h.services.Auth.IssueToken()
	if err != nil {
		respondError(c, h.log, apperr.IO("failed to issue session", err))
		return
	}

	h.setSession(c, token, h.sessionMaxAge())

	c.JSON(http.StatusOK, gin.H{"message": "logged in"})
}

// Logout handles GET and POST /admin/logout
func (h *AdminHandler) Logout(c *gin.Context) {
	h.setSession(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AdminHandler) setSession(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", h.cfg.Cookie.Secure, true)
}

func (h *AdminHandler) sessionMaxAge() int {
	ttl := h.cfg.Auth.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return int(ttl / time.Second)
}

// Dashboard handles GET /admin
func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	courses, err := h.services.Course.ListCourses(ctx)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	files, err := h.services.File.List(ctx)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	totalDocs := 0
	for _, course := range courses {
		totalDocs += course.DocsCount
	}

	c.JSON(http.StatusOK, gin.H{
		"courses":         courses,
		"total_courses":   len(courses),
		"total_documents": totalDocs,
		"total_files":     len(files),
	})
}

// ListCourses handles GET /admin/courses
func (h *AdminHandler) ListCourses(c *gin.Context) {
	courses, err := h.services.Course.ListCourses(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"courses": courses,
		"total":   len(courses),
	})
}

// CreateCourse handles POST /admin/courses
func (h *AdminHandler) CreateCourse(c *gin.Context) {
	var in models.CourseInput
	if err := c.ShouldBind(&in); err != nil {
		respondError(c, h.log, apperr.Invalid("invalid course payload"))
		return
	}

	course, err := h.services.Course.CreateCourse(c.Request.Context(), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// GetCourse handles GET /admin/courses/:course_id
func (h *AdminHandler) GetCourse(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{
		"course":    course,
		"documents": docs,
	})
}

// UpdateCourse handles PUT /admin/courses/:course_id
func (h *AdminHandler) UpdateCourse(c *gin.Context) {
	var in models.CourseInput
	if err := c.ShouldBind(&in); err != nil {
		respondError(c, h.log, apperr.Invalid("invalid course payload"))
		return
	}

	course, err := h.services.Course.UpdateCourse(c.Request.Context(), c.Param("course_id"), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// DeleteCourse handles DELETE /admin/courses/:course_id
func (h *AdminHandler) DeleteCourse(c *gin.Context) {
	courseID := c.Param("course_id")

	if err := h.services.Course.DeleteCourse(c.Request.Context(), courseID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "course deleted",
		"course_id": courseID,
	})
}

// ListDocuments handles GET /admin/courses/:course_id/documents
func (h *AdminHandler) ListDocuments(c *gin.Context) {
	docs, err := h.services.Course.ListDocuments(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

// CreateDocument handles POST /admin/courses/:course_id/documents
func (h *AdminHandler) CreateDocument(c *gin.Context) {
	var in models.DocumentInput
	if err := c.ShouldBind(&in); err != nil {
		respondError(c, h.log, apperr.Invalid("invalid document payload"))
		return
	}

	doc, err := h.services.Course.CreateDocument(c.Request.Context(), c.Param("course_id"), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// GetDocument handles GET /admin/courses/:course_id/documents/:filename and
// returns the unrendered markdown
func (h *AdminHandler) GetDocument(c *gin.Context) {
	doc, err := h.services.Course.GetRawDocument(c.Request.Context(), c.Param("course_id"), c.Param("filename"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// UpdateDocument handles PUT /admin/courses/:course_id/documents/:filename
func (h *AdminHandler) UpdateDocument(c *gin.Context) {
	var in models.DocumentInput
	if err := c.ShouldBind(&in); err != nil {
		respondError(c, h.log, apperr.Invalid("invalid document payload"))
		return
	}

	courseID, filename := c.Param("course_id"), c.Param("filename")
	if err := h.services.Course.UpdateDocument(c.Request.Context(), courseID, filename, &in); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "document updated",
		"filename": filename,
	})
}

// DeleteDocument handles DELETE /admin/courses/:course_id/documents/:filename
func (h *AdminHandler) DeleteDocument(c *gin.Context) {
	courseID, filename := c.Param("course_id"), c.Param("filename")

	if err := h.services.Course.DeleteDocument(c.Request.Context(), courseID, filename); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "document deleted",
		"filename": filename,
	})
}
