package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/clientstate"
	"github.com/course-portal/internal/config"
	"github.com/course-portal/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = 32 << 20

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())
	router.Use(authMiddleware(services.Auth))

	// Client-side state
	opts := clientstate.Options{MaxAge: cfg.Cookie.MaxAge, Secure: cfg.Cookie.Secure}
	progress := clientstate.NewProgressStore(opts)
	liked := clientstate.NewLikedStore(opts)

	// Handlers
	courseHandler := NewCourseHandler(services, progress, liked, log)
	likeHandler := NewLikeHandler(services, liked, log)
	fileHandler := NewFileHandler(services, log)
	adminHandler := NewAdminHandler(services, cfg, log)

	// Health check
	router.GET("/health", healthCheck)

	// Public pages
	router.GET("/", courseHandler.ListCourses)
	router.GET("/course/:course_id", courseHandler.GetCourse)
	router.GET("/course/:course_id/document/:filename", courseHandler.GetDocument)
	router.GET("/search", courseHandler.Search)
	router.GET("/file/:filename", fileHandler.ServeFile)

	// JSON API
	api := router.Group("/api")
	{
		api.GET("/courses", courseHandler.ListCourses)
		api.GET("/courses/:course_id", courseHandler.GetCourse)
		api.GET("/courses/:course_id/likes", likeHandler.GetLikes)
		api.POST("/courses/:course_id/like", likeHandler.Like)
		api.POST("/courses/:course_id/unlike", likeHandler.Unlike)
		api.GET("/search", courseHandler.Search)
		api.GET("/user-progress", courseHandler.UserProgress)
	}

	// Admin
	router.POST("/admin/login", adminHandler.Login)
	router.POST("/admin/logout", adminHandler.Logout)
	router.GET("/admin/logout", adminHandler.Logout)

	admin := router.Group("/admin", requireAdmin())
	{
		admin.GET("", adminHandler.Dashboard)

		courses := admin.Group("/courses")
		{
			courses.GET("", adminHandler.ListCourses)
			courses.POST("", adminHandler.CreateCourse)
			courses.GET("/:course_id", adminHandler.GetCourse)
			courses.PUT("/:course_id", adminHandler.UpdateCourse)
			courses.DELETE("/:course_id", adminHandler.DeleteCourse)

			courses.GET("/:course_id/documents", adminHandler.ListDocuments)
			courses.POST("/:course_id/documents", adminHandler.CreateDocument)
			courses.GET("/:course_id/documents/:filename", adminHandler.GetDocument)
			courses.PUT("/:course_id/documents/:filename", adminHandler.UpdateDocument)
			courses.DELETE("/:course_id/documents/:filename", adminHandler.DeleteDocument)
		}

		files := admin.Group("/files")
		{
			files.GET("", fileHandler.List)
			files.POST("", fileHandler.Upload)
			files.DELETE("/:filename", fileHandler.Delete)
			files.POST("/:filename/toggle-public", fileHandler.TogglePublic)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "course-portal",
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Bool("admin", isAdmin(c)).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
