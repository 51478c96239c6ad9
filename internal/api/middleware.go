package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/service"
)

const (
	// SessionCookie carries the signed admin session
	SessionCookie = "admin_session"

	adminKey = "is_admin"
)

// authMiddleware resolves the session cookie into a request-scoped admin flag
func authMiddleware(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		c.Set(adminKey, err == nil && auth.ValidateToken(token))
		c.Next()
	}
}

// requireAdmin rejects requests without an admin session
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "admin login required",
				"code":  apperr.CodeUnauthorized,
			})
			return
		}
		c.Next()
	}
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool(adminKey)
}

// respondError writes the JSON error body for err. IO failures are logged
// with their cause; clients only see the generic message.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.JSON(status, gin.H{
		"error": apperr.MessageOf(err),
		"code":  code,
	})
}
