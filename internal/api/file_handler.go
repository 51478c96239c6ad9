package api

import (
	"mime"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/service"
)

// FileHandler handles uploaded file endpoints
type FileHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(services *service.Services, log zerolog.Logger) *FileHandler {
	return &FileHandler{
		services: services,
		log:      log.With().Str("handler", "file").Logger(),
	}
}

// ServeFile handles GET /file/:filename. Private files require an admin
// session.
func (h *FileHandler) ServeFile(c *gin.Context) {
	rc, file, err := h.services.File.Open(c.Request.Context(), c.Param("filename"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer rc.Close()

	if !file.IsPublic && !isAdmin(c) {
		respondError(c, h.log, apperr.Forbidden("file %q is not public", file.Filename))
		return
	}

	contentType := mime.TypeByExtension(path.Ext(file.Filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, file.Size, contentType, rc, map[string]string{
		"Content-Disposition": mime.FormatMediaType("inline", map[string]string{"filename": file.Filename}),
	})
}

// List handles GET /admin/files
func (h *FileHandler) List(c *gin.Context) {
	files, err := h.services.File.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"total": len(files),
	})
}

// Upload handles POST /admin/files with one or more multipart "file" parts
func (h *FileHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["file"]) == 0 {
		respondError(c, h.log, apperr.Invalid("no file provided"))
		return
	}

	result, err := h.services.File.Upload(c.Request.Context(), form.File["file"])
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if result.Succeeded == 0 {
		status = http.StatusBadRequest
	}

	c.JSON(status, result)
}

// Delete handles DELETE /admin/files/:filename
func (h *FileHandler) Delete(c *gin.Context) {
	filename := c.Param("filename")

	if err := h.services.File.Delete(c.Request.Context(), filename); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "file deleted",
		"filename": filename,
	})
}

// TogglePublic handles POST /admin/files/:filename/toggle-public
func (h *FileHandler) TogglePublic(c *gin.Context) {
	filename := c.Param("filename")

	public, err := h.services.File.TogglePublic(c.Request.Context(), filename)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filename":  filename,
		"is_public": public,
	})
}
