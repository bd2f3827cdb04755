package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/culturemap/internal/api/middleware"
	"github.com/timmy/culturemap/internal/csvimport"
	"github.com/timmy/culturemap/internal/service"
)

// ImportHandler handles spreadsheet import endpoints.
type ImportHandler struct {
	imports *service.ImportService
}

// NewImportHandler creates a new import handler.
// Parameters:
//   - imports: import service instance.
// Returns:
//   - *ImportHandler: initialized handler.
func NewImportHandler(imports *service.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Upload handles POST /api/v1/imports (multipart: file, title).
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Form field 'file' is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open upload: " + err.Error()})
		return
	}
	defer f.Close()

	imp, err := h.imports.Upload(c.Request.Context(), service.UploadRequest{
		Title:    c.PostForm("title"),
		Filename: fh.Filename,
		OwnerID:  middleware.Owner(c),
		Body:     f,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, imp)
}

// List handles GET /api/v1/imports.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	imports, err := h.imports.List(c.Request.Context(), middleware.Owner(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"imports": imports,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get handles GET /api/v1/imports/:id.
func (h *ImportHandler) Get(c *gin.Context) {
	imp, err := h.imports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, imp)
}

// Status handles GET /api/v1/imports/:id/status, polled while a run is active.
func (h *ImportHandler) Status(c *gin.Context) {
	status, err := h.imports.GetImportStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// UpdateMapping handles PUT /api/v1/imports/:id/mapping.
// Parameters:
//   - c: Gin request context with a JSON array of {headerKey, match}.
// Returns: none (writes JSON response).
func (h *ImportHandler) UpdateMapping(c *gin.Context) {
	var updates []csvimport.MatchUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	for _, u := range updates {
		if u.HeaderKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: headerKey is required"})
			return
		}
	}

	imp, err := h.imports.UpdateMapping(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, imp)
}

// Schedule handles POST /api/v1/imports/:id/schedule.
func (h *ImportHandler) Schedule(c *gin.Context) {
	imp, err := h.imports.Schedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, imp)
}

// Delete handles DELETE /api/v1/imports/:id.
func (h *ImportHandler) Delete(c *gin.Context) {
	if err := h.imports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
