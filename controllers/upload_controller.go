package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/appraisal-orders-api/utils"
)

// GetUploadedDocument handles GET /api/v1/uploads/:filename - serves documents kept on local disk
func (h *Handlers) GetUploadedDocument(c *gin.Context) {
	filename := c.Param("filename")

	if filename == "" {
		fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Filename is required", nil)
		return
	}

	// Prevent directory traversal
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		fail(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename", nil)
		return
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := utils.AllowedDocumentFormats[ext]
	if !ok {
		fail(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Unsupported document type", nil)
		return
	}

	filePath := filepath.Join(h.UploadDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		fail(c, http.StatusNotFound, "FILE_NOT_FOUND", "Document not found", nil)
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, max-age=3600")
	c.File(filePath)
}
