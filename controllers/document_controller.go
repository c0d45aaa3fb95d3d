package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/appraisal-orders-api/middleware"
	"github.com/kendall-kelly/appraisal-orders-api/models"
)

// ListDocuments handles GET /api/v1/orders/:id/documents
func (h *Handlers) ListDocuments(c *gin.Context) {
	docs, err := h.Documents.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, docs)
}

// UploadDocument handles POST /api/v1/orders/:id/documents as multipart with "file" and "document_type"
func (h *Handlers) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "MISSING_FILE", "A file is required", nil)
		return
	}
	docType := models.DocumentType(c.PostForm("document_type"))

	doc, err := h.Documents.Upload(c.Request.Context(), c.Param("id"), docType, fileHeader, middleware.GetUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, doc)
}

// DeleteDocument handles DELETE /api/v1/orders/:id/documents/:documentId
func (h *Handlers) DeleteDocument(c *gin.Context) {
	id := c.Param("documentId")
	if err := h.Documents.Delete(c.Request.Context(), c.Param("id"), id, middleware.GetUserID(c)); err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}
