package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/appraisal-orders-api/intake"
	"github.com/kendall-kelly/appraisal-orders-api/middleware"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/services"
	"github.com/kendall-kelly/appraisal-orders-api/utils"
)

// splitQuery accepts both repeated and comma-separated query values
func splitQuery(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// listParams decodes the list filters. A limit that is not a number falls back to the default.
func listParams(c *gin.Context) (services.ListParams, error) {
	p := services.ListParams{
		Search: c.Query("search"),
		Cursor: c.Query("cursor"),
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil {
		p.Limit = n
	}

	var errs services.ValidationErrors
	for _, v := range splitQuery(c, "status") {
		s := models.OrderStatus(v)
		if !s.Valid() {
			errs = append(errs, services.ValidationError{Field: "status", Message: fmt.Sprintf("%q is not a valid value", v)})
			continue
		}
		p.Statuses = append(p.Statuses, s)
	}
	for _, v := range splitQuery(c, "priority") {
		pr := models.OrderPriority(v)
		if !pr.Valid() {
			errs = append(errs, services.ValidationError{Field: "priority", Message: fmt.Sprintf("%q is not a valid value", v)})
			continue
		}
		p.Priorities = append(p.Priorities, pr)
	}
	if len(errs) > 0 {
		return p, errs
	}
	return p, nil
}

// ListOrders handles GET /api/v1/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	params, err := listParams(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	page, err := h.Orders.List(c.Request.Context(), params)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

// CheckDuplicate handles GET /api/v1/orders/check-duplicate?address=
func (h *Handlers) CheckDuplicate(c *gin.Context) {
	res, err := h.Orders.CheckDuplicate(c.Request.Context(), c.Query("address"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// CreateOrder handles POST /api/v1/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req models.Order
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	// the full form; intake and quick entry set their own source
	req.Source = ""
	order, err := h.Orders.Create(c.Request.Context(), req, middleware.GetUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}

// GetOrder handles GET /api/v1/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// UpdateOrder handles PATCH /api/v1/orders/:id with a partial order body
func (h *Handlers) UpdateOrder(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.Orders.Patch(c.Request.Context(), c.Param("id"), fields, middleware.GetUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// BulkUpdateRequest applies the same fields to several orders
type BulkUpdateRequest struct {
	IDs    []string       `json:"ids" binding:"required,min=1"`
	Fields map[string]any `json:"fields" binding:"required"`
}

// BulkUpdateOrders handles PATCH /api/v1/orders/bulk
func (h *Handlers) BulkUpdateOrders(c *gin.Context) {
	var req BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Orders.BulkPatch(c.Request.Context(), req.IDs, req.Fields, middleware.GetUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func (h *Handlers) DeleteOrder(c *gin.Context) {
	id := c.Param("id")
	if err := h.Orders.SoftDelete(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

// AssignRequest names the appraiser taking the order
type AssignRequest struct {
	AppraiserID string `json:"appraiser_id" binding:"required"`
}

// AssignOrder handles POST /api/v1/orders/:id/assign
func (h *Handlers) AssignOrder(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.Orders.Assign(c.Request.Context(), c.Param("id"), req.AppraiserID, middleware.GetUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// GetOrderHistory handles GET /api/v1/orders/:id/history
func (h *Handlers) GetOrderHistory(c *gin.Context) {
	history, err := h.Orders.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, history)
}

// ListNotes handles GET /api/v1/orders/:id/notes?include_internal=true
func (h *Handlers) ListNotes(c *gin.Context) {
	includeInternal, _ := strconv.ParseBool(c.Query("include_internal"))
	notes, err := h.Orders.Notes(c.Request.Context(), c.Param("id"), includeInternal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, notes)
}

// AddNoteRequest is the body of a new note
type AddNoteRequest struct {
	Note       string `json:"note" binding:"required"`
	IsInternal bool   `json:"is_internal"`
}

// AddNote handles POST /api/v1/orders/:id/notes
func (h *Handlers) AddNote(c *gin.Context) {
	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	note, err := h.Orders.AddNote(c.Request.Context(), c.Param("id"), req.Note, req.IsInternal, middleware.GetUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, note)
}

// SimilarOrders handles GET /api/v1/orders/:id/similar
func (h *Handlers) SimilarOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	similar, err := h.Orders.SimilarOrders(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, similar)
}

// ExportOrders handles GET /api/v1/orders/export?format=xlsx|csv with the list filters
func (h *Handlers) ExportOrders(c *gin.Context) {
	params, err := listParams(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	format := c.DefaultQuery("format", services.ExportXLSX)

	var buf bytes.Buffer
	if err := h.Orders.Export(c.Request.Context(), params, format, &buf); err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="orders.%s"`, format))
	c.Data(http.StatusOK, services.ExportContentType(format), buf.Bytes())
}

// ImportOrders handles POST /api/v1/orders/import with a CSV or XLSX file. Rows fail independently.
func (h *Handlers) ImportOrders(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "MISSING_FILE", "A file is required", nil)
		return
	}
	if fileHeader.Size > utils.MaxFileSize {
		fail(c, http.StatusBadRequest, "FILE_TOO_LARGE", fmt.Sprintf("File size exceeds maximum allowed size of %d MB", utils.MaxFileSize/(1024*1024)), nil)
		return
	}
	format := c.PostForm("format")
	if format == "" {
		format = services.ImportFormat(fileHeader.Filename)
	}
	if format == "" {
		fail(c, http.StatusBadRequest, "INVALID_FILE_FORMAT", "Import accepts .csv and .xlsx files", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer file.Close()

	res, err := h.Orders.Import(c.Request.Context(), format, file, middleware.GetUserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// EmailIntakeOrder handles POST /api/v1/orders/email-intake with a forwarded order email
func (h *Handlers) EmailIntakeOrder(c *gin.Context) {
	var msg intake.EmailMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.EmailIntake.Submit(c.Request.Context(), msg)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}

// NotifyOrder handles POST /api/v1/orders/:id/notify. Channel failures never fail the request.
func (h *Handlers) NotifyOrder(c *gin.Context) {
	var req services.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"outcomes": services.Notify(c.Request.Context(), h.Notifications, order, req)})
}
