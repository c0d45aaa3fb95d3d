package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/appraisal-orders-api/config"
	"github.com/kendall-kelly/appraisal-orders-api/intake"
	"github.com/kendall-kelly/appraisal-orders-api/services"
	"github.com/kendall-kelly/appraisal-orders-api/utils"
	"github.com/sirupsen/logrus"
)

// Handlers holds the services the HTTP layer delegates to
type Handlers struct {
	Orders        *services.OrderService
	Documents     *services.DocumentService
	Notifications services.NotificationGateway
	Intake        *intake.Manager
	QuickEntry    *intake.QuickEntry
	EmailIntake   *intake.EmailIntake
	UploadDir     string
	Logger        *logrus.Logger
}

// RegisterRoutes mounts every API route on rg
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	orders := rg.Group("/orders")
	{
		orders.GET("", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.GET("/check-duplicate", h.CheckDuplicate)
		orders.GET("/export", h.ExportOrders)
		orders.PATCH("/bulk", h.BulkUpdateOrders)
		orders.POST("/import", h.ImportOrders)
		orders.POST("/email-intake", h.EmailIntakeOrder)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id", h.UpdateOrder)
		orders.DELETE("/:id", h.DeleteOrder)
		orders.POST("/:id/assign", h.AssignOrder)
		orders.GET("/:id/history", h.GetOrderHistory)
		orders.GET("/:id/notes", h.ListNotes)
		orders.POST("/:id/notes", h.AddNote)
		orders.GET("/:id/similar", h.SimilarOrders)
		orders.POST("/:id/notify", h.NotifyOrder)
		orders.GET("/:id/documents", h.ListDocuments)
		orders.POST("/:id/documents", h.UploadDocument)
		orders.DELETE("/:id/documents/:documentId", h.DeleteDocument)
	}

	rg.GET("/clients", h.ListClients)
	rg.GET("/clients/:id", h.GetClient)
	rg.GET("/templates", h.ListTemplates)
	rg.GET("/templates/:id", h.GetTemplate)

	form := rg.Group("/intake")
	{
		form.POST("", h.StartIntake)
		form.GET("", h.GetIntake)
		form.DELETE("", h.CancelIntake)
		form.PATCH("/draft", h.UpdateIntakeDraft)
		form.POST("/next", h.NextIntakeStep)
		form.POST("/back", h.PreviousIntakeStep)
		form.POST("/jump", h.JumpIntakeStep)
		form.POST("/template", h.ApplyIntakeTemplate)
		form.PUT("/auto-assign", h.SetIntakeAutoAssign)
		form.POST("/save", h.SaveIntakeDraft)
		form.POST("/submit", h.SubmitIntake)
	}

	rg.GET("/quick-entry", h.GetQuickEntry)
	rg.PUT("/quick-entry", h.UpdateQuickEntry)
	rg.DELETE("/quick-entry", h.ClearQuickEntry)
	rg.POST("/quick-entry/submit", h.SubmitQuickEntry)

	rg.GET("/uploads/:filename", h.GetUploadedDocument)
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, message string, details any) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

func badRequest(c *gin.Context, err error) {
	fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
}

// handleError maps service and workflow errors onto the response envelope
func (h *Handlers) handleError(c *gin.Context, err error) {
	var uploadErr *utils.FileUploadError
	var notFound *services.NotFoundError

	switch {
	case errors.As(err, &uploadErr):
		fail(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message, nil)
	case errors.As(err, &notFound) && notFound.Resource == "order":
		fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidCursor):
		fail(c, http.StatusBadRequest, "INVALID_CURSOR", "Cursor does not reference an order", nil)
	case services.IsValidation(err):
		verrs, _ := services.AsValidationErrors(err)
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", verrs)
	case errors.Is(err, intake.ErrUnknownStep):
		fail(c, http.StatusBadRequest, "INVALID_STEP", err.Error(), nil)
	case errors.Is(err, intake.ErrStepLocked):
		fail(c, http.StatusConflict, "STEP_LOCKED", err.Error(), nil)
	case errors.Is(err, intake.ErrNotAtReview):
		fail(c, http.StatusConflict, "NOT_AT_REVIEW", err.Error(), nil)
	case errors.Is(err, intake.ErrAlreadySubmitted):
		fail(c, http.StatusConflict, "INTAKE_FINISHED", err.Error(), nil)
	default:
		config.LogError(h.Logger, "controllers", c.FullPath(), "request failed", c.Request.Method, err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
