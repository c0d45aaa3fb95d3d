package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListClients handles GET /api/v1/clients
func (h *Handlers) ListClients(c *gin.Context) {
	clients, err := h.Orders.Clients(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, clients)
}

// GetClient handles GET /clients/:id
func (h *Handlers) GetClient(c *gin.Context) {
	client, err := h.Orders.Client(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, client)
}

// ListTemplates handles GET /api/v1/templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates, err := h.Orders.Templates(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, templates)
}

// GetTemplate handles GET /templates/:id
func (h *Handlers) GetTemplate(c *gin.Context) {
	tpl, err := h.Orders.Template(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, tpl)
}
