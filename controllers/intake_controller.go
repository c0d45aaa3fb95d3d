package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/appraisal-orders-api/intake"
)

func (h *Handlers) withWorkflow(c *gin.Context, fn func(wf *intake.Workflow) (intake.State, error)) {
	wf, err := h.Intake.Current(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	st, err := fn(wf)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, st)
}

// StartIntake handles POST /api/v1/intake. An optional body seeds the draft.
func (h *Handlers) StartIntake(c *gin.Context) {
	var initial map[string]any
	if err := c.ShouldBindJSON(&initial); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	wf, err := h.Intake.Start(c.Request.Context(), initial)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, wf.Snapshot())
}

// GetIntake handles GET /api/v1/intake, resuming the stored draft when no form is open
func (h *Handlers) GetIntake(c *gin.Context) {
	h.withWorkflow(c, func(wf *intake.Workflow) (intake.State, error) {
		return wf.Snapshot(), nil
	})
}

// UpdateIntakeDraft handles PATCH /api/v1/intake/draft
func (h *Handlers) UpdateIntakeDraft(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, err)
		return
	}
	h.withWorkflow(c, func(wf *intake.Workflow) (intake.State, error) {
		return wf.Update(c.Request.Context(), fields)
	})
}

// NextIntakeStep handles POST /intake/next
func (h *Handlers) NextIntakeStep(c *gin.Context) {
	h.withWorkflow(c, func(wf *intake.Workflow) (intake.State, error) {
		return wf.Next(c.Request.Context())
	})
}

// PreviousIntakeStep handles POST /intake/back
func (h *Handlers) PreviousIntakeStep(c *gin.Context) {
	h.withWorkflow(c, func(wf *intake.Workflow) (intake.State, error) {
		return wf.Back(c.Request.Context())
	})
}

type jumpRequest struct {
	Step intake.Step `json:"step" binding:"required"`
}

// JumpIntakeStep handles POST /api/v1/intake/jump; only earlier steps are reachable
func (h *Handlers) JumpIntakeStep(c *gin.Context) {
	var req jumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.withWorkflow(c, func(wf *intake.Workflow) (intake.State, error) {
		return wf.JumpTo(c.Request.Context(), req.Step)
	})
}

type templateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// ApplyIntakeTemplate handles POST /intake/template
func (h *Handlers) ApplyIntakeTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.withWorkflow(c, func(wf *intake.Workflow) (intake.State, error) {
		return wf.ApplyTemplate(c.Request.Context(), req.TemplateID)
	})
}

type autoAssignRequest struct {
	Enabled bool `json:"enabled"`
}

// SetIntakeAutoAssign handles PUT /intake/auto-assign
func (h *Handlers) SetIntakeAutoAssign(c *gin.Context) {
	var req autoAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.withWorkflow(c, func(wf *intake.Workflow) (intake.State, error) {
		return wf.SetAutoAssign(req.Enabled), nil
	})
}

// SaveIntakeDraft handles POST /api/v1/intake/save, persisting ahead of the next autosave tick
func (h *Handlers) SaveIntakeDraft(c *gin.Context) {
	h.withWorkflow(c, func(wf *intake.Workflow) (intake.State, error) {
		if err := wf.SaveDraft(c.Request.Context()); err != nil {
			return intake.State{}, err
		}
		return wf.Snapshot(), nil
	})
}

// SubmitIntake handles POST /api/v1/intake/submit
func (h *Handlers) SubmitIntake(c *gin.Context) {
	wf, err := h.Intake.Current(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	order, err := wf.Submit(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.Intake.Clear(wf)
	respond(c, http.StatusCreated, order)
}

// CancelIntake handles DELETE /api/v1/intake, discarding the stored draft
func (h *Handlers) CancelIntake(c *gin.Context) {
	wf, err := h.Intake.Current(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	if err := wf.Cancel(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	h.Intake.Clear(wf)
	respond(c, http.StatusOK, gin.H{"cancelled": true})
}

// GetQuickEntry handles GET /api/v1/quick-entry
func (h *Handlers) GetQuickEntry(c *gin.Context) {
	respond(c, http.StatusOK, h.QuickEntry.Get(c.Request.Context()))
}

// UpdateQuickEntry handles PUT /api/v1/quick-entry; the whole draft is replaced and saved
func (h *Handlers) UpdateQuickEntry(c *gin.Context) {
	var req intake.QuickEntryDraft
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	draft, err := h.QuickEntry.Update(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, draft)
}

// ClearQuickEntry handles DELETE /quick-entry
func (h *Handlers) ClearQuickEntry(c *gin.Context) {
	if err := h.QuickEntry.Clear(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, h.QuickEntry.Get(c.Request.Context()))
}

// SubmitQuickEntry handles POST /api/v1/quick-entry/submit
func (h *Handlers) SubmitQuickEntry(c *gin.Context) {
	order, err := h.QuickEntry.Submit(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}
