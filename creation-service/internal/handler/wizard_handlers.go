package handler

import (
	"fmt"
	"net/http"

	"nicepods-server/creation-service/internal/flow"
	sharedModels "nicepods-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *CreationHandler) getWizard(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w.View())
}

func (h *CreationHandler) resetWizard(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w.Reset(c.Request.Context()))
}

func (h *CreationHandler) probeRecovery(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	rec, err := w.ProbeRecovery(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	if rec == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *CreationHandler) resumeRecovery(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	view, err := w.Resume(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CreationHandler) discardRecovery(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	if err := w.DiscardRecovery(c.Request.Context()); err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CreationHandler) selectIntent(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	var req selectIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", sharedModels.ErrBadRequest, err), h.logger)
		return
	}
	intent, err := flow.ParseIntent(req.Intent)
	if err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", sharedModels.ErrBadRequest, err), h.logger)
		return
	}
	view, err := w.SelectIntent(c.Request.Context(), intent)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CreationHandler) setFields(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	var req setFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", sharedModels.ErrBadRequest, err), h.logger)
		return
	}

	values := make(map[flow.Field]string, len(req.Fields))
	for name, value := range req.Fields {
		values[flow.Field(name)] = value
	}
	view, err := w.SetFields(values)
	if err != nil {
		h.logger.Debug("Fields rejected", zap.Int("fields", len(values)), zap.Error(err))
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CreationHandler) advance(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	view, err := w.Advance(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	status := http.StatusOK
	if view.Generating != flow.GenerationNone {
		status = http.StatusAccepted
	}
	c.JSON(status, view)
}

func (h *CreationHandler) goBack(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w.GoBack(c.Request.Context()))
}

func (h *CreationHandler) jump(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	var req jumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", sharedModels.ErrBadRequest, err), h.logger)
		return
	}
	view, err := w.JumpTo(c.Request.Context(), flow.Step(req.Step))
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CreationHandler) getProgress(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w.Progress())
}

func (h *CreationHandler) editDraft(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	var req editDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", sharedModels.ErrBadRequest, err), h.logger)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", sharedModels.ErrInvalidInput, err), h.logger)
		return
	}
	view, err := w.EditDraft(c.Request.Context(), req.Title, req.Script)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CreationHandler) submit(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	result, err := w.Submit(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	writeActionResult(c, result, http.StatusCreated)
}
