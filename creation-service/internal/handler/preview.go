package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

// Сырой HTML в тексте сценария не пропускается (goldmark по умолчанию его экранирует).
var scriptMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Typographer),
)

// renderScript переводит markdown сценария в HTML.
func renderScript(script string) (string, error) {
	var buf bytes.Buffer
	if err := scriptMarkdown.Convert([]byte(script), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (h *CreationHandler) previewDraft(c *gin.Context) {
	w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	form := w.View().FormData
	if form.FinalScript == "" {
		c.AbortWithStatusJSON(http.StatusNotFound, APIError{Message: "No draft to preview"})
		return
	}
	html, err := renderScript(form.FinalScript)
	if err != nil {
		h.logger.Error("Failed to render script preview", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{Message: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, previewResponse{Title: form.FinalTitle, HTML: html})
}
