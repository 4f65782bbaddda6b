package handler

import (
	"fmt"
	"net/http"

	sharedModels "nicepods-server/shared/models"

	"github.com/gin-gonic/gin"
)

func (h *CreationHandler) createCollection(c *gin.Context) {
	if _, ok := getUserID(c); !ok {
		return
	}
	var req createCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", sharedModels.ErrBadRequest, err), h.logger)
		return
	}
	if len(req.PodIDs) == 0 {
		handleServiceError(c, sharedModels.ErrEmptyCollection, h.logger)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", sharedModels.ErrInvalidInput, err), h.logger)
		return
	}
	result := h.collections.CreateCollection(c.Request.Context(), req.CollectionHeader, req.PodIDs)
	writeActionResult(c, result, http.StatusCreated)
}
