package handler

import "nicepods-server/creation-service/internal/models"

type selectIntentRequest struct {
	Intent string `json:"intent" binding:"required"`
}

// setFieldsRequest - частичное обновление формы, ключи - имена полей формы.
type setFieldsRequest struct {
	Fields map[string]string `json:"fields" binding:"required,min=1"`
}

type jumpRequest struct {
	Step string `json:"step" binding:"required"`
}

type editDraftRequest struct {
	Title  *string `json:"title" validate:"omitempty,max=200"`
	Script string  `json:"script" validate:"required"`
}

type createCollectionRequest struct {
	models.CollectionHeader
	PodIDs []int64 `json:"pod_ids" validate:"required,min=1,dive,gt=0"`
}

type previewResponse struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}
