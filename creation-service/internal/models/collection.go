package models

import (
	"time"

	"github.com/google/uuid"
)

// CollectionHeader - родительская запись коллекции.
type CollectionHeader struct {
	Title         string  `json:"title" validate:"required,min=3,max=120"`
	Description   string  `json:"description" validate:"max=1000"`
	IsPublic      bool    `json:"is_public"`
	CoverImageURL *string `json:"cover_image_url,omitempty" validate:"omitempty,url"`
}

// Collection - коллекция в хранилище.
type Collection struct {
	ID            uuid.UUID `db:"id" json:"id"`
	OwnerID       uuid.UUID `db:"owner_id" json:"owner_id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	IsPublic      bool      `db:"is_public" json:"is_public"`
	CoverImageURL *string   `db:"cover_image_url" json:"cover_image_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CollectionItem - ссылка коллекции на опубликованный подкаст, с позицией.
type CollectionItem struct {
	CollectionID uuid.UUID `db:"collection_id" json:"collection_id"`
	PodID        int64     `db:"pod_id" json:"pod_id"`
	Position     int       `db:"position" json:"position"`
}
