package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceOrigin различает курируемые знания и свежий веб-контент.
type SourceOrigin string

const (
	OriginVault SourceOrigin = "vault" // Внутренняя база знаний
	OriginWeb   SourceOrigin = "web"   // Свежий поиск в сети
)

// ResearchSource - источник, найденный при генерации черновика.
// Хранится без изменений вплоть до production-записи.
type ResearchSource struct {
	Title   string       `json:"title" validate:"required"`
	URL     string       `json:"url" validate:"required"`
	Snippet string       `json:"snippet,omitempty"`
	Content string       `json:"content,omitempty"`
	Origin  SourceOrigin `json:"origin" validate:"oneof=vault web"`
}

// NarrativeOption - вариант повествования, связывающий две темы (ветка explore/link).
type NarrativeOption struct {
	Title  string `json:"title"`
	Thesis string `json:"thesis"`
}

// DraftContent - результат успешной генерации.
type DraftContent struct {
	Title   string           `json:"title"`
	Script  string           `json:"script"`
	Sources []ResearchSource `json:"sources"`
}

// DraftRecord - приватная запись черновика во внешнем хранилище.
type DraftRecord struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	UserID    uuid.UUID        `db:"user_id" json:"user_id"`
	Title     string           `db:"title" json:"title"`
	Script    string           `db:"script_text" json:"script"`
	Sources   []ResearchSource `db:"sources" json:"sources"`
	Inputs    []byte           `db:"creation_data" json:"-"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// PromotionOutcome - структурированный ответ атомарной процедуры promote_draft_to_production.
type PromotionOutcome struct {
	Success     bool   `db:"success" json:"success"`
	Message     string `db:"message" json:"message"`
	NewRecordID *int64 `db:"new_record_id" json:"new_record_id,omitempty"`
}

// DraftInputs - нормализованные входные данные генерации черновика.
type DraftInputs struct {
	Intent       string `json:"intent"`
	Topic        string `json:"topic"`
	Motivation   string `json:"motivation,omitempty"`
	Tone         string `json:"tone,omitempty"`
	Archetype    string `json:"archetype,omitempty"`
	Narrative    string `json:"narrative,omitempty"`
	Duration     string `json:"duration"`
	Depth        string `json:"depth"`
	DeepResearch bool   `json:"deep_research"`
}

// NarrativeRequest - входные данные генерации вариантов повествования.
type NarrativeRequest struct {
	TopicA   string `json:"topic_a"`
	TopicB   string `json:"topic_b"`
	Catalyst string `json:"catalyst,omitempty"`
}
