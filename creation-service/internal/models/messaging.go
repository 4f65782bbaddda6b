package models

import "github.com/google/uuid"

// ProductionTaskPayload - задача фонового производства аудио для опубликованного подкаста.
type ProductionTaskPayload struct {
	TaskID      string `json:"taskId"`
	UserID      string `json:"userId"`
	PodID       int64  `json:"podId"`
	VoiceGender string `json:"voiceGender"`
	VoiceStyle  string `json:"voiceStyle"`
	VoicePace   string `json:"voicePace"`
	ForceAudio  bool   `json:"generateAudioDirectly"`
}

// CacheInvalidationPayload - сигнал "эти представления устарели". Отправляется без подтверждения.
type CacheInvalidationPayload struct {
	Paths         []string `json:"paths"`
	Reason        string   `json:"reason"`
	UserID        string   `json:"userId,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
}

// PromotionRequest - данные финального шага для процедуры promote_draft_to_production.
type PromotionRequest struct {
	DraftID uuid.UUID        `json:"draft_id" validate:"required"`
	UserID  uuid.UUID        `json:"-"`
	Title   string           `json:"title" validate:"required,max=200"`
	Script  string           `json:"script" validate:"required"`
	Sources []ResearchSource `json:"sources" validate:"dive"`

	// Конфигурация голоса для задачи производства.
	VoiceGender string `json:"voice_gender"`
	VoiceStyle  string `json:"voice_style"`
	VoicePace   string `json:"voice_pace"`
	ForceAudio  bool   `json:"generate_audio_directly"`
}
