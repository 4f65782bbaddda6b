package flow

import (
	"fmt"
	"strconv"
	"strings"

	"nicepods-server/creation-service/internal/models"
)

// Field - имя поля формы мастера.
type Field string

const (
	FieldIntent            Field = "purpose"
	FieldLearnMode         Field = "learnMode"
	FieldFreestyleMode     Field = "freestyleMode"
	FieldTopic             Field = "soloTopic"
	FieldMotivation        Field = "soloMotivation"
	FieldArchetype         Field = "selectedArchetype"
	FieldArchetypeTopic    Field = "archetypeTopic"
	FieldArchetypeGoal     Field = "archetypeGoal"
	FieldLinkTopicA        Field = "linkTopicA"
	FieldLinkTopicB        Field = "linkTopicB"
	FieldLinkCatalyst      Field = "linkCatalyst"
	FieldNarrativeOptions  Field = "narrativeOptions"
	FieldSelectedNarrative Field = "selectedNarrative"
	FieldLegacyLesson      Field = "legacyLesson"
	FieldQuestion          Field = "question"
	FieldTone              Field = "selectedTone"
	FieldDuration          Field = "duration"
	FieldDepth             Field = "narrativeDepth"
	FieldVoiceGender       Field = "voiceGender"
	FieldVoiceStyle        Field = "voiceStyle"
	FieldVoicePace         Field = "voicePace"
	FieldFinalTitle        Field = "finalTitle"
	FieldFinalScript       Field = "finalScript"
	FieldSources           Field = "sources"
	FieldForceAudio        Field = "generateAudioDirectly"
	FieldDraftID           Field = "draftId"
)

// Варианты ветвящихся шагов.
const (
	LearnQuick    = "quick"
	LearnDeep     = "deep"
	FreestyleSolo = "solo"
	FreestyleLink = "link"
)

// FormData - общие данные формы всех путей.
// Владелец - Machine, шаги получают доступ только через нее.
type FormData struct {
	Purpose           Intent                   `json:"purpose,omitempty"`
	LearnMode         string                   `json:"learnMode,omitempty"`
	FreestyleMode     string                   `json:"freestyleMode,omitempty"`
	SoloTopic         string                   `json:"soloTopic,omitempty"`
	SoloMotivation    string                   `json:"soloMotivation,omitempty"`
	SelectedArchetype string                   `json:"selectedArchetype,omitempty"`
	ArchetypeTopic    string                   `json:"archetypeTopic,omitempty"`
	ArchetypeGoal     string                   `json:"archetypeGoal,omitempty"`
	LinkTopicA        string                   `json:"linkTopicA,omitempty"`
	LinkTopicB        string                   `json:"linkTopicB,omitempty"`
	LinkCatalyst      string                   `json:"linkCatalyst,omitempty"`
	NarrativeOptions  []models.NarrativeOption `json:"narrativeOptions,omitempty"`
	SelectedNarrative string                   `json:"selectedNarrative,omitempty"`
	LegacyLesson      string                   `json:"legacyLesson,omitempty"`
	Question          string                   `json:"question,omitempty"`
	SelectedTone      string                   `json:"selectedTone,omitempty"`

	// Общие поля, переживают смену намерения.
	Duration       string `json:"duration,omitempty"`
	NarrativeDepth string `json:"narrativeDepth,omitempty"`
	VoiceGender    string `json:"voiceGender,omitempty"`
	VoiceStyle     string `json:"voiceStyle,omitempty"`
	VoicePace      string `json:"voicePace,omitempty"`
	ForceAudio     bool   `json:"generateAudioDirectly"`

	// Результат генерации.
	FinalTitle  string                  `json:"finalTitle,omitempty"`
	FinalScript string                  `json:"finalScript,omitempty"`
	Sources     []models.ResearchSource `json:"sources,omitempty"`
	DraftID     string                  `json:"draftId,omitempty"`
}

// NewFormData возвращает форму с умолчаниями голосовой конфигурации.
func NewFormData() FormData {
	return FormData{
		VoiceGender: "female",
		VoiceStyle:  "calm",
		VoicePace:   "moderate",
	}
}

// Clone возвращает независимую копию.
func (f FormData) Clone() FormData {
	out := f
	if f.NarrativeOptions != nil {
		out.NarrativeOptions = append([]models.NarrativeOption(nil), f.NarrativeOptions...)
	}
	if f.Sources != nil {
		out.Sources = append([]models.ResearchSource(nil), f.Sources...)
	}
	return out
}

// resetIntentSpecific очищает все поля, кроме общих.
func (f *FormData) resetIntentSpecific() {
	*f = FormData{
		Duration:       f.Duration,
		NarrativeDepth: f.NarrativeDepth,
		VoiceGender:    f.VoiceGender,
		VoiceStyle:     f.VoiceStyle,
		VoicePace:      f.VoicePace,
		ForceAudio:     f.ForceAudio,
	}
}

// Filled сообщает, заполнено ли поле.
func (f *FormData) Filled(field Field) bool {
	switch field {
	case FieldNarrativeOptions:
		return len(f.NarrativeOptions) > 0
	case FieldSources:
		return len(f.Sources) > 0
	case FieldForceAudio:
		return true
	}
	v, ok := f.text(field)
	return ok && strings.TrimSpace(v) != ""
}

// Value возвращает строковое значение поля.
func (f *FormData) Value(field Field) string {
	if field == FieldForceAudio {
		return strconv.FormatBool(f.ForceAudio)
	}
	v, _ := f.text(field)
	return v
}

// text возвращает значение текстового поля и признак того, что поле текстовое.
func (f *FormData) text(field Field) (string, bool) {
	switch field {
	case FieldIntent:
		return string(f.Purpose), true
	case FieldLearnMode:
		return f.LearnMode, true
	case FieldFreestyleMode:
		return f.FreestyleMode, true
	case FieldTopic:
		return f.SoloTopic, true
	case FieldMotivation:
		return f.SoloMotivation, true
	case FieldArchetype:
		return f.SelectedArchetype, true
	case FieldArchetypeTopic:
		return f.ArchetypeTopic, true
	case FieldArchetypeGoal:
		return f.ArchetypeGoal, true
	case FieldLinkTopicA:
		return f.LinkTopicA, true
	case FieldLinkTopicB:
		return f.LinkTopicB, true
	case FieldLinkCatalyst:
		return f.LinkCatalyst, true
	case FieldSelectedNarrative:
		return f.SelectedNarrative, true
	case FieldLegacyLesson:
		return f.LegacyLesson, true
	case FieldQuestion:
		return f.Question, true
	case FieldTone:
		return f.SelectedTone, true
	case FieldDuration:
		return f.Duration, true
	case FieldDepth:
		return f.NarrativeDepth, true
	case FieldVoiceGender:
		return f.VoiceGender, true
	case FieldVoiceStyle:
		return f.VoiceStyle, true
	case FieldVoicePace:
		return f.VoicePace, true
	case FieldFinalTitle:
		return f.FinalTitle, true
	case FieldFinalScript:
		return f.FinalScript, true
	case FieldDraftID:
		return f.DraftID, true
	}
	return "", false
}

// set присваивает значение редактируемому полю.
// purpose, сгенерированные списки и draftId через set не меняются.
func (f *FormData) set(field Field, value string) error {
	switch field {
	case FieldLearnMode:
		f.LearnMode = value
	case FieldFreestyleMode:
		f.FreestyleMode = value
	case FieldTopic:
		f.SoloTopic = value
	case FieldMotivation:
		f.SoloMotivation = value
	case FieldArchetype:
		f.SelectedArchetype = value
	case FieldArchetypeTopic:
		f.ArchetypeTopic = value
	case FieldArchetypeGoal:
		f.ArchetypeGoal = value
	case FieldLinkTopicA:
		f.LinkTopicA = value
	case FieldLinkTopicB:
		f.LinkTopicB = value
	case FieldLinkCatalyst:
		f.LinkCatalyst = value
	case FieldSelectedNarrative:
		f.SelectedNarrative = value
	case FieldLegacyLesson:
		f.LegacyLesson = value
	case FieldQuestion:
		f.Question = value
	case FieldTone:
		f.SelectedTone = value
	case FieldDuration:
		f.Duration = value
	case FieldDepth:
		f.NarrativeDepth = value
	case FieldVoiceGender:
		f.VoiceGender = value
	case FieldVoiceStyle:
		f.VoiceStyle = value
	case FieldVoicePace:
		f.VoicePace = value
	case FieldFinalTitle:
		f.FinalTitle = value
	case FieldFinalScript:
		f.FinalScript = value
	case FieldForceAudio:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("field %s expects a boolean: %w", field, err)
		}
		f.ForceAudio = b
	default:
		return fmt.Errorf("field %q is not editable", field)
	}
	return nil
}
