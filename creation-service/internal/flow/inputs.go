package flow

import (
	"strings"

	"nicepods-server/creation-service/internal/models"
)

// DraftInputs собирает из формы нормализованные входные данные генерации.
// Тема и мотивация берутся из полей того пути, по которому шел пользователь.
func DraftInputs(f FormData) models.DraftInputs {
	in := models.DraftInputs{
		Intent:   string(f.Purpose),
		Tone:     clean(f.SelectedTone),
		Duration: clean(f.Duration),
		Depth:    clean(f.NarrativeDepth),
	}
	switch f.Purpose {
	case IntentInspire:
		in.Topic = clean(f.ArchetypeTopic)
		in.Motivation = clean(f.ArchetypeGoal)
		in.Archetype = clean(f.SelectedArchetype)
	case IntentReflect:
		in.Topic = clean(f.LegacyLesson)
	case IntentAnswer:
		in.Topic = clean(f.Question)
	case IntentExplore:
		in.Topic = linkTopic(f)
		in.Narrative = clean(f.SelectedNarrative)
	case IntentFreestyle:
		if f.FreestyleMode == FreestyleLink {
			in.Topic = linkTopic(f)
			in.Narrative = clean(f.SelectedNarrative)
		} else {
			in.Topic = clean(f.SoloTopic)
			in.Motivation = clean(f.SoloMotivation)
		}
	default:
		in.Topic = clean(f.SoloTopic)
		in.Motivation = clean(f.SoloMotivation)
		in.DeepResearch = f.LearnMode == LearnDeep
	}
	return in
}

// NarrativeRequest собирает входные данные генерации вариантов повествования.
func NarrativeRequest(f FormData) models.NarrativeRequest {
	return models.NarrativeRequest{
		TopicA:   clean(f.LinkTopicA),
		TopicB:   clean(f.LinkTopicB),
		Catalyst: clean(f.LinkCatalyst),
	}
}

func linkTopic(f FormData) string {
	return clean(f.LinkTopicA) + " + " + clean(f.LinkTopicB)
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
