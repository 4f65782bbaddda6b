package flow

// Step - идентификатор экрана мастера.
type Step string

const (
	StepSelectingIntent    Step = "SELECTING_INTENT"
	StepLearnSubSelection  Step = "LEARN_SUB_SELECTION"
	StepFreestyleSelection Step = "FREESTYLE_SELECTION"
	StepSoloTalk           Step = "SOLO_TALK_STEP"
	StepDeepResearch       Step = "DEEP_RESEARCH_STEP"
	StepArchetypeSelection Step = "ARCHETYPE_SELECTION"
	StepArchetypeInput     Step = "ARCHETYPE_INPUT"
	StepLinkPoints         Step = "LINK_POINTS"
	StepNarrativeSelection Step = "NARRATIVE_SELECTION"
	StepLegacy             Step = "LEGACY_STEP"
	StepQuestion           Step = "QUESTION_STEP"
	StepToneSelection      Step = "TONE_SELECTION"
	StepDetails            Step = "DETAILS_STEP"
	StepScriptEditing      Step = "SCRIPT_EDITING"
	StepAudioStudio        Step = "AUDIO_STUDIO"
	StepFinal              Step = "FINAL_STEP"
)

// GenerationKind - внешняя операция, запускаемая при выходе с шага.
type GenerationKind string

const (
	GenerationNone      GenerationKind = ""
	GenerationDraft     GenerationKind = "draft"
	GenerationNarrative GenerationKind = "narrative_options"
)

// requiredFields - статический список обязательных полей шага.
var requiredFields = map[Step][]Field{
	StepSelectingIntent:    {FieldIntent},
	StepLearnSubSelection:  {FieldLearnMode},
	StepFreestyleSelection: {FieldFreestyleMode},
	StepSoloTalk:           {FieldTopic, FieldMotivation},
	StepDeepResearch:       {FieldTopic, FieldMotivation},
	StepArchetypeSelection: {FieldArchetype},
	StepArchetypeInput:     {FieldArchetypeTopic, FieldArchetypeGoal},
	StepLinkPoints:         {FieldLinkTopicA, FieldLinkTopicB},
	StepNarrativeSelection: {FieldSelectedNarrative},
	StepLegacy:             {FieldLegacyLesson},
	StepQuestion:           {FieldQuestion},
	StepToneSelection:      {FieldTone},
	StepDetails:            {FieldDuration, FieldDepth},
	StepScriptEditing:      {FieldFinalTitle, FieldFinalScript},
	StepAudioStudio:        {FieldVoiceGender, FieldVoiceStyle, FieldVoicePace},
	StepFinal:              {FieldFinalTitle, FieldFinalScript},
}

// prerequisites - поля, без которых в шаг нельзя попасть никаким переходом.
var prerequisites = map[Step][]Field{
	StepNarrativeSelection: {FieldNarrativeOptions},
	StepScriptEditing:      {FieldFinalScript},
	StepAudioStudio:        {FieldFinalScript},
	StepFinal:              {FieldFinalTitle, FieldFinalScript},
}

// generationTriggers - шаги, выход с которых запускает внешнюю генерацию.
var generationTriggers = map[Step]GenerationKind{
	StepLinkPoints: GenerationNarrative,
	StepDetails:    GenerationDraft,
}

// branch описывает шаг-развилку: поле выбора и вариант маршрута для каждого значения.
type branch struct {
	field   Field
	choices map[string]Step // значение -> первый шаг ветки
}

var branches = map[Step]branch{
	StepLearnSubSelection: {
		field:   FieldLearnMode,
		choices: map[string]Step{LearnQuick: StepSoloTalk, LearnDeep: StepDeepResearch},
	},
	StepFreestyleSelection: {
		field:   FieldFreestyleMode,
		choices: map[string]Step{FreestyleSolo: StepSoloTalk, FreestyleLink: StepLinkPoints},
	},
}

// Route - вариант пути намерения. Choice пуст для неветвящихся намерений.
type Route struct {
	Choice string
	Steps  []Step
}

// FlowPath - упорядоченная последовательность шагов намерения после выбора намерения.
type FlowPath struct {
	Intent Intent
	Steps  []Step
}

// sharedTail - общие шаги, в которых сходятся все пути.
func sharedTail(withTone bool) []Step {
	tail := []Step{StepDetails, StepScriptEditing, StepAudioStudio, StepFinal}
	if withTone {
		return append([]Step{StepToneSelection}, tail...)
	}
	return tail
}

func join(head []Step, tail []Step) []Step {
	return append(append([]Step(nil), head...), tail...)
}

// Routes возвращает все варианты пути намерения; первый - маршрут по умолчанию.
// switch исчерпывающий по Intent, новое намерение без маршрута ловится тестом таблицы путей.
func Routes(intent Intent) []Route {
	switch intent {
	case IntentLearn:
		return []Route{
			{Choice: LearnQuick, Steps: join([]Step{StepLearnSubSelection, StepSoloTalk}, sharedTail(true))},
			{Choice: LearnDeep, Steps: join([]Step{StepLearnSubSelection, StepDeepResearch}, sharedTail(true))},
		}
	case IntentInspire:
		return []Route{{Steps: join([]Step{StepArchetypeSelection, StepArchetypeInput}, sharedTail(false))}}
	case IntentExplore:
		return []Route{{Steps: join([]Step{StepLinkPoints, StepNarrativeSelection}, sharedTail(true))}}
	case IntentReflect:
		return []Route{{Steps: join([]Step{StepLegacy}, sharedTail(true))}}
	case IntentAnswer:
		return []Route{{Steps: join([]Step{StepQuestion}, sharedTail(false))}}
	case IntentFreestyle:
		return []Route{
			{Choice: FreestyleSolo, Steps: join([]Step{StepFreestyleSelection, StepSoloTalk}, sharedTail(true))},
			{Choice: FreestyleLink, Steps: join([]Step{StepFreestyleSelection, StepLinkPoints, StepNarrativeSelection}, sharedTail(true))},
		}
	}
	return nil
}

// RequiredFields возвращает копию списка обязательных полей шага.
func RequiredFields(step Step) []Field {
	return append([]Field(nil), requiredFields[step]...)
}

// knownStep сообщает, объявлен ли шаг.
func knownStep(step Step) bool {
	_, ok := requiredFields[step]
	return ok
}
