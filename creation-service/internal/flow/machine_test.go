package flow_test

import (
	"errors"
	"testing"

	"nicepods-server/creation-service/internal/flow"
	"nicepods-server/creation-service/internal/models"
	sharedModels "nicepods-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillStep заполняет обязательные поля шага тестовыми значениями.
func fillStep(t *testing.T, m *flow.Machine, step flow.Step) {
	t.Helper()
	for _, field := range flow.RequiredFields(step) {
		switch field {
		case flow.FieldIntent, flow.FieldLearnMode, flow.FieldFreestyleMode, flow.FieldFinalTitle, flow.FieldFinalScript:
			continue
		case flow.FieldSelectedNarrative:
			require.NoError(t, m.SetField(field, "Мост между темами"))
		default:
			require.NoError(t, m.SetField(field, "value-"+string(field)))
		}
	}
}

func applyDraft(f *flow.FormData) {
	f.FinalTitle = "Черновик"
	f.FinalScript = "Текст сценария"
	f.Sources = []models.ResearchSource{{Title: "src", URL: "https://example.org", Origin: models.OriginWeb}}
}

func applyNarratives(f *flow.FormData) {
	f.NarrativeOptions = []models.NarrativeOption{{Title: "Мост между темами", Thesis: "t"}}
}

// walk проходит маршрут до конца, разрешая генерации сразу.
func walk(t *testing.T, m *flow.Machine) []flow.Step {
	t.Helper()
	for m.Current() != flow.StepFinal {
		fillStep(t, m, m.Current())
		res, err := m.Advance()
		require.NoError(t, err, "advance from %s", m.Current())
		switch res.Generation {
		case flow.GenerationDraft:
			_, err = m.ResolveGeneration(res.Token, applyDraft)
			require.NoError(t, err)
		case flow.GenerationNarrative:
			_, err = m.ResolveGeneration(res.Token, applyNarratives)
			require.NoError(t, err)
		}
	}
	return m.History()
}

func TestEveryRouteReachesFinalStep(t *testing.T) {
	for _, intent := range flow.AllIntents {
		routes := flow.Routes(intent)
		require.NotEmpty(t, routes, "intent %s has no path", intent)

		for _, route := range routes {
			t.Run(string(intent)+"/"+route.Choice, func(t *testing.T) {
				m := flow.NewMachine(flow.Options{})
				_, err := m.SelectIntent(intent)
				require.NoError(t, err)
				if route.Choice != "" {
					field := flow.FieldLearnMode
					if intent == flow.IntentFreestyle {
						field = flow.FieldFreestyleMode
					}
					require.NoError(t, m.SetField(field, route.Choice))
				}

				history := walk(t, m)
				assert.Equal(t, flow.StepSelectingIntent, history[0])
				assert.Equal(t, route.Steps, history[1:])
				assert.Equal(t, flow.StepFinal, history[len(history)-1])
			})
		}
	}
}

func TestAdvanceBlockedByValidation(t *testing.T) {
	m := flow.NewMachine(flow.Options{})
	_, err := m.SelectIntent(flow.IntentReflect)
	require.NoError(t, err)

	_, err = m.Advance()
	var verrs flow.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "required", verrs[flow.FieldLegacyLesson])
	assert.Equal(t, flow.StepLegacy, m.Current())
	assert.Len(t, m.History(), 2)
}

func TestAdvanceWithoutIntent(t *testing.T) {
	m := flow.NewMachine(flow.Options{})
	_, err := m.Advance()
	assert.ErrorIs(t, err, sharedModels.ErrIntentNotSelected)
	assert.Equal(t, flow.StepSelectingIntent, m.Current())
}

func TestGoBack(t *testing.T) {
	t.Run("no-op on first path step", func(t *testing.T) {
		m := flow.NewMachine(flow.Options{})
		step, _ := m.GoBack()
		assert.Equal(t, flow.StepSelectingIntent, step)

		_, err := m.SelectIntent(flow.IntentAnswer)
		require.NoError(t, err)
		step, _ = m.GoBack()
		assert.Equal(t, flow.StepQuestion, step)
		assert.Len(t, m.History(), 2)
	})

	t.Run("pops without validating", func(t *testing.T) {
		m := flow.NewMachine(flow.Options{})
		_, err := m.SelectIntent(flow.IntentReflect)
		require.NoError(t, err)
		fillStep(t, m, flow.StepLegacy)
		_, err = m.Advance()
		require.NoError(t, err)
		require.Equal(t, flow.StepToneSelection, m.Current())

		require.NoError(t, m.SetField(flow.FieldLegacyLesson, ""))
		step, _ := m.GoBack()
		assert.Equal(t, flow.StepLegacy, step)
	})
}

func TestSelectIntentClearsIntentSpecificFields(t *testing.T) {
	m := flow.NewMachine(flow.Options{})
	_, err := m.SelectIntent(flow.IntentReflect)
	require.NoError(t, err)
	require.NoError(t, m.SetField(flow.FieldLegacyLesson, "урок"))
	require.NoError(t, m.SetField(flow.FieldDuration, "5 min"))
	require.NoError(t, m.SetField(flow.FieldVoiceStyle, "energetic"))

	path, err := m.SelectIntent(flow.IntentAnswer)
	require.NoError(t, err)
	assert.Equal(t, flow.StepQuestion, path.Steps[0])

	form := m.Form()
	assert.Empty(t, form.LegacyLesson)
	assert.Equal(t, "5 min", form.Duration)
	assert.Equal(t, "energetic", form.VoiceStyle)
	assert.Equal(t, flow.IntentAnswer, form.Purpose)
	assert.Equal(t, []flow.Step{flow.StepSelectingIntent, flow.StepQuestion}, m.History())
}

func TestSelectIntentSameIntentKeepsFields(t *testing.T) {
	m := flow.NewMachine(flow.Options{})
	_, err := m.SelectIntent(flow.IntentReflect)
	require.NoError(t, err)
	require.NoError(t, m.SetField(flow.FieldLegacyLesson, "урок"))

	_, err = m.SelectIntent(flow.IntentReflect)
	require.NoError(t, err)
	assert.Equal(t, "урок", m.Form().LegacyLesson)
}

func TestDisabledOptions(t *testing.T) {
	opts := flow.Options{
		DisabledIntents: []flow.Intent{flow.IntentInspire},
		DisabledChoices: map[flow.Field][]string{flow.FieldLearnMode: {flow.LearnDeep}},
	}

	m := flow.NewMachine(opts)
	_, err := m.SelectIntent(flow.IntentInspire)
	var verrs flow.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	_, err = m.SelectIntent(flow.IntentLearn)
	require.NoError(t, err)
	require.NoError(t, m.SetField(flow.FieldLearnMode, flow.LearnDeep))
	_, err = m.Advance()
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "option is disabled", verrs[flow.FieldLearnMode])

	err = m.JumpTo(flow.StepDeepResearch)
	assert.ErrorIs(t, err, sharedModels.ErrStepUnavailable)
	assert.Equal(t, flow.StepLearnSubSelection, m.Current())
}

func TestJumpTo(t *testing.T) {
	t.Run("branch target", func(t *testing.T) {
		m := flow.NewMachine(flow.Options{})
		_, err := m.SelectIntent(flow.IntentFreestyle)
		require.NoError(t, err)

		require.NoError(t, m.JumpTo(flow.StepLinkPoints))
		assert.Equal(t, flow.StepLinkPoints, m.Current())
		assert.Equal(t, flow.FreestyleLink, m.Form().FreestyleMode)
		assert.Contains(t, m.Route(), flow.StepNarrativeSelection)
	})

	t.Run("not from a branch step", func(t *testing.T) {
		m := flow.NewMachine(flow.Options{})
		_, err := m.SelectIntent(flow.IntentReflect)
		require.NoError(t, err)
		assert.ErrorIs(t, m.JumpTo(flow.StepFinal), sharedModels.ErrStepUnavailable)
	})

	t.Run("unknown target", func(t *testing.T) {
		m := flow.NewMachine(flow.Options{})
		_, err := m.SelectIntent(flow.IntentLearn)
		require.NoError(t, err)
		assert.ErrorIs(t, m.JumpTo(flow.StepScriptEditing), sharedModels.ErrStepUnavailable)
	})
}

func TestGenerationSubState(t *testing.T) {
	newAtDetails := func(t *testing.T) *flow.Machine {
		m := flow.NewMachine(flow.Options{})
		_, err := m.SelectIntent(flow.IntentAnswer)
		require.NoError(t, err)
		fillStep(t, m, flow.StepQuestion)
		_, err = m.Advance()
		require.NoError(t, err)
		require.Equal(t, flow.StepDetails, m.Current())
		fillStep(t, m, flow.StepDetails)
		return m
	}

	t.Run("advance waits for result", func(t *testing.T) {
		m := newAtDetails(t)
		res, err := m.Advance()
		require.NoError(t, err)
		assert.Equal(t, flow.GenerationDraft, res.Generation)
		assert.Equal(t, flow.StepDetails, m.Current())

		_, err = m.Advance()
		assert.ErrorIs(t, err, sharedModels.ErrGenerationInProgress)

		next, err := m.ResolveGeneration(res.Token, applyDraft)
		require.NoError(t, err)
		assert.Equal(t, flow.StepScriptEditing, next)
		assert.Equal(t, "Черновик", m.Form().FinalTitle)
	})

	t.Run("back cancels and stale result is dropped", func(t *testing.T) {
		m := newAtDetails(t)
		res, err := m.Advance()
		require.NoError(t, err)

		step, cancelled := m.GoBack()
		assert.Equal(t, flow.StepDetails, step)
		assert.Equal(t, flow.GenerationDraft, cancelled)

		_, err = m.ResolveGeneration(res.Token, applyDraft)
		assert.ErrorIs(t, err, flow.ErrStaleGeneration)
		assert.Empty(t, m.Form().FinalScript)
		assert.Equal(t, flow.StepDetails, m.Current())
	})

	t.Run("second run supersedes first", func(t *testing.T) {
		m := newAtDetails(t)
		first, err := m.Advance()
		require.NoError(t, err)
		assert.True(t, m.FailGeneration(first.Token))

		second, err := m.Advance()
		require.NoError(t, err)
		assert.NotEqual(t, first.Token, second.Token)

		_, err = m.ResolveGeneration(first.Token, applyDraft)
		assert.ErrorIs(t, err, flow.ErrStaleGeneration)
		_, err = m.ResolveGeneration(second.Token, applyDraft)
		assert.NoError(t, err)
	})

	t.Run("empty result keeps machine on source step", func(t *testing.T) {
		m := newAtDetails(t)
		res, err := m.Advance()
		require.NoError(t, err)
		_, err = m.ResolveGeneration(res.Token, func(*flow.FormData) {})
		assert.ErrorIs(t, err, sharedModels.ErrStepUnavailable)
		assert.Equal(t, flow.StepDetails, m.Current())
	})
}

func TestSnapshotRestore(t *testing.T) {
	m := flow.NewMachine(flow.Options{})
	_, err := m.SelectIntent(flow.IntentLearn)
	require.NoError(t, err)
	require.NoError(t, m.SetField(flow.FieldLearnMode, flow.LearnDeep))
	_, err = m.Advance()
	require.NoError(t, err)
	fillStep(t, m, flow.StepDeepResearch)

	state := m.Snapshot()

	restored := flow.NewMachine(flow.Options{})
	require.NoError(t, restored.Restore(state))
	assert.Equal(t, flow.StepDeepResearch, restored.Current())
	assert.Equal(t, m.History(), restored.History())
	assert.Equal(t, m.Form(), restored.Form())
	assert.Equal(t, m.Route(), restored.Route())

	t.Run("rejects history off the path", func(t *testing.T) {
		bad := state
		bad.StepHistory = []flow.Step{flow.StepSelectingIntent, flow.StepLearnSubSelection, flow.StepLegacy}
		bad.CurrentStep = flow.StepLegacy
		assert.ErrorIs(t, flow.NewMachine(flow.Options{}).Restore(bad), sharedModels.ErrInvalidInput)
	})

	t.Run("rejects mismatched current step", func(t *testing.T) {
		bad := state
		bad.CurrentStep = flow.StepFinal
		assert.ErrorIs(t, flow.NewMachine(flow.Options{}).Restore(bad), sharedModels.ErrInvalidInput)
	})
}

func TestSetFieldRejectsReadOnlyFields(t *testing.T) {
	m := flow.NewMachine(flow.Options{})
	assert.ErrorIs(t, m.SetField(flow.FieldIntent, "learn"), sharedModels.ErrInvalidInput)
	assert.ErrorIs(t, m.SetField(flow.FieldNarrativeOptions, "x"), sharedModels.ErrInvalidInput)
	assert.ErrorIs(t, m.SetField(flow.FieldForceAudio, "maybe"), sharedModels.ErrInvalidInput)
	assert.NoError(t, m.SetField(flow.FieldForceAudio, "true"))
	assert.True(t, m.Form().ForceAudio)
}

func TestSetFieldsIsAllOrNothing(t *testing.T) {
	m := flow.NewMachine(flow.Options{})
	_, err := m.SelectIntent(flow.IntentAnswer)
	require.NoError(t, err)
	require.NoError(t, m.SetField(flow.FieldDuration, "3 min"))

	err = m.SetFields(map[flow.Field]string{
		flow.FieldDuration:   "10 min",
		flow.FieldQuestion:   "Почему небо голубое?",
		flow.FieldForceAudio: "maybe",
	})
	assert.ErrorIs(t, err, sharedModels.ErrInvalidInput)
	assert.Equal(t, "3 min", m.Form().Duration)
	assert.Empty(t, m.Form().Question)

	require.NoError(t, m.SetFields(map[flow.Field]string{
		flow.FieldDuration: "10 min",
		flow.FieldQuestion: "Почему небо голубое?",
	}))
	assert.Equal(t, "10 min", m.Form().Duration)
	assert.Equal(t, "Почему небо голубое?", m.Form().Question)
}
