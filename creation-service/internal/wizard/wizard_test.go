package wizard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"nicepods-server/creation-service/internal/draft"
	"nicepods-server/creation-service/internal/flow"
	"nicepods-server/creation-service/internal/mocks"
	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/session"
	"nicepods-server/creation-service/internal/wizard"
	sharedModels "nicepods-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const question = "Почему небо голубое?"

type fixture struct {
	userID     uuid.UUID
	store      *session.MemoryStore
	generator  *mocks.MockDraftGenerator
	repo       *mocks.MockDraftRepository
	narratives *mocks.MockNarrativeGenerator
	promoter   *mocks.MockPromoter
	cfg        wizard.Config
	wizard     *wizard.Wizard
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		userID:     uuid.New(),
		store:      session.NewMemoryStore(time.Hour, time.Now, zap.NewNop()),
		generator:  mocks.NewMockDraftGenerator(t),
		repo:       mocks.NewMockDraftRepository(t),
		narratives: mocks.NewMockNarrativeGenerator(t),
		promoter:   mocks.NewMockPromoter(t),
		cfg:        wizard.Config{AutosaveDelay: 10 * time.Millisecond, GenerationTimeout: time.Second},
	}
	f.wizard = wizard.New(f.userID, f.cfg, f.deps(), zap.NewNop())
	return f
}

func (f *fixture) deps() wizard.Dependencies {
	return wizard.Dependencies{
		Store:      f.store,
		Drafts:     f.repo,
		Generator:  f.generator,
		Narratives: f.narratives,
		Promoter:   f.promoter,
	}
}

func draftContent() *models.DraftContent {
	return &models.DraftContent{
		Title:   "Рассеяние Рэлея",
		Script:  "Солнечный свет рассеивается в атмосфере...",
		Sources: []models.ResearchSource{{Title: "Физика", URL: "https://physics.example", Origin: models.OriginVault}},
	}
}

// toDetails проходит путь answer до шага DETAILS с заполненными полями.
func toDetails(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	_, err := f.wizard.SelectIntent(ctx, flow.IntentAnswer)
	require.NoError(t, err)
	_, err = f.wizard.SetField(flow.FieldQuestion, question)
	require.NoError(t, err)
	view, err := f.wizard.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, flow.StepDetails, view.CurrentStep)
	_, err = f.wizard.SetField(flow.FieldDuration, "5 min")
	require.NoError(t, err)
	_, err = f.wizard.SetField(flow.FieldDepth, "medium")
	require.NoError(t, err)
}

// readyDraft доводит мастер до SCRIPT_EDITING с готовым черновиком.
func readyDraft(t *testing.T, f *fixture) uuid.UUID {
	t.Helper()
	toDetails(t, f)
	recordID := uuid.New()

	f.generator.On("GenerateDraft", mock.Anything, mock.MatchedBy(func(in models.DraftInputs) bool {
		return in.Topic == question && in.Duration == "5 min"
	})).Return(draftContent(), nil).Once()
	f.repo.On("CreateDraft", mock.Anything, mock.AnythingOfType("*models.DraftRecord")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.DraftRecord).ID = recordID }).
		Return(nil).Once()

	view, err := f.wizard.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flow.StepDetails, view.CurrentStep, "machine waits on the source step")
	assert.Equal(t, flow.GenerationDraft, view.Generating)

	require.Eventually(t, func() bool {
		return f.wizard.View().CurrentStep == flow.StepScriptEditing
	}, time.Second, 5*time.Millisecond)
	return recordID
}

func TestAnswerPathEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recordID := readyDraft(t, f)

	view := f.wizard.View()
	assert.Equal(t, "Рассеяние Рэлея", view.FormData.FinalTitle)
	assert.Equal(t, recordID.String(), view.FormData.DraftID)
	assert.Len(t, view.FormData.Sources, 1)
	assert.Equal(t, draft.StateReady, view.Draft.State)
	assert.Equal(t, 100.0, view.Progress.Progress)

	stored, err := f.store.Load(ctx, f.userID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, flow.StepScriptEditing, stored.CurrentStep)

	title := "Почему небо синее"
	f.repo.On("UpdateDraft", mock.Anything, mock.MatchedBy(func(rec *models.DraftRecord) bool {
		return rec.ID == recordID && rec.Title == title
	})).Return(nil).Once()
	view, err = f.wizard.EditDraft(ctx, &title, "Исправленный текст")
	require.NoError(t, err)
	assert.Equal(t, "Исправленный текст", view.FormData.FinalScript)
	assert.Equal(t, draft.StateEditing, view.Draft.State)

	view, err = f.wizard.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, flow.StepAudioStudio, view.CurrentStep)
	view, err = f.wizard.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, flow.StepFinal, view.CurrentStep)

	f.promoter.On("PromoteDraft",
		mock.MatchedBy(func(ctx context.Context) bool {
			id, ok := sharedModels.GetUserIDFromContext(ctx)
			return ok && id == f.userID
		}),
		mock.MatchedBy(func(req models.PromotionRequest) bool {
			return req.DraftID == recordID && req.Title == title && req.Script == "Исправленный текст" &&
				len(req.Sources) == 1 && req.VoiceGender == "female"
		}),
	).Return(sharedModels.Succeeded("podcast submitted for production", map[string]interface{}{"pod_id": int64(5)})).Once()

	result, err := f.wizard.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)

	view = f.wizard.View()
	assert.Equal(t, flow.StepSelectingIntent, view.CurrentStep)
	assert.Equal(t, draft.StateEmpty, view.Draft.State)

	stored, err = f.store.Load(ctx, f.userID)
	require.NoError(t, err)
	assert.Nil(t, stored, "session is discarded after promotion")
}

func TestSubmitFailureKeepsDraftAndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	readyDraft(t, f)

	_, err := f.wizard.Submit(ctx)
	assert.ErrorIs(t, err, sharedModels.ErrStepUnavailable)

	for i := 0; i < 2; i++ {
		_, err = f.wizard.Advance(ctx)
		require.NoError(t, err)
	}
	f.promoter.On("PromoteDraft", mock.Anything, mock.Anything).
		Return(sharedModels.Failed("could not publish the podcast, please try again")).Once()

	result, err := f.wizard.Submit(ctx)
	require.NoError(t, err)
	assert.False(t, result.Success)

	view := f.wizard.View()
	assert.Equal(t, flow.StepFinal, view.CurrentStep)
	assert.Equal(t, draft.StateReady, view.Draft.State)

	stored, err := f.store.Load(ctx, f.userID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestGoBackDuringGenerationDropsLateResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	toDetails(t, f)

	started := make(chan struct{})
	release := make(chan struct{})
	f.generator.On("GenerateDraft", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(started); <-release }).
		Return(draftContent(), nil).Once()

	_, err := f.wizard.Advance(ctx)
	require.NoError(t, err)
	<-started

	view := f.wizard.GoBack(ctx)
	assert.Equal(t, flow.StepDetails, view.CurrentStep, "back during generation only cancels it")
	assert.Empty(t, view.Generating)
	assert.False(t, view.Progress.Running)

	close(release)
	assert.Never(t, func() bool {
		v := f.wizard.View()
		return v.CurrentStep != flow.StepDetails || v.FormData.FinalScript != ""
	}, 50*time.Millisecond, 5*time.Millisecond)

	view = f.wizard.GoBack(ctx)
	assert.Equal(t, flow.StepQuestion, view.CurrentStep)
	view = f.wizard.GoBack(ctx)
	assert.Equal(t, flow.StepQuestion, view.CurrentStep, "cannot go back past the first path step")
}

func TestDraftFailureKeepsInputs(t *testing.T) {
	f := newFixture(t)
	toDetails(t, f)

	f.generator.On("GenerateDraft", mock.Anything, mock.Anything).Return(nil, errors.New("upstream 503")).Once()
	_, err := f.wizard.Advance(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v := f.wizard.View()
		return v.Generating == flow.GenerationNone && v.LastError != ""
	}, time.Second, 5*time.Millisecond)

	view := f.wizard.View()
	assert.Equal(t, flow.StepDetails, view.CurrentStep)
	assert.Equal(t, "5 min", view.FormData.Duration)
	assert.NotContains(t, view.LastError, "503")
	assert.Equal(t, draft.StateEmpty, view.Draft.State)
}

func TestNarrativeGeneration(t *testing.T) {
	toLinkPoints := func(t *testing.T, f *fixture) {
		t.Helper()
		_, err := f.wizard.SelectIntent(context.Background(), flow.IntentExplore)
		require.NoError(t, err)
		_, err = f.wizard.SetField(flow.FieldLinkTopicA, "Джаз")
		require.NoError(t, err)
		_, err = f.wizard.SetField(flow.FieldLinkTopicB, "Математика")
		require.NoError(t, err)
	}

	t.Run("options advance to selection", func(t *testing.T) {
		f := newFixture(t)
		toLinkPoints(t, f)
		f.narratives.On("GenerateNarrativeOptions", mock.Anything, models.NarrativeRequest{TopicA: "Джаз", TopicB: "Математика"}).
			Return([]models.NarrativeOption{{Title: "Импровизация как доказательство"}}, nil).Once()

		view, err := f.wizard.Advance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, flow.GenerationNarrative, view.Generating)

		require.Eventually(t, func() bool {
			return f.wizard.View().CurrentStep == flow.StepNarrativeSelection
		}, time.Second, 5*time.Millisecond)
		assert.True(t, f.wizard.Progress().Done)
		assert.Len(t, f.wizard.View().FormData.NarrativeOptions, 1)
	})

	t.Run("empty result stays on topics", func(t *testing.T) {
		f := newFixture(t)
		toLinkPoints(t, f)
		f.narratives.On("GenerateNarrativeOptions", mock.Anything, mock.Anything).Return([]models.NarrativeOption{}, nil).Once()

		_, err := f.wizard.Advance(context.Background())
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			v := f.wizard.View()
			return v.Generating == flow.GenerationNone && v.LastError != ""
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, flow.StepLinkPoints, f.wizard.View().CurrentStep)
	})
}

func TestRecoveryRequiresExplicitChoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recordID := readyDraft(t, f)

	// Новый экземпляр мастера того же пользователя (перезагрузка страницы).
	fresh := wizard.New(f.userID, f.cfg, f.deps(), zap.NewNop())
	rec, err := fresh.ProbeRecovery(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, flow.IntentAnswer, rec.Intent)
	assert.Equal(t, flow.StepScriptEditing, rec.CurrentStep)
	assert.True(t, rec.HasDraft)
	assert.Equal(t, flow.StepSelectingIntent, fresh.View().CurrentStep, "probe does not mutate live state")

	view, err := fresh.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, flow.StepScriptEditing, view.CurrentStep)
	assert.Equal(t, draft.StateEditing, view.Draft.State)
	assert.Equal(t, recordID, view.Draft.RecordID)
	assert.Equal(t, f.wizard.View().FormData.FinalScript, view.FormData.FinalScript)
	assert.Equal(t, "5 min", view.FormData.Duration)

	f.repo.On("DeleteDraft", mock.Anything, f.userID, recordID).Return(nil).Once()
	require.NoError(t, fresh.DiscardRecovery(ctx))

	rec, err = fresh.ProbeRecovery(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
	_, err = fresh.Resume(ctx)
	assert.ErrorIs(t, err, sharedModels.ErrNoPendingSession)
}

func TestResumeDiscardsLiveDraftOfAnotherSession(t *testing.T) {
	t.Run("foreign live draft is deleted", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		liveID := readyDraft(t, f)

		stored, err := f.store.Load(ctx, f.userID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		savedID := uuid.New()
		stored.FormData.DraftID = savedID.String()
		require.NoError(t, f.store.Save(ctx, f.userID, *stored))

		f.repo.On("DeleteDraft", mock.Anything, f.userID, liveID).Return(nil).Once()
		view, err := f.wizard.Resume(ctx)
		require.NoError(t, err)
		assert.Equal(t, savedID, view.Draft.RecordID)
		assert.Equal(t, draft.StateEditing, view.Draft.State)
	})

	t.Run("same draft is kept", func(t *testing.T) {
		f := newFixture(t)
		recordID := readyDraft(t, f)

		// DeleteDraft не ожидается: строгий мок упадет на лишнем вызове.
		view, err := f.wizard.Resume(context.Background())
		require.NoError(t, err)
		assert.Equal(t, recordID, view.Draft.RecordID)
	})
}

func TestSetFieldsRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wizard.SelectIntent(ctx, flow.IntentAnswer)
	require.NoError(t, err)

	_, err = f.wizard.SetFields(map[flow.Field]string{
		flow.FieldDuration:   "5 min",
		flow.FieldFinalTitle: "вручную",
	})
	assert.ErrorIs(t, err, sharedModels.ErrInvalidInput)
	assert.Empty(t, f.wizard.View().FormData.Duration)

	// Пакет не применился, поэтому и сохранять нечего сверх снимка после выбора намерения.
	before, err := f.store.Load(ctx, f.userID)
	require.NoError(t, err)
	time.Sleep(3 * f.cfg.AutosaveDelay)
	after, err := f.store.Load(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, before.Revision, after.Revision)
}

func TestIncompatibleSessionIsTreatedAsAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap := session.NewSnapshot(flow.State{
		Intent:      flow.IntentAnswer,
		CurrentStep: flow.StepNarrativeSelection,
		StepHistory: []flow.Step{flow.StepSelectingIntent, flow.StepNarrativeSelection},
		FormData:    flow.NewFormData(),
	}, 3, time.Now())
	require.NoError(t, f.store.Save(ctx, f.userID, snap))

	_, err := f.wizard.Resume(ctx)
	assert.ErrorIs(t, err, sharedModels.ErrNoPendingSession)
	stored, err := f.store.Load(ctx, f.userID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestIntentChangeDiscardsDraft(t *testing.T) {
	f := newFixture(t)
	recordID := readyDraft(t, f)

	f.repo.On("DeleteDraft", mock.Anything, f.userID, recordID).Return(nil).Once()
	view, err := f.wizard.SelectIntent(context.Background(), flow.IntentReflect)
	require.NoError(t, err)

	assert.Equal(t, flow.StepLegacy, view.CurrentStep)
	assert.Equal(t, draft.StateEmpty, view.Draft.State)
	assert.Empty(t, view.FormData.FinalScript)
	assert.Empty(t, view.FormData.Question)
	assert.Equal(t, "5 min", view.FormData.Duration, "shared fields survive")
}

func TestSetFieldDebouncesSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wizard.SelectIntent(ctx, flow.IntentAnswer)
	require.NoError(t, err)

	_, err = f.wizard.SetField(flow.FieldFinalScript, "x")
	assert.ErrorIs(t, err, sharedModels.ErrInvalidInput)

	for _, v := range []string{"П", "По", "Почему"} {
		_, err = f.wizard.SetField(flow.FieldQuestion, v)
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool {
		stored, _ := f.store.Load(ctx, f.userID)
		return stored != nil && stored.FormData.Question == "Почему"
	}, time.Second, 5*time.Millisecond)
}

func TestServiceRegistry(t *testing.T) {
	store := session.NewMemoryStore(time.Hour, time.Now, zap.NewNop())
	svc := wizard.NewService(wizard.Config{}, wizard.Dependencies{Store: store}, zap.NewNop())
	userID := uuid.New()

	w := svc.For(userID)
	assert.Same(t, w, svc.For(userID))
	assert.NotSame(t, w, svc.For(uuid.New()))

	assert.Equal(t, 0, svc.EvictIdle(context.Background(), time.Now(), time.Hour))
	assert.Equal(t, 2, svc.EvictIdle(context.Background(), time.Now().Add(2*time.Hour), time.Hour))
	assert.NotSame(t, w, svc.For(userID))
	svc.Shutdown(context.Background())
}
