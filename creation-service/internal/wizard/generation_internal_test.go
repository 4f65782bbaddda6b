package wizard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nicepods-server/creation-service/internal/draft"
	"nicepods-server/creation-service/internal/flow"
	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct{}

func (stubGenerator) GenerateDraft(context.Context, models.DraftInputs) (*models.DraftContent, error) {
	return &models.DraftContent{Title: "Поздний ответ", Script: "Текст, который никто не ждет."}, nil
}

type recordingRepo struct {
	mu      sync.Mutex
	created atomic.Int32
	deleted []uuid.UUID
}

func (r *recordingRepo) CreateDraft(_ context.Context, rec *models.DraftRecord) error {
	rec.ID = uuid.New()
	r.created.Add(1)
	return nil
}

func (r *recordingRepo) UpdateDraft(context.Context, *models.DraftRecord) error { return nil }

func (r *recordingRepo) DeleteDraft(_ context.Context, _, draftID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, draftID)
	return nil
}

func (r *recordingRepo) deletedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deleted)
}

func newDetailsWizard(t *testing.T, repo *recordingRepo) *Wizard {
	t.Helper()
	ctx := context.Background()
	w := New(uuid.New(), Config{AutosaveDelay: 10 * time.Millisecond, GenerationTimeout: time.Second}, Dependencies{
		Store:     session.NewMemoryStore(time.Hour, time.Now, zap.NewNop()),
		Drafts:    repo,
		Generator: stubGenerator{},
	}, zap.NewNop())

	_, err := w.SelectIntent(ctx, flow.IntentAnswer)
	require.NoError(t, err)
	_, err = w.SetFields(map[flow.Field]string{flow.FieldQuestion: "Почему небо голубое?"})
	require.NoError(t, err)
	_, err = w.Advance(ctx)
	require.NoError(t, err)
	_, err = w.SetFields(map[flow.Field]string{flow.FieldDuration: "5 min", flow.FieldDepth: "medium"})
	require.NoError(t, err)
	return w
}

func TestDraftResultWaitingForLockIsDroppedOnGoBack(t *testing.T) {
	repo := &recordingRepo{}
	w := newDetailsWizard(t, repo)
	ctx := context.Background()

	// Генерация завершается, пока мастер занят: обратный вызов ждет w.mu.
	w.mu.Lock()
	res, err := w.machine.Advance()
	require.NoError(t, err)
	require.Equal(t, flow.GenerationDraft, res.Generation)
	require.NoError(t, w.startDraftLocked(ctx, res.Token))

	require.Eventually(t, func() bool { return repo.created.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, draft.StateGenerating, w.drafts.State(), "result must not be applied before the flow accepts it")

	step, cancelled := w.machine.GoBack()
	w.abandonGenerationLocked(cancelled)
	w.mu.Unlock()

	require.Equal(t, flow.StepDetails, step)
	require.Eventually(t, func() bool { return repo.deletedCount() == 1 }, time.Second, time.Millisecond)

	view := w.View()
	assert.Equal(t, flow.StepDetails, view.CurrentStep)
	assert.Empty(t, view.Generating)
	assert.Empty(t, view.FormData.FinalScript)
	assert.Equal(t, draft.StateEmpty, view.Draft.State)
	assert.Nil(t, view.Draft.Content)
	assert.Equal(t, uuid.Nil, view.Draft.RecordID)
	assert.False(t, view.Progress.Running)
}

func TestDraftResultForReplacedSessionIsDropped(t *testing.T) {
	repo := &recordingRepo{}
	w := newDetailsWizard(t, repo)
	ctx := context.Background()

	w.mu.Lock()
	res, err := w.machine.Advance()
	require.NoError(t, err)
	require.NoError(t, w.startDraftLocked(ctx, res.Token))
	require.Eventually(t, func() bool { return repo.created.Load() == 1 }, time.Second, time.Millisecond)

	// Сброс заменяет машину и менеджер черновика; токены новой машины начинаются заново.
	w.abandonGenerationLocked(flow.GenerationDraft)
	w.resetLocked()
	w.mu.Unlock()

	require.Eventually(t, func() bool { return repo.deletedCount() == 1 }, time.Second, time.Millisecond)
	view := w.View()
	assert.Equal(t, flow.StepSelectingIntent, view.CurrentStep)
	assert.Equal(t, draft.StateEmpty, view.Draft.State)
}
