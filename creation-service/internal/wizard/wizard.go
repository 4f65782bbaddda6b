package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nicepods-server/creation-service/internal/draft"
	"nicepods-server/creation-service/internal/flow"
	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/progress"
	"nicepods-server/creation-service/internal/session"
	sharedModels "nicepods-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Сообщения об ошибках генерации для пользователя.
const (
	msgDraftFailed      = "we could not generate your script, please try again"
	msgNarrativesFailed = "we could not suggest narratives, please try again"
	msgNoNarratives     = "no narratives found for these topics, try rephrasing them"
)

// NarrativeGenerator предлагает варианты повествования для ветки связывания тем.
type NarrativeGenerator interface {
	GenerateNarrativeOptions(ctx context.Context, req models.NarrativeRequest) ([]models.NarrativeOption, error)
}

// Promoter передает готовый черновик в production.
type Promoter interface {
	PromoteDraft(ctx context.Context, req models.PromotionRequest) sharedModels.ActionResult
}

// Dependencies - внешние коллабораторы мастера.
type Dependencies struct {
	Store      session.Store
	Drafts     draft.Repository
	Generator  draft.Generator
	Narratives NarrativeGenerator
	Promoter   Promoter
}

// View - состояние мастера для клиента.
type View struct {
	Intent      flow.Intent         `json:"intent,omitempty"`
	CurrentStep flow.Step           `json:"currentStep"`
	StepHistory []flow.Step         `json:"stepHistory"`
	Route       []flow.Step         `json:"route,omitempty"`
	FormData    flow.FormData       `json:"formData"`
	Generating  flow.GenerationKind `json:"generating,omitempty"`
	Draft       draft.View          `json:"draft"`
	Progress    progress.Frame      `json:"progress"`
	LastError   string              `json:"lastError,omitempty"`
	Revision    int64               `json:"revision"`
}

// Recovery - сводка сохраненной сессии для выбора "продолжить или начать заново".
type Recovery struct {
	Intent      flow.Intent `json:"intent"`
	CurrentStep flow.Step   `json:"currentStep"`
	SavedAt     time.Time   `json:"savedAt"`
	HasDraft    bool        `json:"hasDraft"`
}

// Wizard - мастер создания одного пользователя.
// Все изменения идут под mu; результаты фоновых генераций возвращаются через него же
// и сверяются с токеном генерации.
type Wizard struct {
	mu        sync.Mutex
	userID    uuid.UUID
	cfg       Config
	deps      Dependencies
	estimator *progress.Estimator
	autosaver *session.Autosaver
	logger    *zap.Logger

	machine         *flow.Machine
	drafts          *draft.Manager
	revision        int64
	lastError       string
	cancelNarrative context.CancelFunc
	lastActive      time.Time
}

// New создает мастер в начальном состоянии.
func New(userID uuid.UUID, cfg Config, deps Dependencies, logger *zap.Logger) *Wizard {
	cfg = cfg.withDefaults()
	log := logger.Named("Wizard").With(zap.String("userID", userID.String()))
	w := &Wizard{
		userID:     userID,
		cfg:        cfg,
		deps:       deps,
		estimator:  progress.New(log, progress.WithFrameInterval(cfg.FrameInterval)),
		autosaver:  session.NewAutosaver(deps.Store, userID, cfg.AutosaveDelay, log),
		logger:     log,
		lastActive: time.Now(),
	}
	w.resetLocked()
	return w
}

// View возвращает текущее состояние.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

// Progress возвращает последний кадр прогресса.
func (w *Wizard) Progress() progress.Frame {
	return w.estimator.Current()
}

// SubscribeProgress подписывает на кадры прогресса.
func (w *Wizard) SubscribeProgress() (<-chan progress.Frame, func()) {
	return w.estimator.Subscribe()
}

// SelectIntent выбирает намерение. Смена намерения выбрасывает черновик прежнего пути.
func (w *Wizard) SelectIntent(ctx context.Context, intent flow.Intent) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	prev := w.machine.Intent()
	kind, generating := w.machine.Generating()
	if _, err := w.machine.SelectIntent(intent); err != nil {
		return View{}, err
	}
	if generating {
		w.abandonGenerationLocked(kind)
	}
	if prev != "" && prev != intent && w.drafts.State() != draft.StateEmpty {
		w.drafts.Discard(ctx)
		w.drafts = w.newDraftManager()
	}
	w.lastError = ""
	transitionsTotal.WithLabelValues("intent").Inc()
	w.logger.Info("Intent selected", zap.String("intent", string(intent)), zap.String("previous", string(prev)))
	w.saveNowLocked(ctx)
	return w.viewLocked(), nil
}

// SetField меняет текстовое поле. Сохранение откладывается, чтобы серия правок давала одну запись.
// Заголовок и текст черновика меняются только через EditDraft.
func (w *Wizard) SetField(field flow.Field, value string) (View, error) {
	return w.SetFields(map[flow.Field]string{field: value})
}

// SetFields применяет пакет полей целиком: при любой ошибке форма не меняется
// и сохранение не планируется.
func (w *Wizard) SetFields(values map[flow.Field]string) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	for field := range values {
		switch field {
		case flow.FieldFinalTitle, flow.FieldFinalScript:
			return View{}, fmt.Errorf("%w: %s is edited through the draft", sharedModels.ErrInvalidInput, field)
		}
	}
	if err := w.machine.SetFields(values); err != nil {
		return View{}, err
	}
	w.scheduleSaveLocked()
	return w.viewLocked(), nil
}

// Advance проверяет текущий шаг и переходит дальше. Для шагов-триггеров запускает генерацию,
// мастер остается на текущем шаге до ее завершения.
func (w *Wizard) Advance(ctx context.Context) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	res, err := w.machine.Advance()
	if err != nil {
		var verr flow.ValidationErrors
		if !errors.As(err, &verr) {
			w.logger.Debug("Advance rejected", zap.String("step", string(w.machine.Current())), zap.Error(err))
		}
		return View{}, err
	}

	switch res.Generation {
	case flow.GenerationDraft:
		if err := w.startDraftLocked(ctx, res.Token); err != nil {
			w.machine.FailGeneration(res.Token)
			return View{}, err
		}
	case flow.GenerationNarrative:
		w.startNarrativesLocked(ctx, res.Token)
	default:
		transitionsTotal.WithLabelValues("advance").Inc()
		w.logger.Debug("Advanced", zap.String("from", string(res.From)), zap.String("to", string(res.To)))
	}
	w.lastError = ""
	w.saveNowLocked(ctx)
	return w.viewLocked(), nil
}

// GoBack возвращается на шаг назад или отменяет ожидание генерации.
func (w *Wizard) GoBack(ctx context.Context) View {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	step, cancelled := w.machine.GoBack()
	if cancelled != flow.GenerationNone {
		w.abandonGenerationLocked(cancelled)
		w.logger.Info("Generation abandoned by user", zap.String("kind", string(cancelled)), zap.String("step", string(step)))
	}
	transitionsTotal.WithLabelValues("back").Inc()
	w.saveNowLocked(ctx)
	return w.viewLocked()
}

// JumpTo выбирает ветку на шаге-развилке.
func (w *Wizard) JumpTo(ctx context.Context, step flow.Step) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	if err := w.machine.JumpTo(step); err != nil {
		return View{}, err
	}
	transitionsTotal.WithLabelValues("jump").Inc()
	w.saveNowLocked(ctx)
	return w.viewLocked(), nil
}

// EditDraft сохраняет правку заголовка и текста черновика.
func (w *Wizard) EditDraft(ctx context.Context, title *string, script string) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	if err := w.drafts.Edit(ctx, title, script); err != nil {
		return View{}, err
	}
	content := w.drafts.View().Content
	if err := w.machine.SetFields(map[flow.Field]string{
		flow.FieldFinalTitle:  content.Title,
		flow.FieldFinalScript: content.Script,
	}); err != nil {
		// Черновик уже сохранен, но форма разошлась с ним.
		w.logger.Error("Failed to mirror draft edit into the form", zap.Error(err))
		return View{}, err
	}
	w.scheduleSaveLocked()
	return w.viewLocked(), nil
}

// Submit передает черновик в production с финального шага.
// При успехе сессия закрывается и мастер возвращается в начальное состояние.
func (w *Wizard) Submit(ctx context.Context) (sharedModels.ActionResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	if cur := w.machine.Current(); cur != flow.StepFinal {
		return sharedModels.ActionResult{}, fmt.Errorf("%w: submit is only possible from %s, current step is %s",
			sharedModels.ErrStepUnavailable, flow.StepFinal, cur)
	}
	if errs := w.machine.Validate(flow.StepFinal); errs != nil {
		return sharedModels.ActionResult{}, errs
	}
	dv := w.drafts.View()
	if dv.State != draft.StateReady && dv.State != draft.StateEditing {
		return sharedModels.ActionResult{}, fmt.Errorf("%w: draft is %s", sharedModels.ErrInvalidDraftState, dv.State)
	}

	form := w.machine.Form()
	req := models.PromotionRequest{
		DraftID:     dv.RecordID,
		Title:       strings.TrimSpace(form.FinalTitle),
		Script:      form.FinalScript,
		Sources:     form.Sources,
		VoiceGender: form.VoiceGender,
		VoiceStyle:  form.VoiceStyle,
		VoicePace:   form.VoicePace,
		ForceAudio:  form.ForceAudio,
	}
	result := w.deps.Promoter.PromoteDraft(sharedModels.WithUserID(ctx, w.userID), req)
	if !result.Success {
		// Черновик и сессия сохраняются для повтора.
		return result, nil
	}

	if err := w.drafts.MarkPromoted(); err != nil {
		w.logger.Error("Draft promoted externally but local state rejected it", zap.Error(err))
	}
	w.autosaver.Stop()
	if err := w.deps.Store.Discard(ctx, w.userID); err != nil {
		w.logger.Warn("Failed to discard session after promotion", zap.Error(err))
	}
	w.logger.Info("Wizard submitted", zap.String("draftID", dv.RecordID.String()))
	w.resetLocked()
	return result, nil
}

// Reset выбрасывает черновик и сохраненную сессию и начинает заново.
func (w *Wizard) Reset(ctx context.Context) View {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	if kind, ok := w.machine.Generating(); ok {
		w.abandonGenerationLocked(kind)
	}
	w.drafts.Discard(ctx)
	w.autosaver.Stop()
	if err := w.deps.Store.Discard(ctx, w.userID); err != nil {
		w.logger.Warn("Failed to discard stored session", zap.Error(err))
	}
	w.resetLocked()
	w.logger.Info("Wizard reset")
	return w.viewLocked()
}

// Flush выполняет отложенное сохранение. Вызывается без удержания mu.
func (w *Wizard) Flush(ctx context.Context) error {
	return w.autosaver.Flush(ctx)
}

// Busy сообщает, идет ли генерация.
func (w *Wizard) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.machine.Generating()
	return ok
}

// LastActive возвращает время последнего действия пользователя.
func (w *Wizard) LastActive() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActive
}

func (w *Wizard) viewLocked() View {
	state := w.machine.Snapshot()
	kind, _ := w.machine.Generating()
	return View{
		Intent:      state.Intent,
		CurrentStep: state.CurrentStep,
		StepHistory: state.StepHistory,
		Route:       w.machine.Route(),
		FormData:    state.FormData,
		Generating:  kind,
		Draft:       w.drafts.View(),
		Progress:    w.estimator.Current(),
		LastError:   w.lastError,
		Revision:    w.revision,
	}
}

func (w *Wizard) resetLocked() {
	w.machine = flow.NewMachine(w.cfg.Flow)
	w.drafts = w.newDraftManager()
	w.lastError = ""
	w.cancelNarrative = nil
	w.estimator.Cancel()
}

func (w *Wizard) newDraftManager() *draft.Manager {
	return draft.NewManager(w.userID, w.deps.Generator, w.deps.Drafts, w.estimator, w.cfg.GenerationTimeout, w.logger)
}

func (w *Wizard) touchLocked() {
	w.lastActive = time.Now()
}
