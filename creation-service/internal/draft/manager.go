package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/progress"
	sharedModels "nicepods-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State - стадия жизненного цикла черновика.
type State string

const (
	StateEmpty      State = "EMPTY"
	StateGenerating State = "GENERATING"
	StateReady      State = "READY"
	StateEditing    State = "EDITING"
	StatePromoted   State = "PROMOTED"
	StateDiscarded  State = "DISCARDED"
)

// DefaultGenerationTimeout ограничивает внешнюю генерацию.
const DefaultGenerationTimeout = 3 * time.Minute

var (
	// ErrEmptyDraft - генератор вернул пустой сценарий.
	ErrEmptyDraft = errors.New("generator returned an empty script")
	// ErrStaleResult - результат относится к отмененному запуску генерации.
	ErrStaleResult = errors.New("stale draft generation result")
)

// Generator - внешний сервис генерации черновика.
type Generator interface {
	GenerateDraft(ctx context.Context, inputs models.DraftInputs) (*models.DraftContent, error)
}

// Repository - внешняя запись приватного черновика.
type Repository interface {
	CreateDraft(ctx context.Context, rec *models.DraftRecord) error
	UpdateDraft(ctx context.Context, rec *models.DraftRecord) error
	DeleteDraft(ctx context.Context, userID, draftID uuid.UUID) error
}

// Result - исход генерации, передаваемый в обратный вызов.
type Result struct {
	Token    uint64
	Content  *models.DraftContent
	RecordID uuid.UUID
	Err      error
}

// View - снимок черновика для чтения.
type View struct {
	State    State                `json:"state"`
	Content  *models.DraftContent `json:"content,omitempty"`
	RecordID uuid.UUID            `json:"record_id"`
}

// Manager владеет черновиком одной сессии мастера.
type Manager struct {
	mu        sync.Mutex
	userID    uuid.UUID
	generator Generator
	repo      Repository
	estimator *progress.Estimator
	timeout   time.Duration
	logger    *zap.Logger

	state     State
	prevState State
	epoch     uint64
	content   *models.DraftContent
	recordID  uuid.UUID
}

// NewManager создает менеджер в состоянии EMPTY.
func NewManager(userID uuid.UUID, generator Generator, repo Repository, estimator *progress.Estimator, timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &Manager{
		userID:    userID,
		generator: generator,
		repo:      repo,
		estimator: estimator,
		timeout:   timeout,
		logger:    logger.Named("DraftManager").With(zap.String("userID", userID.String())),
		state:     StateEmpty,
	}
}

// State возвращает текущую стадию.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// View возвращает копию черновика.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := View{State: m.state, RecordID: m.recordID}
	if m.content != nil {
		c := *m.content
		c.Sources = append([]models.ResearchSource(nil), m.content.Sources...)
		v.Content = &c
	}
	return v
}

// Generate запускает генерацию в фоне. Повторный вызов во время GENERATING отклоняется
// без обращения к генератору. onDone вызывается только для актуального запуска;
// успешный результат применяется лишь после Commit. Без onDone результат фиксируется сразу.
func (m *Manager) Generate(ctx context.Context, inputs models.DraftInputs, onDone func(Result)) (uint64, error) {
	m.mu.Lock()
	switch m.state {
	case StateGenerating:
		m.mu.Unlock()
		return 0, sharedModels.ErrGenerationInProgress
	case StatePromoted, StateDiscarded:
		m.mu.Unlock()
		return 0, fmt.Errorf("%w: cannot generate from %s", sharedModels.ErrInvalidDraftState, m.state)
	}
	m.prevState = m.state
	m.state = StateGenerating
	m.epoch++
	token := m.epoch
	if err := m.estimator.Start(progress.DraftPlan); err != nil {
		m.logger.Error("Failed to start progress estimator", zap.Error(err))
	}
	m.mu.Unlock()

	draftGenerationsStarted.Inc()
	m.logger.Info("Draft generation started", zap.Uint64("token", token), zap.String("intent", inputs.Intent))

	go m.run(context.WithoutCancel(ctx), token, inputs, onDone)
	return token, nil
}

func (m *Manager) run(ctx context.Context, token uint64, inputs models.DraftInputs, onDone func(Result)) {
	start := time.Now()
	genCtx, cancel := context.WithTimeout(ctx, m.timeout)
	content, err := m.generator.GenerateDraft(genCtx, inputs)
	cancel()
	if err == nil && (content == nil || strings.TrimSpace(content.Script) == "") {
		err = ErrEmptyDraft
	}
	draftGenerationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		m.finishFailed(token, err, onDone)
		return
	}

	if !m.current(token) {
		m.logger.Info("Discarding stale draft generation result", zap.Uint64("token", token))
		draftGenerationsFinished.WithLabelValues("stale").Inc()
		return
	}

	recordID, err := m.persist(ctx, content, inputs)
	if err != nil {
		m.finishFailed(token, err, onDone)
		return
	}

	res := Result{Token: token, Content: content, RecordID: recordID}
	if !m.current(token) {
		m.logger.Info("Draft was discarded while persisting, dropping record", zap.String("draftID", recordID.String()))
		m.dropRecord(ctx, recordID)
		draftGenerationsFinished.WithLabelValues("stale").Inc()
		return
	}
	if onDone == nil {
		if err := m.Commit(res); err != nil {
			m.Reject(ctx, res)
		}
		return
	}
	// Черновик остается в GENERATING, пока владелец не вызовет Commit или Reject.
	onDone(res)
}

// Commit фиксирует результат генерации, который принял поток мастера.
// Результат устаревшего запуска отклоняется с ErrStaleResult.
func (m *Manager) Commit(res Result) error {
	m.mu.Lock()
	if res.Err != nil || res.Content == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: result carries no content", sharedModels.ErrInvalidInput)
	}
	if m.epoch != res.Token || m.state != StateGenerating {
		m.mu.Unlock()
		return ErrStaleResult
	}
	m.content = res.Content
	m.recordID = res.RecordID
	m.state = StateReady
	m.estimator.Complete()
	m.mu.Unlock()

	draftGenerationsFinished.WithLabelValues("success").Inc()
	m.logger.Info("Draft generated", zap.Uint64("token", res.Token), zap.String("draftID", res.RecordID.String()), zap.Int("sources", len(res.Content.Sources)))
	return nil
}

// Reject отбрасывает результат, который поток мастера не принял, и убирает его запись.
func (m *Manager) Reject(ctx context.Context, res Result) {
	m.mu.Lock()
	if m.epoch == res.Token && m.state == StateGenerating {
		m.epoch++
		m.state = m.prevState
		m.estimator.Cancel()
	}
	m.mu.Unlock()

	draftGenerationsFinished.WithLabelValues("stale").Inc()
	m.logger.Info("Late draft result rejected", zap.Uint64("token", res.Token), zap.String("draftID", res.RecordID.String()))
	m.dropRecord(ctx, res.RecordID)
}

func (m *Manager) finishFailed(token uint64, err error, onDone func(Result)) {
	m.mu.Lock()
	if m.epoch != token || m.state != StateGenerating {
		m.mu.Unlock()
		draftGenerationsFinished.WithLabelValues("stale").Inc()
		return
	}
	// Входные данные сохраняются, возвращаемся в стадию до генерации.
	m.state = m.prevState
	m.estimator.Cancel()
	m.mu.Unlock()

	outcome := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		outcome = "timeout"
	}
	draftGenerationsFinished.WithLabelValues(outcome).Inc()
	m.logger.Error("Draft generation failed", zap.Uint64("token", token), zap.Error(err))
	if onDone != nil {
		onDone(Result{Token: token, Err: err})
	}
}

func (m *Manager) persist(ctx context.Context, content *models.DraftContent, inputs models.DraftInputs) (uuid.UUID, error) {
	m.mu.Lock()
	existing := m.recordID
	m.mu.Unlock()

	rawInputs, err := marshalInputs(inputs)
	if err != nil {
		return uuid.Nil, err
	}
	rec := &models.DraftRecord{
		ID:      existing,
		UserID:  m.userID,
		Title:   content.Title,
		Script:  content.Script,
		Sources: content.Sources,
		Inputs:  rawInputs,
	}
	if existing == uuid.Nil {
		err = m.repo.CreateDraft(ctx, rec)
	} else {
		err = m.repo.UpdateDraft(ctx, rec)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to persist draft: %w", err)
	}
	return rec.ID, nil
}

// Abandon отменяет ожидание текущей генерации (пользователь ушел назад).
// Внешний вызов не прерывается, его результат будет отброшен.
func (m *Manager) Abandon() {
	m.mu.Lock()
	if m.state != StateGenerating {
		m.mu.Unlock()
		return
	}
	m.epoch++
	m.state = m.prevState
	m.estimator.Cancel()
	m.mu.Unlock()

	m.logger.Info("Draft generation abandoned")
}

// Edit меняет заголовок и/или текст. Источники не меняются.
func (m *Manager) Edit(ctx context.Context, title *string, script string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady && m.state != StateEditing {
		return fmt.Errorf("%w: cannot edit from %s", sharedModels.ErrInvalidDraftState, m.state)
	}
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("%w: script must not be empty", sharedModels.ErrInvalidInput)
	}

	updated := *m.content
	if title != nil {
		updated.Title = *title
	}
	updated.Script = script

	rec := &models.DraftRecord{
		ID:      m.recordID,
		UserID:  m.userID,
		Title:   updated.Title,
		Script:  updated.Script,
		Sources: updated.Sources,
	}
	if err := m.repo.UpdateDraft(ctx, rec); err != nil {
		m.logger.Error("Failed to persist draft edit", zap.String("draftID", m.recordID.String()), zap.Error(err))
		return fmt.Errorf("failed to save draft edit: %w", err)
	}
	m.content = &updated
	m.state = StateEditing
	return nil
}

// Adopt восстанавливает готовый черновик из возобновленной сессии.
func (m *Manager) Adopt(content models.DraftContent, recordID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateEmpty {
		return fmt.Errorf("%w: cannot adopt into %s", sharedModels.ErrInvalidDraftState, m.state)
	}
	m.content = &content
	m.recordID = recordID
	m.state = StateEditing
	return nil
}

// MarkPromoted фиксирует успешное продвижение в production.
func (m *Manager) MarkPromoted() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady && m.state != StateEditing {
		return fmt.Errorf("%w: cannot promote from %s", sharedModels.ErrInvalidDraftState, m.state)
	}
	m.state = StatePromoted
	return nil
}

// Discard очищает черновик и удаляет внешнюю запись (best effort).
// Идущая генерация становится устаревшей.
func (m *Manager) Discard(ctx context.Context) {
	m.mu.Lock()
	if m.state == StatePromoted || m.state == StateDiscarded {
		m.mu.Unlock()
		return
	}
	wasGenerating := m.state == StateGenerating
	m.epoch++
	m.state = StateDiscarded
	m.content = nil
	recordID := m.recordID
	m.recordID = uuid.Nil
	m.mu.Unlock()

	if wasGenerating {
		m.estimator.Cancel()
	}
	if recordID != uuid.Nil {
		m.deleteRecord(ctx, recordID)
	}
	m.logger.Info("Draft discarded", zap.Bool("wasGenerating", wasGenerating))
}

// dropRecord убирает запись отброшенного результата. Если генерация перезаписала
// запись действующего черновика, возвращается его прежнее содержимое.
func (m *Manager) dropRecord(ctx context.Context, recordID uuid.UUID) {
	if recordID == uuid.Nil {
		return
	}
	m.mu.Lock()
	var keep *models.DraftRecord
	if recordID == m.recordID && m.content != nil {
		keep = &models.DraftRecord{
			ID:      m.recordID,
			UserID:  m.userID,
			Title:   m.content.Title,
			Script:  m.content.Script,
			Sources: m.content.Sources,
		}
	}
	m.mu.Unlock()

	if keep == nil {
		m.deleteRecord(ctx, recordID)
		return
	}
	if err := m.repo.UpdateDraft(ctx, keep); err != nil {
		m.logger.Warn("Failed to restore draft record", zap.String("draftID", recordID.String()), zap.Error(err))
	}
}

func (m *Manager) deleteRecord(ctx context.Context, recordID uuid.UUID) {
	if err := m.repo.DeleteDraft(ctx, m.userID, recordID); err != nil {
		// Останется осиротевшая приватная запись, ее уберет OrphanSweeper.
		m.logger.Warn("Failed to delete draft record", zap.String("draftID", recordID.String()), zap.Error(err))
	}
}

func (m *Manager) current(token uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch == token && m.state == StateGenerating
}
