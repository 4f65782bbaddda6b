package wizard

import (
	"context"
	"errors"

	"nicepods-server/creation-service/internal/draft"
	"nicepods-server/creation-service/internal/flow"
	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/progress"
	sharedModels "nicepods-server/shared/models"

	"go.uber.org/zap"
)

func (w *Wizard) startDraftLocked(ctx context.Context, token uint64) error {
	inputs := flow.DraftInputs(w.machine.Form())
	ctx = sharedModels.WithUserID(ctx, w.userID)
	mgr := w.drafts
	_, err := mgr.Generate(ctx, inputs, func(res draft.Result) {
		w.onDraftDone(ctx, mgr, token, res)
	})
	if err != nil {
		w.logger.Warn("Draft generation not started", zap.Error(err))
		return err
	}
	generationsTotal.WithLabelValues(string(flow.GenerationDraft), "started").Inc()
	return nil
}

// onDraftDone применяет результат только если и машина, и менеджер черновика
// остались теми же, что запускали генерацию. Иначе запись результата убирается.
func (w *Wizard) onDraftDone(ctx context.Context, mgr *draft.Manager, token uint64, res draft.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if res.Err != nil {
		if mgr == w.drafts && w.machine.FailGeneration(token) {
			w.lastError = msgDraftFailed
			generationsTotal.WithLabelValues(string(flow.GenerationDraft), "failed").Inc()
			w.saveNowLocked(context.WithoutCancel(ctx))
		}
		return
	}

	if mgr != w.drafts || !w.machine.Awaiting(token) {
		w.logger.Info("Draft result arrived for a cancelled step, dropping it", zap.Uint64("token", token))
		mgr.Reject(context.WithoutCancel(ctx), res)
		return
	}
	if err := mgr.Commit(res); err != nil {
		w.logger.Error("Draft manager rejected an awaited result", zap.Uint64("token", token), zap.Error(err))
		mgr.Reject(context.WithoutCancel(ctx), res)
		w.machine.FailGeneration(token)
		w.lastError = msgDraftFailed
		return
	}

	content := res.Content
	next, err := w.machine.ResolveGeneration(token, func(f *flow.FormData) {
		f.FinalTitle = content.Title
		f.FinalScript = content.Script
		f.Sources = append([]models.ResearchSource(nil), content.Sources...)
		f.DraftID = res.RecordID.String()
	})
	if err != nil {
		w.logger.Error("Failed to enter step after draft generation", zap.Error(err))
		w.lastError = msgDraftFailed
		return
	}
	generationsTotal.WithLabelValues(string(flow.GenerationDraft), "completed").Inc()
	transitionsTotal.WithLabelValues("advance").Inc()
	w.logger.Info("Draft ready, advanced", zap.String("step", string(next)))
	w.saveNowLocked(context.WithoutCancel(ctx))
}

func (w *Wizard) startNarrativesLocked(ctx context.Context, token uint64) {
	req := flow.NarrativeRequest(w.machine.Form())
	if err := w.estimator.Start(progress.NarrativePlan); err != nil {
		w.logger.Error("Failed to start progress estimator", zap.Error(err))
	}

	genCtx, cancel := context.WithTimeout(sharedModels.WithUserID(context.WithoutCancel(ctx), w.userID), w.cfg.GenerationTimeout)
	w.cancelNarrative = cancel
	generationsTotal.WithLabelValues(string(flow.GenerationNarrative), "started").Inc()

	machine := w.machine
	go func() {
		defer cancel()
		options, err := w.deps.Narratives.GenerateNarrativeOptions(genCtx, req)
		w.onNarrativesDone(machine, token, options, err)
	}()
}

func (w *Wizard) onNarrativesDone(machine *flow.Machine, token uint64, options []models.NarrativeOption, genErr error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ctx := context.Background()

	// После сброса или восстановления машина новая, ее токены начинаются заново.
	if machine != w.machine {
		w.logger.Info("Narrative result arrived for a replaced session, ignoring", zap.Uint64("token", token))
		return
	}

	if genErr != nil {
		if w.machine.FailGeneration(token) {
			w.cancelNarrative = nil
			w.estimator.Cancel()
			w.lastError = msgNarrativesFailed
			generationsTotal.WithLabelValues(string(flow.GenerationNarrative), "failed").Inc()
			w.logger.Error("Narrative generation failed", zap.Error(genErr))
			w.saveNowLocked(ctx)
		}
		return
	}

	next, err := w.machine.ResolveGeneration(token, func(f *flow.FormData) {
		f.NarrativeOptions = options
		f.SelectedNarrative = ""
	})
	if errors.Is(err, flow.ErrStaleGeneration) {
		w.logger.Info("Narrative result arrived for a cancelled step, ignoring", zap.Uint64("token", token))
		return
	}
	w.cancelNarrative = nil
	if err != nil {
		// Пустой список: шаг выбора недостижим, пользователь остается на вводе тем.
		w.estimator.Cancel()
		w.lastError = msgNoNarratives
		generationsTotal.WithLabelValues(string(flow.GenerationNarrative), "empty").Inc()
		w.saveNowLocked(ctx)
		return
	}
	w.estimator.Complete()
	generationsTotal.WithLabelValues(string(flow.GenerationNarrative), "completed").Inc()
	transitionsTotal.WithLabelValues("advance").Inc()
	w.logger.Info("Narratives ready, advanced", zap.String("step", string(next)), zap.Int("options", len(options)))
	w.saveNowLocked(ctx)
}

// abandonGenerationLocked останавливает ожидание генерации. Внешний вызов черновика
// не прерывается, его результат отбрасывается по токену.
func (w *Wizard) abandonGenerationLocked(kind flow.GenerationKind) {
	switch kind {
	case flow.GenerationDraft:
		w.drafts.Abandon()
	case flow.GenerationNarrative:
		if w.cancelNarrative != nil {
			w.cancelNarrative()
			w.cancelNarrative = nil
		}
		w.estimator.Cancel()
	}
	generationsTotal.WithLabelValues(string(kind), "abandoned").Inc()
}
