package wizard

import (
	"context"
	"fmt"
	"time"

	"nicepods-server/creation-service/internal/draft"
	"nicepods-server/creation-service/internal/flow"
	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/session"
	sharedModels "nicepods-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// snapshotLocked собирает снимок со следующей ревизией. false - сохранять нечего.
func (w *Wizard) snapshotLocked() (session.Snapshot, bool) {
	if w.machine.Intent() == "" {
		return session.Snapshot{}, false
	}
	w.revision++
	return session.NewSnapshot(w.machine.Snapshot(), w.revision, time.Now()), true
}

// saveNowLocked сохраняет снимок после перехода. Ошибка хранилища не отменяет переход.
func (w *Wizard) saveNowLocked(ctx context.Context) {
	snap, ok := w.snapshotLocked()
	if !ok {
		return
	}
	if err := w.autosaver.SaveNow(ctx, snap); err != nil {
		sessionSavesTotal.WithLabelValues("error").Inc()
		w.logger.Error("Failed to save wizard session", zap.Int64("revision", snap.Revision), zap.Error(err))
		return
	}
	sessionSavesTotal.WithLabelValues("immediate").Inc()
}

func (w *Wizard) scheduleSaveLocked() {
	w.autosaver.Schedule(func() (session.Snapshot, bool) {
		w.mu.Lock()
		defer w.mu.Unlock()
		snap, ok := w.snapshotLocked()
		if ok {
			sessionSavesTotal.WithLabelValues("debounced").Inc()
		}
		return snap, ok
	})
}

// ProbeRecovery сообщает о сохраненной сессии, не применяя ее.
// nil без ошибки - восстанавливать нечего.
func (w *Wizard) ProbeRecovery(ctx context.Context) (*Recovery, error) {
	snap, err := w.deps.Store.Load(ctx, w.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wizard session: %w", err)
	}
	if snap == nil {
		return nil, nil
	}
	return &Recovery{
		Intent:      snap.Intent,
		CurrentStep: snap.CurrentStep,
		SavedAt:     snap.SavedAt,
		HasDraft:    snap.FormData.DraftID != "",
	}, nil
}

// Resume применяет сохраненную сессию по явному согласию пользователя.
// Текущее состояние мастера заменяется.
func (w *Wizard) Resume(ctx context.Context) (View, error) {
	snap, err := w.deps.Store.Load(ctx, w.userID)
	if err != nil {
		return View{}, fmt.Errorf("failed to load wizard session: %w", err)
	}
	if snap == nil {
		resumesTotal.WithLabelValues("missing").Inc()
		return View{}, sharedModels.ErrNoPendingSession
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	machine := flow.NewMachine(w.cfg.Flow)
	if err := machine.Restore(snap.State()); err != nil {
		// Снимок прошел схему, но не ложится на таблицу путей: считаем его отсутствующим.
		w.logger.Warn("Stored session does not fit the flow, discarding", zap.Error(err))
		resumesTotal.WithLabelValues("incompatible").Inc()
		if derr := w.deps.Store.Discard(ctx, w.userID); derr != nil {
			w.logger.Warn("Failed to discard incompatible session", zap.Error(derr))
		}
		return View{}, sharedModels.ErrNoPendingSession
	}

	if kind, ok := w.machine.Generating(); ok {
		w.abandonGenerationLocked(kind)
	}
	form := machine.Form()
	recordID, hasDraft := draftRecordID(form)
	// Живой черновик, не принадлежащий снимку, иначе остался бы сиротой.
	if live := w.drafts.View(); live.State != draft.StateEmpty && !(hasDraft && live.RecordID == recordID) {
		w.drafts.Discard(ctx)
	}
	w.resetLocked()
	w.machine = machine
	w.revision = snap.Revision

	if hasDraft {
		content := models.DraftContent{Title: form.FinalTitle, Script: form.FinalScript, Sources: form.Sources}
		if err := w.drafts.Adopt(content, recordID); err != nil {
			w.logger.Error("Failed to adopt recovered draft", zap.Error(err))
		}
	}

	resumesTotal.WithLabelValues("resumed").Inc()
	w.logger.Info("Wizard session resumed",
		zap.String("step", string(machine.Current())),
		zap.Int64("revision", snap.Revision),
		zap.Time("savedAt", snap.SavedAt),
	)
	return w.viewLocked(), nil
}

// DiscardRecovery удаляет сохраненную сессию и ее приватный черновик.
func (w *Wizard) DiscardRecovery(ctx context.Context) error {
	snap, err := w.deps.Store.Load(ctx, w.userID)
	if err != nil {
		w.logger.Warn("Failed to load session before discard", zap.Error(err))
	}
	if snap != nil {
		if recordID, ok := draftRecordID(snap.FormData); ok {
			if derr := w.deps.Drafts.DeleteDraft(ctx, w.userID, recordID); derr != nil {
				w.logger.Warn("Failed to delete recovered draft record", zap.String("draftID", recordID.String()), zap.Error(derr))
			}
		}
	}
	if err := w.deps.Store.Discard(ctx, w.userID); err != nil {
		return fmt.Errorf("failed to discard wizard session: %w", err)
	}
	resumesTotal.WithLabelValues("discarded").Inc()
	return nil
}

func draftRecordID(f flow.FormData) (uuid.UUID, bool) {
	if f.DraftID == "" || f.FinalScript == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(f.DraftID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
