package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nicepods-server/creation-service/internal/flow"
	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleState(t *testing.T) flow.State {
	t.Helper()
	m := flow.NewMachine(flow.Options{})
	_, err := m.SelectIntent(flow.IntentReflect)
	require.NoError(t, err)
	require.NoError(t, m.SetField(flow.FieldLegacyLesson, "Терпение важнее скорости"))
	require.NoError(t, m.SetField(flow.FieldDuration, "10 min"))
	_, err = m.Advance()
	require.NoError(t, err)
	return m.Snapshot()
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Now()}
	store := session.NewMemoryStore(24*time.Hour, c.Now, zap.NewNop())
	userID := uuid.New()
	state := sampleState(t)

	require.NoError(t, store.Save(ctx, userID, session.NewSnapshot(state, 1, c.Now())))

	c.Advance(23 * time.Hour)
	snap, err := store.Load(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, state.FormData, snap.FormData)
	assert.Equal(t, state.StepHistory, snap.StepHistory)
	assert.Equal(t, flow.StepToneSelection, snap.CurrentStep)

	c.Advance(2 * time.Hour)
	snap, err = store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, snap, "stale session must be treated as absent")
}

func TestLoadRejectsCorruptAndForeignVersions(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(time.Hour, nil, zap.NewNop())
	userID := uuid.New()

	cases := map[string]string{
		"not json":        `{"currentStep":`,
		"missing history": `{"version":1,"currentStep":"LEGACY_STEP","formData":{},"savedAt":"2024-01-01T00:00:00Z"}`,
		"wrong version":   `{"version":99,"currentStep":"LEGACY_STEP","stepHistory":["SELECTING_INTENT","LEGACY_STEP"],"formData":{},"savedAt":"` + time.Now().UTC().Format(time.RFC3339) + `"}`,
		"bad origin":      `{"version":1,"currentStep":"LEGACY_STEP","stepHistory":["SELECTING_INTENT"],"formData":{"sources":[{"title":"a","url":"b","origin":"tv"}]},"savedAt":"` + time.Now().UTC().Format(time.RFC3339) + `"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			store.PutRaw(userID, []byte(raw))
			snap, err := store.Load(ctx, userID)
			assert.NoError(t, err)
			assert.Nil(t, snap)
		})
	}
}

func TestDiscardRemovesSession(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(time.Hour, nil, zap.NewNop())
	userID := uuid.New()
	require.NoError(t, store.Save(ctx, userID, session.NewSnapshot(sampleState(t), 1, time.Now())))
	require.NoError(t, store.Discard(ctx, userID))

	snap, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotSourcesSurviveDecode(t *testing.T) {
	state := sampleState(t)
	state.FormData.Sources = []models.ResearchSource{
		{Title: "Vault", URL: "vault://1", Origin: models.OriginVault, Content: "curated"},
		{Title: "Web", URL: "https://example.org", Origin: models.OriginWeb, Snippet: "fresh"},
	}
	raw, err := session.Encode(session.NewSnapshot(state, 3, time.Now()))
	require.NoError(t, err)

	snap, err := session.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, state.FormData.Sources, snap.FormData.Sources)
	assert.Equal(t, int64(3), snap.Revision)
}

type countingStore struct {
	session.Store
	saves atomic.Int32
	last  atomic.Int64
}

func (c *countingStore) Save(ctx context.Context, userID uuid.UUID, snap session.Snapshot) error {
	c.saves.Add(1)
	c.last.Store(snap.Revision)
	return c.Store.Save(ctx, userID, snap)
}

func TestAutosaverDebounces(t *testing.T) {
	store := &countingStore{Store: session.NewMemoryStore(time.Hour, nil, zap.NewNop())}
	userID := uuid.New()
	saver := session.NewAutosaver(store, userID, 20*time.Millisecond, zap.NewNop())
	state := sampleState(t)

	for i := int64(1); i <= 10; i++ {
		rev := i
		saver.Schedule(func() (session.Snapshot, bool) {
			return session.NewSnapshot(state, rev, time.Now()), true
		})
	}

	assert.Eventually(t, func() bool { return store.saves.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), store.saves.Load())
	assert.Equal(t, int64(10), store.last.Load())
}

func TestAutosaverSaveNowCancelsPending(t *testing.T) {
	store := &countingStore{Store: session.NewMemoryStore(time.Hour, nil, zap.NewNop())}
	saver := session.NewAutosaver(store, uuid.New(), 30*time.Millisecond, zap.NewNop())
	state := sampleState(t)

	saver.Schedule(func() (session.Snapshot, bool) { return session.NewSnapshot(state, 1, time.Now()), true })
	require.NoError(t, saver.SaveNow(context.Background(), session.NewSnapshot(state, 2, time.Now())))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), store.saves.Load())
	assert.Equal(t, int64(2), store.last.Load())
}

func TestAutosaverFlush(t *testing.T) {
	store := &countingStore{Store: session.NewMemoryStore(time.Hour, nil, zap.NewNop())}
	saver := session.NewAutosaver(store, uuid.New(), time.Hour, zap.NewNop())
	state := sampleState(t)

	require.NoError(t, saver.Flush(context.Background()))
	assert.Equal(t, int32(0), store.saves.Load())

	saver.Schedule(func() (session.Snapshot, bool) { return session.NewSnapshot(state, 5, time.Now()), true })
	require.NoError(t, saver.Flush(context.Background()))
	assert.Equal(t, int32(1), store.saves.Load())
	saver.Stop()
}
