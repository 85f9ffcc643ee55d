package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitekit/nudge/internal/domain"
	"github.com/sitekit/nudge/internal/storage"
)

func newTaskServiceFixture(t *testing.T) (*TaskService, TaskStore, *PointsLedger) {
	t.Helper()
	store := storage.NewMemoryStore()
	bridge := NewCelebrationBridge()
	ledger := NewPointsLedger()
	bridge.Subscribe(ledger)
	return NewTaskService(store, bridge), store, ledger
}

func TestTaskService_Acknowledge(t *testing.T) {
	svc, store, ledger := newTaskServiceFixture(t)
	rec := seedPending(t, store, "site-icon", domain.Singleton())

	_, err := store.Update(rec.ID, map[string]interface{}{
		"status": domain.StatusPendingCelebration,
	})
	require.NoError(t, err)

	later := week10.Add(time.Hour)
	updated, err := svc.Acknowledge(rec.ID, later)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, later, updated.StatusChangedAt)
	assert.Equal(t, 1, ledger.CompletionsFor(rec.ID))

	// Acknowledging twice is rejected and never double-fires the event.
	_, err = svc.Acknowledge(rec.ID, later.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 1, ledger.CompletionsFor(rec.ID))
}

func TestTaskService_AcknowledgePendingCompletesDirectly(t *testing.T) {
	svc, store, ledger := newTaskServiceFixture(t)
	rec := seedPending(t, store, "site-icon", domain.Singleton())

	// pending -> completed is a legal edge (automated completions use it),
	// so acknowledging a record that never celebrated still completes it.
	_, err := svc.Acknowledge(rec.ID, week10)
	assert.NoError(t, err)

	stored, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, 1, ledger.CompletionsFor(rec.ID))
}

func TestTaskService_Dismiss(t *testing.T) {
	svc, store, _ := newTaskServiceFixture(t)
	rec := seedPending(t, store, "disable-comments", domain.Singleton())

	require.NoError(t, svc.Dismiss(rec.ID, week10))
	_, err := store.Get(rec.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskService_DismissCompletedRejected(t *testing.T) {
	svc, store, _ := newTaskServiceFixture(t)
	rec := seedPending(t, store, "site-icon", domain.Singleton())
	_, err := store.Update(rec.ID, map[string]interface{}{
		"status": domain.StatusCompleted,
	})
	require.NoError(t, err)

	// Completion history backs point accounting and is never deleted.
	assert.ErrorIs(t, svc.Dismiss(rec.ID, week10), domain.ErrInvalidTransition)
	stored, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestCelebrationBridge_MultipleSinks(t *testing.T) {
	bridge := NewCelebrationBridge()
	first := NewPointsLedger()
	second := NewPointsLedger()
	bridge.Subscribe(first)
	bridge.Subscribe(second)

	rec := domain.NewTaskRecord("site-icon", "site-icon", "configuration",
		domain.TaskDetails{Points: 5}, week10)
	bridge.Completed(rec, week10)

	assert.Equal(t, 5, first.Total())
	assert.Equal(t, 5, second.Total())

	events := first.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].EventID)
	assert.Equal(t, domain.Identity("site-icon"), events[0].TaskID)
	assert.Equal(t, week10, events[0].CompletedAt)
}

// hookStore runs a callback just before delegating the first Transition,
// opening the window between a service's read and its guarded write.
type hookStore struct {
	*storage.MemoryStore
	beforeTransition func()
}

func (s *hookStore) Transition(id domain.Identity, from, to domain.Status, now time.Time) (*domain.TaskRecord, bool, error) {
	if s.beforeTransition != nil {
		hook := s.beforeTransition
		s.beforeTransition = nil
		hook()
	}
	return s.MemoryStore.Transition(id, from, to, now)
}

func TestTaskService_AcknowledgeRaceFiresOnce(t *testing.T) {
	inner := storage.NewMemoryStore()
	store := &hookStore{MemoryStore: inner}
	bridge := NewCelebrationBridge()
	ledger := NewPointsLedger()
	bridge.Subscribe(ledger)
	svc := NewTaskService(store, bridge)
	rival := NewTaskService(inner, bridge)

	rec := seedPending(t, store, "site-icon", domain.Singleton())
	_, err := store.Update(rec.ID, map[string]interface{}{
		"status": domain.StatusPendingCelebration,
	})
	require.NoError(t, err)

	// The rival acknowledges after this service has read the record but
	// before its guarded write lands.
	later := week10.Add(time.Hour)
	store.beforeTransition = func() {
		_, err := rival.Acknowledge(rec.ID, later)
		require.NoError(t, err)
	}

	updated, err := svc.Acknowledge(rec.ID, later.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, 1, ledger.CompletionsFor(rec.ID), "losing acknowledger must not fire a second event")
	assert.Equal(t, rec.Points, ledger.Total())
}
