package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitekit/nudge/internal/domain"
	"github.com/sitekit/nudge/internal/provider"
	"github.com/sitekit/nudge/internal/storage"
)

func newInteractiveFixture(t *testing.T) (*InteractiveService, TaskStore, *PointsLedger) {
	t.Helper()
	registry := provider.NewRegistry()
	require.NoError(t, registry.Register(provider.NewShareFeedbackProvider()))

	store := storage.NewMemoryStore()
	bridge := NewCelebrationBridge()
	ledger := NewPointsLedger()
	bridge.Subscribe(ledger)

	return NewInteractiveService(registry, store, bridge), store, ledger
}

func TestInteractiveService_Complete(t *testing.T) {
	svc, store, ledger := newInteractiveFixture(t)

	result, err := svc.Complete("share-feedback",
		map[string]interface{}{"message": "great plugin"}, adminCtx(week10))
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.False(t, result.AlreadyCompleted)
	assert.Equal(t, 3, result.Points)

	rec, err := store.Get("share-feedback")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, 3, ledger.Total())
}

func TestInteractiveService_RepeatTriggerFiresOnce(t *testing.T) {
	svc, _, ledger := newInteractiveFixture(t)
	payload := map[string]interface{}{"message": "again"}

	_, err := svc.Complete("share-feedback", payload, adminCtx(week10))
	require.NoError(t, err)

	result, err := svc.Complete("share-feedback", payload, adminCtx(week10.Add(time.Hour)))
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.True(t, result.AlreadyCompleted)
	assert.Equal(t, 1, ledger.CompletionsFor("share-feedback"))
}

func TestInteractiveService_InvalidPayloadIsUserVisible(t *testing.T) {
	svc, store, ledger := newInteractiveFixture(t)

	_, err := svc.Complete("share-feedback", map[string]interface{}{}, adminCtx(week10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger rejected")

	_, getErr := store.Get("share-feedback")
	assert.ErrorIs(t, getErr, domain.ErrTaskNotFound)
	assert.Empty(t, ledger.Events())
}

func TestInteractiveService_UnknownAndNonInteractive(t *testing.T) {
	registry := provider.NewRegistry()
	site := &provider.Snapshot{}
	require.NoError(t, registry.Register(provider.NewSiteIconProvider(site)))
	svc := NewInteractiveService(registry, storage.NewMemoryStore(), NewCelebrationBridge())

	_, err := svc.Complete("missing", nil, adminCtx(week10))
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)

	_, err = svc.Complete("site-icon", nil, adminCtx(week10))
	assert.Error(t, err)
}

func TestInteractiveService_Unauthorized(t *testing.T) {
	svc, _, _ := newInteractiveFixture(t)

	visitor := domain.EvalContext{Now: week10, Principal: domain.Grants(domain.CapEditPosts)}
	_, err := svc.Complete("share-feedback",
		map[string]interface{}{"message": "hi"}, visitor)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestInteractiveService_CompletesSnoozedRecord(t *testing.T) {
	svc, store, ledger := newInteractiveFixture(t)
	rec := seedPending(t, store, "share-feedback", domain.Singleton())
	m := NewSnoozeManager(store)
	require.NoError(t, m.Snooze(string(rec.ID), domain.Snooze1Month, week10))

	result, err := svc.Complete("share-feedback",
		map[string]interface{}{"message": "done anyway"}, adminCtx(week10.Add(time.Hour)))
	require.NoError(t, err)
	assert.True(t, result.Completed)

	stored, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Nil(t, stored.SnoozedUntil)
	assert.Equal(t, 1, ledger.CompletionsFor(rec.ID))
}
