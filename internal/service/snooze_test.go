package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitekit/nudge/internal/domain"
	"github.com/sitekit/nudge/internal/storage"
)

func seedPending(t *testing.T, store TaskStore, providerID string, ctx domain.TaskContext) *domain.TaskRecord {
	t.Helper()
	id, err := domain.EncodeIdentity(providerID, ctx)
	require.NoError(t, err)
	rec := domain.NewTaskRecord(id, providerID, "configuration", domain.TaskDetails{
		Title:  "Seeded",
		Points: 1,
	}, week10)
	require.NoError(t, store.Create(rec))
	return rec
}

func TestSnoozeManager_SnoozeByIdentity(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewSnoozeManager(store)
	rec := seedPending(t, store, "site-icon", domain.Singleton())

	require.NoError(t, m.Snooze(string(rec.ID), domain.Snooze1Month, week10))

	stored, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSnoozed, stored.Status)
	require.NotNil(t, stored.SnoozedUntil)
	assert.Equal(t, week10.AddDate(0, 1, 0), *stored.SnoozedUntil)

	snoozed, err := m.IsProviderSnoozed("site-icon", week10)
	require.NoError(t, err)
	assert.True(t, snoozed)

	snoozed, err = m.IsProviderSnoozed("site-icon", week10.AddDate(0, 1, 1))
	require.NoError(t, err)
	assert.False(t, snoozed)
}

func TestSnoozeManager_SnoozeByProviderID(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewSnoozeManager(store)
	seedPending(t, store, "update-core", domain.TaskContext{Kind: domain.KindPeriodic, Bucket: "2025-W10"})

	require.NoError(t, m.Snooze("update-core", domain.SnoozeForever, week10))

	stored, err := store.Get("update-core/week/2025-W10")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSnoozed, stored.Status)

	// "forever" is a far-future timestamp, same comparison path as the rest.
	snoozed, err := m.IsProviderSnoozed("update-core", week10.AddDate(50, 0, 0))
	require.NoError(t, err)
	assert.True(t, snoozed)
}

func TestSnoozeManager_SnoozeUnknownTarget(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewSnoozeManager(store)

	err := m.Snooze("nothing-here", domain.Snooze1Week, week10)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	err = m.Snooze("site-icon", domain.SnoozeDuration("5-minutes"), week10)
	assert.Error(t, err)
}

func TestSnoozeManager_ReSnoozeMovesExpiry(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewSnoozeManager(store)
	rec := seedPending(t, store, "site-icon", domain.Singleton())

	require.NoError(t, m.Snooze(string(rec.ID), domain.Snooze1Week, week10))
	require.NoError(t, m.Snooze(string(rec.ID), domain.Snooze1Year, week10))

	stored, err := store.Get(rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SnoozedUntil)
	assert.Equal(t, week10.AddDate(1, 0, 0), *stored.SnoozedUntil)
}

func TestSnoozeManager_Unsnooze(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewSnoozeManager(store)
	rec := seedPending(t, store, "site-icon", domain.Singleton())

	require.NoError(t, m.Snooze(string(rec.ID), domain.Snooze1Month, week10))
	require.NoError(t, m.Unsnooze(rec.ID, week10.Add(time.Hour)))

	stored, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Nil(t, stored.SnoozedUntil)

	// Unsnoozing a pending record is an invalid transition.
	assert.ErrorIs(t, m.Unsnooze(rec.ID, week10), domain.ErrInvalidTransition)
}

func TestSnoozeManager_ReleaseExpired(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewSnoozeManager(store)
	rec := seedPending(t, store, "site-icon", domain.Singleton())

	require.NoError(t, m.Snooze(string(rec.ID), domain.Snooze1Week, week10))

	// Before expiry nothing moves.
	require.NoError(t, m.ReleaseExpired("site-icon", week10.AddDate(0, 0, 3)))
	stored, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSnoozed, stored.Status)

	require.NoError(t, m.ReleaseExpired("site-icon", week10.AddDate(0, 0, 7)))
	stored, err = store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Nil(t, stored.SnoozedUntil)
}
