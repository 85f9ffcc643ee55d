package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/sitekit/nudge/internal/domain"
)

// SnoozeManager time-boxes suppression of providers. Snoozing any record of a
// provider suppresses the whole provider: the engine checks IsProviderSnoozed
// before creating anything, so even shapes that would mint a fresh identity
// (a new week bucket) stay quiet until the window lapses. Expiry is released
// lazily on the next evaluation pass.
type SnoozeManager struct {
	store TaskStore
}

func NewSnoozeManager(store TaskStore) *SnoozeManager {
	return &SnoozeManager{store: store}
}

// Snooze accepts either a task identity or a provider id. Given a provider
// id, every open record of that provider is snoozed.
func (m *SnoozeManager) Snooze(target string, d domain.SnoozeDuration, now time.Time) error {
	until, err := d.Until(now)
	if err != nil {
		return err
	}

	rec, err := m.store.Get(domain.Identity(target))
	switch {
	case err == nil:
		return m.snoozeRecord(rec, until, now)
	case !errors.Is(err, domain.ErrTaskNotFound):
		return err
	}

	providerID := target
	open, err := m.store.List(domain.TaskFilter{
		ProviderID: &providerID,
		Statuses:   domain.OpenStatuses,
	})
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return fmt.Errorf("%w: no open task for %q", domain.ErrTaskNotFound, target)
	}

	for _, rec := range open {
		if rec.Status == domain.StatusPendingCelebration {
			// Already satisfied, waiting for acknowledgment; nothing to
			// suppress.
			continue
		}
		if err := m.snoozeRecord(rec, until, now); err != nil {
			return err
		}
	}
	return nil
}

func (m *SnoozeManager) snoozeRecord(rec *domain.TaskRecord, until, now time.Time) error {
	if rec.Status != domain.StatusSnoozed {
		if err := rec.Transition(domain.StatusSnoozed, now); err != nil {
			return err
		}
	}
	// Re-snoozing just moves the expiry.
	_, err := m.store.Update(rec.ID, map[string]interface{}{
		"status":          domain.StatusSnoozed,
		"statusChangedAt": now,
		"snoozedUntil":    &until,
	})
	return err
}

// Unsnooze wakes one snoozed record explicitly.
func (m *SnoozeManager) Unsnooze(id domain.Identity, now time.Time) error {
	rec, err := m.store.Get(id)
	if err != nil {
		return err
	}
	if err := rec.Transition(domain.StatusPending, now); err != nil {
		return err
	}
	_, _, err = m.store.Transition(id, domain.StatusSnoozed, domain.StatusPending, now)
	return err
}

// IsProviderSnoozed reports whether any record of the provider is snoozed
// with an unexpired window.
func (m *SnoozeManager) IsProviderSnoozed(providerID string, now time.Time) (bool, error) {
	snoozed := domain.StatusSnoozed
	records, err := m.store.List(domain.TaskFilter{
		ProviderID: &providerID,
		Status:     &snoozed,
	})
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if !rec.SnoozeExpired(now) {
			return true, nil
		}
	}
	return false, nil
}

// ReleaseExpired wakes the provider's snoozed records whose window has
// lapsed.
func (m *SnoozeManager) ReleaseExpired(providerID string, now time.Time) error {
	snoozed := domain.StatusSnoozed
	records, err := m.store.List(domain.TaskFilter{
		ProviderID: &providerID,
		Status:     &snoozed,
	})
	if err != nil {
		return err
	}
	for _, rec := range records {
		if !rec.SnoozeExpired(now) {
			continue
		}
		if _, _, err := m.store.Transition(rec.ID, domain.StatusSnoozed, domain.StatusPending, now); err != nil {
			return err
		}
	}
	return nil
}
