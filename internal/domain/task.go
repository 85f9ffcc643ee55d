package domain

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending            Status = "pending"
	StatusSnoozed            Status = "snoozed"
	StatusPendingCelebration Status = "pending_celebration"
	StatusCompleted          Status = "completed"
	StatusDeleted            Status = "deleted"
)

// transitions is the full state machine. Terminal states have no exits; no
// transition ever moves a terminal state backward.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusSnoozed:            true,
		StatusPendingCelebration: true,
		StatusCompleted:          true,
		StatusDeleted:            true,
	},
	StatusSnoozed: {
		StatusPending: true,
		StatusDeleted: true,
	},
	StatusPendingCelebration: {
		StatusCompleted: true,
	},
	StatusCompleted: {},
	StatusDeleted:   {},
}

func (s Status) CanTransitionTo(to Status) bool {
	return transitions[s][to]
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDeleted
}

// Open reports whether the record still represents a live suggestion.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusSnoozed || s == StatusPendingCelebration
}

var OpenStatuses = []Status{StatusPending, StatusSnoozed, StatusPendingCelebration}

// TaskRecord is the persisted form of one suggestion instance. Points are
// frozen at creation so later provider changes never rewrite history; title,
// description and url are refreshed from the provider at read time while the
// provider still knows the context, and otherwise serve as frozen history.
type TaskRecord struct {
	ID              Identity   `json:"id"`
	ProviderID      string     `json:"providerId"`
	Category        string     `json:"category"`
	Status          Status     `json:"status"`
	Points          int        `json:"points"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	URL             string     `json:"url,omitempty"`
	TargetRef       string     `json:"targetRef,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	StatusChangedAt time.Time  `json:"statusChangedAt"`
	SnoozedUntil    *time.Time `json:"snoozedUntil,omitempty"`
}

func NewTaskRecord(id Identity, providerID, category string, details TaskDetails, now time.Time) *TaskRecord {
	return &TaskRecord{
		ID:              id,
		ProviderID:      providerID,
		Category:        category,
		Status:          StatusPending,
		Points:          details.Points,
		Title:           details.Title,
		Description:     details.Description,
		URL:             details.URL,
		TargetRef:       details.TargetRef,
		CreatedAt:       now,
		StatusChangedAt: now,
	}
}

// Transition moves the record to a new status, enforcing the state machine.
// Leaving snoozed clears the snooze timestamp.
func (t *TaskRecord) Transition(to Status, now time.Time) error {
	if !t.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}
	t.Status = to
	t.StatusChangedAt = now
	if to != StatusSnoozed {
		t.SnoozedUntil = nil
	}
	return nil
}

// SnoozeExpired reports whether a snoozed record's window has lapsed.
func (t *TaskRecord) SnoozeExpired(now time.Time) bool {
	return t.Status == StatusSnoozed && t.SnoozedUntil != nil && !now.Before(*t.SnoozedUntil)
}

type TaskFilter struct {
	ProviderID *string
	Category   *string
	Status     *Status
	Statuses   []Status
}

func (f TaskFilter) Matches(t *TaskRecord) bool {
	if f.ProviderID != nil && t.ProviderID != *f.ProviderID {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
