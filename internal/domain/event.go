package domain

import (
	"time"

	"github.com/google/uuid"
)

// CompletionEvent is emitted exactly once per identity when a record enters
// completed. It is the sole write path into the external points ledger.
type CompletionEvent struct {
	EventID     string    `json:"eventId"`
	TaskID      Identity  `json:"taskId"`
	ProviderID  string    `json:"providerId"`
	Points      int       `json:"points"`
	CompletedAt time.Time `json:"completedAt"`
}

func NewCompletionEvent(t *TaskRecord, completedAt time.Time) CompletionEvent {
	return CompletionEvent{
		EventID:     uuid.New().String(),
		TaskID:      t.ID,
		ProviderID:  t.ProviderID,
		Points:      t.Points,
		CompletedAt: completedAt,
	}
}

// CompletionSink consumes completion events; implemented by the gamification
// side of the application.
type CompletionSink interface {
	OnTaskCompleted(ev CompletionEvent)
}
