package service

import (
	"time"

	"github.com/sitekit/nudge/internal/domain"
)

// TaskStore is the persistence contract the engine consumes. The store is
// owned by the surrounding application. Two operations must be conditional:
// Create on the identity not existing yet (domain.ErrTaskExists otherwise),
// and Transition on the record still holding the expected status. Together
// they keep concurrent evaluation passes from duplicating records or firing
// a completion twice.
type TaskStore interface {
	Create(task *domain.TaskRecord) error
	Update(id domain.Identity, updates map[string]interface{}) (*domain.TaskRecord, error)
	// Transition moves the record from one status to another only if it
	// still holds the expected status, clearing any snooze window. The
	// second return reports whether this call performed the change; false
	// with a nil error means another writer got there first.
	Transition(id domain.Identity, from, to domain.Status, now time.Time) (*domain.TaskRecord, bool, error)
	Get(id domain.Identity) (*domain.TaskRecord, error)
	List(filter domain.TaskFilter) ([]*domain.TaskRecord, error)
	Delete(id domain.Identity) error
}
