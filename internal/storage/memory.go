package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/sitekit/nudge/internal/domain"
)

// MemoryStore is a mutex-guarded in-memory task store. Create is atomic
// check-then-insert under the lock, which backs the engine's conditional
// upsert; reads hand out copies so callers never mutate stored state without
// going through Update.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[domain.Identity]*domain.TaskRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[domain.Identity]*domain.TaskRecord),
	}
}

func (ms *MemoryStore) Create(task *domain.TaskRecord) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.tasks[task.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrTaskExists, task.ID)
	}

	copied := *task
	ms.tasks[task.ID] = &copied
	return nil
}

func (ms *MemoryStore) Update(id domain.Identity, updates map[string]interface{}) (*domain.TaskRecord, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	updated := *task
	applyUpdates(&updated, updates)
	ms.tasks[id] = &updated

	result := updated
	return &result, nil
}

func applyUpdates(task *domain.TaskRecord, updates map[string]interface{}) {
	if status, ok := updates["status"].(domain.Status); ok {
		task.Status = status
	}
	if changedAt, ok := updates["statusChangedAt"].(time.Time); ok {
		task.StatusChangedAt = changedAt
	}
	if until, ok := updates["snoozedUntil"]; ok {
		switch v := until.(type) {
		case *time.Time:
			task.SnoozedUntil = v
		case time.Time:
			task.SnoozedUntil = &v
		case nil:
			task.SnoozedUntil = nil
		}
	}
	if title, ok := updates["title"].(string); ok {
		task.Title = title
	}
	if description, ok := updates["description"].(string); ok {
		task.Description = description
	}
	if url, ok := updates["url"].(string); ok {
		task.URL = url
	}
}

// Transition is a compare-and-set on the status column: the change applies
// only if the record still holds the expected status. The snooze window is
// cleared because no transition routed through here targets the snoozed
// status; snoozing sets its expiry through Update.
func (ms *MemoryStore) Transition(id domain.Identity, from, to domain.Status, now time.Time) (*domain.TaskRecord, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[id]
	if !exists {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	if task.Status != from {
		current := *task
		return &current, false, nil
	}

	updated := *task
	updated.Status = to
	updated.StatusChangedAt = now
	updated.SnoozedUntil = nil
	ms.tasks[id] = &updated

	result := updated
	return &result, true, nil
}

func (ms *MemoryStore) Get(id domain.Identity) (*domain.TaskRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	task, exists := ms.tasks[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	copied := *task
	return &copied, nil
}

func (ms *MemoryStore) List(filter domain.TaskFilter) ([]*domain.TaskRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var result []*domain.TaskRecord
	for _, task := range ms.tasks {
		if !filter.Matches(task) {
			continue
		}
		copied := *task
		result = append(result, &copied)
	}

	return result, nil
}

func (ms *MemoryStore) Delete(id domain.Identity) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.tasks[id]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	delete(ms.tasks, id)
	return nil
}
