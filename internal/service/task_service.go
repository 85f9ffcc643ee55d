package service

import (
	"fmt"
	"time"

	"github.com/sitekit/nudge/internal/domain"
)

// TaskService exposes the explicit user actions on individual records:
// acknowledging a celebration and dismissing a suggestion.
type TaskService struct {
	store  TaskStore
	bridge *CelebrationBridge
}

func NewTaskService(store TaskStore, bridge *CelebrationBridge) *TaskService {
	return &TaskService{store: store, bridge: bridge}
}

func (s *TaskService) Get(id domain.Identity) (*domain.TaskRecord, error) {
	return s.store.Get(id)
}

func (s *TaskService) List(filter domain.TaskFilter) ([]*domain.TaskRecord, error) {
	return s.store.List(filter)
}

// Acknowledge folds a celebrated task into history. The UI calls this after
// showing the celebration animation once; the completion event fires here,
// and only from the caller whose compare-and-set performed the transition.
func (s *TaskService) Acknowledge(id domain.Identity, now time.Time) (*domain.TaskRecord, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	from := rec.Status
	if err := rec.Transition(domain.StatusCompleted, now); err != nil {
		return nil, err
	}
	updated, performed, err := s.store.Transition(id, from, domain.StatusCompleted, now)
	if err != nil {
		return nil, err
	}
	if !performed {
		// A concurrent writer moved the record first. If it completed the
		// task the acknowledgment already happened; anything else is a
		// conflict.
		if updated.Status == domain.StatusCompleted {
			return updated, nil
		}
		return nil, fmt.Errorf("%w: %s changed to %s", domain.ErrInvalidTransition, id, updated.Status)
	}
	s.bridge.Completed(updated, now)
	return updated, nil
}

// Dismiss hard-deletes an open suggestion. Completion history is never
// dismissable; the state machine rejects the transition.
func (s *TaskService) Dismiss(id domain.Identity, now time.Time) error {
	rec, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if err := rec.Transition(domain.StatusDeleted, now); err != nil {
		return err
	}
	return s.store.Delete(id)
}
