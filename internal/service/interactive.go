package service

import (
	"errors"
	"fmt"

	"github.com/sitekit/nudge/internal/domain"
	"github.com/sitekit/nudge/internal/provider"
)

// InteractiveService is the explicit completion path for interactive-shape
// providers. Unlike the evaluation pass, failures here are user-visible:
// the caller gets a clear result or error.
type InteractiveService struct {
	registry *provider.Registry
	store    TaskStore
	bridge   *CelebrationBridge
}

func NewInteractiveService(registry *provider.Registry, store TaskStore, bridge *CelebrationBridge) *InteractiveService {
	return &InteractiveService{registry: registry, store: store, bridge: bridge}
}

type TriggerResult struct {
	TaskID           domain.Identity `json:"taskId"`
	Points           int             `json:"points"`
	Completed        bool            `json:"completed"`
	AlreadyCompleted bool            `json:"alreadyCompleted"`
}

// Complete runs an interactive provider's trigger and records the completion
// through the same state machine automatic completion uses. Re-triggering an
// already completed task reports AlreadyCompleted without firing a second
// event.
func (s *InteractiveService) Complete(providerID string, payload map[string]interface{}, ec domain.EvalContext) (*TriggerResult, error) {
	p, ok := s.registry.Get(providerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, providerID)
	}
	ip, ok := p.(domain.InteractiveProvider)
	if !ok {
		return nil, fmt.Errorf("provider %s does not accept interactive completion", providerID)
	}
	if ec.Principal == nil || !ec.Principal.Can(p.Capability()) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotAuthorized, p.Capability())
	}

	details, err := ip.HandleTrigger(ec, payload)
	if err != nil {
		return nil, fmt.Errorf("trigger rejected: %w", err)
	}

	id, err := domain.EncodeIdentity(providerID, domain.Singleton())
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Get(id)
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		rec = domain.NewTaskRecord(id, providerID, p.Category(), details, ec.Now)
		if err := s.store.Create(rec); err != nil && !errors.Is(err, domain.ErrTaskExists) {
			return nil, err
		}
		rec, err = s.store.Get(id)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	if rec.Status == domain.StatusCompleted {
		return &TriggerResult{TaskID: id, Points: rec.Points, AlreadyCompleted: true}, nil
	}
	if rec.Status == domain.StatusDeleted {
		return nil, fmt.Errorf("%w: %s was dismissed", domain.ErrTaskNotFound, id)
	}

	// Snoozed records wake before completing so the transition stays legal;
	// the store-level compare-and-set still guards on the status the record
	// was read with, so racing triggers complete it exactly once.
	from := rec.Status
	if rec.Status == domain.StatusSnoozed {
		if err := rec.Transition(domain.StatusPending, ec.Now); err != nil {
			return nil, err
		}
	}
	if err := rec.Transition(domain.StatusCompleted, ec.Now); err != nil {
		return nil, err
	}

	updated, performed, err := s.store.Transition(id, from, domain.StatusCompleted, ec.Now)
	if err != nil {
		return nil, err
	}
	if !performed {
		if updated.Status == domain.StatusCompleted {
			return &TriggerResult{TaskID: id, Points: updated.Points, AlreadyCompleted: true}, nil
		}
		return nil, fmt.Errorf("%w: %s changed to %s", domain.ErrInvalidTransition, id, updated.Status)
	}

	s.bridge.Completed(updated, ec.Now)
	return &TriggerResult{TaskID: id, Points: updated.Points, Completed: true}, nil
}
