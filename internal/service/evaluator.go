package service

import (
	"errors"
	"fmt"

	"github.com/sitekit/nudge/internal/domain"
	"github.com/sitekit/nudge/internal/logging"
	"github.com/sitekit/nudge/internal/provider"
)

// Evaluator reconciles provider relevance against persisted records. Run is
// idempotent and safe to invoke on every admin page load: a pass with no
// state change creates nothing and transitions nothing.
//
// Provider failures are isolated: a failing relevance check logs a diagnostic
// and the provider is treated as "no change this pass". Store failures abort
// the pass, since partial store state cannot be trusted.
type Evaluator struct {
	registry *provider.Registry
	store    TaskStore
	snoozes  *SnoozeManager
	bridge   *CelebrationBridge
	logger   logging.Logger
}

func NewEvaluator(registry *provider.Registry, store TaskStore, snoozes *SnoozeManager, bridge *CelebrationBridge, logger logging.Logger) *Evaluator {
	return &Evaluator{
		registry: registry,
		store:    store,
		snoozes:  snoozes,
		bridge:   bridge,
		logger:   logger.WithComponent("evaluator"),
	}
}

// Run executes one evaluation pass for the principal in ec. Providers the
// principal is not authorized for are neither evaluated nor touched.
func (e *Evaluator) Run(ec domain.EvalContext) error {
	for _, p := range e.registry.All() {
		if ec.Principal == nil || !ec.Principal.Can(p.Capability()) {
			continue
		}

		if err := e.snoozes.ReleaseExpired(p.ID(), ec.Now); err != nil {
			return fmt.Errorf("releasing expired snoozes for %s: %w", p.ID(), err)
		}
		snoozed, err := e.snoozes.IsProviderSnoozed(p.ID(), ec.Now)
		if err != nil {
			return fmt.Errorf("checking snooze for %s: %w", p.ID(), err)
		}
		if snoozed {
			continue
		}

		switch p.Shape() {
		case domain.ShapeSingleton:
			err = e.evaluateScalar(p, domain.Singleton(), ec)
		case domain.ShapePeriodic:
			err = e.evaluateScalar(p, domain.Weekly(ec.Now), ec)
		case domain.ShapeEntity:
			ep, ok := p.(domain.EntityProvider)
			if !ok {
				e.logger.Error("provider declares entity shape without entity contract", "provider", p.ID())
				continue
			}
			err = e.evaluateEntity(ep, ec)
		case domain.ShapeInteractive:
			// Completion arrives through an explicit external call; the
			// pass never creates or resolves these.
			continue
		default:
			e.logger.Error("provider declares unknown shape", "provider", p.ID(), "shape", p.Shape())
			continue
		}
		if err != nil {
			return fmt.Errorf("evaluating %s: %w", p.ID(), err)
		}
	}
	return nil
}

// evaluateScalar handles the singleton and periodic shapes: one canonical
// identity for "now", one record at most.
func (e *Evaluator) evaluateScalar(p domain.Provider, tctx domain.TaskContext, ec domain.EvalContext) error {
	id, err := domain.EncodeIdentity(p.ID(), tctx)
	if err != nil {
		e.logger.Error("cannot encode identity", "provider", p.ID(), "error", err)
		return nil
	}

	existing, err := e.store.Get(id)
	notFound := errors.Is(err, domain.ErrTaskNotFound)
	if err != nil && !notFound {
		return err
	}

	relevant, provErr := p.IsRelevant(ec)
	if provErr != nil {
		e.logger.Warn("provider relevance check failed", "provider", p.ID(), "error", provErr)
		return nil
	}

	if notFound {
		if !relevant {
			return nil
		}
		rec := domain.NewTaskRecord(id, p.ID(), p.Category(), p.Details(ec), ec.Now)
		if err := e.store.Create(rec); err != nil {
			if errors.Is(err, domain.ErrTaskExists) {
				// Concurrent pass won the create; their record stands.
				return nil
			}
			return err
		}
		return nil
	}

	if relevant {
		// Condition still holds, record already covers it.
		return nil
	}

	if existing.Status == domain.StatusPending {
		// Satisfied outside the task flow. Snoozed records are left for
		// expiry; celebration and terminal records are never revisited.
		return e.resolve(existing, p.Celebratory(), ec)
	}
	return nil
}

// resolve applies the completion transition to a pending record: the
// celebration hop for celebratory providers, straight to completed otherwise.
// The store-level compare-and-set decides which of two racing passes performs
// the transition; only the winner fires the completion event.
func (e *Evaluator) resolve(rec *domain.TaskRecord, celebratory bool, ec domain.EvalContext) error {
	to := domain.StatusCompleted
	if celebratory {
		to = domain.StatusPendingCelebration
	}
	from := rec.Status
	if err := rec.Transition(to, ec.Now); err != nil {
		return err
	}
	updated, performed, err := e.store.Transition(rec.ID, from, to, ec.Now)
	if err != nil {
		return err
	}
	if performed && to == domain.StatusCompleted {
		e.bridge.Completed(updated, ec.Now)
	}
	return nil
}

// evaluateEntity diffs the provider's qualifying target set against its open
// records: uncovered targets get new records, open records whose target no
// longer qualifies are resolved, records whose target vanished are retracted.
func (e *Evaluator) evaluateEntity(ep domain.EntityProvider, ec domain.EvalContext) error {
	targets, provErr := ep.Targets(ec)
	if provErr != nil {
		e.logger.Warn("provider target query failed", "provider", ep.ID(), "error", provErr)
		return nil
	}

	qualifying := make(map[string]bool, len(targets))
	for _, t := range targets {
		qualifying[t.Ref] = true
	}

	providerID := ep.ID()
	open, err := e.store.List(domain.TaskFilter{
		ProviderID: &providerID,
		Statuses:   domain.OpenStatuses,
	})
	if err != nil {
		return err
	}

	covered := make(map[string]bool, len(open))
	for _, rec := range open {
		covered[rec.TargetRef] = true
		if qualifying[rec.TargetRef] {
			continue
		}
		if rec.Status != domain.StatusPending {
			continue
		}

		exists, provErr := ep.HasTarget(ec, rec.TargetRef)
		if provErr != nil {
			e.logger.Warn("provider target check failed", "provider", ep.ID(), "target", rec.TargetRef, "error", provErr)
			continue
		}
		if !exists {
			// Target vanished: retract without completion credit.
			if err := e.store.Delete(rec.ID); err != nil && !errors.Is(err, domain.ErrTaskNotFound) {
				return err
			}
			continue
		}
		if err := e.resolve(rec, ep.Celebratory(), ec); err != nil {
			return err
		}
	}

	for _, t := range targets {
		if covered[t.Ref] {
			continue
		}
		id, err := domain.EncodeIdentity(providerID, domain.Entity(t.Ref))
		if err != nil {
			e.logger.Error("cannot encode identity", "provider", providerID, "target", t.Ref, "error", err)
			continue
		}

		// A completed record for the same target still covers it; history
		// is never recreated.
		_, err = e.store.Get(id)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrTaskNotFound) {
			return err
		}

		rec := domain.NewTaskRecord(id, providerID, ep.Category(), ep.TargetDetails(ec, t), ec.Now)
		if err := e.store.Create(rec); err != nil {
			if errors.Is(err, domain.ErrTaskExists) {
				continue
			}
			return err
		}
	}
	return nil
}
