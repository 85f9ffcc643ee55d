package service

import (
	"sort"

	"github.com/sitekit/nudge/internal/domain"
	"github.com/sitekit/nudge/internal/provider"
)

// DisplayService is the read side for the admin UI: open suggestions grouped
// by category, capability-filtered, capped per category, in a stable order.
type DisplayService struct {
	registry *provider.Registry
	store    TaskStore
}

func NewDisplayService(registry *provider.Registry, store TaskStore) *DisplayService {
	return &DisplayService{registry: registry, store: store}
}

// OpenByCategory returns visible records grouped by category. Records whose
// provider capability the principal lacks are never returned. Presentation
// fields are refreshed from the provider where the provider can still
// recompute them; entity tasks and records with unknown providers keep their
// frozen fields. Ordering is stable: entity records follow their provider's
// target order (stalest first), everything else creation time then identity.
func (d *DisplayService) OpenByCategory(ec domain.EvalContext, categoryCaps map[string]int, defaultCap int) (map[string][]*domain.TaskRecord, error) {
	records, err := d.store.List(domain.TaskFilter{
		Statuses: []domain.Status{domain.StatusPending, domain.StatusPendingCelebration},
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	d.orderEntityRecords(records, ec)

	result := make(map[string][]*domain.TaskRecord)
	for _, rec := range records {
		p, known := d.registry.Get(rec.ProviderID)
		if known {
			if ec.Principal == nil || !ec.Principal.Can(p.Capability()) {
				continue
			}
			if p.Shape() == domain.ShapeSingleton || p.Shape() == domain.ShapePeriodic {
				details := p.Details(ec)
				rec.Title = details.Title
				rec.Description = details.Description
				rec.URL = details.URL
			}
		} else {
			// Retired or undecodable provider: opaque history, frozen
			// fields, admin eyes only.
			if ec.Principal == nil || !ec.Principal.Can(domain.CapManageOptions) {
				continue
			}
		}

		limit := defaultCap
		if c, ok := categoryCaps[rec.Category]; ok {
			limit = c
		}
		if len(result[rec.Category]) >= limit {
			continue
		}
		result[rec.Category] = append(result[rec.Category], rec)
	}
	return result, nil
}

// orderEntityRecords rearranges each entity provider's records into the
// provider's current target order, which lists the stalest target first.
// Records created in the same pass share a creation time, so without this
// the tie-break would surface them in target-id order instead. Targets that
// no longer qualify keep their creation-time slot at the back.
func (d *DisplayService) orderEntityRecords(records []*domain.TaskRecord, ec domain.EvalContext) {
	byProvider := make(map[string][]int)
	for i, rec := range records {
		p, known := d.registry.Get(rec.ProviderID)
		if !known || p.Shape() != domain.ShapeEntity {
			continue
		}
		byProvider[rec.ProviderID] = append(byProvider[rec.ProviderID], i)
	}

	for providerID, idxs := range byProvider {
		if len(idxs) < 2 {
			continue
		}
		p, _ := d.registry.Get(providerID)
		ep, ok := p.(domain.EntityProvider)
		if !ok {
			continue
		}
		targets, err := ep.Targets(ec)
		if err != nil {
			continue
		}
		rank := make(map[string]int, len(targets))
		for i, t := range targets {
			rank[t.Ref] = i
		}

		group := make([]*domain.TaskRecord, len(idxs))
		for i, idx := range idxs {
			group[i] = records[idx]
		}
		sort.SliceStable(group, func(i, j int) bool {
			ri, iRanked := rank[group[i].TargetRef]
			rj, jRanked := rank[group[j].TargetRef]
			switch {
			case iRanked && jRanked:
				return ri < rj
			case iRanked:
				return true
			default:
				return false
			}
		})
		for i, idx := range idxs {
			records[idx] = group[i]
		}
	}
}
