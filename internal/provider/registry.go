package provider

import (
	"fmt"
	"sync"

	"github.com/sitekit/nudge/internal/domain"
)

// Registry holds the active providers in registration order. Order is stable
// so evaluation passes and downstream category caps are reproducible.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	providers map[string]domain.Provider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]domain.Provider),
	}
}

func (r *Registry) Register(p domain.Provider) error {
	if !domain.ValidProviderID(p.ID()) {
		return fmt.Errorf("invalid provider id %q", p.ID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[p.ID()]; exists {
		return fmt.Errorf("provider %q already registered", p.ID())
	}
	r.providers[p.ID()] = p
	r.order = append(r.order, p.ID())
	return nil
}

func (r *Registry) Get(id string) (domain.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	return p, ok
}

// All returns the providers in registration order.
func (r *Registry) All() []domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Provider, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.providers[id])
	}
	return result
}

func (r *Registry) ByCategory(category string) []domain.Provider {
	var result []domain.Provider
	for _, p := range r.All() {
		if p.Category() == category {
			result = append(result, p)
		}
	}
	return result
}

// Authorized returns the providers whose capability the principal holds.
func (r *Registry) Authorized(principal domain.Principal) []domain.Provider {
	var result []domain.Provider
	for _, p := range r.All() {
		if principal != nil && principal.Can(p.Capability()) {
			result = append(result, p)
		}
	}
	return result
}
