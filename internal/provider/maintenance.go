package provider

import (
	"fmt"

	"github.com/sitekit/nudge/internal/domain"
)

// CoreUpdateProvider nags about pending core updates once per week. Each ISO
// week gets a fresh record regardless of how earlier weeks resolved. Updates
// usually complete through the updater rather than an explicit user action
// on the task, so the provider skips the celebration hop.
type CoreUpdateProvider struct {
	meta
	site Site
}

func NewCoreUpdateProvider(site Site) *CoreUpdateProvider {
	return &CoreUpdateProvider{
		meta: meta{
			id:          "update-core",
			category:    CategoryMaintenance,
			capability:  domain.CapUpdateCore,
			shape:       domain.ShapePeriodic,
			celebratory: false,
		},
		site: site,
	}
}

func (p *CoreUpdateProvider) IsRelevant(ec domain.EvalContext) (bool, error) {
	return p.site.PendingCoreUpdates() > 0, nil
}

func (p *CoreUpdateProvider) Details(ec domain.EvalContext) domain.TaskDetails {
	count := p.site.PendingCoreUpdates()
	return domain.TaskDetails{
		Title:       "Perform pending updates",
		Description: fmt.Sprintf("%d update(s) are waiting to be installed.", count),
		URL:         "/admin/updates",
		Points:      2,
	}
}
