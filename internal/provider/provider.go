package provider

import (
	"github.com/sitekit/nudge/internal/domain"
)

// meta carries the static metadata every built-in provider shares.
type meta struct {
	id          string
	category    string
	capability  domain.Capability
	shape       domain.Shape
	celebratory bool
}

func (m meta) ID() string                    { return m.id }
func (m meta) Category() string              { return m.category }
func (m meta) Capability() domain.Capability { return m.capability }
func (m meta) Shape() domain.Shape           { return m.shape }
func (m meta) Celebratory() bool             { return m.celebratory }

// Display categories used by the built-in providers.
const (
	CategoryConfiguration = "configuration"
	CategoryMaintenance   = "maintenance"
	CategoryContent       = "content"
	CategoryCommunity     = "community"
)
