package domain

import "time"

type Capability string

const (
	CapManageOptions    Capability = "manage_options"
	CapEditPosts        Capability = "edit_posts"
	CapUpdateCore       Capability = "update_core"
	CapModerateComments Capability = "moderate_comments"
)

// Principal answers capability checks for the user an evaluation pass runs as.
type Principal interface {
	Can(c Capability) bool
}

// CapabilitySet is a Principal backed by an explicit grant set.
type CapabilitySet map[Capability]bool

func (cs CapabilitySet) Can(c Capability) bool {
	return cs[c]
}

func Grants(caps ...Capability) CapabilitySet {
	cs := make(CapabilitySet, len(caps))
	for _, c := range caps {
		cs[c] = true
	}
	return cs
}

// EvalContext carries everything a provider may consult during one pass:
// a fixed clock and the current principal. Providers never reach for ambient
// state, which keeps passes reproducible under test.
type EvalContext struct {
	Now       time.Time
	Principal Principal
}

type TaskDetails struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Points      int    `json:"points"`
	TargetRef   string `json:"targetRef,omitempty"`
}

type Shape string

const (
	ShapeSingleton   Shape = "singleton"
	ShapePeriodic    Shape = "periodic"
	ShapeEntity      Shape = "entity"
	ShapeInteractive Shape = "interactive"
)

// Provider is one recommendation type: a relevance predicate plus the
// metadata to describe the resulting task. Providers are stateless and their
// predicates are read-only against live system state.
type Provider interface {
	ID() string
	Category() string
	Capability() Capability
	Shape() Shape

	// IsRelevant reports whether a task should currently exist. For entity
	// and interactive shapes the scalar predicate is unused; entity
	// providers report per target, interactive ones complete on an
	// explicit external call.
	IsRelevant(ec EvalContext) (bool, error)

	// Details builds the presentation metadata for the current context.
	Details(ec EvalContext) TaskDetails

	// Celebratory providers get the pending_celebration hop before
	// completion; the rest complete directly.
	Celebratory() bool
}

// Target is one qualifying entity for an entity-scoped provider.
type Target struct {
	Ref   string
	Title string
}

// EntityProvider is the entity-scoped extension: a qualifying-target set that
// the engine diffs against open records.
type EntityProvider interface {
	Provider

	// Targets returns the currently qualifying targets, ordered and capped
	// by the provider.
	Targets(ec EvalContext) ([]Target, error)

	// HasTarget distinguishes a target that stopped qualifying (satisfied)
	// from one that vanished entirely (record is retracted).
	HasTarget(ec EvalContext, ref string) (bool, error)

	TargetDetails(ec EvalContext, target Target) TaskDetails
}

// InteractiveProvider completes through an explicit external trigger instead
// of polling. HandleTrigger validates the payload and, on success, returns
// the details recorded alongside the completion.
type InteractiveProvider interface {
	Provider

	HandleTrigger(ec EvalContext, payload map[string]interface{}) (TaskDetails, error)
}
