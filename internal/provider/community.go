package provider

import (
	"fmt"
	"strings"

	"github.com/sitekit/nudge/internal/domain"
)

// ShareFeedbackProvider completes through an explicit form submission rather
// than polling. The engine never creates or completes its record
// automatically. Not celebratory: the celebration hop holds a record open
// until the user has seen it resolve, and an interactive trigger is already
// a foreground action, so the trigger response carries the celebration and
// the record completes directly.
type ShareFeedbackProvider struct {
	meta
}

func NewShareFeedbackProvider() *ShareFeedbackProvider {
	return &ShareFeedbackProvider{
		meta: meta{
			id:         "share-feedback",
			category:   CategoryCommunity,
			capability: domain.CapManageOptions,
			shape:      domain.ShapeInteractive,
		},
	}
}

// IsRelevant always reports false: relevance is "the trigger fired", which
// arrives through HandleTrigger instead.
func (p *ShareFeedbackProvider) IsRelevant(ec domain.EvalContext) (bool, error) {
	return false, nil
}

func (p *ShareFeedbackProvider) Details(ec domain.EvalContext) domain.TaskDetails {
	return domain.TaskDetails{
		Title:       "Share feedback",
		Description: "Tell us how the suggestions are working for you.",
		URL:         "/admin/feedback",
		Points:      3,
	}
}

func (p *ShareFeedbackProvider) HandleTrigger(ec domain.EvalContext, payload map[string]interface{}) (domain.TaskDetails, error) {
	message, _ := payload["message"].(string)
	if strings.TrimSpace(message) == "" {
		return domain.TaskDetails{}, fmt.Errorf("feedback message is required")
	}

	details := p.Details(ec)
	return details, nil
}
