package provider

import (
	"fmt"
	"sort"
	"time"

	"github.com/sitekit/nudge/internal/domain"
)

// CreateContentProvider suggests publishing something this week. Periodic:
// the suggestion renews every ISO week.
type CreateContentProvider struct {
	meta
	site Site
}

func NewCreateContentProvider(site Site) *CreateContentProvider {
	return &CreateContentProvider{
		meta: meta{
			id:          "create-content",
			category:    CategoryContent,
			capability:  domain.CapEditPosts,
			shape:       domain.ShapePeriodic,
			celebratory: true,
		},
		site: site,
	}
}

func (p *CreateContentProvider) IsRelevant(ec domain.EvalContext) (bool, error) {
	return p.site.PostsPublishedSince(weekStart(ec.Now)) == 0, nil
}

func (p *CreateContentProvider) Details(ec domain.EvalContext) domain.TaskDetails {
	return domain.TaskDetails{
		Title:       "Publish new content",
		Description: "You have not published anything this week. Fresh content keeps readers and crawlers coming back.",
		URL:         "/admin/posts/new",
		Points:      1,
	}
}

// weekStart returns Monday 00:00 UTC of t's ISO week.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := t.AddDate(0, 0, 1-weekday)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// ReviewPostProvider surfaces stale posts for review, one task per post,
// oldest first, capped at maxTasks.
type ReviewPostProvider struct {
	meta
	site       Site
	staleAfter time.Duration
	maxTasks   int
}

func NewReviewPostProvider(site Site, staleAfter time.Duration, maxTasks int) *ReviewPostProvider {
	return &ReviewPostProvider{
		meta: meta{
			id:          "review-post",
			category:    CategoryContent,
			capability:  domain.CapEditPosts,
			shape:       domain.ShapeEntity,
			celebratory: true,
		},
		site:       site,
		staleAfter: staleAfter,
		maxTasks:   maxTasks,
	}
}

// IsRelevant is unused for entity shapes; the engine diffs Targets instead.
func (p *ReviewPostProvider) IsRelevant(ec domain.EvalContext) (bool, error) {
	targets, err := p.Targets(ec)
	return len(targets) > 0, err
}

func (p *ReviewPostProvider) Details(ec domain.EvalContext) domain.TaskDetails {
	return domain.TaskDetails{
		Title:  "Review stale content",
		Points: 1,
	}
}

func (p *ReviewPostProvider) Targets(ec domain.EvalContext) ([]domain.Target, error) {
	cutoff := ec.Now.Add(-p.staleAfter)

	var stale []Post
	for _, post := range p.site.Posts() {
		if post.ModifiedAt.Before(cutoff) {
			stale = append(stale, post)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		if stale[i].ModifiedAt.Equal(stale[j].ModifiedAt) {
			return stale[i].ID < stale[j].ID
		}
		return stale[i].ModifiedAt.Before(stale[j].ModifiedAt)
	})

	if len(stale) > p.maxTasks {
		stale = stale[:p.maxTasks]
	}

	targets := make([]domain.Target, 0, len(stale))
	for _, post := range stale {
		targets = append(targets, domain.Target{Ref: post.ID, Title: post.Title})
	}
	return targets, nil
}

func (p *ReviewPostProvider) HasTarget(ec domain.EvalContext, ref string) (bool, error) {
	return p.site.HasPost(ref), nil
}

func (p *ReviewPostProvider) TargetDetails(ec domain.EvalContext, target domain.Target) domain.TaskDetails {
	return domain.TaskDetails{
		Title:       fmt.Sprintf("Review %q", target.Title),
		Description: "This post has not been updated in a while. Check it for accuracy and freshness.",
		URL:         "/admin/posts/" + target.Ref + "/edit",
		Points:      1,
		TargetRef:   target.Ref,
	}
}
