package provider

import (
	"github.com/sitekit/nudge/internal/domain"
)

// SiteIconProvider suggests setting a site icon. One record can ever exist;
// once the icon is set the open record resolves.
type SiteIconProvider struct {
	meta
	site Site
}

func NewSiteIconProvider(site Site) *SiteIconProvider {
	return &SiteIconProvider{
		meta: meta{
			id:          "site-icon",
			category:    CategoryConfiguration,
			capability:  domain.CapManageOptions,
			shape:       domain.ShapeSingleton,
			celebratory: true,
		},
		site: site,
	}
}

func (p *SiteIconProvider) IsRelevant(ec domain.EvalContext) (bool, error) {
	return !p.site.HasIcon(), nil
}

func (p *SiteIconProvider) Details(ec domain.EvalContext) domain.TaskDetails {
	return domain.TaskDetails{
		Title:       "Set a site icon",
		Description: "A site icon identifies your site in browser tabs and bookmarks.",
		URL:         "/admin/settings/general#site-icon",
		Points:      1,
	}
}

// TaglineProvider suggests writing a blog description.
type TaglineProvider struct {
	meta
	site Site
}

func NewTaglineProvider(site Site) *TaglineProvider {
	return &TaglineProvider{
		meta: meta{
			id:          "blog-description",
			category:    CategoryConfiguration,
			capability:  domain.CapManageOptions,
			shape:       domain.ShapeSingleton,
			celebratory: true,
		},
		site: site,
	}
}

func (p *TaglineProvider) IsRelevant(ec domain.EvalContext) (bool, error) {
	return p.site.Tagline() == "", nil
}

func (p *TaglineProvider) Details(ec domain.EvalContext) domain.TaskDetails {
	return domain.TaskDetails{
		Title:       "Write a tagline",
		Description: "A short tagline tells visitors and search engines what your site is about.",
		URL:         "/admin/settings/general#tagline",
		Points:      1,
	}
}

// DisableCommentsProvider suggests closing comments on sites that do not
// moderate them.
type DisableCommentsProvider struct {
	meta
	site Site
}

func NewDisableCommentsProvider(site Site) *DisableCommentsProvider {
	return &DisableCommentsProvider{
		meta: meta{
			id:          "disable-comments",
			category:    CategoryConfiguration,
			capability:  domain.CapModerateComments,
			shape:       domain.ShapeSingleton,
			celebratory: true,
		},
		site: site,
	}
}

func (p *DisableCommentsProvider) IsRelevant(ec domain.EvalContext) (bool, error) {
	return p.site.CommentsOpen(), nil
}

func (p *DisableCommentsProvider) Details(ec domain.EvalContext) domain.TaskDetails {
	return domain.TaskDetails{
		Title:       "Disable comments",
		Description: "Unmoderated comments attract spam; close them if you do not use them.",
		URL:         "/admin/settings/discussion",
		Points:      1,
	}
}
