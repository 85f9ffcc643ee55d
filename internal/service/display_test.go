package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitekit/nudge/internal/domain"
	"github.com/sitekit/nudge/internal/provider"
	"github.com/sitekit/nudge/internal/storage"
)

func seedOpen(t *testing.T, store TaskStore, providerID, category string, ctx domain.TaskContext, createdAt time.Time) *domain.TaskRecord {
	t.Helper()
	id, err := domain.EncodeIdentity(providerID, ctx)
	require.NoError(t, err)
	rec := domain.NewTaskRecord(id, providerID, category, domain.TaskDetails{
		Title:     "Seeded",
		Points:    1,
		TargetRef: ctx.Target,
	}, createdAt)
	require.NoError(t, store.Create(rec))
	return rec
}

func newDisplayFixture(t *testing.T) (*DisplayService, TaskStore, *provider.Registry) {
	t.Helper()
	site := &provider.Snapshot{Icon: false, PendingUpdates: 1}
	registry := provider.NewRegistry()
	require.NoError(t, registry.Register(provider.NewSiteIconProvider(site)))
	require.NoError(t, registry.Register(provider.NewCoreUpdateProvider(site)))

	store := storage.NewMemoryStore()
	return NewDisplayService(registry, store), store, registry
}

func TestDisplayService_CapabilityFiltering(t *testing.T) {
	svc, store, _ := newDisplayFixture(t)
	seedOpen(t, store, "site-icon", provider.CategoryConfiguration, domain.Singleton(), week10)
	seedOpen(t, store, "update-core", provider.CategoryMaintenance, domain.Weekly(week10), week10)

	// update_core only: the configuration suggestion stays hidden.
	ec := domain.EvalContext{Now: week10, Principal: domain.Grants(domain.CapUpdateCore)}
	grouped, err := svc.OpenByCategory(ec, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, grouped[provider.CategoryConfiguration])
	require.Len(t, grouped[provider.CategoryMaintenance], 1)

	grouped, err = svc.OpenByCategory(adminCtx(week10), nil, 5)
	require.NoError(t, err)
	assert.Len(t, grouped[provider.CategoryConfiguration], 1)
	assert.Len(t, grouped[provider.CategoryMaintenance], 1)
}

func TestDisplayService_RefreshesScalarPresentation(t *testing.T) {
	svc, store, _ := newDisplayFixture(t)
	rec := seedPending(t, store, "site-icon", domain.Singleton())
	_, err := store.Update(rec.ID, map[string]interface{}{"title": "stale title"})
	require.NoError(t, err)

	grouped, err := svc.OpenByCategory(adminCtx(week10), nil, 5)
	require.NoError(t, err)
	require.Len(t, grouped[provider.CategoryConfiguration], 1)
	shown := grouped[provider.CategoryConfiguration][0]
	assert.NotEqual(t, "stale title", shown.Title)
	assert.NotEmpty(t, shown.Title)
}

func TestDisplayService_UnknownProviderFrozenAdminOnly(t *testing.T) {
	svc, store, _ := newDisplayFixture(t)
	rec := domain.NewTaskRecord("retired-thing", "retired-thing", provider.CategoryMaintenance,
		domain.TaskDetails{Title: "Old suggestion", Points: 1}, week10)
	require.NoError(t, store.Create(rec))

	grouped, err := svc.OpenByCategory(adminCtx(week10), nil, 5)
	require.NoError(t, err)
	require.Len(t, grouped[provider.CategoryMaintenance], 1)
	assert.Equal(t, "Old suggestion", grouped[provider.CategoryMaintenance][0].Title)

	editor := domain.EvalContext{Now: week10, Principal: domain.Grants(domain.CapEditPosts, domain.CapUpdateCore)}
	grouped, err = svc.OpenByCategory(editor, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, grouped[provider.CategoryMaintenance])
}

func TestDisplayService_CategoryCaps(t *testing.T) {
	registry := provider.NewRegistry()
	rp := provider.NewReviewPostProvider(&provider.Snapshot{}, 180*24*time.Hour, 12)
	require.NoError(t, registry.Register(rp))

	store := storage.NewMemoryStore()
	svc := NewDisplayService(registry, store)

	for i := 0; i < 6; i++ {
		ref := fmt.Sprintf("%c", 'a'+i)
		seedOpen(t, store, "review-post", provider.CategoryContent, domain.Entity(ref),
			week10.Add(time.Duration(i)*time.Minute))
	}

	grouped, err := svc.OpenByCategory(adminCtx(week10), map[string]int{provider.CategoryContent: 3}, 10)
	require.NoError(t, err)
	assert.Len(t, grouped[provider.CategoryContent], 3)

	grouped, err = svc.OpenByCategory(adminCtx(week10), nil, 2)
	require.NoError(t, err)
	assert.Len(t, grouped[provider.CategoryContent], 2)
}

func TestDisplayService_StableOrdering(t *testing.T) {
	svc, store, _ := newDisplayFixture(t)

	first := domain.NewTaskRecord("update-core/week/2025-W09", "update-core",
		provider.CategoryMaintenance, domain.TaskDetails{Title: "Update", Points: 2}, week10.Add(-7*24*time.Hour))
	require.NoError(t, store.Create(first))
	second := domain.NewTaskRecord("update-core/week/2025-W10", "update-core",
		provider.CategoryMaintenance, domain.TaskDetails{Title: "Update", Points: 2}, week10)
	require.NoError(t, store.Create(second))

	for i := 0; i < 3; i++ {
		grouped, err := svc.OpenByCategory(adminCtx(week10), nil, 5)
		require.NoError(t, err)
		recs := grouped[provider.CategoryMaintenance]
		require.Len(t, recs, 2)
		assert.Equal(t, first.ID, recs[0].ID)
		assert.Equal(t, second.ID, recs[1].ID)
	}
}

func TestDisplayService_IncludesPendingCelebration(t *testing.T) {
	svc, store, _ := newDisplayFixture(t)
	rec := seedPending(t, store, "site-icon", domain.Singleton())
	require.NoError(t, rec.Transition(domain.StatusPendingCelebration, week10))
	_, err := store.Update(rec.ID, map[string]interface{}{
		"status":          domain.StatusPendingCelebration,
		"statusChangedAt": week10,
	})
	require.NoError(t, err)

	grouped, err := svc.OpenByCategory(adminCtx(week10), nil, 5)
	require.NoError(t, err)
	require.Len(t, grouped[provider.CategoryConfiguration], 1)
	assert.Equal(t, domain.StatusPendingCelebration, grouped[provider.CategoryConfiguration][0].Status)
}

func TestDisplayService_EntityRecordsOrderedByStaleness(t *testing.T) {
	site := &provider.Snapshot{PostList: []provider.Post{
		{ID: "a", Title: "Newer stale post", PublishedAt: week10.AddDate(-2, 0, 0), ModifiedAt: week10.AddDate(0, 0, -300)},
		{ID: "b", Title: "Stalest post", PublishedAt: week10.AddDate(-2, 0, 0), ModifiedAt: week10.AddDate(0, 0, -400)},
	}}
	registry := provider.NewRegistry()
	require.NoError(t, registry.Register(provider.NewReviewPostProvider(site, 180*24*time.Hour, 10)))
	store := storage.NewMemoryStore()
	svc := NewDisplayService(registry, store)

	// Both records came out of the same pass, so the creation-time
	// tie-break alone would surface "a" first.
	seedOpen(t, store, "review-post", provider.CategoryContent, domain.Entity("a"), week10)
	seedOpen(t, store, "review-post", provider.CategoryContent, domain.Entity("b"), week10)

	grouped, err := svc.OpenByCategory(adminCtx(week10), nil, 5)
	require.NoError(t, err)
	recs := grouped[provider.CategoryContent]
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].TargetRef, "stalest target leads")
	assert.Equal(t, "a", recs[1].TargetRef)
}
