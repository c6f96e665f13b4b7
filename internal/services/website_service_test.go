package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/warden/internal/models"
)

func TestWebsiteService_ResolveOrCreate(t *testing.T) {
	svc := NewWebsiteService(setupTestDB(t))
	ctx := context.Background()

	site, err := svc.ResolveOrCreate(ctx, "http://bad.example")
	require.NoError(t, err)
	assert.NotZero(t, site.ID)

	time.Sleep(10 * time.Millisecond)

	again, err := svc.ResolveOrCreate(ctx, "http://bad.example")
	require.NoError(t, err)
	assert.Equal(t, site.ID, again.ID)
	assert.True(t, site.UpdatedAt.Equal(again.UpdatedAt), "existing row must not be touched")

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWebsiteService_DomainsAreCaseSensitive(t *testing.T) {
	svc := NewWebsiteService(setupTestDB(t))
	ctx := context.Background()

	a, err := svc.ResolveOrCreate(ctx, "http://bad.example")
	require.NoError(t, err)
	b, err := svc.ResolveOrCreate(ctx, "http://bad.example/")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestWebsiteService_ResolveOrCreate_Concurrent(t *testing.T) {
	svc := NewWebsiteService(setupFileTestDB(t))
	ctx := context.Background()

	const workers = 10
	ids := make([]uint, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			site, err := svc.ResolveOrCreate(ctx, "https://race.example")
			if assert.NoError(t, err) {
				ids[i] = site.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWebsiteService_GetByDomain(t *testing.T) {
	svc := NewWebsiteService(setupTestDB(t))
	ctx := context.Background()

	_, err := svc.GetByDomain(ctx, "http://missing.example")
	assert.ErrorIs(t, err, ErrWebsiteNotFound)

	created, err := svc.ResolveOrCreate(ctx, "http://found.example")
	require.NoError(t, err)

	found, err := svc.GetByDomain(ctx, "http://found.example")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestResolveOrCreateWebsite_ReportsCreation(t *testing.T) {
	db := setupTestDB(t)

	_, created, err := resolveOrCreateWebsite(db, "http://new.example")
	require.NoError(t, err)
	assert.True(t, created)

	site, created, err := resolveOrCreateWebsite(db, "http://new.example")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "http://new.example", site.Domain)

	var n int64
	require.NoError(t, db.Model(&models.Website{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
