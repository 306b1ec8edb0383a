//go:build integration

package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/application/models"
	id "intake/pkg/domain"
	"intake/pkg/testutil/containers"
)

func newTestCache(t *testing.T, ttl time.Duration) *SnapshotCache {
	t.Helper()
	redis := containers.GetManager().GetRedis(t)
	require.NoError(t, redis.FlushAll(context.Background()))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSnapshotCache(redis.Client, ttl, logger)
}

func TestSnapshotCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t, time.Minute)

	rec := &models.Record{
		ID:     id.NewApplicationID(),
		Status: models.StatusDraft,
		Personal: models.PersonalParticulars{
			FamilyName: "Ndiaye",
			GivenNames: "Awa",
			Email:      "a.ndiaye@example.org",
		},
		LastCompletedStep: 3,
	}

	assert.Nil(t, cache.Get(ctx, rec.ID), "cold cache should miss")

	cache.Set(ctx, rec)
	got := cache.Get(ctx, rec.ID)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Ndiaye", got.Personal.FamilyName)
	assert.Equal(t, 3, got.LastCompletedStep)
}

func TestSnapshotCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t, time.Minute)

	rec := &models.Record{ID: id.NewApplicationID(), Status: models.StatusDraft}
	cache.Set(ctx, rec)
	require.NotNil(t, cache.Get(ctx, rec.ID))

	cache.Invalidate(ctx, rec.ID)
	assert.Nil(t, cache.Get(ctx, rec.ID))
}

func TestSnapshotCache_EntryExpires(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t, 100*time.Millisecond)

	rec := &models.Record{ID: id.NewApplicationID(), Status: models.StatusDraft}
	cache.Set(ctx, rec)
	require.NotNil(t, cache.Get(ctx, rec.ID))

	assert.Eventually(t, func() bool {
		return cache.Get(ctx, rec.ID) == nil
	}, 2*time.Second, 50*time.Millisecond)
}

func TestSnapshotCache_CorruptEntryDropped(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t, time.Minute)
	redis := containers.GetManager().GetRedis(t)

	appID := id.NewApplicationID()
	require.NoError(t, redis.Client.Set(ctx, "intake:draft:"+appID.String(), "{not json", time.Minute).Err())

	assert.Nil(t, cache.Get(ctx, appID))
	// The corrupt entry is deleted, not left to fail every read.
	exists, err := redis.Client.Exists(ctx, "intake:draft:"+appID.String()).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
