package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"intake/internal/application/models"
	"intake/internal/platform/redis"
	id "intake/pkg/domain"
)

// SnapshotCache keeps recently fetched draft snapshots in Redis so resume
// and review reads skip the database. The store stays authoritative; every
// write path invalidates.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SnapshotCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotCache{client: client, ttl: ttl, logger: logger}
}

func snapshotKey(appID id.ApplicationID) string {
	return "intake:draft:" + appID.String()
}

func (c *SnapshotCache) Get(ctx context.Context, appID id.ApplicationID) *models.Record {
	raw, err := c.client.Get(ctx, snapshotKey(appID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.WarnContext(ctx, "snapshot cache read failed",
				"application_id", appID, "error", err)
		}
		return nil
	}
	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.WarnContext(ctx, "snapshot cache entry corrupt, dropping",
			"application_id", appID, "error", err)
		c.Invalidate(ctx, appID)
		return nil
	}
	return &rec
}

func (c *SnapshotCache) Set(ctx context.Context, rec *models.Record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, snapshotKey(rec.ID), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "snapshot cache write failed",
			"application_id", rec.ID, "error", err)
	}
}

func (c *SnapshotCache) Invalidate(ctx context.Context, appID id.ApplicationID) {
	if err := c.client.Del(ctx, snapshotKey(appID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "snapshot cache invalidation failed",
			"application_id", appID, "error", err)
	}
}
