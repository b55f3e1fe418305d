package artifact

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ReadyStatus is what the cache remembers about a finished invoice.
type ReadyStatus struct {
	Location string
	Checksum string
	Attempt  int
}

// StatusCache only holds READY results. A miss falls back to the database.
type StatusCache interface {
	GetReady(ctx context.Context, bookingID uuid.UUID) (*ReadyStatus, bool)
	SetReady(ctx context.Context, bookingID uuid.UUID, status ReadyStatus)
	Invalidate(ctx context.Context, bookingID uuid.UUID)
}

type redisStatusCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisStatusCache returns a no-op cache when client is nil.
func NewRedisStatusCache(client *redis.Client, ttl time.Duration, log *zap.Logger) StatusCache {
	if client == nil {
		return noopCache{}
	}
	return &redisStatusCache{
		client: client,
		ttl:    ttl,
		log:    log.With(zap.String("component", "artifact_cache")),
	}
}

func cacheKey(bookingID uuid.UUID) string {
	return "invoice:ready:" + bookingID.String()
}

func (c *redisStatusCache) GetReady(ctx context.Context, bookingID uuid.UUID) (*ReadyStatus, bool) {
	values, err := c.client.HGetAll(ctx, cacheKey(bookingID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Failed to read cached invoice status", zap.Error(err), zap.String("booking_id", bookingID.String()))
		}
		return nil, false
	}
	if values["location"] == "" {
		return nil, false
	}

	attempt, _ := strconv.Atoi(values["attempt"])

	return &ReadyStatus{
		Location: values["location"],
		Checksum: values["checksum"],
		Attempt:  attempt,
	}, true
}

func (c *redisStatusCache) SetReady(ctx context.Context, bookingID uuid.UUID, status ReadyStatus) {
	key := cacheKey(bookingID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, "location", status.Location, "checksum", status.Checksum, "attempt", status.Attempt)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("Failed to cache invoice status", zap.Error(err), zap.String("booking_id", bookingID.String()))
	}
}

func (c *redisStatusCache) Invalidate(ctx context.Context, bookingID uuid.UUID) {
	if err := c.client.Del(ctx, cacheKey(bookingID)).Err(); err != nil {
		c.log.Warn("Failed to invalidate invoice status", zap.Error(err), zap.String("booking_id", bookingID.String()))
	}
}

type noopCache struct{}

func (noopCache) GetReady(context.Context, uuid.UUID) (*ReadyStatus, bool) { return nil, false }
func (noopCache) SetReady(context.Context, uuid.UUID, ReadyStatus)         {}
func (noopCache) Invalidate(context.Context, uuid.UUID)                    {}
