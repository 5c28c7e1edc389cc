package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poddle/poddle/pkg/domain"
	xe "github.com/poddle/poddle/pkg/errors"
)

// Cache is the read-model side of the event layer: frontends poll these
// entries instead of the ledger database.
type Cache interface {
	// SetStatus overwrites the cached status of a deployment.
	SetStatus(ctx context.Context, deploymentId string, status domain.DeploymentStatus) error

	// PushMetric prepends a snapshot to the bounded history under key,
	// trims it to retention entries, and refreshes the key's ttl.
	PushMetric(ctx context.Context, key string, snapshot domain.MetricSnapshot, retention int64, ttl time.Duration) error
}

type redisCache struct {
	client redis.UniversalClient
}

func NewCache(client redis.UniversalClient) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) SetStatus(ctx context.Context, deploymentId string, status domain.DeploymentStatus) error {
	key := DeploymentStatusCacheKey(deploymentId)
	if err := c.client.Set(ctx, key, string(status), 0).Err(); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (c *redisCache) PushMetric(
	ctx context.Context,
	key string,
	snapshot domain.MetricSnapshot,
	retention int64,
	ttl time.Duration,
) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return xe.Wrap(err)
	}

	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, retention-1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return xe.Wrap(err)
	}
	return nil
}
