package localcache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rookgm/brewtrack/internal/models"
)

const keyPrefix = "brewtrack:local-orders:"

// RedisCache stores records of one customer under a redis key
type RedisCache struct {
	client *redis.Client
	key    string
}

// NewRedisCache creates RedisCache for customer
func NewRedisCache(client *redis.Client, customer string) *RedisCache {
	return &RedisCache{
		client: client,
		key:    keyPrefix + customer,
	}
}

// Load reads records, missing key, unreachable server or garbage is empty
func (rc *RedisCache) Load(ctx context.Context) []models.LocalOrderRecord {
	data, err := rc.client.Get(ctx, rc.key).Bytes()
	if err != nil {
		return []models.LocalOrderRecord{}
	}
	return decode(data)
}

// Save replaces records
func (rc *RedisCache) Save(ctx context.Context, records []models.LocalOrderRecord) error {
	data, err := encode(records)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, rc.key, data, 0).Err()
}
