package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sipas/persuratan/internal/logging"
)

// RedisStore is a Redis-backed Store for deployments running several instances.
// Values are stored as JSON and come back from Get as json.RawMessage.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	logger  *logging.Logger
}

// RedisConfig holds configuration for the Redis store
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(cfg RedisConfig, logger *logging.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return newRedisStore(client, cfg.Prefix, logger), nil
}

func newRedisStore(client *redis.Client, prefix string, logger *logging.Logger) *RedisStore {
	if prefix == "" {
		prefix = "sipas:"
	}
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

func (c *RedisStore) key(k string) string {
	return c.prefix + k
}

func (c *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

func (c *RedisStore) logFailure(op, key string, err error) {
	c.logger.Error("Redis cache operation failed", logging.WithFields(map[string]interface{}{
		"op":    op,
		"key":   key,
		"error": err.Error(),
	}))
}

func (c *RedisStore) Get(key string) (interface{}, bool) {
	ctx, cancel := c.ctx()
	defer cancel()

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logFailure("get", key, err)
		}
		return nil, false
	}
	return json.RawMessage(data), true
}

func (c *RedisStore) Set(key string, value interface{}, ttlSeconds int) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logFailure("set", key, err)
		return
	}

	ctx, cancel := c.ctx()
	defer cancel()

	if err := c.client.Set(ctx, c.key(key), data, normalizeTTL(ttlSeconds)).Err(); err != nil {
		c.logFailure("set", key, err)
	}
}

func (c *RedisStore) Delete(key string) bool {
	ctx, cancel := c.ctx()
	defer cancel()

	n, err := c.client.Del(ctx, c.key(key)).Result()
	if err != nil {
		c.logFailure("delete", key, err)
		return false
	}
	return n > 0
}

func (c *RedisStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logFailure("clear", "", err)
	}
}

// Clean is a no-op: Redis expires keys on its own
func (c *RedisStore) Clean() int {
	return 0
}

func (c *RedisStore) Has(key string) bool {
	ctx, cancel := c.ctx()
	defer cancel()

	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		c.logFailure("has", key, err)
		return false
	}
	return n > 0
}

func (c *RedisStore) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries := []EntryStat{}
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		ttl, err := c.client.TTL(ctx, full).Result()
		if err != nil || ttl < 0 {
			continue
		}
		entries = append(entries, EntryStat{
			Key:                 strings.TrimPrefix(full, c.prefix),
			RemainingTTLSeconds: int(ttl.Seconds()),
		})
	}
	if err := iter.Err(); err != nil {
		c.logFailure("stats", "", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return Stats{Size: len(entries), Entries: entries}
}

// Close closes the Redis connection
func (c *RedisStore) Close() error {
	return c.client.Close()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
