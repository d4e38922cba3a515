package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/cache"
	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	redis "github.com/redis/go-redis/v9"
)

// Cache keeps won bids in Redis, so that a win event can reach any instance.
type Cache struct {
	client    *redis.Client
	timeout   time.Duration
	ttl       time.Duration
	keyPrefix string
}

// New builds a Redis backed store.
func New(cfg config.RedisConfig, ttl time.Duration) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("won_bids.redis.addr is required for the redis store")
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout == 0 {
		timeout = 50 * time.Millisecond // default
	}

	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			DB:           cfg.DB,
			Password:     cfg.Password,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		}),
		timeout:   timeout,
		ttl:       ttl,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (c *Cache) Save(ctx context.Context, id string, bid *adapters.WonBid) error {
	b, err := jsonutil.Marshal(bid)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(writeCtx, c.keyPrefix+id, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, id string) (*adapters.WonBid, error) {
	readCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	val, err := c.client.Get(readCtx, c.keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var bid adapters.WonBid
	if err := jsonutil.Unmarshal(val, &bid); err != nil {
		return nil, err
	}
	return &bid, nil
}

// Ping checks if Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Ping(pingCtx).Err()
}

// Close releases Redis resources.
func (c *Cache) Close() error {
	return c.client.Close()
}
