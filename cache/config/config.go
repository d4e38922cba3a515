package config

import (
	"fmt"

	"github.com/allegro/ortb-bridge/cache"
	"github.com/allegro/ortb-bridge/cache/memorycache"
	"github.com/allegro/ortb-bridge/cache/rediscache"
	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/golang/glog"
)

// NewWonBids builds the won bid store selected by cfg.Type, wrapped with metrics.
func NewWonBids(cfg config.WonBids, me metrics.MetricsEngine) (cache.WonBids, error) {
	var store cache.WonBids
	switch cfg.Type {
	case config.WonBidStoreMemory:
		glog.Infof("Storing won bids in memory, size=%d bytes, ttl=%ds", cfg.Size, cfg.TTLSeconds)
		store = memorycache.New(cfg.Size, cfg.TTLSeconds)
	case config.WonBidStoreRedis:
		glog.Infof("Storing won bids in redis at %s, ttl=%ds", cfg.Redis.Addr, cfg.TTLSeconds)
		redisStore, err := rediscache.New(cfg.Redis, cfg.TTL())
		if err != nil {
			return nil, err
		}
		store = redisStore
	case config.WonBidStoreNone:
		glog.Warning("Won bids are not stored, win events will not trigger impression pixels")
		store = cache.NewDummyWonBids()
	default:
		return nil, fmt.Errorf("unknown won bid store type %q", cfg.Type)
	}
	return cache.Metered(store, me), nil
}
