package memorycache

import (
	"context"
	"errors"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/cache"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/coocood/freecache"
)

// Cache keeps won bids in process memory. When it fills up the oldest entries are evicted,
// so a win event may miss even before the ttl elapses.
type Cache struct {
	lru        *freecache.Cache
	ttlSeconds int
}

// New creates a cache of roughly sizeBytes which keeps every entry for at most ttlSeconds.
func New(sizeBytes int, ttlSeconds int) *Cache {
	return &Cache{
		lru:        freecache.NewCache(sizeBytes),
		ttlSeconds: ttlSeconds,
	}
}

func (c *Cache) Save(_ context.Context, id string, bid *adapters.WonBid) error {
	b, err := jsonutil.Marshal(bid)
	if err != nil {
		return err
	}
	return c.lru.Set([]byte(id), b, c.ttlSeconds)
}

func (c *Cache) Get(_ context.Context, id string) (*adapters.WonBid, error) {
	b, err := c.lru.Get([]byte(id))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}

	var bid adapters.WonBid
	if err := jsonutil.Unmarshal(b, &bid); err != nil {
		return nil, err
	}
	return &bid, nil
}

func (c *Cache) Close() error {
	c.lru.Clear()
	return nil
}
