package cache

import (
	"context"
	"errors"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/metrics"
)

// ErrNotFound is returned by Get when no bid is stored under the id, including when it expired.
var ErrNotFound = errors.New("won bid not found")

// WonBids holds the bids returned by auctions until their win events arrive.
type WonBids interface {
	Save(ctx context.Context, id string, bid *adapters.WonBid) error
	Get(ctx context.Context, id string) (*adapters.WonBid, error)
	Close() error
}

// Metered wraps a store so that every operation is reported to the metrics engine.
func Metered(store WonBids, me metrics.MetricsEngine) WonBids {
	return &meteredWonBids{store: store, me: me}
}

type meteredWonBids struct {
	store WonBids
	me    metrics.MetricsEngine
}

func (m *meteredWonBids) Save(ctx context.Context, id string, bid *adapters.WonBid) error {
	err := m.store.Save(ctx, id, bid)
	m.me.RecordWonBidStore(metrics.WonBidStoreSave, resultOf(err))
	return err
}

func (m *meteredWonBids) Get(ctx context.Context, id string) (*adapters.WonBid, error) {
	bid, err := m.store.Get(ctx, id)
	m.me.RecordWonBidStore(metrics.WonBidStoreGet, resultOf(err))
	return bid, err
}

func (m *meteredWonBids) Close() error {
	return m.store.Close()
}

func resultOf(err error) metrics.WonBidStoreResult {
	switch {
	case err == nil:
		return metrics.WonBidStoreOK
	case errors.Is(err, ErrNotFound):
		return metrics.WonBidStoreMiss
	default:
		return metrics.WonBidStoreError
	}
}
