package cache

import (
	"context"

	"github.com/allegro/ortb-bridge/adapters"
)

// DummyWonBids forgets every bid. Win events then never find the bid they refer to.
type DummyWonBids struct{}

// NewDummyWonBids create new store
func NewDummyWonBids() *DummyWonBids {
	return &DummyWonBids{}
}

// Save nop
func (c *DummyWonBids) Save(_ context.Context, _ string, _ *adapters.WonBid) error {
	return nil
}

// Get always misses
func (c *DummyWonBids) Get(_ context.Context, _ string) (*adapters.WonBid, error) {
	return nil, ErrNotFound
}

// Close nop
func (c *DummyWonBids) Close() error {
	return nil
}
