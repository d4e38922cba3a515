package exchange

import (
	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/adapters/allegro"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/pixel"
)

func newAdapterBuilders(firer pixel.Firer, me metrics.MetricsEngine) map[openrtb_ext.BidderName]adapters.Builder {
	return map[openrtb_ext.BidderName]adapters.Builder{
		openrtb_ext.BidderAllegro: allegro.NewBuilder(firer, me),
	}
}
