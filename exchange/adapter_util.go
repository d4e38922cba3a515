package exchange

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/pixel"
)

func BuildAdapters(client *http.Client, cfg *config.Configuration, infos config.BidderInfos, firer pixel.Firer, me metrics.MetricsEngine) (map[openrtb_ext.BidderName]AdaptedBidder, []error) {
	bidders, errs := buildBidders(cfg.Adapters, infos, newAdapterBuilders(firer, me), cfg.ServerConfig())
	if len(errs) > 0 {
		return nil, errs
	}

	exchangeBidders := make(map[openrtb_ext.BidderName]AdaptedBidder, len(bidders))
	for bidderName, bidder := range bidders {
		exchangeBidders[bidderName] = AdaptBidder(bidder, client, bidderName)
	}
	return exchangeBidders, nil
}

func buildBidders(adapterConfigs map[string]config.Adapter, infos config.BidderInfos, builders map[openrtb_ext.BidderName]adapters.Builder, server config.Server) (map[openrtb_ext.BidderName]adapters.Bidder, []error) {
	bidders := make(map[openrtb_ext.BidderName]adapters.Bidder)
	var errs []error

	for bidder, info := range infos {
		bidderName, bidderNameFound := openrtb_ext.NormalizeBidderName(bidder)
		if !bidderNameFound {
			errs = append(errs, fmt.Errorf("%v: unknown bidder", bidder))
			continue
		}

		builder, builderFound := builders[bidderName]
		if !builderFound {
			errs = append(errs, fmt.Errorf("%v: builder not registered", bidder))
			continue
		}

		if info.Enabled {
			adapterInfo := buildAdapterInfo(adapterConfigs[strings.ToLower(bidder)], info)
			bidderInstance, builderErr := builder(bidderName, adapterInfo, server)

			if builderErr != nil {
				errs = append(errs, fmt.Errorf("%v: %v", bidder, builderErr))
				continue
			}
			bidders[bidderName] = adapters.BuildInfoAwareBidder(bidderInstance, info)
		}
	}
	return bidders, errs
}

// buildAdapterInfo merges the host's adapter config over the defaults from the bidder info file.
func buildAdapterInfo(adapterConfig config.Adapter, bidderInfo config.BidderInfo) config.Adapter {
	adapter := adapterConfig
	if adapter.Endpoint == "" {
		adapter.Endpoint = bidderInfo.Endpoint
	}
	if strings.TrimSpace(adapter.ExtraAdapterInfo) == "" {
		adapter.ExtraAdapterInfo = bidderInfo.ExtraAdapterInfo
	}
	return adapter
}

// GetActiveBidders returns a map of all active bidder names.
func GetActiveBidders(infos config.BidderInfos) map[string]openrtb_ext.BidderName {
	activeBidders := make(map[string]openrtb_ext.BidderName)

	for name, info := range infos {
		if info.Enabled {
			activeBidders[name] = openrtb_ext.BidderName(name)
		}
	}

	return activeBidders
}
