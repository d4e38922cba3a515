package exchange

import (
	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/endpoints/events"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	jsonpatch "gopkg.in/evanphx/json-patch.v5"
)

// eventTracking adds win event urls to the bids of an auction response
type eventTracking struct {
	externalURL string
}

// makeEventURL returns the win event url for a bid stored under bidID
func (ev *eventTracking) makeEventURL(bidID string, bidderName openrtb_ext.BidderName) string {
	return events.EventRequestToUrl(ev.externalURL, &events.EventRequest{
		Type:   events.Win,
		BidID:  bidID,
		Bidder: bidderName,
	})
}

// makeBidExt merges bid.ext.prebid into whatever ext the bidder returned. withEvents is false
// when the bid could not be stored, because the win url would lead nowhere.
func (ev *eventTracking) makeBidExt(typedBid *adapters.TypedBid, bidID string, bidder openrtb_ext.BidderName, withEvents bool) ([]byte, error) {
	prebid := &openrtb_ext.ExtBidPrebid{
		BidId: bidID,
		Type:  typedBid.BidType,
	}
	if withEvents {
		prebid.Events = &openrtb_ext.ExtBidPrebidEvents{
			Win: ev.makeEventURL(bidID, bidder),
		}
	}

	patch, err := jsonutil.Marshal(openrtb_ext.ExtBid{Prebid: prebid})
	if err != nil {
		return nil, err
	}
	if len(typedBid.Bid.Ext) == 0 {
		return patch, nil
	}
	return jsonpatch.MergePatch(typedBid.Bid.Ext, patch)
}
