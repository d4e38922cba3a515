package allegro

import (
	"context"
	"testing"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/stretchr/testify/mock"
	"github.com/xorcare/pointer"
)

func TestOnBidWonFiresExpandedPixel(t *testing.T) {
	firer := &mockFirer{}
	firer.On("Fire", openrtb_ext.BidderAllegro, "http://x/?id=a1&p=2.5").Return()
	bidder := buildTestBidder(t, config.Adapter{ExtraAdapterInfo: `{"triggerImpressionPixel":true}`}, firer, newMetricsMock())

	bidder.OnBidWon(context.Background(), &adapters.WonBid{
		AuctionID: "a1",
		Price:     pointer.Float64(2.5),
		BURL:      "http://x/?id=${AUCTION_ID}&p=${AUCTION_PRICE}",
	})

	firer.AssertExpectations(t)
}

func TestOnBidWonEscapesValues(t *testing.T) {
	firer := &mockFirer{}
	firer.On("Fire", openrtb_ext.BidderAllegro, "http://x/?imp=ad+unit%2F1&cur=").Return()
	bidder := buildTestBidder(t, config.Adapter{ExtraAdapterInfo: `{"triggerImpressionPixel":true}`}, firer, newMetricsMock())

	bidder.OnBidWon(context.Background(), &adapters.WonBid{
		AdUnitCode: "ad unit/1",
		BURL:       "http://x/?imp=${AUCTION_IMP_ID}&cur=${AUCTION_CURRENCY}",
	})

	firer.AssertExpectations(t)
}

func TestOnBidWonSkips(t *testing.T) {
	tests := []struct {
		name      string
		extraInfo string
		bid       *adapters.WonBid
	}{
		{
			name: "pixel disabled by default",
			bid:  &adapters.WonBid{BURL: "http://x/"},
		},
		{
			name:      "pixel disabled explicitly",
			extraInfo: `{"triggerImpressionPixel":false}`,
			bid:       &adapters.WonBid{BURL: "http://x/"},
		},
		{
			name:      "no burl",
			extraInfo: `{"triggerImpressionPixel":true}`,
			bid:       &adapters.WonBid{AuctionID: "a1"},
		},
		{
			name:      "no bid",
			extraInfo: `{"triggerImpressionPixel":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			firer := &mockFirer{}
			bidder := buildTestBidder(t, config.Adapter{ExtraAdapterInfo: tt.extraInfo}, firer, newMetricsMock())

			bidder.OnBidWon(context.Background(), tt.bid)

			firer.AssertNotCalled(t, "Fire", mock.Anything, mock.Anything)
		})
	}
}
