package adapters

import "github.com/allegro/ortb-bridge/openrtb_ext"

// WonBid describes a bid reported as the winner of an auction. Every field is optional.
//
// The exchange stores one WonBid per returned bid so that the win event endpoint can hand it
// back to the bidder which produced it.
type WonBid struct {
	AuctionID  string                 `json:"auctionId,omitempty"`
	RequestID  string                 `json:"requestId,omitempty"`
	ImpID      string                 `json:"impId,omitempty"`
	AdUnitCode string                 `json:"adUnitCode,omitempty"`
	SeatID     string                 `json:"seatId,omitempty"`
	AdID       string                 `json:"adId,omitempty"`
	CreativeID string                 `json:"creativeId,omitempty"`
	Price      *float64               `json:"cpm,omitempty"`
	Currency   string                 `json:"currency,omitempty"`
	BURL       string                 `json:"burl,omitempty"`
	Bidder     openrtb_ext.BidderName `json:"bidder,omitempty"`
}
