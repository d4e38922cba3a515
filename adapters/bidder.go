package adapters

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// Bidder describes how to connect to external demand.
type Bidder interface {
	// MakeRequests makes the HTTP requests which should be made to fetch bids.
	//
	// Bidder implementations can assume that the incoming BidRequest has:
	//
	//   1. Only {Imp.Type, Platform} combinations which are valid, as defined by the static/bidder-info.{bidder}.yaml file.
	//   2. Imp.Ext of the form {"bidder": params}, where "params" has been validated against the static/bidder-params/{bidder}.json JSON Schema.
	//
	// nil return values are acceptable, but nil elements *inside* those slices are not.
	//
	// The errors should contain a list of errors which explain why this bidder's bids will be
	// "subpar" in some way. For example: the request contained ad types which this bidder doesn't support.
	//
	// If the error is caused by bad user input, return an errortypes.BadInput.
	MakeRequests(request *openrtb2.BidRequest, reqInfo *ExtraRequestInfo) ([]*RequestData, []error)

	// MakeBids unpacks the server's response into Bids.
	//
	// The internal request is the request which was sent to MakeRequests.
	// The external request is the RequestData which MakeRequests built from it.
	//
	// The response can be nil to indicate that the bidder has no bids, or that the response could not be understood.
	// If the error is caused by bad input from the auction request, return an errortypes.BadInput.
	// If the error is caused by a bad response from the bidder server, return an errortypes.BadServerResponse.
	MakeBids(internalRequest *openrtb2.BidRequest, externalRequest *RequestData, response *ResponseData) (*BidderResponse, []error)
}

// WinNotifier is implemented by bidders which act on a won bid after the auction.
//
// OnBidWon must not block on network I/O and must never fail the caller.
type WinNotifier interface {
	OnBidWon(ctx context.Context, bid *WonBid)
}

// BidderResponse wraps the server's response with the list of bids and the currency used by the bidder.
//
// Currency declaration is not mandatory but helps to detect an eventual currency mismatch issue.
// From the bid response, the bidder accepts a list of valid currencies for the bid.
// The currency is the same across all bids.
type BidderResponse struct {
	Currency string
	Bids     []*TypedBid
	// TTL is the number of seconds the bids stay valid, zero means unset.
	TTL int64
	// NetRevenue reports whether bid prices are net of platform fees.
	NetRevenue bool
}

// NewBidderResponseWithBidsCapacity create a new BidderResponse initialising the bids array capacity and the default currency value
// to "USD".
//
// bidsCapacity allows to set initial Bids array capacity.
// By default, currency is USD but this behavior might be subject to change.
func NewBidderResponseWithBidsCapacity(bidsCapacity int) *BidderResponse {
	return &BidderResponse{
		Currency: "USD",
		Bids:     make([]*TypedBid, 0, bidsCapacity),
	}
}

// TypedBid packages the openrtb2.Bid with any bidder-specific information that the server needs to know about it.
//
// Bid.Ext will become "response.seatbid[i].bid.ext.bidder" in the final OpenRTB response.
// BidType will become "response.seatbid[i].bid.ext.prebid.type" in the final OpenRTB response.
type TypedBid struct {
	Bid     *openrtb2.Bid
	BidType openrtb_ext.BidType
	Seat    openrtb_ext.BidderName
}

// ResponseData packages together information from the server's response to RequestData.
// The bidder is responsible for interpreting it.
type ResponseData struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// RequestData packages together the fields needed to make an http.Request.
type RequestData struct {
	Method  string
	Uri     string
	Body    []byte
	Headers http.Header
	ImpIDs  []string
}

// ExtraRequestInfo carries auction level details which are not part of the OpenRTB request.
type ExtraRequestInfo struct {
	// BidderParams holds request.ext.prebid.bidderparams.{bidder}, if any.
	BidderParams json.RawMessage
	// ZeroFlags lists the int flags the caller sent as an explicit 0.
	ZeroFlags ZeroFlags
}

// NewExtraRequestInfo builds an ExtraRequestInfo for the named bidder out of the request extension.
func NewExtraRequestInfo(bidderParams map[string]json.RawMessage, bidder openrtb_ext.BidderName) ExtraRequestInfo {
	return ExtraRequestInfo{
		BidderParams: bidderParams[string(bidder)],
	}
}

// Builder is the signature of a function which builds a Bidder out of its configuration.
type Builder func(openrtb_ext.BidderName, config.Adapter, config.Server) (Bidder, error)
