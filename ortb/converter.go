package ortb

import (
	"net/http"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/buger/jsonparser"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// WireRequest is the JSON tree of an outbound bid request. Numbers are held as json.Number.
type WireRequest = map[string]interface{}

// ConverterContext holds the defaults the converter applies to every bid it reads.
type ConverterContext struct {
	// MediaType is used for bids which declare neither mtype nor ext.prebid.type.
	MediaType  openrtb_ext.BidType
	TTL        int64
	NetRevenue bool
}

// Converter translates between the internal OpenRTB structs and the wire representation
// exchanged with a bidder.
type Converter struct {
	ctx ConverterContext
}

func NewConverter(ctx ConverterContext) *Converter {
	if ctx.MediaType == "" {
		ctx.MediaType = openrtb_ext.BidTypeBanner
	}
	return &Converter{ctx: ctx}
}

// ToWire builds the baseline wire object for a request.
func (c *Converter) ToWire(request *openrtb2.BidRequest) (WireRequest, error) {
	body, err := jsonutil.Marshal(request)
	if err != nil {
		return nil, err
	}
	return jsonutil.UnmarshalTree(body)
}

// FromWire reads a bidder's response body into typed bids. An empty body is treated as no bids.
func (c *Converter) FromWire(body []byte) (*adapters.BidderResponse, []error) {
	if len(body) == 0 {
		return nil, nil
	}

	var response openrtb2.BidResponse
	if err := jsonutil.Unmarshal(body, &response); err != nil {
		return nil, []error{&errortypes.BadServerResponse{
			Message: "Bad server response: " + err.Error(),
		}}
	}

	bidCount := 0
	for _, seatBid := range response.SeatBid {
		bidCount += len(seatBid.Bid)
	}

	bidResponse := adapters.NewBidderResponseWithBidsCapacity(bidCount)
	if response.Cur != "" {
		bidResponse.Currency = response.Cur
	}
	bidResponse.TTL = c.ctx.TTL
	bidResponse.NetRevenue = c.ctx.NetRevenue

	for i := range response.SeatBid {
		seatBid := &response.SeatBid[i]
		for j := range seatBid.Bid {
			bid := &seatBid.Bid[j]
			bidResponse.Bids = append(bidResponse.Bids, &adapters.TypedBid{
				Bid:     bid,
				BidType: c.mediaType(bid),
				Seat:    openrtb_ext.BidderName(seatBid.Seat),
			})
		}
	}
	return bidResponse, nil
}

func (c *Converter) mediaType(bid *openrtb2.Bid) openrtb_ext.BidType {
	if bidType, ok := openrtb_ext.BidTypeFromMarkupType(bid.MType); ok {
		return bidType
	}
	if value, err := jsonparser.GetString(bid.Ext, "prebid", "type"); err == nil {
		if bidType, err := openrtb_ext.ParseBidType(value); err == nil {
			return bidType
		}
	}
	return c.ctx.MediaType
}

// IsNoContent reports whether a bidder response carries no bids by status alone.
func IsNoContent(response *adapters.ResponseData) bool {
	return response.StatusCode == http.StatusNoContent || len(response.Body) == 0
}
