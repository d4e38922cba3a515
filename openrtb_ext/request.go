package openrtb_ext

import "encoding/json"

// ExtRequest defines the contract for bidrequest.ext
type ExtRequest struct {
	Prebid ExtRequestPrebid `json:"prebid"`
}

// ExtRequestPrebid defines the contract for bidrequest.ext.prebid
type ExtRequestPrebid struct {
	// BidderParams holds request level bidder params keyed by bidder name.
	BidderParams json.RawMessage `json:"bidderparams,omitempty"`
}

// ExtResponse defines the contract for bidresponse.ext
type ExtResponse struct {
	Debug              *ExtResponseDebug                 `json:"debug,omitempty"`
	Errors             map[BidderName][]ExtBidderMessage `json:"errors,omitempty"`
	Warnings           map[BidderName][]ExtBidderMessage `json:"warnings,omitempty"`
	ResponseTimeMillis map[BidderName]int                `json:"responsetimemillis,omitempty"`
	TMaxRequest        int64                             `json:"tmaxrequest,omitempty"`
}

// ExtBidderMessage defines an error or warning object within bidresponse.ext
type ExtBidderMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ExtResponseDebug defines the contract for bidresponse.ext.debug
type ExtResponseDebug struct {
	HttpCalls map[BidderName][]*ExtHttpCall `json:"httpcalls,omitempty"`
}

// ExtHttpCall defines the contract for a bidresponse.ext.debug.httpcalls.{bidder}[i]
type ExtHttpCall struct {
	Uri          string `json:"uri"`
	RequestBody  string `json:"requestbody"`
	ResponseBody string `json:"responsebody"`
	Status       int    `json:"status"`
}
