package openrtb_ext

// ExtImpAllegro defines the contract for bidrequest.imp[i].ext.prebid.bidder.allegro
// and for request.ext.prebid.bidderparams.allegro.
//
// Every field is optional: the bidder accepts any bid.
type ExtImpAllegro struct {
	BidderURL              string `json:"bidderUrl,omitempty"`
	ConvertExtensionFields *bool  `json:"convertExtensionFields,omitempty"`
}
