package openrtb_ext

import (
	"fmt"

	"github.com/prebid/openrtb/v20/openrtb2"
)

// ExtBid defines the contract for bidresponse.seatbid.bid[i].ext
type ExtBid struct {
	Prebid *ExtBidPrebid `json:"prebid,omitempty"`
}

// ExtBidPrebid defines the contract for bidresponse.seatbid.bid[i].ext.prebid
type ExtBidPrebid struct {
	BidId  string              `json:"bidid,omitempty"`
	Type   BidType             `json:"type,omitempty"`
	Events *ExtBidPrebidEvents `json:"events,omitempty"`
}

// ExtBidPrebidEvents defines the contract for bidresponse.seatbid.bid[i].ext.prebid.events
type ExtBidPrebidEvents struct {
	Win string `json:"win,omitempty"`
	Imp string `json:"imp,omitempty"`
}

// BidType describes the allowed values for bidresponse.seatbid.bid[i].ext.prebid.type
type BidType string

const (
	BidTypeBanner BidType = "banner"
	BidTypeVideo  BidType = "video"
	BidTypeAudio  BidType = "audio"
	BidTypeNative BidType = "native"
)

// BidTypes returns all the known bid types.
func BidTypes() []BidType {
	return []BidType{
		BidTypeBanner,
		BidTypeVideo,
		BidTypeAudio,
		BidTypeNative,
	}
}

func ParseBidType(bidType string) (BidType, error) {
	switch bidType {
	case "banner":
		return BidTypeBanner, nil
	case "video":
		return BidTypeVideo, nil
	case "audio":
		return BidTypeAudio, nil
	case "native":
		return BidTypeNative, nil
	default:
		return "", fmt.Errorf("invalid BidType: %s", bidType)
	}
}

// BidTypeFromMarkupType maps the OpenRTB 2.6 bid.mtype value onto a BidType.
func BidTypeFromMarkupType(mtype openrtb2.MarkupType) (BidType, bool) {
	switch mtype {
	case openrtb2.MarkupBanner:
		return BidTypeBanner, true
	case openrtb2.MarkupVideo:
		return BidTypeVideo, true
	case openrtb2.MarkupAudio:
		return BidTypeAudio, true
	case openrtb2.MarkupNative:
		return BidTypeNative, true
	default:
		return "", false
	}
}
