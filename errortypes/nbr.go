package errortypes

import "github.com/prebid/openrtb/v20/openrtb3"

// GetNBRCodeFromError maps a bidder error onto the OpenRTB no-bid reason reported
// when an auction ends without bids.
func GetNBRCodeFromError(err error) openrtb3.NoBidReason {
	switch ReadCode(err) {
	case TimeoutErrorCode:
		return openrtb3.NoBidInsufficientTime
	case BadInputErrorCode:
		return openrtb3.NoBidInvalidRequest
	case BadServerResponseErrorCode, FailedToRequestBidsErrorCode:
		fallthrough
	case FailedToUnmarshalErrorCode, FailedToMarshalErrorCode:
		return openrtb3.NoBidTechnicalError
	default:
		return openrtb3.NoBidUnknownError
	}
}
