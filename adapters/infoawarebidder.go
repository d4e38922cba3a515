package adapters

import (
	"fmt"

	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// InfoAwareBidder wraps a Bidder to ensure all requests abide by the capabilities and
// media types defined in the static/bidder-info/{bidder}.yaml file.
//
// It adjusts incoming requests in the following ways:
//  1. If App, Site or DOOH traffic is not supported by the info file, then requests from
//     those sources will be rejected before the delegate is called.
//  2. If a given MediaType is not supported for the platform, then it will be set
//     to nil before the request is forwarded to the delegate.
//  3. Any Imps which have no MediaTypes left will be removed.
//  4. If there are no valid Imps left, the delegate won't be called at all.
//
// Win notifications are passed through to the delegate when it supports them.
type InfoAwareBidder struct {
	Bidder
	info parsedBidderInfo
}

// BuildInfoAwareBidder wraps a bidder to enforce inventory {site, app, dooh} and media type support.
func BuildInfoAwareBidder(bidder Bidder, info config.BidderInfo) Bidder {
	return &InfoAwareBidder{
		Bidder: bidder,
		info:   parseBidderInfo(info),
	}
}

func (i *InfoAwareBidder) MakeRequests(request *openrtb2.BidRequest, reqInfo *ExtraRequestInfo) ([]*RequestData, []error) {
	var allowedMediaTypes parsedSupports

	if request.Site != nil {
		if !i.info.site.enabled {
			return nil, []error{unsupportedPlatform("site")}
		}
		allowedMediaTypes = i.info.site
	}
	if request.App != nil {
		if !i.info.app.enabled {
			return nil, []error{unsupportedPlatform("app")}
		}
		allowedMediaTypes = i.info.app
	}
	if request.DOOH != nil {
		if !i.info.dooh.enabled {
			return nil, []error{unsupportedPlatform("dooh")}
		}
		allowedMediaTypes = i.info.dooh
	}

	updatedImps, errs := pruneImps(request.Imp, allowedMediaTypes)
	request.Imp = updatedImps

	if len(request.Imp) == 0 {
		return nil, append(errs, &errortypes.Warning{
			Message:     "Bid request didn't contain media types supported by the bidder",
			WarningCode: errortypes.UnsupportedMediaTypeWarningCode,
		})
	}

	reqs, delegateErrs := i.Bidder.MakeRequests(request, reqInfo)
	return reqs, append(errs, delegateErrs...)
}

// Notifier returns the wrapped bidder's WinNotifier, if it has one.
func (i *InfoAwareBidder) Notifier() (WinNotifier, bool) {
	notifier, ok := i.Bidder.(WinNotifier)
	return notifier, ok
}

func unsupportedPlatform(platform string) error {
	return &errortypes.Warning{
		Message:     fmt.Sprintf("this bidder does not support %s requests", platform),
		WarningCode: errortypes.UnsupportedPlatformWarningCode,
	}
}

// pruneImps trims media types which are not allowed and drops imps left with none.
func pruneImps(imps []openrtb2.Imp, allowedTypes parsedSupports) ([]openrtb2.Imp, []error) {
	var errs []error
	kept := imps[:0]

	for i := range imps {
		imp := imps[i]

		if !allowedTypes.banner && imp.Banner != nil {
			imp.Banner = nil
			errs = append(errs, unsupportedMediaType(i, openrtb_ext.BidTypeBanner))
		}
		if !allowedTypes.video && imp.Video != nil {
			imp.Video = nil
			errs = append(errs, unsupportedMediaType(i, openrtb_ext.BidTypeVideo))
		}
		if !allowedTypes.audio && imp.Audio != nil {
			imp.Audio = nil
			errs = append(errs, unsupportedMediaType(i, openrtb_ext.BidTypeAudio))
		}
		if !allowedTypes.native && imp.Native != nil {
			imp.Native = nil
			errs = append(errs, unsupportedMediaType(i, openrtb_ext.BidTypeNative))
		}

		if !hasAnyTypes(&imp) {
			errs = append(errs, &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d] has no supported MediaTypes. It will be ignored", i)})
			continue
		}
		kept = append(kept, imp)
	}
	return kept, errs
}

func unsupportedMediaType(index int, bidType openrtb_ext.BidType) error {
	return &errortypes.Warning{
		Message:     fmt.Sprintf("request.imp[%d] uses %s, but this bidder doesn't support it", index, bidType),
		WarningCode: errortypes.UnsupportedMediaTypeWarningCode,
	}
}

func parseAllowedTypes(allowedTypes []openrtb_ext.BidType) (supports parsedSupports) {
	supports.enabled = true
	for _, allowedType := range allowedTypes {
		switch allowedType {
		case openrtb_ext.BidTypeBanner:
			supports.banner = true
		case openrtb_ext.BidTypeVideo:
			supports.video = true
		case openrtb_ext.BidTypeAudio:
			supports.audio = true
		case openrtb_ext.BidTypeNative:
			supports.native = true
		}
	}
	return
}

func hasAnyTypes(imp *openrtb2.Imp) bool {
	return imp.Banner != nil || imp.Video != nil || imp.Audio != nil || imp.Native != nil
}

// Structs to handle parsed bidder info, so we aren't reparsing every request
type parsedBidderInfo struct {
	app  parsedSupports
	site parsedSupports
	dooh parsedSupports
}

type parsedSupports struct {
	enabled bool
	banner  bool
	video   bool
	audio   bool
	native  bool
}

func parseBidderInfo(info config.BidderInfo) parsedBidderInfo {
	var parsedInfo parsedBidderInfo

	if info.Capabilities == nil {
		return parsedInfo
	}

	if info.Capabilities.App != nil {
		parsedInfo.app = parseAllowedTypes(info.Capabilities.App.MediaTypes)
	}
	if info.Capabilities.Site != nil {
		parsedInfo.site = parseAllowedTypes(info.Capabilities.Site.MediaTypes)
	}
	if info.Capabilities.DOOH != nil {
		parsedInfo.dooh = parseAllowedTypes(info.Capabilities.DOOH.MediaTypes)
	}
	return parsedInfo
}
