package ortb

import (
	"encoding/json"
	"fmt"

	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/buger/jsonparser"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// RequestValidator checks an incoming auction request before any bidder sees it.
type RequestValidator interface {
	ValidateRequest(req *openrtb2.BidRequest) []error
}

func NewRequestValidator(bidderMap map[string]openrtb_ext.BidderName, paramsValidator openrtb_ext.BidderParamValidator) RequestValidator {
	return &standardRequestValidator{
		bidderMap:       bidderMap,
		paramsValidator: paramsValidator,
	}
}

type standardRequestValidator struct {
	bidderMap       map[string]openrtb_ext.BidderName
	paramsValidator openrtb_ext.BidderParamValidator
}

func (srv *standardRequestValidator) ValidateRequest(req *openrtb2.BidRequest) []error {
	if req.ID == "" {
		return []error{&errortypes.BadInput{Message: "request missing required field: \"id\""}}
	}
	if req.TMax < 0 {
		return []error{&errortypes.BadInput{Message: fmt.Sprintf("request.tmax must be nonnegative. Got %d", req.TMax)}}
	}
	if len(req.Imp) < 1 {
		return []error{&errortypes.BadInput{Message: "request.imp must contain at least one element."}}
	}
	if req.Site != nil && req.App != nil {
		return []error{&errortypes.BadInput{Message: "request.site or request.app must be defined, but not both."}}
	}

	var errs []error
	seenImpIDs := make(map[string]struct{}, len(req.Imp))
	for index := range req.Imp {
		imp := &req.Imp[index]
		if _, seen := seenImpIDs[imp.ID]; seen {
			return []error{&errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].id and request.imp[%d].id are both %q. Imp IDs must be unique.", index-1, index, imp.ID)}}
		}
		seenImpIDs[imp.ID] = struct{}{}

		if err := srv.validateImp(imp, index); err != nil {
			return []error{err}
		}
	}

	if err := srv.validateBidderParams(req.Ext); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (srv *standardRequestValidator) validateImp(imp *openrtb2.Imp, index int) error {
	if imp.ID == "" {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d] missing required field: \"id\"", index)}
	}
	if imp.Banner == nil && imp.Video == nil && imp.Audio == nil && imp.Native == nil {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d] must contain at least one of \"banner\", \"video\", \"audio\", or \"native\"", index)}
	}
	if err := validateBanner(imp.Banner, index, imp.Instl == 1); err != nil {
		return &errortypes.BadInput{Message: err.Error()}
	}
	if len(imp.Ext) == 0 {
		return nil
	}

	bidders, dataType, _, err := jsonparser.Get(imp.Ext, "prebid", "bidder")
	if err == jsonparser.KeyPathNotFoundError {
		return nil
	}
	if err != nil || dataType != jsonparser.Object {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].ext.prebid.bidder must be an object", index)}
	}

	var bidderExts map[string]json.RawMessage
	if err := jsonutil.Unmarshal(bidders, &bidderExts); err != nil {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].ext.prebid.bidder: %v", index, err)}
	}
	for name, ext := range bidderExts {
		bidderName, ok := srv.bidderMap[name]
		if !ok {
			return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].ext.prebid.bidder contains unknown bidder: %s", index, name)}
		}
		if err := srv.paramsValidator.Validate(bidderName, ext); err != nil {
			return &errortypes.BadInput{Message: fmt.Sprintf("request.imp[%d].ext.prebid.bidder.%s failed validation.\n%v", index, name, err)}
		}
	}
	return nil
}

// validateBidderParams checks request.ext.prebid.bidderparams against the bidder schemas.
func (srv *standardRequestValidator) validateBidderParams(requestExt json.RawMessage) error {
	if len(requestExt) == 0 {
		return nil
	}

	var ext openrtb_ext.ExtRequest
	if err := jsonutil.Unmarshal(requestExt, &ext); err != nil {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.ext is invalid: %v", err)}
	}
	if jsonutil.IsEmpty(ext.Prebid.BidderParams) {
		return nil
	}

	var params map[string]json.RawMessage
	if err := jsonutil.Unmarshal(ext.Prebid.BidderParams, &params); err != nil {
		return &errortypes.BadInput{Message: fmt.Sprintf("request.ext.prebid.bidderparams must be an object: %v", err)}
	}
	for name, value := range params {
		bidderName, ok := srv.bidderMap[name]
		if !ok {
			continue
		}
		if err := srv.paramsValidator.Validate(bidderName, value); err != nil {
			return &errortypes.BadInput{Message: fmt.Sprintf("request.ext.prebid.bidderparams.%s failed validation.\n%v", name, err)}
		}
	}
	return nil
}
