package adapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/buger/jsonparser"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// ExtractReqExtBidderParams returns request.ext.prebid.bidderparams keyed by bidder name.
func ExtractReqExtBidderParams(bidReq *openrtb2.BidRequest) (map[string]json.RawMessage, error) {
	if bidReq == nil {
		return nil, errors.New("error bidRequest should not be nil")
	}

	reqExt := &openrtb_ext.ExtRequest{}
	if len(bidReq.Ext) > 0 {
		err := jsonutil.Unmarshal(bidReq.Ext, &reqExt)
		if err != nil {
			return nil, fmt.Errorf("error decoding Request.ext : %s", err.Error())
		}
	}

	if reqExt.Prebid.BidderParams == nil {
		return nil, nil
	}

	var bidderParams map[string]json.RawMessage
	err := jsonutil.Unmarshal(reqExt.Prebid.BidderParams, &bidderParams)
	if err != nil {
		return nil, err
	}

	return bidderParams, nil
}

// ZeroFlags records which int8 flags of the incoming request were sent as an explicit 0.
// The openrtb2 structs tag them omitempty, so after decoding a 0 looks the same as a missing flag.
type ZeroFlags struct {
	Test bool
	// TopFrame holds the ids of the imps sent with banner.topframe 0.
	TopFrame map[string]struct{}
}

// ReadZeroFlags scans a raw bid request for request.test and imp[i].banner.topframe set to 0.
func ReadZeroFlags(body []byte) ZeroFlags {
	var flags ZeroFlags
	if value, dataType, _, err := jsonparser.Get(body, "test"); err == nil && isZero(value, dataType) {
		flags.Test = true
	}

	jsonparser.ArrayEach(body, func(imp []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if dataType != jsonparser.Object {
			return
		}
		value, valueType, _, err := jsonparser.Get(imp, "banner", "topframe")
		if err != nil || !isZero(value, valueType) {
			return
		}
		id, err := jsonparser.GetString(imp, "id")
		if err != nil {
			return
		}
		if flags.TopFrame == nil {
			flags.TopFrame = make(map[string]struct{})
		}
		flags.TopFrame[id] = struct{}{}
	}, "imp")

	return flags
}

func isZero(value []byte, dataType jsonparser.ValueType) bool {
	if dataType != jsonparser.Number {
		return false
	}
	n, err := strconv.ParseFloat(string(value), 64)
	return err == nil && n == 0
}
