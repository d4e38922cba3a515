package allegro

import (
	"fmt"
	"net/http"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/macros"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/ortb"
	"github.com/allegro/ortb-bridge/pixel"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// bidTTL is how long, in seconds, the bidder's bids stay valid.
const bidTTL = 360

type adapter struct {
	bidderName openrtb_ext.BidderName
	settings   Settings
	converter  *ortb.Converter
	macros     macros.Processor
	firer      pixel.Firer
	me         metrics.MetricsEngine
}

// NewBuilder returns the Builder for the Allegro bidder. Won bids are reported through firer.
func NewBuilder(firer pixel.Firer, me metrics.MetricsEngine) adapters.Builder {
	return func(bidderName openrtb_ext.BidderName, cfg config.Adapter, server config.Server) (adapters.Bidder, error) {
		settings, err := newSettings(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", bidderName, err)
		}

		bidder := &adapter{
			bidderName: bidderName,
			settings:   settings,
			converter: ortb.NewConverter(ortb.ConverterContext{
				MediaType:  openrtb_ext.BidTypeBanner,
				TTL:        bidTTL,
				NetRevenue: true,
			}),
			macros: macros.NewProcessor(),
			firer:  firer,
			me:     me,
		}
		return bidder, nil
	}
}

func (a *adapter) MakeRequests(request *openrtb2.BidRequest, reqInfo *adapters.ExtraRequestInfo) ([]*adapters.RequestData, []error) {
	settings, err := a.settings.forRequest(reqInfo)
	if err != nil {
		return nil, []error{err}
	}

	wire, err := a.converter.ToWire(request)
	if err != nil {
		return nil, []error{err}
	}
	if reqInfo != nil {
		ortb.RestoreZeroFlags(wire, reqInfo.ZeroFlags)
	}

	coerceFlags(wire)
	if settings.convertExtensions() {
		if moved := relocateExtensions(wire); moved > 0 {
			a.me.RecordExtensionRelocation(a.bidderName, moved)
		}
	}

	body, err := jsonutil.MarshalTree(wire)
	if err != nil {
		return nil, []error{err}
	}

	headers := http.Header{}
	headers.Add("Content-Type", "application/json;charset=utf-8")
	headers.Add("Accept", "application/json")

	impIDs := make([]string, 0, len(request.Imp))
	for _, imp := range request.Imp {
		impIDs = append(impIDs, imp.ID)
	}

	return []*adapters.RequestData{{
		Method:  http.MethodPost,
		Uri:     settings.Endpoint,
		Body:    body,
		Headers: headers,
		ImpIDs:  impIDs,
	}}, nil
}

func (a *adapter) MakeBids(internalRequest *openrtb2.BidRequest, externalRequest *adapters.RequestData, response *adapters.ResponseData) (*adapters.BidderResponse, []error) {
	if ortb.IsNoContent(response) {
		return nil, nil
	}

	if response.StatusCode == http.StatusBadRequest {
		return nil, []error{&errortypes.BadInput{
			Message: fmt.Sprintf("Unexpected status code: %d. Run with request.debug = 1 for more info", response.StatusCode),
		}}
	}

	if response.StatusCode != http.StatusOK {
		return nil, []error{&errortypes.BadServerResponse{
			Message: fmt.Sprintf("Unexpected status code: %d. Run with request.debug = 1 for more info", response.StatusCode),
		}}
	}

	return a.converter.FromWire(response.Body)
}
