package ortb

import "github.com/prebid/openrtb/v20/openrtb2"

// SetDefaults fills in request fields the exchange relies on.
func SetDefaults(r *openrtb2.BidRequest, defaultTmax int) {
	if r.TMax == 0 {
		r.TMax = int64(defaultTmax)
	}
}
