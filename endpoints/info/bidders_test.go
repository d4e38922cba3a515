package info

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testInfos = config.BidderInfos{
	"allegro": {
		Enabled:     true,
		Endpoint:    "https://dsp.allegro.com/bid",
		Maintainer:  &config.MaintainerInfo{Email: "dsp-prebid@allegro.com"},
		GVLVendorID: 1493,
		Capabilities: &config.CapabilitiesInfo{
			Site: &config.PlatformInfo{MediaTypes: []openrtb_ext.BidType{openrtb_ext.BidTypeBanner, openrtb_ext.BidTypeNative}},
		},
	},
	"sleepy": {
		Enabled:    false,
		Maintainer: &config.MaintainerInfo{Email: "sleepy@example.com"},
	},
}

func TestBiddersEndpoint(t *testing.T) {
	endpoint := NewBiddersEndpoint(testInfos)

	recorder := httptest.NewRecorder()
	endpoint(recorder, httptest.NewRequest(http.MethodGet, "/info/bidders", nil), nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `["allegro"]`, recorder.Body.String())
}

func TestBidderDetailsEndpoint(t *testing.T) {
	tests := []struct {
		description  string
		bidder       string
		adapters     map[string]config.Adapter
		wantCode     int
		wantResponse string
	}{
		{
			description:  "enabled bidder",
			bidder:       "allegro",
			wantCode:     http.StatusOK,
			wantResponse: `{"status":"ACTIVE","usesHttps":true,"maintainer":{"email":"dsp-prebid@allegro.com"},"capabilities":{"site":{"mediaTypes":["banner","native"]}},"gvlVendorId":1493}`,
		},
		{
			description:  "host endpoint overrides the bidder info",
			bidder:       "Allegro",
			adapters:     map[string]config.Adapter{"allegro": {Endpoint: "http://dsp.local/bid"}},
			wantCode:     http.StatusOK,
			wantResponse: `{"status":"ACTIVE","usesHttps":false,"maintainer":{"email":"dsp-prebid@allegro.com"},"capabilities":{"site":{"mediaTypes":["banner","native"]}},"gvlVendorId":1493}`,
		},
		{
			description:  "disabled bidder",
			bidder:       "sleepy",
			wantCode:     http.StatusOK,
			wantResponse: `{"status":"DISABLED","maintainer":{"email":"sleepy@example.com"}}`,
		},
		{
			description: "all",
			bidder:      "all",
			wantCode:    http.StatusOK,
			wantResponse: `{
				"allegro": {"status":"ACTIVE","usesHttps":true,"maintainer":{"email":"dsp-prebid@allegro.com"},"capabilities":{"site":{"mediaTypes":["banner","native"]}},"gvlVendorId":1493},
				"sleepy": {"status":"DISABLED","maintainer":{"email":"sleepy@example.com"}}
			}`,
		},
		{
			description: "unknown bidder",
			bidder:      "nobody",
			wantCode:    http.StatusNotFound,
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			endpoint := NewBidderDetailsEndpoint(testInfos, test.adapters)

			recorder := httptest.NewRecorder()
			endpoint(recorder, httptest.NewRequest(http.MethodGet, "/info/bidders/"+test.bidder, nil), httprouter.Params{{Key: "bidderName", Value: test.bidder}})

			require.Equal(t, test.wantCode, recorder.Code)
			if test.wantResponse != "" {
				assert.JSONEq(t, test.wantResponse, recorder.Body.String())
			}
		})
	}
}
