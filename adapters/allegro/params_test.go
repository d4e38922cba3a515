package allegro

import (
	"encoding/json"
	"testing"

	"github.com/allegro/ortb-bridge/openrtb_ext"
)

// This file actually intends to test static/bidder-params/allegro.json
//
// These also validate the format of the external API: request.ext.prebid.bidderparams.allegro

func TestValidParams(t *testing.T) {
	validator, err := openrtb_ext.NewBidderParamsValidator("../../static/bidder-params")
	if err != nil {
		t.Fatalf("Failed to fetch the json-schemas. %v", err)
	}

	for _, validParam := range validParams {
		if err := validator.Validate(openrtb_ext.BidderAllegro, json.RawMessage(validParam)); err != nil {
			t.Errorf("Schema rejected allegro params: %s", validParam)
		}
	}
}

func TestInvalidParams(t *testing.T) {
	validator, err := openrtb_ext.NewBidderParamsValidator("../../static/bidder-params")
	if err != nil {
		t.Fatalf("Failed to fetch the json-schemas. %v", err)
	}

	for _, invalidParam := range invalidParams {
		if err := validator.Validate(openrtb_ext.BidderAllegro, json.RawMessage(invalidParam)); err == nil {
			t.Errorf("Schema allowed unexpected params: %s", invalidParam)
		}
	}
}

var validParams = []string{
	`{}`,
	`{"bidderUrl": "https://dsp.allegro.com/bid"}`,
	`{"convertExtensionFields": false}`,
	`{"bidderUrl": "http://localhost:8080/bid", "convertExtensionFields": true}`,
}

var invalidParams = []string{
	``,
	`null`,
	`true`,
	`5`,
	`[]`,
	`{"bidderUrl": 5}`,
	`{"bidderUrl": "not a url"}`,
	`{"convertExtensionFields": "false"}`,
	`{"convertExtensionFields": 0}`,
}
