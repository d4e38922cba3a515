package ortb

import (
	"encoding/json"
	"testing"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWire(t *testing.T) {
	converter := NewConverter(ConverterContext{})
	secure := int8(1)
	request := &openrtb2.BidRequest{
		ID: "req-1",
		Imp: []openrtb2.Imp{{
			ID:     "imp-1",
			Secure: &secure,
			Banner: &openrtb2.Banner{Ext: json.RawMessage(`{"a":1}`)},
		}},
		Test: 1,
		Ext:  json.RawMessage(`{"big":9007199254740993}`),
	}

	wire, err := converter.ToWire(request)
	require.NoError(t, err)

	assert.Equal(t, "req-1", wire["id"])
	assert.Equal(t, json.Number("1"), wire["test"])
	imps, ok := wire["imp"].([]interface{})
	require.True(t, ok)
	require.Len(t, imps, 1)
	imp := imps[0].(map[string]interface{})
	assert.Equal(t, json.Number("1"), imp["secure"])
	assert.Equal(t, map[string]interface{}{"a": json.Number("1")}, imp["banner"].(map[string]interface{})["ext"])
	assert.Equal(t, map[string]interface{}{"big": json.Number("9007199254740993")}, wire["ext"])
}

func TestFromWire(t *testing.T) {
	converter := NewConverter(ConverterContext{TTL: 360, NetRevenue: true})
	body := []byte(`{
		"id": "resp-1",
		"cur": "PLN",
		"seatbid": [{
			"seat": "allegro",
			"bid": [
				{"id": "b1", "impid": "imp-1", "price": 1.5, "mtype": 2},
				{"id": "b2", "impid": "imp-2", "price": 0.5, "ext": {"prebid": {"type": "native"}}},
				{"id": "b3", "impid": "imp-3", "price": 0.7},
				{"id": "b4", "impid": "imp-4", "price": 0.9, "ext": {"prebid": {"type": "hologram"}}}
			]
		}]
	}`)

	response, errs := converter.FromWire(body)
	assert.Empty(t, errs)
	require.NotNil(t, response)

	assert.Equal(t, "PLN", response.Currency)
	assert.Equal(t, int64(360), response.TTL)
	assert.True(t, response.NetRevenue)
	require.Len(t, response.Bids, 4)

	expectedTypes := []openrtb_ext.BidType{
		openrtb_ext.BidTypeVideo,
		openrtb_ext.BidTypeNative,
		openrtb_ext.BidTypeBanner,
		openrtb_ext.BidTypeBanner,
	}
	for i, bid := range response.Bids {
		assert.Equal(t, expectedTypes[i], bid.BidType, "bid %d", i)
		assert.Equal(t, openrtb_ext.BidderName("allegro"), bid.Seat, "bid %d", i)
	}
	assert.Equal(t, "b1", response.Bids[0].Bid.ID)
	assert.Equal(t, 1.5, response.Bids[0].Bid.Price)
}

func TestFromWireDefaultsCurrency(t *testing.T) {
	response, errs := NewConverter(ConverterContext{}).FromWire([]byte(`{"id":"r","seatbid":[{"bid":[{"id":"b","impid":"i","price":1}]}]}`))
	assert.Empty(t, errs)
	require.NotNil(t, response)
	assert.Equal(t, "USD", response.Currency)
}

func TestFromWireEmptyBody(t *testing.T) {
	response, errs := NewConverter(ConverterContext{}).FromWire(nil)
	assert.Nil(t, response)
	assert.Empty(t, errs)
}

func TestFromWireMalformedBody(t *testing.T) {
	response, errs := NewConverter(ConverterContext{}).FromWire([]byte(`{"seatbid":"nope"`))
	assert.Nil(t, response)
	require.Len(t, errs, 1)
	assert.IsType(t, &errortypes.BadServerResponse{}, errs[0])
}

func TestFromWireNoSeatBids(t *testing.T) {
	response, errs := NewConverter(ConverterContext{}).FromWire([]byte(`{"id":"r"}`))
	assert.Empty(t, errs)
	require.NotNil(t, response)
	assert.Empty(t, response.Bids)
}

func TestIsNoContent(t *testing.T) {
	assert.True(t, IsNoContent(&adapters.ResponseData{StatusCode: 204}))
	assert.True(t, IsNoContent(&adapters.ResponseData{StatusCode: 200}))
	assert.False(t, IsNoContent(&adapters.ResponseData{StatusCode: 200, Body: []byte(`{}`)}))
}
