package openrtb_ext

import (
	"testing"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
)

func TestBidParsing(t *testing.T) {
	assertBidParse(t, "banner", BidTypeBanner)
	assertBidParse(t, "video", BidTypeVideo)
	assertBidParse(t, "audio", BidTypeAudio)
	assertBidParse(t, "native", BidTypeNative)

	_, err := ParseBidType("unknown")
	assert.EqualError(t, err, "invalid BidType: unknown")
}

func assertBidParse(t *testing.T, toParse string, expected BidType) {
	t.Helper()
	parsed, err := ParseBidType(toParse)
	assert.NoError(t, err)
	assert.Equal(t, expected, parsed)
}

func TestBidTypeFromMarkupType(t *testing.T) {
	testCases := []struct {
		mtype        openrtb2.MarkupType
		expectedType BidType
		expectedOK   bool
	}{
		{mtype: openrtb2.MarkupBanner, expectedType: BidTypeBanner, expectedOK: true},
		{mtype: openrtb2.MarkupVideo, expectedType: BidTypeVideo, expectedOK: true},
		{mtype: openrtb2.MarkupAudio, expectedType: BidTypeAudio, expectedOK: true},
		{mtype: openrtb2.MarkupNative, expectedType: BidTypeNative, expectedOK: true},
		{mtype: 0, expectedOK: false},
		{mtype: 9, expectedOK: false},
	}

	for _, test := range testCases {
		bidType, ok := BidTypeFromMarkupType(test.mtype)
		assert.Equal(t, test.expectedOK, ok, "mtype %d", test.mtype)
		assert.Equal(t, test.expectedType, bidType, "mtype %d", test.mtype)
	}
}
