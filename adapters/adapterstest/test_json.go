package adapterstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/buger/jsonparser"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// RunJSONBidderTest is a helper method intended to unit test Bidders' adapters.
// It requires that:
//
//  1. Bidders communicate with external servers over HTTP.
//  2. The HTTP request bodies are legal JSON.
//
// Although those requirements are not enforced by the Bidder interface, they are used here to
// keep the test files readable.
//
// This method looks for .json files inside the "exemplary" and "supplemental" sub-directories
// of rootDir. Each file is a test case shaped like testSpec below:
//
//	{
//	  "mockBidRequest": { ... openrtb2.BidRequest ... },
//	  "httpCalls": [ { "expectedRequest": { ... }, "mockResponse": { ... } } ],
//	  "expectedBidResponses": [ { "currency": "USD", "bids": [ ... ] } ],
//	  "expectedMakeRequestsErrors": [ { "value": "...", "comparison": "literal" } ],
//	  "expectedMakeBidsErrors": [ ... ]
//	}
//
// "exemplary" cases describe the common flow, "supplemental" cases cover edge cases and are
// the place to exercise error handling.
func RunJSONBidderTest(t *testing.T, rootDir string, bidderName openrtb_ext.BidderName, bidder adapters.Bidder) {
	t.Helper()
	runTests(t, filepath.Join(rootDir, "exemplary"), bidderName, bidder)
	runTests(t, filepath.Join(rootDir, "supplemental"), bidderName, bidder)
}

// runTests runs all the *.json test files in a directory. A missing directory is not an error.
func runTests(t *testing.T, directory string, bidderName openrtb_ext.BidderName, bidder adapters.Bidder) {
	t.Helper()
	entries, err := os.ReadDir(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("Failed to read folder %s: %v", directory, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		filename := filepath.Join(directory, entry.Name())
		spec, err := loadFile(filename)
		if err != nil {
			t.Fatalf("Failed to load contents of file %s: %v", filename, err)
		}
		t.Run(entry.Name(), func(t *testing.T) {
			runSpec(t, filename, spec, bidderName, bidder)
		})
	}
}

// loadFile reads and parses a file as a test case. If something goes wrong, it returns an error.
func loadFile(filename string) (*testSpec, error) {
	specData, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Failed to read file %s: %v", filename, err)
	}

	var spec testSpec
	if err := jsonutil.Unmarshal(specData, &spec); err != nil {
		return nil, fmt.Errorf("Failed to unmarshal JSON from file: %v", err)
	}
	if rawRequest, _, _, err := jsonparser.Get(specData, "mockBidRequest"); err == nil {
		spec.zeroFlags = adapters.ReadZeroFlags(rawRequest)
	}

	return &spec, nil
}

// runSpec runs a single test case. It will make sure:
//
//   - That the Bidder does not return nil HTTP requests, bids, or errors inside their lists
//   - That the Bidder's HTTP calls match the spec's expectations.
//   - That the Bidder's Bids match the spec's expectations
//   - That the Bidder's errors match the spec's expectations
func runSpec(t *testing.T, filename string, spec *testSpec, bidderName openrtb_ext.BidderName, bidder adapters.Bidder) {
	reqInfo := extraRequestInfo(t, filename, bidderName, &spec.BidRequest)
	reqInfo.ZeroFlags = spec.zeroFlags

	actualReqs, errs := bidder.MakeRequests(&spec.BidRequest, &reqInfo)
	diffErrorLists(t, fmt.Sprintf("%s: MakeRequests", filename), errs, spec.MakeRequestErrors)
	diffHttpRequestLists(t, filename, actualReqs, spec.httpRequests())

	bidResponses := make([]*adapters.BidderResponse, 0, len(spec.HttpCalls))
	var bidsErrs []error
	for i := 0; i < len(actualReqs) && i < len(spec.HttpCalls); i++ {
		thisBidResponse, theseErrs := bidder.MakeBids(&spec.BidRequest, spec.HttpCalls[i].Request.toRequestData(), spec.HttpCalls[i].Response.toResponseData())
		bidsErrs = append(bidsErrs, theseErrs...)
		bidResponses = append(bidResponses, thisBidResponse)
	}

	diffErrorLists(t, fmt.Sprintf("%s: MakeBids", filename), bidsErrs, spec.MakeBidsErrors)

	for i := 0; i < len(spec.BidResponses); i++ {
		if i >= len(bidResponses) {
			t.Errorf("%s: expected bid response #%d but MakeBids was called only %d times", filename, i, len(bidResponses))
			return
		}
		diffBidderResponse(t, fmt.Sprintf("%s: bidResponse #%d", filename, i), bidResponses[i], &spec.BidResponses[i])
	}
}

// extraRequestInfo builds the ExtraRequestInfo the exchange would pass to the bidder, reading
// request.ext.prebid.bidderparams out of the mock request.
func extraRequestInfo(t *testing.T, filename string, bidderName openrtb_ext.BidderName, request *openrtb2.BidRequest) adapters.ExtraRequestInfo {
	bidderParams, err := adapters.ExtractReqExtBidderParams(request)
	if err != nil {
		t.Fatalf("%s: failed to read mockBidRequest.ext.prebid.bidderparams: %v", filename, err)
	}
	return adapters.NewExtraRequestInfo(bidderParams, bidderName)
}

type testSpec struct {
	BidRequest        openrtb2.BidRequest     `json:"mockBidRequest"`
	HttpCalls         []httpCall              `json:"httpCalls"`
	BidResponses      []expectedBidResponse   `json:"expectedBidResponses"`
	MakeRequestErrors []testSpecExpectedError `json:"expectedMakeRequestsErrors"`
	MakeBidsErrors    []testSpecExpectedError `json:"expectedMakeBidsErrors"`

	// zeroFlags are read from the raw mockBidRequest, as the auction endpoint does.
	zeroFlags adapters.ZeroFlags
}

type testSpecExpectedError struct {
	Value      string `json:"value"`
	Comparison string `json:"comparison"`
}

func (spec *testSpec) httpRequests() []httpRequest {
	reqs := make([]httpRequest, len(spec.HttpCalls))
	for i := range spec.HttpCalls {
		reqs[i] = spec.HttpCalls[i].Request
	}
	return reqs
}

type httpCall struct {
	Request  httpRequest  `json:"expectedRequest"`
	Response httpResponse `json:"mockResponse"`
}

type httpRequest struct {
	Body    json.RawMessage `json:"body"`
	Uri     string          `json:"uri"`
	Method  string          `json:"method"`
	Headers http.Header     `json:"headers"`
	ImpIDs  []string        `json:"impIDs"`
}

func (req *httpRequest) toRequestData() *adapters.RequestData {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	return &adapters.RequestData{
		Method:  method,
		Uri:     req.Uri,
		Body:    req.Body,
		Headers: req.Headers,
		ImpIDs:  req.ImpIDs,
	}
}

type httpResponse struct {
	Status  int             `json:"status"`
	Body    json.RawMessage `json:"body"`
	Headers http.Header     `json:"headers"`
}

func (resp *httpResponse) toResponseData() *adapters.ResponseData {
	return &adapters.ResponseData{
		StatusCode: resp.Status,
		Body:       resp.Body,
		Headers:    resp.Headers,
	}
}

type expectedBidResponse struct {
	Bids       []expectedBid `json:"bids"`
	Currency   string        `json:"currency"`
	TTL        int64         `json:"ttl"`
	NetRevenue bool          `json:"netRevenue"`
}

type expectedBid struct {
	Bid  json.RawMessage `json:"bid"`
	Type string          `json:"type"`
	Seat string          `json:"seat"`
}

// ---------------------------------------
// Lots of ugly, repetitive code below here.
//
// reflect.DeepEqual doesn't work because each OpenRTB field has an `ext []byte`, but we really care if those are JSON-equal
//
// Marshalling the structs and then using a JSON-diff library isn't great either, since
// the diffs are not helpful for debugging.
// ---------------------------------------

// diffErrorLists fails the test if the actual and expected error messages don't match.
func diffErrorLists(t *testing.T, description string, actual []error, expected []testSpecExpectedError) {
	t.Helper()

	if len(expected) != len(actual) {
		t.Fatalf("%s had wrong error count. Expected %d, got %d (%v)", description, len(expected), len(actual), actual)
	}
	for i := 0; i < len(actual); i++ {
		if expected[i].Comparison == "literal" || expected[i].Comparison == "" {
			if expected[i].Value != actual[i].Error() {
				t.Errorf(`%s error[%d] had wrong message. Expected "%s", got "%s"`, description, i, expected[i].Value, actual[i].Error())
			}
		} else if expected[i].Comparison == "regex" {
			if matched, _ := regexp.MatchString(expected[i].Value, actual[i].Error()); !matched {
				t.Errorf(`%s error[%d] had wrong message. Expected match with regex "%s", got "%s"`, description, i, expected[i].Value, actual[i].Error())
			}
		} else {
			t.Fatalf(`invalid comparison type "%s"`, expected[i].Comparison)
		}
	}
}

// diffHttpRequestLists compares the actual HTTP request data to the expected one.
// It assumes that the request bodies are JSON
func diffHttpRequestLists(t *testing.T, filename string, actual []*adapters.RequestData, expected []httpRequest) {
	t.Helper()

	if len(expected) != len(actual) {
		t.Fatalf("%s: Wrong number of HTTP requests. Expected %d, got %d", filename, len(expected), len(actual))
	}
	for i := 0; i < len(actual); i++ {
		diffHttpRequests(t, fmt.Sprintf("%s: httpRequest[%d]", filename, i), actual[i], &expected[i])
	}
}

func diffHttpRequests(t *testing.T, description string, actual *adapters.RequestData, expected *httpRequest) {
	t.Helper()

	if actual == nil {
		t.Fatalf("%s: Bidders cannot return nil HTTP calls. Bad bidder.", description)
	}

	assert.Equal(t, expected.Uri, actual.Uri, "%s: incorrect uri", description)
	if expected.Method != "" {
		assert.Equal(t, expected.Method, actual.Method, "%s: incorrect method", description)
	}
	if expected.Headers != nil {
		assert.Equal(t, expected.Headers, actual.Headers, "%s: incorrect headers", description)
	}
	if expected.ImpIDs != nil {
		assert.ElementsMatch(t, expected.ImpIDs, actual.ImpIDs, "%s: incorrect impIDs", description)
	}

	diffJson(t, description, actual.Body, expected.Body)
}

func diffBidderResponse(t *testing.T, description string, actual *adapters.BidderResponse, expected *expectedBidResponse) {
	t.Helper()

	if actual == nil {
		if len(expected.Bids) != 0 {
			t.Errorf("%s: expected %d bids but got a nil response", description, len(expected.Bids))
		}
		return
	}

	if expected.Currency != "" {
		assert.Equal(t, expected.Currency, actual.Currency, "%s: incorrect currency", description)
	}
	assert.Equal(t, expected.TTL, actual.TTL, "%s: incorrect ttl", description)
	assert.Equal(t, expected.NetRevenue, actual.NetRevenue, "%s: incorrect net revenue", description)

	if len(actual.Bids) != len(expected.Bids) {
		t.Fatalf("%s: mismatched number of bids. Expected %d, got %d", description, len(expected.Bids), len(actual.Bids))
	}
	for i := 0; i < len(actual.Bids); i++ {
		diffBids(t, fmt.Sprintf("%s  typedBid[%d]", description, i), actual.Bids[i], &expected.Bids[i])
	}
}

// diffBids compares two typedBids to check that they're the same.
func diffBids(t *testing.T, description string, actual *adapters.TypedBid, expected *expectedBid) {
	t.Helper()

	if actual == nil {
		t.Errorf("Bidders cannot return nil TypedBids. %s was nil.", description)
		return
	}

	assert.Equal(t, expected.Type, string(actual.BidType), "%s.type: incorrect bid type", description)
	if expected.Seat != "" {
		assert.Equal(t, expected.Seat, string(actual.Seat), "%s.seat: incorrect seat", description)
	}

	actualBidJSON, err := jsonutil.Marshal(actual.Bid)
	if err != nil {
		t.Fatalf("%s failed to marshal actual bid: %v", description, err)
	}
	diffJson(t, fmt.Sprintf("%s.bid", description), actualBidJSON, expected.Bid)
}

// diffJson compares two JSON byte arrays for structural equality. It will produce an error if either
// byte array is not actually JSON.
func diffJson(t *testing.T, description string, actual []byte, expected []byte) {
	t.Helper()

	if len(actual) == 0 && len(expected) == 0 {
		return
	}
	if len(actual) == 0 || len(expected) == 0 {
		t.Fatalf("%s json diff failed. Expected %d bytes in body, but actual was %d.", description, len(expected), len(actual))
	}

	diff, err := gojsondiff.New().Compare(actual, expected)
	if err != nil {
		t.Fatalf("%s json diff failed. %v", description, err)
	}

	if diff.Modified() {
		var left interface{}
		if err := json.Unmarshal(actual, &left); err != nil {
			t.Fatalf("%s json did not match, but unmarshalling failed. %v", description, err)
		}
		printer := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{
			ShowArrayIndex: true,
		})
		output, err := printer.Format(diff)
		if err != nil {
			t.Errorf("%s did not match, but diff formatting failed. %v", description, err)
		} else {
			t.Errorf("%s json did not match expected.\n\n%s", description, output)
		}
	}
}
