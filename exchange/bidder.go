package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
	"golang.org/x/net/context/ctxhttp"
)

// AdaptedBidder defines the contract needed to participate in an Auction within an Exchange.
//
// Any logic which can be done _within a single Seat_ goes inside one of these.
// Any logic which _requires responses from all Seats_ goes inside the Exchange.
type AdaptedBidder interface {
	// requestBid fetches bids for the given request.
	//
	// An AdaptedBidder *may* return two non-nil values here. Errors should describe situations which
	// make the bid (or no-bid) "less than ideal." Common examples include:
	//
	// 1. Connection issues.
	// 2. Imps with Media Types which this Bidder doesn't support.
	// 3. The Context timeout expired before all expected bids were returned.
	// 4. The Server sent back an unexpected Response, so some bids were ignored.
	//
	// Any errors will be user-facing in the API.
	requestBid(ctx context.Context, request *openrtb2.BidRequest, reqInfo *adapters.ExtraRequestInfo, debug bool) (*seatBid, []error)

	// notifier returns the bidder's win notifier, if it has one.
	notifier() (adapters.WinNotifier, bool)
}

// seatBid is the bids and debug data a single bidder produced for an auction.
type seatBid struct {
	bids      []*adapters.TypedBid
	currency  string
	ttl       int64
	httpCalls []*openrtb_ext.ExtHttpCall
}

// BidderAdapter runs an adapters.Bidder over HTTP.
type BidderAdapter struct {
	Bidder     adapters.Bidder
	BidderName openrtb_ext.BidderName
	Client     *http.Client
}

// AdaptBidder wraps a bidder so that it can take part in an auction.
func AdaptBidder(bidder adapters.Bidder, client *http.Client, name openrtb_ext.BidderName) AdaptedBidder {
	return &BidderAdapter{
		Bidder:     bidder,
		BidderName: name,
		Client:     client,
	}
}

type httpCallInfo struct {
	request  *adapters.RequestData
	response *adapters.ResponseData
	err      error
}

func (bidder *BidderAdapter) requestBid(ctx context.Context, request *openrtb2.BidRequest, reqInfo *adapters.ExtraRequestInfo, debug bool) (*seatBid, []error) {
	reqData, errs := bidder.Bidder.MakeRequests(request, reqInfo)

	if len(reqData) == 0 {
		// If the adapter failed to generate both requests and errors, this is an error.
		if len(errs) == 0 {
			errs = append(errs, &errortypes.FailedToRequestBids{Message: "The adapter failed to generate any bid requests, but also failed to generate an error explaining why"})
		}
		return nil, errs
	}

	// Make any HTTP requests in parallel.
	// If the bidder only needs to make one, save some cycles by just using the current one.
	responseChannel := make(chan *httpCallInfo, len(reqData))
	if len(reqData) == 1 {
		responseChannel <- bidder.doRequest(ctx, reqData[0])
	} else {
		for _, oneReqData := range reqData {
			go func(data *adapters.RequestData) {
				responseChannel <- bidder.doRequest(ctx, data)
			}(oneReqData) // Method arg avoids a race condition on oneReqData
		}
	}

	defaultCurrency := "USD"
	seat := &seatBid{
		bids:     make([]*adapters.TypedBid, 0, len(reqData)),
		currency: defaultCurrency,
	}

	// If the bidder made multiple requests, we still want them to enter as many bids as possible...
	// even if the timeout occurs sometime halfway through.
	for i := 0; i < len(reqData); i++ {
		httpInfo := <-responseChannel
		if debug {
			seat.httpCalls = append(seat.httpCalls, makeExt(httpInfo))
		}

		if httpInfo.err != nil {
			errs = append(errs, httpInfo.err)
			continue
		}

		bidResponse, moreErrs := bidder.Bidder.MakeBids(request, httpInfo.request, httpInfo.response)
		errs = append(errs, moreErrs...)
		if bidResponse == nil {
			continue
		}
		if bidResponse.Currency != "" {
			seat.currency = bidResponse.Currency
		}
		if bidResponse.TTL > 0 {
			seat.ttl = bidResponse.TTL
		}
		for _, typedBid := range bidResponse.Bids {
			if typedBid == nil || typedBid.Bid == nil {
				continue
			}
			if typedBid.Seat == "" {
				typedBid.Seat = bidder.BidderName
			}
			seat.bids = append(seat.bids, typedBid)
		}
	}

	return seat, errs
}

func (bidder *BidderAdapter) notifier() (adapters.WinNotifier, bool) {
	if infoAware, ok := bidder.Bidder.(*adapters.InfoAwareBidder); ok {
		return infoAware.Notifier()
	}
	notifier, ok := bidder.Bidder.(adapters.WinNotifier)
	return notifier, ok
}

// makeExt transforms information about the HTTP call into the contract class for the response.
func makeExt(httpInfo *httpCallInfo) *openrtb_ext.ExtHttpCall {
	ext := &openrtb_ext.ExtHttpCall{}
	if httpInfo.request != nil {
		ext.Uri = httpInfo.request.Uri
		ext.RequestBody = string(httpInfo.request.Body)
	}
	if httpInfo.response != nil {
		ext.ResponseBody = string(httpInfo.response.Body)
		ext.Status = httpInfo.response.StatusCode
	}
	return ext
}

// doRequest makes a request, handles the response, and returns the data needed by the
// Bidder interface.
func (bidder *BidderAdapter) doRequest(ctx context.Context, req *adapters.RequestData) *httpCallInfo {
	httpReq, err := http.NewRequest(req.Method, req.Uri, bytes.NewBuffer(req.Body))
	if err != nil {
		return &httpCallInfo{
			request: req,
			err:     err,
		}
	}
	httpReq.Header = req.Headers

	httpResp, err := ctxhttp.Do(ctx, bidder.Client, httpReq)
	if err != nil {
		if err == context.DeadlineExceeded {
			err = &errortypes.Timeout{Message: err.Error()}
		}
		return &httpCallInfo{
			request: req,
			err:     err,
		}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &httpCallInfo{
			request: req,
			err:     err,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 500 {
		err = &errortypes.BadServerResponse{
			Message: fmt.Sprintf("Server responded with failure status: %d. Set request.test = 1 for debugging info.", httpResp.StatusCode),
		}
	}

	return &httpCallInfo{
		request: req,
		response: &adapters.ResponseData{
			StatusCode: httpResp.StatusCode,
			Body:       respBody,
			Headers:    httpResp.Header,
		},
		err: err,
	}
}
