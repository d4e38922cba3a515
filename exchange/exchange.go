package exchange

import (
	"context"
	"sort"
	"time"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/cache"
	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/ortb"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/allegro/ortb-bridge/util/ptrutil"
	"github.com/buger/jsonparser"
	"github.com/gofrs/uuid"
	"github.com/golang/glog"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/openrtb/v20/openrtb3"
)

// Exchange runs Auctions. Implementations must be threadsafe, and will be shared across many goroutines.
type Exchange interface {
	// HoldAuction executes an OpenRTB v2.6 Auction.
	HoldAuction(ctx context.Context, r *AuctionRequest) (*openrtb2.BidResponse, error)
}

// AuctionRequest holds the bid request for the auction
// and all other information needed to process an OpenRTB auction request.
type AuctionRequest struct {
	BidRequest *openrtb2.BidRequest
	StartTime  time.Time
	// ZeroFlags are the int flags BidRequest carried as an explicit 0.
	ZeroFlags adapters.ZeroFlags
}

type BidIDGenerator interface {
	New() (string, error)
}

type bidIDGenerator struct{}

func (bidIDGenerator) New() (string, error) {
	rawUuid, err := uuid.NewV4()
	return rawUuid.String(), err
}

type exchange struct {
	adapterMap     map[openrtb_ext.BidderName]AdaptedBidder
	me             metrics.MetricsEngine
	wonBids        cache.WonBids
	events         eventTracking
	bidIDGenerator BidIDGenerator
}

// bidResponseWrapper is what a single bidder sends back to the auction.
type bidResponseWrapper struct {
	bidder  openrtb_ext.BidderName
	seat    *seatBid
	errs    []error
	elapsed time.Duration
}

func NewExchange(bidders map[openrtb_ext.BidderName]AdaptedBidder, wonBids cache.WonBids, cfg *config.Configuration, me metrics.MetricsEngine) Exchange {
	return &exchange{
		adapterMap:     bidders,
		me:             me,
		wonBids:        wonBids,
		events:         eventTracking{externalURL: cfg.ExternalURL},
		bidIDGenerator: bidIDGenerator{},
	}
}

// WinNotifiers collects the bidders which act on won bids.
func WinNotifiers(bidders map[openrtb_ext.BidderName]AdaptedBidder) map[openrtb_ext.BidderName]adapters.WinNotifier {
	notifiers := make(map[openrtb_ext.BidderName]adapters.WinNotifier, len(bidders))
	for name, bidder := range bidders {
		if notifier, ok := bidder.notifier(); ok {
			notifiers[name] = notifier
		}
	}
	return notifiers
}

func (e *exchange) HoldAuction(ctx context.Context, r *AuctionRequest) (*openrtb2.BidResponse, error) {
	request := r.BidRequest

	bidderParams, err := adapters.ExtractReqExtBidderParams(request)
	if err != nil {
		return nil, &errortypes.BadInput{Message: err.Error()}
	}
	debug := request.Test == 1

	bidderRequests := e.splitRequest(request)
	responseChannel := make(chan *bidResponseWrapper, len(bidderRequests))
	for bidderName, bidderRequest := range bidderRequests {
		go func(name openrtb_ext.BidderName, bidderRequest *openrtb2.BidRequest) {
			defer func() {
				if recovered := recover(); recovered != nil {
					glog.Errorf("OpenRTB auction recovered panic from Bidder %s: %v.", name, recovered)
					responseChannel <- &bidResponseWrapper{
						bidder: name,
						errs:   []error{&errortypes.FailedToRequestBids{Message: "bidder panicked"}},
					}
				}
			}()

			reqInfo := adapters.NewExtraRequestInfo(bidderParams, name)
			reqInfo.ZeroFlags = r.ZeroFlags
			start := time.Now()
			seat, errs := e.adapterMap[name].requestBid(ctx, bidderRequest, &reqInfo, debug)
			responseChannel <- &bidResponseWrapper{
				bidder:  name,
				seat:    seat,
				errs:    errs,
				elapsed: time.Since(start),
			}
		}(bidderName, bidderRequest)
	}

	responses := make([]*bidResponseWrapper, 0, len(bidderRequests))
	for i := 0; i < len(bidderRequests); i++ {
		response := <-responseChannel
		e.recordAdapterMetrics(response)
		responses = append(responses, response)
	}
	sort.Slice(responses, func(i, j int) bool {
		return responses[i].bidder < responses[j].bidder
	})

	return e.buildBidResponse(ctx, request, responses, debug)
}

// splitRequest builds one request per bidder. When some imp names bidders in
// imp.ext.prebid.bidder, each bidder only gets the imps which name it. Otherwise every
// configured bidder gets every imp.
func (e *exchange) splitRequest(request *openrtb2.BidRequest) map[openrtb_ext.BidderName]*openrtb2.BidRequest {
	impBidders := make([]map[string]struct{}, len(request.Imp))
	restricted := false
	for i := range request.Imp {
		impBidders[i] = biddersInImp(request.Imp[i].Ext)
		if impBidders[i] != nil {
			restricted = true
		}
	}

	bidderRequests := make(map[openrtb_ext.BidderName]*openrtb2.BidRequest, len(e.adapterMap))
	for name := range e.adapterMap {
		bidderRequest := ortb.CloneBidRequestPartial(request)
		if restricted {
			imps := bidderRequest.Imp[:0]
			for i, imp := range bidderRequest.Imp {
				if _, ok := impBidders[i][string(name)]; ok {
					imps = append(imps, imp)
				}
			}
			bidderRequest.Imp = imps
		}
		if len(bidderRequest.Imp) > 0 {
			bidderRequests[name] = bidderRequest
		}
	}
	return bidderRequests
}

func biddersInImp(impExt []byte) map[string]struct{} {
	if len(impExt) == 0 {
		return nil
	}
	var bidders map[string]struct{}
	jsonparser.ObjectEach(impExt, func(key []byte, _ []byte, _ jsonparser.ValueType, _ int) error {
		if bidders == nil {
			bidders = make(map[string]struct{})
		}
		bidders[string(key)] = struct{}{}
		return nil
	}, "prebid", "bidder")
	return bidders
}

func (e *exchange) recordAdapterMetrics(response *bidResponseWrapper) {
	labels := metrics.AdapterLabels{
		Adapter:       response.bidder,
		AdapterBids:   metrics.AdapterBidNone,
		AdapterErrors: make(map[metrics.AdapterError]struct{}),
	}
	for _, err := range errortypes.FatalOnly(response.errs) {
		labels.AdapterErrors[adapterError(err)] = struct{}{}
	}
	if response.seat != nil && len(response.seat.bids) > 0 {
		labels.AdapterBids = metrics.AdapterBidPresent
	}

	e.me.RecordAdapterRequest(labels)
	e.me.RecordAdapterTime(labels, response.elapsed)
	if response.seat == nil {
		return
	}
	for _, typedBid := range response.seat.bids {
		e.me.RecordAdapterBidReceived(labels, typedBid.BidType, typedBid.Bid.AdM != "")
		e.me.RecordAdapterPrice(labels, typedBid.Bid.Price)
	}
}

func adapterError(err error) metrics.AdapterError {
	switch errortypes.ReadCode(err) {
	case errortypes.BadInputErrorCode:
		return metrics.AdapterErrorBadInput
	case errortypes.BadServerResponseErrorCode:
		return metrics.AdapterErrorBadServerResponse
	case errortypes.TimeoutErrorCode:
		return metrics.AdapterErrorTimeout
	case errortypes.FailedToRequestBidsErrorCode:
		return metrics.AdapterErrorFailedToRequestBids
	default:
		return metrics.AdapterErrorUnknown
	}
}

func (e *exchange) buildBidResponse(ctx context.Context, request *openrtb2.BidRequest, responses []*bidResponseWrapper, debug bool) (*openrtb2.BidResponse, error) {
	bidResponse := &openrtb2.BidResponse{ID: request.ID}
	responseExt := openrtb_ext.ExtResponse{
		Errors:             make(map[openrtb_ext.BidderName][]openrtb_ext.ExtBidderMessage),
		Warnings:           make(map[openrtb_ext.BidderName][]openrtb_ext.ExtBidderMessage),
		ResponseTimeMillis: make(map[openrtb_ext.BidderName]int, len(responses)),
		TMaxRequest:        request.TMax,
	}
	if debug {
		responseExt.Debug = &openrtb_ext.ExtResponseDebug{HttpCalls: make(map[openrtb_ext.BidderName][]*openrtb_ext.ExtHttpCall)}
	}

	impTagIDs := make(map[string]string, len(request.Imp))
	for _, imp := range request.Imp {
		impTagIDs[imp.ID] = imp.TagID
	}

	// Storing outlives the auction deadline, the bids are already won or lost by then.
	storeCtx := context.WithoutCancel(ctx)

	var firstFatal error
	for _, response := range responses {
		responseExt.ResponseTimeMillis[response.bidder] = int(response.elapsed / time.Millisecond)
		errs := response.errs

		if response.seat != nil && len(response.seat.bids) > 0 {
			seat := openrtb2.SeatBid{
				Seat: string(response.bidder),
				Bid:  make([]openrtb2.Bid, 0, len(response.seat.bids)),
			}
			for _, typedBid := range response.seat.bids {
				bid, err := e.makeBid(storeCtx, request.ID, response.bidder, typedBid, response.seat.currency, impTagIDs[typedBid.Bid.ImpID])
				if err != nil {
					errs = append(errs, err)
				}
				seat.Bid = append(seat.Bid, bid)
			}
			bidResponse.SeatBid = append(bidResponse.SeatBid, seat)
			if bidResponse.Cur == "" {
				bidResponse.Cur = response.seat.currency
			}
		}
		if debug && response.seat != nil {
			responseExt.Debug.HttpCalls[response.bidder] = response.seat.httpCalls
		}

		fatal, warnings := errortypes.Split(errs)
		for _, err := range warnings {
			responseExt.Warnings[response.bidder] = append(responseExt.Warnings[response.bidder], bidderMessage(err))
		}
		for _, err := range fatal {
			responseExt.Errors[response.bidder] = append(responseExt.Errors[response.bidder], bidderMessage(err))
			if firstFatal == nil {
				firstFatal = err
			}
		}
	}

	if len(bidResponse.SeatBid) == 0 {
		if firstFatal != nil {
			bidResponse.NBR = errortypes.GetNBRCodeFromError(firstFatal).Ptr()
		} else {
			bidResponse.NBR = openrtb3.NoBidUnknownError.Ptr()
		}
	}

	ext, err := jsonutil.Marshal(responseExt)
	if err != nil {
		return nil, err
	}
	bidResponse.Ext = ext
	return bidResponse, nil
}

func bidderMessage(err error) openrtb_ext.ExtBidderMessage {
	return openrtb_ext.ExtBidderMessage{Code: errortypes.ReadCode(err), Message: err.Error()}
}

// makeBid stores the bid for its win event and marks it with bid.ext.prebid. A storage failure is
// returned as a warning, the bid is still part of the response but carries no win url.
// Wins are routed back to bidder, the seat reported by the DSP is only kept as SeatID.
func (e *exchange) makeBid(ctx context.Context, auctionID string, bidder openrtb_ext.BidderName, typedBid *adapters.TypedBid, currency string, tagID string) (openrtb2.Bid, error) {
	bid := *typedBid.Bid

	bidID, err := e.bidIDGenerator.New()
	if err != nil {
		return bid, &errortypes.Warning{
			Message:     "Error generating bid.ext.prebid.bidid",
			WarningCode: errortypes.WonBidStoreWarningCode,
		}
	}

	stored := true
	var warning error
	if err := e.wonBids.Save(ctx, bidID, &adapters.WonBid{
		AuctionID:  auctionID,
		RequestID:  bid.ID,
		ImpID:      bid.ImpID,
		AdUnitCode: tagID,
		SeatID:     string(typedBid.Seat),
		AdID:       bid.AdID,
		CreativeID: bid.CrID,
		Price:      ptrutil.ToPtr(bid.Price),
		Currency:   currency,
		BURL:       bid.BURL,
		Bidder:     bidder,
	}); err != nil {
		glog.Warningf("Failed to store won bid %s: %v", bidID, err)
		stored = false
		warning = &errortypes.Warning{
			Message:     "Bid could not be stored, win events for it will be ignored: " + err.Error(),
			WarningCode: errortypes.WonBidStoreWarningCode,
		}
	}

	ext, err := e.events.makeBidExt(typedBid, bidID, bidder, stored)
	if err != nil {
		return bid, &errortypes.Warning{
			Message:     "Error adding bid.ext.prebid: " + err.Error(),
			WarningCode: errortypes.WonBidStoreWarningCode,
		}
	}
	bid.Ext = ext
	return bid, warning
}
