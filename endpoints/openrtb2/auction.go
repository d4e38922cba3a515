package openrtb2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/exchange"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/ortb"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// maxRequestSize caps the body of an auction request.
const maxRequestSize = 512 * 1024

func NewEndpoint(ex exchange.Exchange, validator ortb.RequestValidator, cfg *config.Configuration, me metrics.MetricsEngine) (httprouter.Handle, error) {
	if ex == nil || validator == nil || cfg == nil || me == nil {
		return nil, errors.New("NewEndpoint requires non-nil arguments.")
	}

	return httprouter.Handle((&endpointDeps{ex, validator, cfg, me}).Auction), nil
}

type endpointDeps struct {
	ex        exchange.Exchange
	validator ortb.RequestValidator
	cfg       *config.Configuration
	me        metrics.MetricsEngine
}

func (deps *endpointDeps) Auction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := time.Now()
	labels := metrics.Labels{
		RType:         metrics.ReqTypeORTB2Web,
		RequestStatus: metrics.RequestStatusOK,
	}
	defer func() {
		deps.me.RecordRequest(labels)
		deps.me.RecordRequestTime(labels, time.Since(start))
	}()

	auction, ctx, cancel, errL := deps.parseRequest(r, start)
	defer cancel() // Safe because parseRequest returns a no-op if there's nothing to cancel
	if auction != nil {
		labels.RType = requestType(auction.BidRequest)
	}
	if errortypes.ContainsFatalError(errL) {
		labels.RequestStatus = metrics.RequestStatusBadInput
		w.WriteHeader(http.StatusBadRequest)
		for _, err := range errortypes.FatalOnly(errL) {
			w.Write([]byte(fmt.Sprintf("Invalid request format: %s\n", err.Error())))
		}
		return
	}

	response, err := deps.ex.HoldAuction(ctx, auction)
	if err != nil {
		if errortypes.ReadCode(err) == errortypes.BadInputErrorCode {
			labels.RequestStatus = metrics.RequestStatusBadInput
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Invalid request format: %v\n", err)
			return
		}
		labels.RequestStatus = metrics.RequestStatusErr
		glog.Errorf("/openrtb2/auction critical error: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Critical error while running the auction: %v", err)
		return
	}

	responseBytes, err := jsonutil.Marshal(response)
	if err != nil {
		labels.RequestStatus = metrics.RequestStatusErr
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Failed to marshal auction response: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(responseBytes)
}

// parseRequest turns the HTTP request into an OpenRTB request. This is guaranteed to return:
//
//   - A context which times out appropriately, given the request and the configured limits.
//   - A cancellation function which should be called if the auction finishes early.
//
// If the errors list has at least one fatal error, then no guarantees are made about the returned request.
func (deps *endpointDeps) parseRequest(httpRequest *http.Request, start time.Time) (auction *exchange.AuctionRequest, ctx context.Context, cancel func(), errs []error) {
	ctx = context.Background()
	cancel = func() {}

	body, err := io.ReadAll(http.MaxBytesReader(nil, httpRequest.Body, maxRequestSize))
	if err != nil {
		errs = []error{&errortypes.BadInput{Message: fmt.Sprintf("request body could not be read: %v", err)}}
		return
	}

	req := &openrtb2.BidRequest{}
	auction = &exchange.AuctionRequest{
		BidRequest: req,
		StartTime:  start,
		ZeroFlags:  adapters.ReadZeroFlags(body),
	}
	if err := jsonutil.Unmarshal(body, req); err != nil {
		errs = []error{&errortypes.BadInput{Message: err.Error()}}
		return
	}

	if errs = deps.validator.ValidateRequest(req); errortypes.ContainsFatalError(errs) {
		return
	}

	ortb.SetDefaults(req, int(deps.cfg.AuctionTimeouts.Default))
	if timeout := deps.cfg.AuctionTimeouts.LimitAuctionTimeout(time.Duration(req.TMax) * time.Millisecond); timeout > 0 {
		ctx, cancel = context.WithDeadline(ctx, start.Add(timeout))
	}
	return
}

func requestType(req *openrtb2.BidRequest) metrics.RequestType {
	switch {
	case req.App != nil:
		return metrics.ReqTypeORTB2App
	case req.DOOH != nil:
		return metrics.ReqTypeORTB2DOOH
	default:
		return metrics.ReqTypeORTB2Web
	}
}
