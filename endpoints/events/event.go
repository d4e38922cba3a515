package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/cache"
	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/didip/tollbooth"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
)

const (
	TemplateUrl     = "%v/event?t=%v&b=%v"
	TypeParameter   = "t"
	BidIdParameter  = "b"
	BidderParameter = "bidder"
	FormatParameter = "f"
)

// Type is the kind of event being reported.
type Type string

// Format is the kind of response the caller expects.
type Format string

const (
	Win Type = "win"

	Blank Format = "b"
	Image Format = "i"
)

var trackingPixelPng = &TrackingPixel{
	Content: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44,
		0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
		0x89, 0x00, 0x00, 0x00, 0x04, 0x73, 0x42, 0x49, 0x54, 0x08, 0x08, 0x08, 0x08, 0x7C, 0x08, 0x64, 0x88,
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x44, 0x41, 0x54, 0x08, 0x99, 0x63, 0x60, 0x60, 0x60, 0x60, 0x00, 0x00,
		0x00, 0x05, 0x00, 0x01, 0x87, 0xA1, 0x4E, 0xD4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
		0x42, 0x60, 0x82},
	ContentType: "image/png",
}

type TrackingPixel struct {
	Content     []byte `json:"content,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// EventRequest is a parsed /event call.
type EventRequest struct {
	Type   Type                   `json:"type,omitempty"`
	BidID  string                 `json:"bidid,omitempty"`
	Bidder openrtb_ext.BidderName `json:"bidder,omitempty"`
	Format Format                 `json:"format,omitempty"`
}

type eventEndpoint struct {
	WonBids       cache.WonBids
	Notifiers     map[openrtb_ext.BidderName]adapters.WinNotifier
	MetricsEngine metrics.MetricsEngine
	TrackingPixel *TrackingPixel
	Timeout       time.Duration
}

// NewEventEndpoint handles win events for bids stored by the auction endpoint.
func NewEventEndpoint(wonBids cache.WonBids, notifiers map[openrtb_ext.BidderName]adapters.WinNotifier, me metrics.MetricsEngine, timeout time.Duration) httprouter.Handle {
	ee := &eventEndpoint{
		WonBids:       wonBids,
		Notifiers:     notifiers,
		MetricsEngine: me,
		TrackingPixel: trackingPixelPng,
		Timeout:       timeout,
	}

	return ee.Handle
}

func (e *eventEndpoint) Handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := time.Now()
	labels := metrics.Labels{
		RType:         metrics.ReqTypeEvent,
		RequestStatus: metrics.RequestStatusOK,
	}
	defer func() {
		e.MetricsEngine.RecordRequest(labels)
		e.MetricsEngine.RecordRequestTime(labels, time.Since(start))
	}()

	eventRequest, err := ParseEventRequest(r)
	if err != nil {
		labels.RequestStatus = metrics.RequestStatusBadInput
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(fmt.Sprintf("invalid request: %s\n", err.Error())))
		return
	}

	ctx := context.Background()
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	bid, err := e.WonBids.Get(ctx, eventRequest.BidID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			labels.RequestStatus = metrics.RequestStatusNotFound
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(fmt.Sprintf("Bid '%s' not found\n", eventRequest.BidID)))
			return
		}
		labels.RequestStatus = metrics.RequestStatusErr
		glog.Errorf("Failed to load won bid %s: %v", eventRequest.BidID, err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(fmt.Sprintf("Internal Error: %s\n", err.Error())))
		return
	}

	if eventRequest.Bidder != "" && bid.Bidder != "" && eventRequest.Bidder != bid.Bidder {
		labels.RequestStatus = metrics.RequestStatusNotFound
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(fmt.Sprintf("Bid '%s' was not made by bidder '%s'\n", eventRequest.BidID, eventRequest.Bidder)))
		return
	}

	bidder := bid.Bidder
	if bidder == "" {
		bidder = eventRequest.Bidder
	}
	if notifier, ok := e.Notifiers[bidder]; ok {
		notifier.OnBidWon(ctx, bid)
	}

	if eventRequest.Format == Image {
		w.Header().Add("Content-Type", e.TrackingPixel.ContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(e.TrackingPixel.Content)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Limit caps the rate of calls to handle per client IP. A non positive rate disables the limit.
// The limited handle does not see route params.
func Limit(handle httprouter.Handle, ratePerSecond float64) httprouter.Handle {
	if ratePerSecond <= 0 {
		return handle
	}

	limited := tollbooth.LimitHandler(tollbooth.NewLimiter(ratePerSecond, nil), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handle(w, r, nil)
	}))
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		limited.ServeHTTP(w, r)
	}
}

// EventRequestToUrl converts an EventRequest to an URL
func EventRequestToUrl(externalUrl string, request *EventRequest) string {
	s := fmt.Sprintf(TemplateUrl, externalUrl, request.Type, url.QueryEscape(request.BidID))

	return s + optionalParameters(request)
}

// ParseEventRequest parses an EventRequest from an Http request
func ParseEventRequest(r *http.Request) (*EventRequest, error) {
	event := &EventRequest{}

	if err := validateType(event, r); err != nil {
		return event, err
	}

	if bidid, err := validateRequiredParameter(r, BidIdParameter); err != nil {
		return event, err
	} else {
		event.BidID = bidid
	}

	if err := validateFormat(event, r); err != nil {
		return event, err
	}

	if bidder := r.FormValue(BidderParameter); bidder != "" {
		bidderName, ok := openrtb_ext.NormalizeBidderName(bidder)
		if !ok {
			return event, &errortypes.BadInput{Message: fmt.Sprintf("unknown bidder: '%s'", bidder)}
		}
		event.Bidder = bidderName
	}

	return event, nil
}

func optionalParameters(request *EventRequest) string {
	r := url.Values{}

	if request.Bidder != "" {
		r.Add(BidderParameter, string(request.Bidder))
	}

	switch request.Format {
	case Blank:
		r.Add(FormatParameter, string(Blank))
	case Image:
		r.Add(FormatParameter, string(Image))
	}

	opt := r.Encode()

	if opt != "" {
		return "&" + opt
	}

	return opt
}

func validateType(er *EventRequest, httpRequest *http.Request) error {
	t, err := validateRequiredParameter(httpRequest, TypeParameter)

	if err != nil {
		return err
	}

	switch t {
	case string(Win):
		er.Type = Win
		return nil
	default:
		return &errortypes.BadInput{Message: fmt.Sprintf("unknown type: '%s'", t)}
	}
}

func validateFormat(er *EventRequest, httpRequest *http.Request) error {
	f := httpRequest.FormValue(FormatParameter)

	if f != "" {
		switch f {
		case string(Blank):
			er.Format = Blank
			return nil
		case string(Image):
			er.Format = Image
			return nil
		default:
			return &errortypes.BadInput{Message: fmt.Sprintf("unknown format: '%s'", f)}
		}
	}

	return nil
}

func validateRequiredParameter(httpRequest *http.Request, parameter string) (string, error) {
	t := httpRequest.FormValue(parameter)

	if t == "" {
		return "", &errortypes.BadInput{Message: fmt.Sprintf("parameter '%s' is required", parameter)}
	}

	return t, nil
}
