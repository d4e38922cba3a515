package events

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/cache"
	"github.com/allegro/ortb-bridge/cache/memorycache"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) OnBidWon(ctx context.Context, bid *adapters.WonBid) {
	m.Called(bid)
}

type failingWonBids struct{}

func (failingWonBids) Save(context.Context, string, *adapters.WonBid) error { return nil }
func (failingWonBids) Get(context.Context, string) (*adapters.WonBid, error) {
	return nil, errors.New("connection refused")
}
func (failingWonBids) Close() error { return nil }

func newMetricsMock() *metrics.MetricsEngineMock {
	me := &metrics.MetricsEngineMock{}
	me.On("RecordRequest", mock.Anything).Return()
	me.On("RecordRequestTime", mock.Anything, mock.Anything).Return()
	return me
}

func newStore(t *testing.T, bids map[string]*adapters.WonBid) cache.WonBids {
	store := memorycache.New(1024*1024, 60)
	for id, bid := range bids {
		require.NoError(t, store.Save(context.Background(), id, bid))
	}
	return store
}

func TestHandleWin(t *testing.T) {
	bid := &adapters.WonBid{AuctionID: "a1", BURL: "https://dsp.allegro.com/win", Bidder: openrtb_ext.BidderAllegro}
	notifier := &mockNotifier{}
	notifier.On("OnBidWon", bid).Return()
	me := newMetricsMock()

	handle := NewEventEndpoint(newStore(t, map[string]*adapters.WonBid{"bid-1": bid}), map[openrtb_ext.BidderName]adapters.WinNotifier{
		openrtb_ext.BidderAllegro: notifier,
	}, me, 0)

	recorder := httptest.NewRecorder()
	handle(recorder, httptest.NewRequest(http.MethodGet, "/event?t=win&b=bid-1&bidder=allegro", nil), nil)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Empty(t, recorder.Body.Bytes())
	notifier.AssertExpectations(t)
	me.AssertCalled(t, "RecordRequest", metrics.Labels{RType: metrics.ReqTypeEvent, RequestStatus: metrics.RequestStatusOK})
}

func TestHandleWinImageFormat(t *testing.T) {
	bid := &adapters.WonBid{Bidder: openrtb_ext.BidderAllegro}
	notifier := &mockNotifier{}
	notifier.On("OnBidWon", bid).Return()

	handle := NewEventEndpoint(newStore(t, map[string]*adapters.WonBid{"bid-1": bid}), map[openrtb_ext.BidderName]adapters.WinNotifier{
		openrtb_ext.BidderAllegro: notifier,
	}, newMetricsMock(), 0)

	recorder := httptest.NewRecorder()
	handle(recorder, httptest.NewRequest(http.MethodGet, "/event?t=win&b=bid-1&f=i", nil), nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "image/png", recorder.Header().Get("Content-Type"))
	assert.Equal(t, trackingPixelPng.Content, recorder.Body.Bytes())
	notifier.AssertExpectations(t)
}

func TestHandleWinWithoutNotifier(t *testing.T) {
	handle := NewEventEndpoint(newStore(t, map[string]*adapters.WonBid{"bid-1": {Bidder: openrtb_ext.BidderAllegro}}), nil, newMetricsMock(), 0)

	recorder := httptest.NewRecorder()
	handle(recorder, httptest.NewRequest(http.MethodGet, "/event?t=win&b=bid-1", nil), nil)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		store      cache.WonBids
		wantCode   int
		wantStatus metrics.RequestStatus
	}{
		{
			name:       "missing type",
			url:        "/event?b=bid-1",
			wantCode:   http.StatusBadRequest,
			wantStatus: metrics.RequestStatusBadInput,
		},
		{
			name:       "unknown type",
			url:        "/event?t=imp&b=bid-1",
			wantCode:   http.StatusBadRequest,
			wantStatus: metrics.RequestStatusBadInput,
		},
		{
			name:       "missing bid id",
			url:        "/event?t=win",
			wantCode:   http.StatusBadRequest,
			wantStatus: metrics.RequestStatusBadInput,
		},
		{
			name:       "unknown format",
			url:        "/event?t=win&b=bid-1&f=x",
			wantCode:   http.StatusBadRequest,
			wantStatus: metrics.RequestStatusBadInput,
		},
		{
			name:       "unknown bidder",
			url:        "/event?t=win&b=bid-1&bidder=nobody",
			wantCode:   http.StatusBadRequest,
			wantStatus: metrics.RequestStatusBadInput,
		},
		{
			name:       "unknown bid",
			url:        "/event?t=win&b=missing",
			wantCode:   http.StatusNotFound,
			wantStatus: metrics.RequestStatusNotFound,
		},
		{
			name:       "store failure",
			url:        "/event?t=win&b=bid-1",
			store:      failingWonBids{},
			wantCode:   http.StatusInternalServerError,
			wantStatus: metrics.RequestStatusErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.store
			if store == nil {
				store = newStore(t, map[string]*adapters.WonBid{"bid-1": {Bidder: openrtb_ext.BidderAllegro}})
			}
			notifier := &mockNotifier{}
			me := newMetricsMock()
			handle := NewEventEndpoint(store, map[openrtb_ext.BidderName]adapters.WinNotifier{
				openrtb_ext.BidderAllegro: notifier,
			}, me, 0)

			recorder := httptest.NewRecorder()
			handle(recorder, httptest.NewRequest(http.MethodGet, tt.url, nil), nil)

			assert.Equal(t, tt.wantCode, recorder.Code)
			notifier.AssertNotCalled(t, "OnBidWon", mock.Anything)
			me.AssertCalled(t, "RecordRequest", metrics.Labels{RType: metrics.ReqTypeEvent, RequestStatus: tt.wantStatus})
		})
	}
}

func TestLimit(t *testing.T) {
	calls := 0
	handle := Limit(func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}, 1)

	first := httptest.NewRecorder()
	handle(first, httptest.NewRequest(http.MethodGet, "/event?t=win&b=1", nil), nil)
	second := httptest.NewRecorder()
	handle(second, httptest.NewRequest(http.MethodGet, "/event?t=win&b=1", nil), nil)

	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, 1, calls)
}

func TestLimitDisabled(t *testing.T) {
	calls := 0
	handle := Limit(func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		calls++
	}, 0)

	for i := 0; i < 5; i++ {
		handle(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/event", nil), nil)
	}

	assert.Equal(t, 5, calls)
}

func TestEventRequestToUrl(t *testing.T) {
	tests := []struct {
		name    string
		request *EventRequest
		want    string
	}{
		{
			name:    "required only",
			request: &EventRequest{Type: Win, BidID: "bid-1"},
			want:    "http://localhost:8000/event?t=win&b=bid-1",
		},
		{
			name:    "with bidder and format",
			request: &EventRequest{Type: Win, BidID: "bid 1", Bidder: openrtb_ext.BidderAllegro, Format: Image},
			want:    "http://localhost:8000/event?t=win&b=bid+1&bidder=allegro&f=i",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EventRequestToUrl("http://localhost:8000", tt.request))
		})
	}
}

func TestParseEventRequestRoundTrip(t *testing.T) {
	request := &EventRequest{Type: Win, BidID: "a&b", Bidder: openrtb_ext.BidderAllegro, Format: Blank}

	parsed, err := ParseEventRequest(httptest.NewRequest(http.MethodGet, EventRequestToUrl("http://localhost", request), nil))

	require.NoError(t, err)
	assert.Equal(t, request, parsed)
}
