package pixel

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/stretchr/testify/assert"
)

type fakeRandom struct {
	value float32
}

func (r fakeRandom) GenerateFloat32() float32 {
	return r.value
}

func newTestFirer(me metrics.MetricsEngine, timeout time.Duration, wg *sync.WaitGroup) *httpFirer {
	f := NewHTTPFirer(http.DefaultClient, config.Pixel{TimeoutMs: int(timeout / time.Millisecond), LogSampleRate: 1}, me).(*httpFirer)
	f.random = fakeRandom{value: 0.5}
	f.done = wg.Done
	return f
}

func TestFireSuccess(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	me := &metrics.MetricsEngineMock{}
	me.On("RecordPixel", openrtb_ext.BidderAllegro, true).Return()

	var wg sync.WaitGroup
	wg.Add(1)
	newTestFirer(me, time.Second, &wg).Fire(openrtb_ext.BidderAllegro, server.URL+"/win?id=a1&p=2.5")
	wg.Wait()

	assert.Equal(t, "/win?id=a1&p=2.5", gotPath)
	me.AssertExpectations(t)
}

func TestFireErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	me := &metrics.MetricsEngineMock{}
	me.On("RecordPixel", openrtb_ext.BidderAllegro, false).Return()

	var wg sync.WaitGroup
	wg.Add(1)
	newTestFirer(me, time.Second, &wg).Fire(openrtb_ext.BidderAllegro, server.URL)
	wg.Wait()

	me.AssertExpectations(t)
}

func TestFireTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	me := &metrics.MetricsEngineMock{}
	me.On("RecordPixel", openrtb_ext.BidderAllegro, false).Return()

	var wg sync.WaitGroup
	wg.Add(1)
	newTestFirer(me, 20*time.Millisecond, &wg).Fire(openrtb_ext.BidderAllegro, server.URL)
	wg.Wait()

	me.AssertExpectations(t)
}

func TestFireDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()

	me := &metrics.MetricsEngineMock{}
	me.On("RecordPixel", openrtb_ext.BidderAllegro, true).Return()

	var wg sync.WaitGroup
	wg.Add(1)
	firer := newTestFirer(me, time.Second, &wg)

	returned := make(chan struct{})
	go func() {
		firer.Fire(openrtb_ext.BidderAllegro, server.URL)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Fire blocked on the pixel request")
	}

	close(release)
	wg.Wait()
	me.AssertExpectations(t)
}

func TestFireInvalidURL(t *testing.T) {
	me := &metrics.MetricsEngineMock{}
	me.On("RecordPixel", openrtb_ext.BidderAllegro, false).Return()

	var wg sync.WaitGroup
	wg.Add(1)
	newTestFirer(me, time.Second, &wg).Fire(openrtb_ext.BidderAllegro, "://not-a-url")
	wg.Wait()

	me.AssertExpectations(t)
}
