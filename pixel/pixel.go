// Package pixel fires impression pixels for won bids.
package pixel

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/util/randomutil"
	"github.com/golang/glog"
	"golang.org/x/net/context/ctxhttp"
)

// Firer sends a one way GET to a notification url.
//
// Implementations must not block the caller and never report the outcome back to it.
type Firer interface {
	Fire(bidder openrtb_ext.BidderName, url string)
}

// NewHTTPFirer returns a Firer which issues each pixel from its own goroutine, bounded by cfg.Timeout().
func NewHTTPFirer(client *http.Client, cfg config.Pixel, me metrics.MetricsEngine) Firer {
	return &httpFirer{
		client:        client,
		timeout:       cfg.Timeout(),
		logSampleRate: cfg.LogSampleRate,
		me:            me,
		random:        randomutil.RandomNumberGenerator{},
	}
}

type httpFirer struct {
	client        *http.Client
	timeout       time.Duration
	logSampleRate float32
	me            metrics.MetricsEngine
	random        randomutil.RandomGenerator
	// done is called after each pixel completes. Only set by tests.
	done func()
}

func (f *httpFirer) Fire(bidder openrtb_ext.BidderName, url string) {
	go f.fire(bidder, url)
}

func (f *httpFirer) fire(bidder openrtb_ext.BidderName, url string) {
	if f.done != nil {
		defer f.done()
	}

	// The pixel outlives the event request that triggered it, so it gets a fresh context.
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	resp, err := ctxhttp.Get(ctx, f.client, url)
	if err != nil {
		f.me.RecordPixel(bidder, false)
		f.logFailure("Error firing %s impression pixel %s: %v", bidder, url, err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		f.me.RecordPixel(bidder, false)
		f.logFailure("Unexpected status %d from %s impression pixel %s", resp.StatusCode, bidder, url)
		return
	}
	f.me.RecordPixel(bidder, true)
}

func (f *httpFirer) logFailure(format string, args ...interface{}) {
	if f.random.GenerateFloat32() < f.logSampleRate {
		glog.V(2).Infof(format, args...)
	}
}
