package prometheusmetrics

import (
	"strconv"
	"time"

	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines the Prometheus metrics backing the MetricsEngine implementation.
type Metrics struct {
	Registry *prometheus.Registry

	// General Metrics
	requests      *prometheus.CounterVec
	requestsTimer *prometheus.HistogramVec
	wonBidStore   *prometheus.CounterVec

	// Adapter Metrics
	adapterBids          *prometheus.CounterVec
	adapterErrors        *prometheus.CounterVec
	adapterPrices        *prometheus.HistogramVec
	adapterRequests      *prometheus.CounterVec
	adapterRequestsTimer *prometheus.HistogramVec
	adapterRelocatedExts *prometheus.CounterVec
	adapterPixels        *prometheus.CounterVec
}

const (
	actionLabel         = "action"
	adapterErrorLabel   = "adapter_error"
	adapterLabel        = "adapter"
	bidTypeLabel        = "bid_type"
	hasBidsLabel        = "has_bids"
	markupDeliveryLabel = "delivery"
	requestStatusLabel  = "request_status"
	requestTypeLabel    = "request_type"
	resultLabel         = "result"
	successLabel        = "success"
)

const (
	markupDeliveryAdm  = "adm"
	markupDeliveryNurl = "nurl"
)

// NewMetrics initializes a new Prometheus metrics instance with preloaded label values.
func NewMetrics(cfg config.PrometheusMetrics, adapters []openrtb_ext.BidderName) *Metrics {
	standardTimeBuckets := []float64{0.05, 0.1, 0.15, 0.20, 0.25, 0.3, 0.4, 0.5, 0.75, 1}
	priceBuckets := []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 50}

	metrics := Metrics{}
	metrics.Registry = prometheus.NewRegistry()

	metrics.requests = newCounter(cfg, metrics.Registry,
		"requests",
		"Count of total requests to the bridge labeled by type and status.",
		[]string{requestTypeLabel, requestStatusLabel})

	metrics.requestsTimer = newHistogramVec(cfg, metrics.Registry,
		"request_time_seconds",
		"Seconds to resolve successful requests labeled by type.",
		[]string{requestTypeLabel},
		standardTimeBuckets)

	metrics.wonBidStore = newCounter(cfg, metrics.Registry,
		"won_bid_store",
		"Count of won bid store operations labeled by action and result.",
		[]string{actionLabel, resultLabel})

	metrics.adapterBids = newCounter(cfg, metrics.Registry,
		"adapter_bids",
		"Count of bids labeled by adapter, bid type and markup delivery type (adm or nurl).",
		[]string{adapterLabel, bidTypeLabel, markupDeliveryLabel})

	metrics.adapterErrors = newCounter(cfg, metrics.Registry,
		"adapter_errors",
		"Count of errors labeled by adapter and error type.",
		[]string{adapterLabel, adapterErrorLabel})

	metrics.adapterPrices = newHistogramVec(cfg, metrics.Registry,
		"adapter_prices",
		"Monetary value of the bids labeled by adapter.",
		[]string{adapterLabel},
		priceBuckets)

	metrics.adapterRequests = newCounter(cfg, metrics.Registry,
		"adapter_requests",
		"Count of requests labeled by adapter and whether it returned bids.",
		[]string{adapterLabel, hasBidsLabel})

	metrics.adapterRequestsTimer = newHistogramVec(cfg, metrics.Registry,
		"adapter_request_time_seconds",
		"Seconds to resolve each successful request labeled by adapter.",
		[]string{adapterLabel},
		standardTimeBuckets)

	metrics.adapterRelocatedExts = newCounter(cfg, metrics.Registry,
		"adapter_relocated_extensions",
		"Count of ext objects moved under vendor keys labeled by adapter.",
		[]string{adapterLabel})

	metrics.adapterPixels = newCounter(cfg, metrics.Registry,
		"adapter_impression_pixels",
		"Count of fired impression pixels labeled by adapter and outcome.",
		[]string{adapterLabel, successLabel})

	preloadLabelValues(&metrics, adapters)

	return &metrics
}

func newCounter(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newHistogramVec(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

func (m *Metrics) RecordRequest(labels metrics.Labels) {
	m.requests.With(prometheus.Labels{
		requestTypeLabel:   string(labels.RType),
		requestStatusLabel: string(labels.RequestStatus),
	}).Inc()
}

func (m *Metrics) RecordRequestTime(labels metrics.Labels, length time.Duration) {
	if labels.RequestStatus == metrics.RequestStatusOK {
		m.requestsTimer.With(prometheus.Labels{
			requestTypeLabel: string(labels.RType),
		}).Observe(length.Seconds())
	}
}

func (m *Metrics) RecordAdapterRequest(labels metrics.AdapterLabels) {
	m.adapterRequests.With(prometheus.Labels{
		adapterLabel: string(labels.Adapter),
		hasBidsLabel: strconv.FormatBool(labels.AdapterBids == metrics.AdapterBidPresent),
	}).Inc()

	for err := range labels.AdapterErrors {
		m.adapterErrors.With(prometheus.Labels{
			adapterLabel:      string(labels.Adapter),
			adapterErrorLabel: string(err),
		}).Inc()
	}
}

func (m *Metrics) RecordAdapterTime(labels metrics.AdapterLabels, length time.Duration) {
	if len(labels.AdapterErrors) == 0 {
		m.adapterRequestsTimer.With(prometheus.Labels{
			adapterLabel: string(labels.Adapter),
		}).Observe(length.Seconds())
	}
}

func (m *Metrics) RecordAdapterBidReceived(labels metrics.AdapterLabels, bidType openrtb_ext.BidType, hasAdm bool) {
	markupDelivery := markupDeliveryNurl
	if hasAdm {
		markupDelivery = markupDeliveryAdm
	}

	m.adapterBids.With(prometheus.Labels{
		adapterLabel:        string(labels.Adapter),
		bidTypeLabel:        string(bidType),
		markupDeliveryLabel: markupDelivery,
	}).Inc()
}

func (m *Metrics) RecordAdapterPrice(labels metrics.AdapterLabels, cpm float64) {
	m.adapterPrices.With(prometheus.Labels{
		adapterLabel: string(labels.Adapter),
	}).Observe(cpm)
}

func (m *Metrics) RecordExtensionRelocation(adapter openrtb_ext.BidderName, moved int) {
	m.adapterRelocatedExts.With(prometheus.Labels{
		adapterLabel: string(adapter),
	}).Add(float64(moved))
}

func (m *Metrics) RecordPixel(adapter openrtb_ext.BidderName, success bool) {
	m.adapterPixels.With(prometheus.Labels{
		adapterLabel: string(adapter),
		successLabel: strconv.FormatBool(success),
	}).Inc()
}

func (m *Metrics) RecordWonBidStore(action metrics.WonBidStoreAction, result metrics.WonBidStoreResult) {
	m.wonBidStore.With(prometheus.Labels{
		actionLabel: string(action),
		resultLabel: string(result),
	}).Inc()
}
