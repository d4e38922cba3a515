package metrics

import (
	"fmt"
	"time"

	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/golang/glog"
	"github.com/rcrowley/go-metrics"
)

// Metrics is the go-metrics implementation of MetricsEngine.
type Metrics struct {
	MetricsRegistry metrics.Registry
	RequestTimer    metrics.Timer
	EventTimer      metrics.Timer
	RequestStatuses map[RequestType]map[RequestStatus]metrics.Meter
	WonBidStore     map[WonBidStoreAction]map[WonBidStoreResult]metrics.Meter

	AdapterMetrics map[openrtb_ext.BidderName]*AdapterMetrics

	exchanges []openrtb_ext.BidderName
}

// AdapterMetrics houses the metrics for a particular adapter
type AdapterMetrics struct {
	NoBidMeter         metrics.Meter
	ErrorMeters        map[AdapterError]metrics.Meter
	GotBidsMeter       metrics.Meter
	RequestTimer       metrics.Timer
	PriceHistogram     metrics.Histogram
	BidsReceivedMeter  metrics.Meter
	MarkupMetrics      map[openrtb_ext.BidType]*MarkupDeliveryMetrics
	RelocatedExtsMeter metrics.Meter
	PixelSuccessMeter  metrics.Meter
	PixelFailureMeter  metrics.Meter
}

type MarkupDeliveryMetrics struct {
	AdmMeter  metrics.Meter
	NurlMeter metrics.Meter
}

// Defining an "unknown" bidder
const unknownBidder openrtb_ext.BidderName = "unknown"

// NewBlankMetrics creates a new Metrics object with all blank metrics object. This may also be useful for
// testing routines to ensure that no metrics are written anywhere.
func NewBlankMetrics(registry metrics.Registry, exchanges []openrtb_ext.BidderName) *Metrics {
	blankMeter := &metrics.NilMeter{}
	newMetrics := &Metrics{
		MetricsRegistry: registry,
		RequestTimer:    &metrics.NilTimer{},
		EventTimer:      &metrics.NilTimer{},
		RequestStatuses: make(map[RequestType]map[RequestStatus]metrics.Meter),
		WonBidStore:     make(map[WonBidStoreAction]map[WonBidStoreResult]metrics.Meter),

		AdapterMetrics: make(map[openrtb_ext.BidderName]*AdapterMetrics, len(exchanges)+1),

		exchanges: exchanges,
	}
	for _, a := range exchanges {
		newMetrics.AdapterMetrics[a] = makeBlankAdapterMetrics()
	}
	newMetrics.AdapterMetrics[unknownBidder] = makeBlankAdapterMetrics()

	for _, t := range RequestTypes() {
		newMetrics.RequestStatuses[t] = make(map[RequestStatus]metrics.Meter)
		for _, s := range RequestStatuses() {
			newMetrics.RequestStatuses[t][s] = blankMeter
		}
	}
	for _, a := range WonBidStoreActions() {
		newMetrics.WonBidStore[a] = make(map[WonBidStoreResult]metrics.Meter)
		for _, r := range WonBidStoreResults() {
			newMetrics.WonBidStore[a][r] = blankMeter
		}
	}

	return newMetrics
}

// NewMetrics creates a new Metrics object with needed metrics defined.
func NewMetrics(registry metrics.Registry, exchanges []openrtb_ext.BidderName) *Metrics {
	newMetrics := NewBlankMetrics(registry, exchanges)
	newMetrics.RequestTimer = metrics.GetOrRegisterTimer("request_time", registry)
	newMetrics.EventTimer = metrics.GetOrRegisterTimer("event_time", registry)
	for _, a := range exchanges {
		registerAdapterMetrics(registry, "adapter", string(a), newMetrics.AdapterMetrics[a])
	}
	registerAdapterMetrics(registry, "adapter", string(unknownBidder), newMetrics.AdapterMetrics[unknownBidder])
	for typ, statusMap := range newMetrics.RequestStatuses {
		for stat := range statusMap {
			statusMap[stat] = metrics.GetOrRegisterMeter("requests."+string(stat)+"."+string(typ), registry)
		}
	}
	for action, resultMap := range newMetrics.WonBidStore {
		for result := range resultMap {
			resultMap[result] = metrics.GetOrRegisterMeter("won_bids."+string(action)+"."+string(result), registry)
		}
	}
	return newMetrics
}

// Part of setting up blank metrics, the adapter metrics.
func makeBlankAdapterMetrics() *AdapterMetrics {
	blankMeter := &metrics.NilMeter{}
	newAdapter := &AdapterMetrics{
		NoBidMeter:         blankMeter,
		ErrorMeters:        make(map[AdapterError]metrics.Meter),
		GotBidsMeter:       blankMeter,
		RequestTimer:       &metrics.NilTimer{},
		PriceHistogram:     &metrics.NilHistogram{},
		BidsReceivedMeter:  blankMeter,
		MarkupMetrics:      make(map[openrtb_ext.BidType]*MarkupDeliveryMetrics),
		RelocatedExtsMeter: blankMeter,
		PixelSuccessMeter:  blankMeter,
		PixelFailureMeter:  blankMeter,
	}
	for _, err := range AdapterErrors() {
		newAdapter.ErrorMeters[err] = blankMeter
	}
	for _, bidType := range openrtb_ext.BidTypes() {
		newAdapter.MarkupMetrics[bidType] = &MarkupDeliveryMetrics{
			AdmMeter:  blankMeter,
			NurlMeter: blankMeter,
		}
	}
	return newAdapter
}

func registerAdapterMetrics(registry metrics.Registry, adapterOrAccount string, exchange string, am *AdapterMetrics) {
	prefix := fmt.Sprintf("%s.%s", adapterOrAccount, exchange)
	am.NoBidMeter = metrics.GetOrRegisterMeter(prefix+".requests.nobid", registry)
	am.GotBidsMeter = metrics.GetOrRegisterMeter(prefix+".requests.gotbids", registry)
	am.RequestTimer = metrics.GetOrRegisterTimer(prefix+".request_time", registry)
	am.PriceHistogram = metrics.GetOrRegisterHistogram(prefix+".prices", registry, metrics.NewExpDecaySample(1028, 0.015))
	am.BidsReceivedMeter = metrics.GetOrRegisterMeter(prefix+".bids_received", registry)
	am.RelocatedExtsMeter = metrics.GetOrRegisterMeter(prefix+".relocated_exts", registry)
	am.PixelSuccessMeter = metrics.GetOrRegisterMeter(prefix+".pixels.ok", registry)
	am.PixelFailureMeter = metrics.GetOrRegisterMeter(prefix+".pixels.err", registry)
	for err := range am.ErrorMeters {
		am.ErrorMeters[err] = metrics.GetOrRegisterMeter(prefix+".requests."+string(err), registry)
	}
	for bidType := range am.MarkupMetrics {
		am.MarkupMetrics[bidType] = &MarkupDeliveryMetrics{
			AdmMeter:  metrics.GetOrRegisterMeter(fmt.Sprintf("%s.%s.adm_bids_received", prefix, bidType), registry),
			NurlMeter: metrics.GetOrRegisterMeter(fmt.Sprintf("%s.%s.nurl_bids_received", prefix, bidType), registry),
		}
	}
}

func (me *Metrics) adapterMetrics(adapter openrtb_ext.BidderName) *AdapterMetrics {
	am, ok := me.AdapterMetrics[adapter]
	if !ok {
		glog.Errorf("Trying to record metrics for unknown adapter %s", adapter)
		return me.AdapterMetrics[unknownBidder]
	}
	return am
}

// RecordRequest implements a part of the MetricsEngine interface
func (me *Metrics) RecordRequest(labels Labels) {
	if statusMap, ok := me.RequestStatuses[labels.RType]; ok {
		if meter, ok := statusMap[labels.RequestStatus]; ok {
			meter.Mark(1)
		}
	}
}

// RecordRequestTime implements a part of the MetricsEngine interface. The calling code is responsible
// for determining the call duration.
func (me *Metrics) RecordRequestTime(labels Labels, length time.Duration) {
	if labels.RType == ReqTypeEvent {
		me.EventTimer.Update(length)
		return
	}
	me.RequestTimer.Update(length)
}

// RecordAdapterRequest implements a part of the MetricsEngine interface
func (me *Metrics) RecordAdapterRequest(labels AdapterLabels) {
	am := me.adapterMetrics(labels.Adapter)

	switch labels.AdapterBids {
	case AdapterBidNone:
		am.NoBidMeter.Mark(1)
	case AdapterBidPresent:
		am.GotBidsMeter.Mark(1)
	default:
		glog.Warningf("No go-metrics logged for AdapterBids value: %s", labels.AdapterBids)
	}
	for errType := range labels.AdapterErrors {
		if meter, ok := am.ErrorMeters[errType]; ok {
			meter.Mark(1)
		}
	}
}

// RecordAdapterTime implements a part of the MetricsEngine interface.
func (me *Metrics) RecordAdapterTime(labels AdapterLabels, length time.Duration) {
	me.adapterMetrics(labels.Adapter).RequestTimer.Update(length)
}

// RecordAdapterBidReceived implements a part of the MetricsEngine interface.
func (me *Metrics) RecordAdapterBidReceived(labels AdapterLabels, bidType openrtb_ext.BidType, hasAdm bool) {
	am := me.adapterMetrics(labels.Adapter)
	am.BidsReceivedMeter.Mark(1)

	if metricsForType, ok := am.MarkupMetrics[bidType]; ok {
		if hasAdm {
			metricsForType.AdmMeter.Mark(1)
		} else {
			metricsForType.NurlMeter.Mark(1)
		}
	} else {
		glog.Errorf("bid/adm metrics map entry does not exist for type %s. This is a bug, and should be reported.", bidType)
	}
}

// RecordAdapterPrice implements a part of the MetricsEngine interface. Generates a histogram of winning bid prices
func (me *Metrics) RecordAdapterPrice(labels AdapterLabels, cpm float64) {
	// Adapter prices are recorded in cents so the histogram keeps integer precision.
	me.adapterMetrics(labels.Adapter).PriceHistogram.Update(int64(cpm * 100))
}

// RecordExtensionRelocation implements a part of the MetricsEngine interface.
func (me *Metrics) RecordExtensionRelocation(adapter openrtb_ext.BidderName, moved int) {
	me.adapterMetrics(adapter).RelocatedExtsMeter.Mark(int64(moved))
}

// RecordPixel implements a part of the MetricsEngine interface.
func (me *Metrics) RecordPixel(adapter openrtb_ext.BidderName, success bool) {
	am := me.adapterMetrics(adapter)
	if success {
		am.PixelSuccessMeter.Mark(1)
	} else {
		am.PixelFailureMeter.Mark(1)
	}
}

// RecordWonBidStore implements a part of the MetricsEngine interface.
func (me *Metrics) RecordWonBidStore(action WonBidStoreAction, result WonBidStoreResult) {
	if resultMap, ok := me.WonBidStore[action]; ok {
		if meter, ok := resultMap[result]; ok {
			meter.Mark(1)
		}
	}
}
