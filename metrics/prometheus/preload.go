package prometheusmetrics

import (
	"github.com/allegro/ortb-bridge/metrics"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/prometheus/client_golang/prometheus"
)

// preloadLabelValues creates every known label combination up front so dashboards
// see zero-valued series before the first event.
func preloadLabelValues(m *Metrics, adapters []openrtb_ext.BidderName) {
	var (
		adapterValues        = adaptersAsString(adapters)
		adapterErrorValues   = adapterErrorsAsString()
		bidTypeValues        = bidTypesAsString()
		boolValues           = []string{"true", "false"}
		markupDeliveryValues = []string{markupDeliveryAdm, markupDeliveryNurl}
		requestStatusValues  = requestStatusesAsString()
		requestTypeValues    = requestTypesAsString()
	)

	preloadLabelValuesForCounter(m.requests, map[string][]string{
		requestTypeLabel:   requestTypeValues,
		requestStatusLabel: requestStatusValues,
	})

	preloadLabelValuesForHistogram(m.requestsTimer, map[string][]string{
		requestTypeLabel: requestTypeValues,
	})

	preloadLabelValuesForCounter(m.wonBidStore, map[string][]string{
		actionLabel: wonBidStoreActionsAsString(),
		resultLabel: wonBidStoreResultsAsString(),
	})

	preloadLabelValuesForCounter(m.adapterBids, map[string][]string{
		adapterLabel:        adapterValues,
		bidTypeLabel:        bidTypeValues,
		markupDeliveryLabel: markupDeliveryValues,
	})

	preloadLabelValuesForCounter(m.adapterErrors, map[string][]string{
		adapterLabel:      adapterValues,
		adapterErrorLabel: adapterErrorValues,
	})

	preloadLabelValuesForHistogram(m.adapterPrices, map[string][]string{
		adapterLabel: adapterValues,
	})

	preloadLabelValuesForCounter(m.adapterRequests, map[string][]string{
		adapterLabel: adapterValues,
		hasBidsLabel: boolValues,
	})

	preloadLabelValuesForHistogram(m.adapterRequestsTimer, map[string][]string{
		adapterLabel: adapterValues,
	})

	preloadLabelValuesForCounter(m.adapterRelocatedExts, map[string][]string{
		adapterLabel: adapterValues,
	})

	preloadLabelValuesForCounter(m.adapterPixels, map[string][]string{
		adapterLabel: adapterValues,
		successLabel: boolValues,
	})
}

func preloadLabelValuesForCounter(counter *prometheus.CounterVec, labelsWithValues map[string][]string) {
	registerLabelPermutations(labelsWithValues, func(labels prometheus.Labels) {
		counter.With(labels)
	})
}

func preloadLabelValuesForHistogram(histogram *prometheus.HistogramVec, labelsWithValues map[string][]string) {
	registerLabelPermutations(labelsWithValues, func(labels prometheus.Labels) {
		histogram.With(labels)
	})
}

func registerLabelPermutations(labelsWithValues map[string][]string, register func(prometheus.Labels)) {
	if len(labelsWithValues) == 0 {
		return
	}

	keys := make([]string, 0, len(labelsWithValues))
	values := make([][]string, 0, len(labelsWithValues))
	for k, v := range labelsWithValues {
		keys = append(keys, k)
		values = append(values, v)
	}

	labels := prometheus.Labels{}
	registerLabelPermutationsRecursive(0, keys, values, labels, register)
}

func registerLabelPermutationsRecursive(depth int, keys []string, values [][]string, labels prometheus.Labels, register func(prometheus.Labels)) {
	label := keys[depth]
	isLeaf := depth == len(keys)-1

	for _, value := range values[depth] {
		labels[label] = value

		if isLeaf {
			registeredLabels := make(prometheus.Labels, len(labels))
			for k, v := range labels {
				registeredLabels[k] = v
			}
			register(registeredLabels)
		} else {
			registerLabelPermutationsRecursive(depth+1, keys, values, labels, register)
		}
	}
}

func adaptersAsString(adapters []openrtb_ext.BidderName) []string {
	values := make([]string, len(adapters))
	for i, v := range adapters {
		values[i] = string(v)
	}
	return values
}

func adapterErrorsAsString() []string {
	list := metrics.AdapterErrors()
	values := make([]string, len(list))
	for i, v := range list {
		values[i] = string(v)
	}
	return values
}

func bidTypesAsString() []string {
	list := openrtb_ext.BidTypes()
	values := make([]string, len(list))
	for i, v := range list {
		values[i] = string(v)
	}
	return values
}

func requestStatusesAsString() []string {
	list := metrics.RequestStatuses()
	values := make([]string, len(list))
	for i, v := range list {
		values[i] = string(v)
	}
	return values
}

func requestTypesAsString() []string {
	list := metrics.RequestTypes()
	values := make([]string, len(list))
	for i, v := range list {
		values[i] = string(v)
	}
	return values
}

func wonBidStoreActionsAsString() []string {
	list := metrics.WonBidStoreActions()
	values := make([]string, len(list))
	for i, v := range list {
		values[i] = string(v)
	}
	return values
}

func wonBidStoreResultsAsString() []string {
	list := metrics.WonBidStoreResults()
	values := make([]string, len(list))
	for i, v := range list {
		values[i] = string(v)
	}
	return values
}
