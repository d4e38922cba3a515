package config

import (
	"testing"
	"time"

	mainConfig "github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/metrics"
	prometheusmetrics "github.com/allegro/ortb-bridge/metrics/prometheus"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
)

// Start a simple test to insure we get valid MetricsEngines for various configurations
func TestDummyMetricsEngine(t *testing.T) {
	cfg := mainConfig.Configuration{}
	adapterList := make([]openrtb_ext.BidderName, 0, 2)
	testEngine := NewMetricsEngine(&cfg, adapterList)
	_, ok := testEngine.MetricsEngine.(*DummyMetricsEngine)
	if !ok {
		t.Error("Expected a DummyMetricsEngine, but didn't get it")
	}
}

func TestGoMetricsEngine(t *testing.T) {
	cfg := mainConfig.Configuration{}
	cfg.Metrics.Influxdb.Host = "localhost"
	cfg.Metrics.Influxdb.MetricSendInterval = 3600
	adapterList := make([]openrtb_ext.BidderName, 0, 2)
	testEngine := NewMetricsEngine(&cfg, adapterList)
	_, ok := testEngine.MetricsEngine.(*metrics.Metrics)
	if !ok {
		t.Error("Expected a legacy Metrics as MetricsEngine, but didn't get it")
	}
}

func TestPrometheusMetricsEngine(t *testing.T) {
	cfg := mainConfig.Configuration{}
	cfg.Metrics.Prometheus.Port = 9090
	testEngine := NewMetricsEngine(&cfg, openrtb_ext.CoreBidderNames())
	_, ok := testEngine.MetricsEngine.(*prometheusmetrics.Metrics)
	assert.True(t, ok, "Expected a Prometheus MetricsEngine")
	assert.NotNil(t, testEngine.PrometheusMetrics)
	assert.Nil(t, testEngine.GoMetrics)
}

func TestBothEnginesAreCombined(t *testing.T) {
	cfg := mainConfig.Configuration{}
	cfg.Metrics.Influxdb.Host = "localhost"
	cfg.Metrics.Influxdb.MetricSendInterval = 3600
	cfg.Metrics.Prometheus.Port = 9090
	testEngine := NewMetricsEngine(&cfg, openrtb_ext.CoreBidderNames())
	multi, ok := testEngine.MetricsEngine.(*MultiMetricsEngine)
	if assert.True(t, ok, "Expected a MultiMetricsEngine") {
		assert.Len(t, *multi, 2)
	}
}

// Test the multiengine
func TestMultiMetricsEngine(t *testing.T) {
	adapterList := openrtb_ext.CoreBidderNames()
	goEngine := metrics.NewMetrics(gometrics.NewPrefixedRegistry("ortbbridge."), adapterList)
	engineList := make(MultiMetricsEngine, 2)
	engineList[0] = goEngine
	engineList[1] = &DummyMetricsEngine{}
	var metricsEngine metrics.MetricsEngine
	metricsEngine = &engineList
	labels := metrics.Labels{
		RType:         metrics.ReqTypeORTB2Web,
		RequestStatus: metrics.RequestStatusOK,
	}
	bidLabels := metrics.AdapterLabels{
		Adapter:     openrtb_ext.BidderAllegro,
		AdapterBids: metrics.AdapterBidPresent,
	}
	for i := 0; i < 5; i++ {
		metricsEngine.RecordRequest(labels)
		metricsEngine.RecordRequestTime(labels, time.Millisecond*20)
		metricsEngine.RecordAdapterRequest(bidLabels)
		metricsEngine.RecordAdapterTime(bidLabels, time.Millisecond*20)
		metricsEngine.RecordAdapterBidReceived(bidLabels, openrtb_ext.BidTypeBanner, true)
		metricsEngine.RecordAdapterPrice(bidLabels, 2.5)
		metricsEngine.RecordExtensionRelocation(openrtb_ext.BidderAllegro, 2)
		metricsEngine.RecordPixel(openrtb_ext.BidderAllegro, true)
		metricsEngine.RecordWonBidStore(metrics.WonBidStoreSave, metrics.WonBidStoreOK)
	}
	VerifyMetrics(t, "RequestStatuses.OpenRTB2.OK", goEngine.RequestStatuses[metrics.ReqTypeORTB2Web][metrics.RequestStatusOK].Count(), 5)
	VerifyMetrics(t, "Request", goEngine.RequestTimer.Count(), 5)
	VerifyMetrics(t, "Adapter.Allegro.GotBids", goEngine.AdapterMetrics[openrtb_ext.BidderAllegro].GotBidsMeter.Count(), 5)
	VerifyMetrics(t, "Adapter.Allegro.NoBid", goEngine.AdapterMetrics[openrtb_ext.BidderAllegro].NoBidMeter.Count(), 0)
	VerifyMetrics(t, "Adapter.Allegro.Banner.Adm", goEngine.AdapterMetrics[openrtb_ext.BidderAllegro].MarkupMetrics[openrtb_ext.BidTypeBanner].AdmMeter.Count(), 5)
	VerifyMetrics(t, "Adapter.Allegro.RelocatedExts", goEngine.AdapterMetrics[openrtb_ext.BidderAllegro].RelocatedExtsMeter.Count(), 10)
	VerifyMetrics(t, "Adapter.Allegro.Pixels", goEngine.AdapterMetrics[openrtb_ext.BidderAllegro].PixelSuccessMeter.Count(), 5)
	VerifyMetrics(t, "WonBids.Save.OK", goEngine.WonBidStore[metrics.WonBidStoreSave][metrics.WonBidStoreOK].Count(), 5)
}

func VerifyMetrics(t *testing.T, name string, actual int64, expected int64) {
	if expected != actual {
		t.Errorf("Error in metric %s: expected %d, got %d.", name, expected, actual)
	}
}
