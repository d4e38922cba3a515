package config

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullConfig = []byte(`
external_url: http://bridge.allegro.test/
host: bridge.allegro.test
port: 1234
admin_port: 5678
enable_gzip: true
status_response: ok
auction_timeouts_ms:
  default: 50
  max: 123
http_client:
  max_connections_per_host: 10
  max_idle_connections: 500
  max_idle_connections_per_host: 20
  idle_connection_timeout_seconds: 30
metrics:
  influxdb:
    host: upstream:8232
    database: metricsdb
    username: admin
    password: admin1324
    metric_send_interval: 30
  prometheus:
    port: 8080
    namespace: bridge
    subsystem: server
    timeout_ms: 500
won_bids:
  type: redis
  ttl_seconds: 120
  redis:
    addr: redis:6379
    db: 2
    key_prefix: "won:"
event:
  rate_limit: 50
pixel:
  timeout_ms: 300
  log_sample_rate: 0.5
adapters:
  allegro:
    endpoint: https://dsp.allegro.test/bid
    extra_info: '{"triggerImpressionPixel":true}'
`)

func cmpStrings(t *testing.T, key string, a string, b string) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %s != %s", key, a, b)
}

func cmpInts(t *testing.T, key string, a int, b int) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %d != %d", key, a, b)
}

func cmpBools(t *testing.T, key string, a bool, b bool) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %t != %t", key, a, b)
}

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	cfg, err := New(v)
	require.NoError(t, err, "Setting up config with defaults should work")

	cmpStrings(t, "external_url", cfg.ExternalURL, "http://localhost:8000")
	cmpInts(t, "port", cfg.Port, 8000)
	cmpInts(t, "admin_port", cfg.AdminPort, 6060)
	cmpBools(t, "enable_gzip", cfg.EnableGzip, false)
	cmpInts(t, "http_client.max_idle_connections", cfg.Client.MaxIdleConns, 400)
	cmpInts(t, "metrics.prometheus.port", cfg.Metrics.Prometheus.Port, 0)
	cmpInts(t, "metrics.prometheus.timeout_ms", cfg.Metrics.Prometheus.TimeoutMillisRaw, 10000)
	cmpStrings(t, "won_bids.type", cfg.WonBids.Type, WonBidStoreMemory)
	cmpInts(t, "won_bids.size_bytes", cfg.WonBids.Size, 10*1024*1024)
	cmpInts(t, "won_bids.ttl_seconds", cfg.WonBids.TTLSeconds, 3600)
	cmpStrings(t, "won_bids.redis.key_prefix", cfg.WonBids.Redis.KeyPrefix, "wonbid:")
	cmpInts(t, "pixel.timeout_ms", cfg.Pixel.TimeoutMs, 200)
	assert.Equal(t, 200*time.Millisecond, cfg.Pixel.Timeout())
	assert.InDelta(t, 0.01, cfg.Pixel.LogSampleRate, 0.0001)
	assert.Zero(t, cfg.Event.RateLimit)

	require.Contains(t, cfg.Adapters, "allegro")
	cmpStrings(t, "adapters.allegro.endpoint", cfg.Adapters["allegro"].Endpoint, "https://dsp.allegro.com/bid")
	cmpBools(t, "adapters.allegro.disabled", cfg.Adapters["allegro"].Disabled, false)
}

func TestFullConfig(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(fullConfig)))
	cfg, err := New(v)
	require.NoError(t, err, "Setting up config should work but it doesn't")

	cmpStrings(t, "external url", cfg.ExternalURL, "http://bridge.allegro.test/")
	cmpStrings(t, "host", cfg.Host, "bridge.allegro.test")
	cmpInts(t, "port", cfg.Port, 1234)
	cmpInts(t, "admin_port", cfg.AdminPort, 5678)
	cmpBools(t, "enable_gzip", cfg.EnableGzip, true)
	cmpStrings(t, "status_response", cfg.StatusResponse, "ok")
	cmpInts(t, "auction_timeouts_ms.default", int(cfg.AuctionTimeouts.Default), 50)
	cmpInts(t, "auction_timeouts_ms.max", int(cfg.AuctionTimeouts.Max), 123)
	cmpInts(t, "http_client.max_connections_per_host", cfg.Client.MaxConnsPerHost, 10)
	cmpInts(t, "http_client.max_idle_connections", cfg.Client.MaxIdleConns, 500)
	cmpInts(t, "http_client.max_idle_connections_per_host", cfg.Client.MaxIdleConnsPerHost, 20)
	cmpInts(t, "http_client.idle_connection_timeout_seconds", cfg.Client.IdleConnTimeout, 30)
	cmpStrings(t, "metrics.influxdb.host", cfg.Metrics.Influxdb.Host, "upstream:8232")
	cmpStrings(t, "metrics.influxdb.database", cfg.Metrics.Influxdb.Database, "metricsdb")
	cmpStrings(t, "metrics.influxdb.username", cfg.Metrics.Influxdb.Username, "admin")
	cmpStrings(t, "metrics.influxdb.password", cfg.Metrics.Influxdb.Password, "admin1324")
	cmpInts(t, "metrics.influxdb.metric_send_interval", cfg.Metrics.Influxdb.MetricSendInterval, 30)
	cmpInts(t, "metrics.prometheus.port", cfg.Metrics.Prometheus.Port, 8080)
	cmpStrings(t, "metrics.prometheus.namespace", cfg.Metrics.Prometheus.Namespace, "bridge")
	cmpStrings(t, "metrics.prometheus.subsystem", cfg.Metrics.Prometheus.Subsystem, "server")
	assert.Equal(t, 500*time.Millisecond, cfg.Metrics.Prometheus.Timeout())
	cmpStrings(t, "won_bids.type", cfg.WonBids.Type, WonBidStoreRedis)
	assert.Equal(t, 2*time.Minute, cfg.WonBids.TTL())
	cmpStrings(t, "won_bids.redis.addr", cfg.WonBids.Redis.Addr, "redis:6379")
	cmpInts(t, "won_bids.redis.db", cfg.WonBids.Redis.DB, 2)
	cmpStrings(t, "won_bids.redis.key_prefix", cfg.WonBids.Redis.KeyPrefix, "won:")
	assert.Equal(t, 50.0, cfg.Event.RateLimit)
	cmpInts(t, "pixel.timeout_ms", cfg.Pixel.TimeoutMs, 300)
	cmpStrings(t, "adapters.allegro.endpoint", cfg.Adapters["allegro"].Endpoint, "https://dsp.allegro.test/bid")
	cmpStrings(t, "adapters.allegro.extra_info", cfg.Adapters["allegro"].ExtraAdapterInfo, `{"triggerImpressionPixel":true}`)
	assert.Equal(t, Server{ExternalUrl: "http://bridge.allegro.test/"}, cfg.ServerConfig())
}

func TestAdapterFromEnv(t *testing.T) {
	os.Setenv("PBS_ADAPTERS_ALLEGRO_ENDPOINT", "https://env.allegro.test/bid")
	defer os.Unsetenv("PBS_ADAPTERS_ALLEGRO_ENDPOINT")
	os.Setenv("PBS_WON_BIDS_TYPE", "none")
	defer os.Unsetenv("PBS_WON_BIDS_TYPE")

	v := viper.New()
	SetupViper(v, "")
	cfg, err := New(v)
	require.NoError(t, err)

	cmpStrings(t, "adapters.allegro.endpoint", cfg.Adapters["allegro"].Endpoint, "https://env.allegro.test/bid")
	cmpStrings(t, "won_bids.type", cfg.WonBids.Type, WonBidStoreNone)
}

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		description   string
		modify        func(cfg *Configuration)
		expectedError string
	}{
		{
			description: "valid",
			modify:      func(cfg *Configuration) {},
		},
		{
			description:   "max timeout below default",
			modify:        func(cfg *Configuration) { cfg.AuctionTimeouts = AuctionTimeouts{Default: 100, Max: 50} },
			expectedError: "auction_timeouts_ms.max cannot be less than auction_timeouts_ms.default. max=50, default=100",
		},
		{
			description:   "unknown won bid store",
			modify:        func(cfg *Configuration) { cfg.WonBids.Type = "postgres" },
			expectedError: `won_bids.type must be one of memory, redis or none, got "postgres"`,
		},
		{
			description:   "redis store without address",
			modify:        func(cfg *Configuration) { cfg.WonBids.Type = WonBidStoreRedis },
			expectedError: "won_bids.redis.addr is required for the redis store",
		},
		{
			description:   "memory store without size",
			modify:        func(cfg *Configuration) { cfg.WonBids.Size = 0 },
			expectedError: "won_bids.size_bytes must be positive for the memory store, got 0",
		},
		{
			description:   "store without ttl",
			modify:        func(cfg *Configuration) { cfg.WonBids.TTLSeconds = 0 },
			expectedError: "won_bids.ttl_seconds must be positive, got 0",
		},
		{
			description:   "influx send interval too short",
			modify:        func(cfg *Configuration) { cfg.Metrics.Influxdb = InfluxMetrics{Host: "influx", MetricSendInterval: 1} },
			expectedError: "metrics.influxdb.metric_send_interval must be at least 2 seconds, got 1",
		},
		{
			description:   "prometheus without timeout",
			modify:        func(cfg *Configuration) { cfg.Metrics.Prometheus = PrometheusMetrics{Port: 8080} },
			expectedError: "metrics.prometheus.timeout_ms must be positive",
		},
		{
			description:   "negative rate limit",
			modify:        func(cfg *Configuration) { cfg.Event.RateLimit = -1 },
			expectedError: "event.rate_limit cannot be negative, got -1.000000",
		},
		{
			description:   "pixel without timeout",
			modify:        func(cfg *Configuration) { cfg.Pixel.TimeoutMs = 0 },
			expectedError: "pixel.timeout_ms must be positive, got 0",
		},
		{
			description:   "invalid adapter endpoint",
			modify:        func(cfg *Configuration) { cfg.Adapters["allegro"] = Adapter{Endpoint: "not a url"} },
			expectedError: "The endpoint: not a url for allegro is not a valid URL",
		},
		{
			description: "disabled adapter is not validated",
			modify:      func(cfg *Configuration) { cfg.Adapters["allegro"] = Adapter{Disabled: true} },
		},
	}

	for _, test := range testCases {
		cfg := validConfiguration()
		test.modify(&cfg)
		errs := cfg.validate()
		if test.expectedError == "" {
			assert.Empty(t, errs, test.description)
			continue
		}
		if assert.Len(t, errs, 1, test.description) {
			assert.EqualError(t, errs[0], test.expectedError, test.description)
		}
	}
}

func TestNewReturnsAggregatedValidationErrors(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	v.Set("won_bids.type", "bogus")
	v.Set("pixel.timeout_ms", 0)

	_, err := New(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation errors (2 errors)")
}

func TestLimitAuctionTimeout(t *testing.T) {
	testCases := []struct {
		description string
		timeouts    AuctionTimeouts
		requested   time.Duration
		expected    time.Duration
	}{
		{description: "no limits", timeouts: AuctionTimeouts{}, requested: 300 * time.Millisecond, expected: 300 * time.Millisecond},
		{description: "default when nothing requested", timeouts: AuctionTimeouts{Default: 100, Max: 200}, requested: 0, expected: 100 * time.Millisecond},
		{description: "capped at max", timeouts: AuctionTimeouts{Default: 100, Max: 200}, requested: 500 * time.Millisecond, expected: 200 * time.Millisecond},
		{description: "below max", timeouts: AuctionTimeouts{Default: 100, Max: 200}, requested: 150 * time.Millisecond, expected: 150 * time.Millisecond},
		{description: "max without default", timeouts: AuctionTimeouts{Max: 200}, requested: 0, expected: 200 * time.Millisecond},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, test.timeouts.LimitAuctionTimeout(test.requested), test.description)
	}
}

func validConfiguration() Configuration {
	return Configuration{
		AuctionTimeouts: AuctionTimeouts{Default: 100, Max: 200},
		WonBids: WonBids{
			Type:       WonBidStoreMemory,
			Size:       1024 * 1024,
			TTLSeconds: 60,
		},
		Pixel: Pixel{TimeoutMs: 200, LogSampleRate: 0.1},
		Adapters: map[string]Adapter{
			"allegro": {Endpoint: "https://dsp.allegro.com/bid"},
		},
	}
}
