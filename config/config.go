package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/golang/glog"
	"github.com/spf13/viper"
)

// Configuration specifies the static application config.
type Configuration struct {
	ExternalURL string `mapstructure:"external_url"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	AdminPort   int    `mapstructure:"admin_port"`
	EnableGzip  bool   `mapstructure:"enable_gzip"`
	// StatusResponse is the string which will be returned by the /status endpoint when things are OK.
	// If empty, it will return a 204 with no content.
	StatusResponse string `mapstructure:"status_response"`
	// PemCertsFile holds extra root certificates trusted when calling bidders.
	PemCertsFile    string          `mapstructure:"certificates_file"`
	AuctionTimeouts AuctionTimeouts `mapstructure:"auction_timeouts_ms"`
	Client          HTTPClient      `mapstructure:"http_client"`
	Metrics         Metrics         `mapstructure:"metrics"`
	WonBids         WonBids         `mapstructure:"won_bids"`
	Event           Event           `mapstructure:"event"`
	Pixel           Pixel           `mapstructure:"pixel"`
	// Adapters should have a key for every openrtb_ext.BidderName, converted to lower-case.
	Adapters map[string]Adapter `mapstructure:"adapters"`
}

// Server holds the parts of the host configuration which bidders may need when they are built.
type Server struct {
	ExternalUrl string
}

type HTTPClient struct {
	MaxConnsPerHost     int `mapstructure:"max_connections_per_host"`
	MaxIdleConns        int `mapstructure:"max_idle_connections"`
	MaxIdleConnsPerHost int `mapstructure:"max_idle_connections_per_host"`
	IdleConnTimeout     int `mapstructure:"idle_connection_timeout_seconds"`
	// Dialer
	DialTimeout   int `mapstructure:"dial_timeout_ms"`
	DialKeepAlive int `mapstructure:"dial_keepalive_seconds"`
	// TLSHandshakeTimeout and ResponseHeaderTimeout are in seconds, 0 means no timeout.
	TLSHandshakeTimeout   int `mapstructure:"tls_handshake_timeout_seconds"`
	ResponseHeaderTimeout int `mapstructure:"response_header_timeout_seconds"`
}

type AuctionTimeouts struct {
	// The default timeout is used if the user's request didn't define one. Use 0 if there's no default.
	Default uint64 `mapstructure:"default"`
	// The max timeout is used as an absolute cap, to prevent excessively long ones. Use 0 for no cap
	Max uint64 `mapstructure:"max"`
}

func (cfg *AuctionTimeouts) validate(errs []error) []error {
	if cfg.Max < cfg.Default {
		errs = append(errs, fmt.Errorf("auction_timeouts_ms.max cannot be less than auction_timeouts_ms.default. max=%d, default=%d", cfg.Max, cfg.Default))
	}
	return errs
}

// LimitAuctionTimeout returns the min of requested or cfg.MaxAuctionTimeout.
// Both values treat "0" as "infinite".
func (cfg *AuctionTimeouts) LimitAuctionTimeout(requested time.Duration) time.Duration {
	if requested == 0 && cfg.Default != 0 {
		return time.Duration(cfg.Default) * time.Millisecond
	}
	if cfg.Max > 0 {
		maxTimeout := time.Duration(cfg.Max) * time.Millisecond
		if requested == 0 || requested > maxTimeout {
			return maxTimeout
		}
	}
	return requested
}

type Metrics struct {
	Influxdb   InfluxMetrics     `mapstructure:"influxdb"`
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
}

type InfluxMetrics struct {
	Host               string `mapstructure:"host"`
	Database           string `mapstructure:"database"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MetricSendInterval int    `mapstructure:"metric_send_interval"`
}

func (cfg *InfluxMetrics) validate(errs []error) []error {
	if cfg.Host != "" && cfg.MetricSendInterval < 2 {
		errs = append(errs, fmt.Errorf("metrics.influxdb.metric_send_interval must be at least 2 seconds, got %d", cfg.MetricSendInterval))
	}
	return errs
}

type PrometheusMetrics struct {
	Port             int    `mapstructure:"port"`
	Namespace        string `mapstructure:"namespace"`
	Subsystem        string `mapstructure:"subsystem"`
	TimeoutMillisRaw int    `mapstructure:"timeout_ms"`
}

func (cfg *PrometheusMetrics) validate(errs []error) []error {
	if cfg.Port > 0 && cfg.TimeoutMillisRaw <= 0 {
		errs = append(errs, fmt.Errorf("metrics.prometheus.timeout_ms must be positive"))
	}
	return errs
}

func (m *PrometheusMetrics) Timeout() time.Duration {
	return time.Duration(m.TimeoutMillisRaw) * time.Millisecond
}

// Supported won bid store types.
const (
	WonBidStoreMemory = "memory"
	WonBidStoreRedis  = "redis"
	WonBidStoreNone   = "none"
)

// WonBids configures where bids returned by an auction wait for their win event.
type WonBids struct {
	Type       string      `mapstructure:"type"`
	Size       int         `mapstructure:"size_bytes"`
	TTLSeconds int         `mapstructure:"ttl_seconds"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

func (cfg *WonBids) TTL() time.Duration {
	return time.Duration(cfg.TTLSeconds) * time.Second
}

func (cfg *WonBids) validate(errs []error) []error {
	switch cfg.Type {
	case WonBidStoreMemory:
		if cfg.Size <= 0 {
			errs = append(errs, fmt.Errorf("won_bids.size_bytes must be positive for the memory store, got %d", cfg.Size))
		}
	case WonBidStoreRedis:
		if cfg.Redis.Addr == "" {
			errs = append(errs, errors.New("won_bids.redis.addr is required for the redis store"))
		}
	case WonBidStoreNone:
	default:
		errs = append(errs, fmt.Errorf("won_bids.type must be one of %s, %s or %s, got %q", WonBidStoreMemory, WonBidStoreRedis, WonBidStoreNone, cfg.Type))
	}
	if cfg.Type != WonBidStoreNone && cfg.TTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("won_bids.ttl_seconds must be positive, got %d", cfg.TTLSeconds))
	}
	return errs
}

// Event configures the /event endpoint.
type Event struct {
	// RateLimit caps the number of event calls per second from a single client IP. Use 0 for no limit.
	RateLimit float64 `mapstructure:"rate_limit"`
	// TimeoutMs bounds the won bid lookup of a single event.
	TimeoutMs int `mapstructure:"timeout_ms"`
}

func (cfg *Event) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMs) * time.Millisecond
}

// Pixel configures the transport used to fire impression pixels.
type Pixel struct {
	TimeoutMs int `mapstructure:"timeout_ms"`
	// LogSampleRate is the fraction of failed pixels which get logged.
	LogSampleRate float32 `mapstructure:"log_sample_rate"`
}

func (cfg *Pixel) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMs) * time.Millisecond
}

func (cfg *Pixel) validate(errs []error) []error {
	if cfg.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("pixel.timeout_ms must be positive, got %d", cfg.TimeoutMs))
	}
	if cfg.LogSampleRate < 0 || cfg.LogSampleRate > 1 {
		errs = append(errs, fmt.Errorf("pixel.log_sample_rate must be between 0 and 1, got %f", cfg.LogSampleRate))
	}
	return errs
}

func (cfg *Configuration) validate() []error {
	var errs []error
	errs = cfg.AuctionTimeouts.validate(errs)
	errs = cfg.Metrics.Influxdb.validate(errs)
	errs = cfg.Metrics.Prometheus.validate(errs)
	errs = cfg.WonBids.validate(errs)
	errs = cfg.Pixel.validate(errs)
	errs = validateAdapters(cfg.Adapters, errs)
	if cfg.Event.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("event.rate_limit cannot be negative, got %f", cfg.Event.RateLimit))
	}
	return errs
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}

	// Adapter names are case insensitive in the config, viper lower cases them already.
	for name, adapter := range c.Adapters {
		if lower := strings.ToLower(name); lower != name {
			delete(c.Adapters, name)
			c.Adapters[lower] = adapter
		}
	}

	glog.Info("Logging the resolved configuration:")
	logGeneral(c, "  \t")
	if errs := c.validate(); len(errs) > 0 {
		return &c, errortypes.NewAggregateErrors("validation errors", errs)
	}
	return &c, nil
}

// ServerConfig returns the part of the configuration handed to bidder builders.
func (cfg *Configuration) ServerConfig() Server {
	return Server{ExternalUrl: cfg.ExternalURL}
}

// SetupViper sets up viper with the default values and binds the environment. Keys read
// from the environment are prefixed with PBS_, with dots replaced by underscores.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("external_url", "http://localhost:8000")
	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("enable_gzip", false)
	v.SetDefault("status_response", "")
	v.SetDefault("certificates_file", "")
	v.SetDefault("auction_timeouts_ms.default", 0)
	v.SetDefault("auction_timeouts_ms.max", 0)
	v.SetDefault("http_client.max_connections_per_host", 0) // unlimited
	v.SetDefault("http_client.max_idle_connections", 400)
	v.SetDefault("http_client.max_idle_connections_per_host", 10)
	v.SetDefault("http_client.idle_connection_timeout_seconds", 60)
	v.SetDefault("http_client.dial_timeout_ms", 0)
	v.SetDefault("http_client.dial_keepalive_seconds", 0)
	v.SetDefault("http_client.tls_handshake_timeout_seconds", 0)
	v.SetDefault("http_client.response_header_timeout_seconds", 0)
	v.SetDefault("metrics.influxdb.host", "")
	v.SetDefault("metrics.influxdb.database", "")
	v.SetDefault("metrics.influxdb.username", "")
	v.SetDefault("metrics.influxdb.password", "")
	v.SetDefault("metrics.influxdb.metric_send_interval", 20)
	v.SetDefault("metrics.prometheus.port", 0)
	v.SetDefault("metrics.prometheus.namespace", "")
	v.SetDefault("metrics.prometheus.subsystem", "")
	v.SetDefault("metrics.prometheus.timeout_ms", 10000)
	v.SetDefault("won_bids.type", WonBidStoreMemory)
	v.SetDefault("won_bids.size_bytes", 10*1024*1024)
	v.SetDefault("won_bids.ttl_seconds", 3600)
	v.SetDefault("won_bids.redis.addr", "")
	v.SetDefault("won_bids.redis.password", "")
	v.SetDefault("won_bids.redis.db", 0)
	v.SetDefault("won_bids.redis.key_prefix", "wonbid:")
	v.SetDefault("won_bids.redis.timeout_ms", 50)
	v.SetDefault("event.rate_limit", 0)
	v.SetDefault("event.timeout_ms", 100)
	v.SetDefault("pixel.timeout_ms", 200)
	v.SetDefault("pixel.log_sample_rate", 0.01)
	v.SetDefault("adapters.allegro.endpoint", "https://dsp.allegro.com/bid")
	v.SetDefault("adapters.allegro.disabled", false)
	v.SetDefault("adapters.allegro.extra_info", "")

	v.SetEnvPrefix("PBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				glog.Warningf("Failed to read the config file %s: %v", filename, err)
			}
		}
	}
}

func logGeneral(c Configuration, prefix string) {
	glog.Infof("%sexternal_url=%s", prefix, c.ExternalURL)
	glog.Infof("%shost=%s", prefix, c.Host)
	glog.Infof("%sport=%d", prefix, c.Port)
	glog.Infof("%sadmin_port=%d", prefix, c.AdminPort)
	glog.Infof("%senable_gzip=%t", prefix, c.EnableGzip)
	glog.Infof("%swon_bids.type=%s", prefix, c.WonBids.Type)
	for name, adapter := range c.Adapters {
		glog.Infof("%sadapters.%s.endpoint=%s", prefix, name, adapter.Endpoint)
		glog.Infof("%sadapters.%s.disabled=%t", prefix, name, adapter.Disabled)
	}
}
