package router

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	cacheConf "github.com/allegro/ortb-bridge/cache/config"
	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/endpoints"
	"github.com/allegro/ortb-bridge/endpoints/events"
	infoEndpoints "github.com/allegro/ortb-bridge/endpoints/info"
	"github.com/allegro/ortb-bridge/endpoints/openrtb2"
	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/exchange"
	metricsConf "github.com/allegro/ortb-bridge/metrics/config"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/ortb"
	"github.com/allegro/ortb-bridge/pixel"
	"github.com/allegro/ortb-bridge/server/ssl"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// NewJsonDirectoryServer is used to serve .json files from a directory as a single blob. For example,
// given a directory containing the files "a.json" and "b.json", this returns a Handle which serves JSON like:
//
//	{
//	  "a": { ... content from the file a.json ... },
//	  "b": { ... content from the file b.json ... }
//	}
//
// This function stores the file contents in memory, and should not be used on large directories.
// If the root directory, or any of the files in it, cannot be read, then the program will exit.
func NewJsonDirectoryServer(schemaDirectory string, validator openrtb_ext.BidderParamValidator) httprouter.Handle {
	return newJsonDirectoryServer(schemaDirectory, validator, openrtb_ext.BuildBidderMap())
}

func newJsonDirectoryServer(schemaDirectory string, validator openrtb_ext.BidderParamValidator, bidderMap map[string]openrtb_ext.BidderName) httprouter.Handle {
	// Slurp the files into memory first, since they're small and it minimizes request latency.
	files, err := os.ReadDir(schemaDirectory)
	if err != nil {
		glog.Fatalf("Failed to read directory %s: %v", schemaDirectory, err)
	}

	data := make(map[string]json.RawMessage, len(files))
	for _, file := range files {
		bidder := strings.TrimSuffix(file.Name(), ".json")
		bidderName, isValid := bidderMap[bidder]
		if !isValid {
			glog.Fatalf("Schema exists for an unknown bidder: %s", bidder)
		}
		data[bidder] = json.RawMessage(validator.Schema(bidderName))
	}

	response, err := jsonutil.Marshal(data)
	if err != nil {
		glog.Fatalf("Failed to marshal bidder param JSON-schema: %v", err)
	}

	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Add("Content-Type", "application/json")
		w.Write(response)
	}
}

type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

type Router struct {
	*httprouter.Router
	MetricsEngine   *metricsConf.DetailedMetricsEngine
	ParamsValidator openrtb_ext.BidderParamValidator
	Shutdown        func()
}

func getTransport(cfg config.HTTPClient, certPool *x509.CertPool) *http.Transport {
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		MaxConnsPerHost: cfg.MaxConnsPerHost,
		IdleConnTimeout: time.Duration(cfg.IdleConnTimeout) * time.Second,
		TLSClientConfig: &tls.Config{RootCAs: certPool},
	}

	if cfg.DialTimeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   time.Duration(cfg.DialTimeout) * time.Millisecond,
			KeepAlive: time.Duration(cfg.DialKeepAlive) * time.Second,
		}).DialContext
	}

	if cfg.TLSHandshakeTimeout > 0 {
		transport.TLSHandshakeTimeout = time.Duration(cfg.TLSHandshakeTimeout) * time.Second
	}

	if cfg.ResponseHeaderTimeout > 0 {
		transport.ResponseHeaderTimeout = time.Duration(cfg.ResponseHeaderTimeout) * time.Second
	}

	if cfg.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.MaxIdleConns
	}

	if cfg.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}

	return transport
}

func New(cfg *config.Configuration) (r *Router, err error) {
	const schemaDirectory = "./static/bidder-params"
	const infoDirectory = "./static/bidder-info"

	r = &Router{
		Router: httprouter.New(),
	}

	// For bid processing, we need both the system certificates and the certificates found in container's
	// local file system
	certPool := ssl.GetRootCAPool()
	var readCertErr error
	certPool, readCertErr = ssl.AppendPEMFileToRootCAPool(certPool, cfg.PemCertsFile)
	if readCertErr != nil {
		glog.Infof("Could not read certificates file: %s \n", readCertErr.Error())
	}

	generalHttpClient := &http.Client{
		Transport: getTransport(cfg.Client, certPool),
	}

	r.MetricsEngine = metricsConf.NewMetricsEngine(cfg, openrtb_ext.CoreBidderNames())

	r.ParamsValidator, err = openrtb_ext.NewBidderParamsValidator(schemaDirectory)
	if err != nil {
		glog.Fatalf("Failed to create the bidder params validator. %v", err)
	}

	p, _ := filepath.Abs(infoDirectory)
	bidderInfos, err := config.LoadBidderInfoFromDisk(p, cfg.Adapters, openrtb_ext.BuildBidderStringSlice())
	if err != nil {
		return nil, err
	}

	wonBids, err := cacheConf.NewWonBids(cfg.WonBids, r.MetricsEngine)
	if err != nil {
		return nil, fmt.Errorf("Failed to create the won bid store: %v", err)
	}
	r.Shutdown = func() {
		if err := wonBids.Close(); err != nil {
			glog.Errorf("Failed to close the won bid store: %v", err)
		}
	}

	firer := pixel.NewHTTPFirer(generalHttpClient, cfg.Pixel, r.MetricsEngine)

	adapters, adaptersErrs := exchange.BuildAdapters(generalHttpClient, cfg, bidderInfos, firer, r.MetricsEngine)
	if len(adaptersErrs) > 0 {
		return nil, errortypes.NewAggregateErrors("Failed to initialize adapters", adaptersErrs)
	}
	glog.Infof("Active bidders: %v", exchange.GetActiveBidders(bidderInfos))

	theExchange := exchange.NewExchange(adapters, wonBids, cfg, r.MetricsEngine)

	openrtbEndpoint, err := openrtb2.NewEndpoint(theExchange, ortb.NewRequestValidator(openrtb_ext.BuildBidderMap(), r.ParamsValidator), cfg, r.MetricsEngine)
	if err != nil {
		glog.Fatalf("Failed to create the openrtb2 endpoint handler. %v", err)
	}

	eventEndpoint := events.NewEventEndpoint(wonBids, exchange.WinNotifiers(adapters), r.MetricsEngine, cfg.Event.Timeout())

	r.POST("/openrtb2/auction", openrtbEndpoint)
	r.GET("/event", events.Limit(eventEndpoint, cfg.Event.RateLimit))
	r.GET("/info/bidders", infoEndpoints.NewBiddersEndpoint(bidderInfos))
	r.GET("/info/bidders/:bidderName", infoEndpoints.NewBidderDetailsEndpoint(bidderInfos, cfg.Adapters))
	r.GET("/bidders/params", NewJsonDirectoryServer(schemaDirectory, r.ParamsValidator))
	r.GET("/status", endpoints.NewStatusEndpoint(cfg.StatusResponse))

	return r, nil
}

// SupportCORS wraps the handler with a cors.Handler which allows any origin to call the server
// with credentials.
//
// This is an inherent security risk. However, the server doesn't use cookies for authorization.
//
// For more info, see:
//
// - https://github.com/rs/cors/issues/55
// - https://developer.mozilla.org/en-US/docs/Web/HTTP/CORS/Errors/CORSNotSupportingCredentials
// - https://portswigger.net/blog/exploiting-cors-misconfigurations-for-bitcoins-and-bounties
func SupportCORS(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowCredentials: true,
		AllowOriginFunc: func(string) bool {
			return true
		},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}})
	return c.Handler(handler)
}
