package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/allegro/ortb-bridge/config"
	metricsconfig "github.com/allegro/ortb-bridge/metrics/config"
	"github.com/golang/glog"
)

type namedServer struct {
	name     string
	server   *http.Server
	stop     chan os.Signal
	listener net.Listener
}

// Listen serves the main, admin and (when configured) prometheus ports until SIGTERM or SIGINT,
// then shuts every server down gracefully before returning.
func Listen(cfg *config.Configuration, handler http.Handler, adminHandler http.Handler, metrics *metricsconfig.DetailedMetricsEngine) error {
	stopSignals := make(chan os.Signal, 1)
	signal.Notify(stopSignals, syscall.SIGTERM, syscall.SIGINT)

	servers := []*namedServer{
		{name: "Main", server: newMainServer(cfg, handler)},
		{name: "Admin", server: newAdminServer(cfg, adminHandler)},
	}
	if cfg.Metrics.Prometheus.Port != 0 {
		servers = append(servers, &namedServer{name: "Prometheus", server: newPrometheusServer(cfg, metrics)})
	}

	for i, s := range servers {
		ln, err := newListener(s.server.Addr)
		if err != nil {
			glog.Errorf("%v for %s server", err, s.name)
			for _, opened := range servers[:i] {
				opened.listener.Close()
			}
			return err
		}
		s.listener = ln
	}

	done := make(chan struct{})
	stops := make([]chan<- os.Signal, 0, len(servers))
	for _, s := range servers {
		s.stop = make(chan os.Signal)
		stops = append(stops, s.stop)
		go shutdownAfterSignals(s.server, s.stop, done)
		go runServer(s.server, s.name, s.listener)
	}

	wait(stopSignals, done, stops...)
	return nil
}

func newAdminServer(cfg *config.Configuration, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    cfg.Host + ":" + strconv.Itoa(cfg.AdminPort),
		Handler: handler,
	}
}

func newMainServer(cfg *config.Configuration, handler http.Handler) *http.Server {
	serverHandler := handler
	if cfg.EnableGzip {
		serverHandler = gziphandler.GzipHandler(handler)
	}

	return &http.Server{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler:      serverHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

func runServer(server *http.Server, name string, listener net.Listener) {
	glog.Infof("%s server starting on: %s", name, server.Addr)
	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		glog.Errorf("%s server quit with error: %v", name, err)
		return
	}
	glog.Infof("%s server stopped", name)
}

func newListener(address string) (net.Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("error listening for TCP connections on %s: %v", address, err)
	}

	tcp, ok := ln.(*net.TCPListener)
	if !ok {
		glog.Warningf("Listener on %s is a %T, connections won't use TCP keep-alive", address, ln)
		return ln, nil
	}
	return &tcpKeepAliveListener{tcp}, nil
}

// wait fans the first inbound signal out to every server and returns once all of them report done.
func wait(inbound <-chan os.Signal, done <-chan struct{}, outbound ...chan<- os.Signal) {
	sig := <-inbound

	for _, to := range outbound {
		go func(to chan<- os.Signal) {
			to <- sig
		}(to)
	}
	for range outbound {
		<-done
	}
}

func shutdownAfterSignals(server *http.Server, stopper <-chan os.Signal, done chan<- struct{}) {
	sig := <-stopper

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	glog.Infof("Stopping %s because of signal: %s", server.Addr, sig.String())
	if err := server.Shutdown(ctx); err != nil {
		glog.Errorf("Failed to shutdown %s: %v", server.Addr, err)
	}
	done <- struct{}{}
}
