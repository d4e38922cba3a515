package main

import (
	"flag"

	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/router"
	"github.com/allegro/ortb-bridge/server"

	"github.com/golang/glog"
	"github.com/spf13/viper"
)

// Version and Rev hold the binary version and revision strings.
// Set at build time using:
//
//	go build -ldflags "-X main.Version=`git describe --tags` -X main.Rev=`git rev-parse --short HEAD`"
var (
	Version string
	Rev     string
)

func main() {
	flag.Parse() // required for glog flags and testing package flags

	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("Configuration could not be loaded or did not pass validation: %v", err)
	}

	err = serve(Version, Rev, cfg)
	if err != nil {
		glog.Exitf("ortb-bridge failed: %v", err)
	}
}

const configFileName = "pbs"

func loadConfig() (*config.Configuration, error) {
	v := viper.New()
	config.SetupViper(v, configFileName)
	return config.New(v)
}

func serve(version, revision string, cfg *config.Configuration) error {
	r, err := router.New(cfg)
	if err != nil {
		return err
	}
	defer r.Shutdown()

	corsRouter := router.SupportCORS(r)
	return server.Listen(cfg, router.NoCache{Handler: corsRouter}, router.Admin(version, revision, cfg.StatusResponse), r.MetricsEngine)
}
