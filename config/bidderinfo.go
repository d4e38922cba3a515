package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/allegro/ortb-bridge/openrtb_ext"
	"gopkg.in/yaml.v2"
)

// BidderInfos contains a mapping of bidder name to bidder info.
type BidderInfos map[string]BidderInfo

// BidderInfo specifies all configuration for a bidder except for enabled status, endpoint, and extra information.
type BidderInfo struct {
	Enabled      bool              // copied from adapter config for convenience.
	Endpoint     string            `yaml:"endpoint"`
	Maintainer   *MaintainerInfo   `yaml:"maintainer"`
	Capabilities *CapabilitiesInfo `yaml:"capabilities"`
	GVLVendorID  uint16            `yaml:"gvlVendorID"`
	// ExtraAdapterInfo is the default for adapters.{bidder}.extra_info.
	ExtraAdapterInfo string `yaml:"extra_info"`
}

// MaintainerInfo specifies the support email address for a bidder.
type MaintainerInfo struct {
	Email string `yaml:"email"`
}

// CapabilitiesInfo specifies the supported platforms for a bidder.
type CapabilitiesInfo struct {
	App  *PlatformInfo `yaml:"app"`
	Site *PlatformInfo `yaml:"site"`
	DOOH *PlatformInfo `yaml:"dooh"`
}

// PlatformInfo specifies the supported media types for a bidder.
type PlatformInfo struct {
	MediaTypes []openrtb_ext.BidType `yaml:"mediaTypes"`
}

// LoadBidderInfoFromDisk parses all static/bidder-info/{bidder}.yaml files from the file system.
func LoadBidderInfoFromDisk(path string, adapterConfigs map[string]Adapter, bidders []string) (BidderInfos, error) {
	reader := infoReaderFromDisk{path}
	return loadBidderInfo(reader, adapterConfigs, bidders)
}

func loadBidderInfo(r infoReader, adapterConfigs map[string]Adapter, bidders []string) (BidderInfos, error) {
	infos := BidderInfos{}

	for _, bidder := range bidders {
		data, err := r.Read(bidder)
		if err != nil {
			return nil, err
		}

		info := BidderInfo{}
		if err := yaml.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("error parsing yaml for bidder %s: %v", bidder, err)
		}
		if err := validateBidderInfo(bidder, info); err != nil {
			return nil, err
		}

		info.Enabled = isEnabledByConfig(adapterConfigs, bidder)
		infos[bidder] = info
	}

	return infos, nil
}

func validateBidderInfo(bidder string, info BidderInfo) error {
	if info.Maintainer == nil || info.Maintainer.Email == "" {
		return fmt.Errorf("missing required field: maintainer.email for adapter: %s", bidder)
	}
	if info.Capabilities == nil || (info.Capabilities.App == nil && info.Capabilities.Site == nil && info.Capabilities.DOOH == nil) {
		return fmt.Errorf("at least one of capabilities.site, capabilities.app or capabilities.dooh must exist for adapter: %s", bidder)
	}
	for _, platform := range []*PlatformInfo{info.Capabilities.App, info.Capabilities.Site, info.Capabilities.DOOH} {
		if platform == nil {
			continue
		}
		for _, mediaType := range platform.MediaTypes {
			if _, err := openrtb_ext.ParseBidType(string(mediaType)); err != nil {
				return fmt.Errorf("unrecognized media type in capabilities for adapter %s: %v", bidder, err)
			}
		}
	}
	return nil
}

func isEnabledByConfig(adapterConfigs map[string]Adapter, bidderName string) bool {
	a, ok := adapterConfigs[strings.ToLower(bidderName)]
	return ok && !a.Disabled
}

type infoReader interface {
	Read(bidder string) ([]byte, error)
}

type infoReaderFromDisk struct {
	path string
}

func (r infoReaderFromDisk) Read(bidder string) ([]byte, error) {
	return os.ReadFile(filepath.Join(r.path, bidder+".yaml"))
}
