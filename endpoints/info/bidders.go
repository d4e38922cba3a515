package info

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
)

const (
	statusActive   = "ACTIVE"
	statusDisabled = "DISABLED"
	allBidders     = "all"
)

// NewBiddersEndpoint implements /info/bidders. It lists the enabled bidders.
func NewBiddersEndpoint(infos config.BidderInfos) httprouter.Handle {
	bidderNames := make([]string, 0, len(infos))
	for name, info := range infos {
		if info.Enabled {
			bidderNames = append(bidderNames, name)
		}
	}
	sort.Strings(bidderNames)

	biddersJson, err := jsonutil.Marshal(bidderNames)
	if err != nil {
		glog.Fatalf("error creating /info/bidders endpoint response: %v", err)
	}

	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(biddersJson); err != nil {
			glog.Errorf("error writing response to /info/bidders: %v", err)
		}
	}
}

// NewBidderDetailsEndpoint implements /info/bidders/:bidderName. The name "all" returns every bidder keyed by name.
func NewBidderDetailsEndpoint(infos config.BidderInfos, adapterConfigs map[string]config.Adapter) httprouter.Handle {
	responses, err := prepareBiddersDetailResponse(infos, adapterConfigs)
	if err != nil {
		glog.Fatalf("error creating /info/bidders/* endpoint response: %v", err)
	}

	return func(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
		forBidder := strings.ToLower(ps.ByName("bidderName"))
		response, ok := responses[forBidder]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(response); err != nil {
			glog.Errorf("error writing response to /info/bidders/%s: %v", forBidder, err)
		}
	}
}

func prepareBiddersDetailResponse(infos config.BidderInfos, adapterConfigs map[string]config.Adapter) (map[string][]byte, error) {
	details := make(map[string]bidderDetail, len(infos))
	for name, info := range infos {
		endpoint := info.Endpoint
		if adapterConfig, ok := adapterConfigs[strings.ToLower(name)]; ok && adapterConfig.Endpoint != "" {
			endpoint = adapterConfig.Endpoint
		}
		details[name] = mapDetailFromConfig(info, endpoint)
	}

	responses := make(map[string][]byte, len(details)+1)
	for name, detail := range details {
		detailJSON, err := jsonutil.Marshal(detail)
		if err != nil {
			return nil, err
		}
		responses[strings.ToLower(name)] = detailJSON
	}

	all := make(map[string]json.RawMessage, len(details))
	for name := range details {
		all[name] = responses[strings.ToLower(name)]
	}
	allJSON, err := jsonutil.Marshal(all)
	if err != nil {
		return nil, err
	}
	responses[allBidders] = allJSON

	return responses, nil
}

type bidderDetail struct {
	Status       string        `json:"status"`
	UsesHTTPS    *bool         `json:"usesHttps,omitempty"`
	Maintainer   *maintainer   `json:"maintainer,omitempty"`
	Capabilities *capabilities `json:"capabilities,omitempty"`
	GVLVendorID  uint16        `json:"gvlVendorId,omitempty"`
}

type maintainer struct {
	Email string `json:"email"`
}

type capabilities struct {
	App  *platform `json:"app,omitempty"`
	Site *platform `json:"site,omitempty"`
	DOOH *platform `json:"dooh,omitempty"`
}

type platform struct {
	MediaTypes []string `json:"mediaTypes"`
}

func mapDetailFromConfig(info config.BidderInfo, endpoint string) bidderDetail {
	detail := bidderDetail{
		Status:      statusDisabled,
		GVLVendorID: info.GVLVendorID,
	}

	if info.Maintainer != nil {
		detail.Maintainer = &maintainer{Email: info.Maintainer.Email}
	}

	if info.Enabled {
		detail.Status = statusActive
		usesHTTPS := strings.HasPrefix(strings.ToLower(endpoint), "https://")
		detail.UsesHTTPS = &usesHTTPS

		if info.Capabilities != nil {
			detail.Capabilities = &capabilities{
				App:  mapPlatform(info.Capabilities.App),
				Site: mapPlatform(info.Capabilities.Site),
				DOOH: mapPlatform(info.Capabilities.DOOH),
			}
		}
	}

	return detail
}

func mapPlatform(info *config.PlatformInfo) *platform {
	if info == nil {
		return nil
	}
	mediaTypes := make([]string, len(info.MediaTypes))
	for i, mediaType := range info.MediaTypes {
		mediaTypes[i] = string(mediaType)
	}
	return &platform{MediaTypes: mediaTypes}
}
