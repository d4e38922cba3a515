package allegro

import (
	"fmt"
	"strings"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/config"
	"github.com/allegro/ortb-bridge/errortypes"
	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/allegro/ortb-bridge/util/ptrutil"
)

const defaultEndpoint = "https://dsp.allegro.com/bid"

// Settings is the configuration snapshot applied to a single request or win notification.
// A nil flag means the flag was not configured.
type Settings struct {
	Endpoint               string
	ConvertExtensionFields *bool
	TriggerImpressionPixel *bool
}

// extraInfo is the shape of adapters.allegro.extra_info.
type extraInfo struct {
	ConvertExtensionFields *bool `json:"convertExtensionFields,omitempty"`
	TriggerImpressionPixel *bool `json:"triggerImpressionPixel,omitempty"`
}

func newSettings(cfg config.Adapter) (Settings, error) {
	settings := Settings{Endpoint: cfg.Endpoint}
	if settings.Endpoint == "" {
		settings.Endpoint = defaultEndpoint
	}

	if strings.TrimSpace(cfg.ExtraAdapterInfo) == "" {
		return settings, nil
	}
	var info extraInfo
	if err := jsonutil.Unmarshal([]byte(cfg.ExtraAdapterInfo), &info); err != nil {
		return settings, fmt.Errorf("invalid extra info: %v", err)
	}
	settings.ConvertExtensionFields = info.ConvertExtensionFields
	settings.TriggerImpressionPixel = info.TriggerImpressionPixel
	return settings, nil
}

// forRequest overlays request.ext.prebid.bidderparams.allegro on top of the adapter settings.
func (s Settings) forRequest(reqInfo *adapters.ExtraRequestInfo) (Settings, error) {
	if reqInfo == nil || jsonutil.IsEmpty(reqInfo.BidderParams) {
		return s, nil
	}
	var params openrtb_ext.ExtImpAllegro
	if err := jsonutil.Unmarshal(reqInfo.BidderParams, &params); err != nil {
		return s, &errortypes.BadInput{
			Message: fmt.Sprintf("ext.prebid.bidderparams.allegro is invalid: %v", err),
		}
	}
	if params.BidderURL != "" {
		s.Endpoint = params.BidderURL
	}
	if params.ConvertExtensionFields != nil {
		s.ConvertExtensionFields = ptrutil.Clone(params.ConvertExtensionFields)
	}
	return s, nil
}

// convertExtensions defaults to true.
func (s Settings) convertExtensions() bool {
	return s.ConvertExtensionFields == nil || *s.ConvertExtensionFields
}

// triggerImpressionPixel defaults to false.
func (s Settings) triggerImpressionPixel() bool {
	return ptrutil.ValueOrDefault(s.TriggerImpressionPixel)
}
