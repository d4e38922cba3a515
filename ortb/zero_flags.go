package ortb

import (
	"encoding/json"

	"github.com/allegro/ortb-bridge/adapters"
)

// RestoreZeroFlags puts back the explicit 0 flags which the typed request lost, so that the
// wire carries them exactly as the caller sent them. Flags already on the wire are left alone.
func RestoreZeroFlags(wire WireRequest, flags adapters.ZeroFlags) {
	if flags.Test {
		if _, ok := wire["test"]; !ok {
			wire["test"] = json.Number("0")
		}
	}
	if len(flags.TopFrame) == 0 {
		return
	}

	imps, _ := wire["imp"].([]interface{})
	for _, item := range imps {
		imp, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := imp["id"].(string)
		if _, zero := flags.TopFrame[id]; !zero {
			continue
		}
		if banner, ok := imp["banner"].(map[string]interface{}); ok {
			if _, present := banner["topframe"]; !present {
				banner["topframe"] = json.Number("0")
			}
		}
	}
}
