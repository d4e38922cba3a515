package allegro

import (
	"github.com/allegro/ortb-bridge/ortb"
)

const extKey = "ext"

// relocationTarget moves the ext of every object found by locate under key.
type relocationTarget struct {
	key    string
	locate func(ortb.WireRequest) []map[string]interface{}
	// prepare runs on the ext value before it is moved.
	prepare func(ext interface{})
}

// The bidder validates requests against a schema which rejects unknown ext fields but
// accepts these vendor keys. The key strings must match byte for byte.
var relocationTargets = []relocationTarget{
	{key: "[com.google.doubleclick.banner_ext]", locate: eachImpChild("banner")},
	{key: "[com.google.doubleclick.imp]", locate: eachImp},
	{key: "[com.google.doubleclick.app]", locate: path("app")},
	{key: "[com.google.doubleclick.site]", locate: path("site")},
	{key: "[com.google.doubleclick.publisher]", locate: path("site", "publisher")},
	{key: "[com.google.doubleclick.user]", locate: path("user")},
	{key: "[com.google.doubleclick.data]", locate: eachUserData},
	{key: "[com.google.doubleclick.device]", locate: path("device")},
	{key: "[com.google.doubleclick.geo]", locate: path("device", "geo")},
	{key: "[com.google.doubleclick.regs]", locate: path("regs"), prepare: coerceGDPR},
	{key: "[com.google.doubleclick.source]", locate: path("source")},
	{key: "[com.google.doubleclick.bid_request]", locate: path()},
}

// relocateExtensions moves ext objects under their vendor keys and returns how many were moved.
// Running it again on its own output moves nothing.
func relocateExtensions(wire ortb.WireRequest) int {
	moved := 0
	for _, target := range relocationTargets {
		for _, obj := range target.locate(wire) {
			if moveExt(obj, target.key, target.prepare) {
				moved++
			}
		}
	}
	return moved
}

func moveExt(obj map[string]interface{}, key string, prepare func(interface{})) bool {
	ext, ok := obj[extKey]
	if !ok || ext == nil {
		return false
	}
	if prepare != nil {
		prepare(ext)
	}
	obj[key] = shallowCopy(ext)
	delete(obj, extKey)
	return true
}

func shallowCopy(value interface{}) interface{} {
	m, ok := value.(map[string]interface{})
	if !ok {
		return value
	}
	clone := make(map[string]interface{}, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

func coerceGDPR(ext interface{}) {
	if m, ok := ext.(map[string]interface{}); ok {
		coerceFlag(m, "gdpr")
	}
}

// path locates the single object reached by following keys from the root. No keys means the root.
func path(keys ...string) func(ortb.WireRequest) []map[string]interface{} {
	return func(wire ortb.WireRequest) []map[string]interface{} {
		obj := wire
		for _, key := range keys {
			if obj = objectAt(obj, key); obj == nil {
				return nil
			}
		}
		if obj == nil {
			return nil
		}
		return []map[string]interface{}{obj}
	}
}

func eachImp(wire ortb.WireRequest) []map[string]interface{} {
	return objectsAt(wire, "imp")
}

func eachImpChild(key string) func(ortb.WireRequest) []map[string]interface{} {
	return func(wire ortb.WireRequest) []map[string]interface{} {
		imps := objectsAt(wire, "imp")
		children := make([]map[string]interface{}, 0, len(imps))
		for _, imp := range imps {
			if child := objectAt(imp, key); child != nil {
				children = append(children, child)
			}
		}
		return children
	}
}

func eachUserData(wire ortb.WireRequest) []map[string]interface{} {
	return objectsAt(objectAt(wire, "user"), "data")
}
