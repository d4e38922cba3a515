package allegro

import (
	"encoding/json"

	"github.com/allegro/ortb-bridge/ortb"
)

// coerceFlags turns the 0/1 integer flags the bidder expects as booleans into booleans.
// Fields which are absent stay absent.
func coerceFlags(wire ortb.WireRequest) {
	for _, imp := range objectsAt(wire, "imp") {
		coerceFlag(objectAt(imp, "banner"), "topframe")
		coerceFlag(imp, "secure")
	}
	device := objectAt(wire, "device")
	coerceFlag(device, "dnt")
	coerceFlag(objectAt(device, "sua"), "mobile")
	coerceFlag(wire, "test")
}

// coerceFlag replaces obj[key] with whether it equals 1. Booleans are left alone.
func coerceFlag(obj map[string]interface{}, key string) {
	if obj == nil {
		return
	}
	value, ok := obj[key]
	if !ok {
		return
	}
	if _, isBool := value.(bool); isBool {
		return
	}
	obj[key] = isOne(value)
}

func isOne(value interface{}) bool {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 1
	case float64:
		return v == 1
	case float32:
		return v == 1
	case int:
		return v == 1
	case int8:
		return v == 1
	case int16:
		return v == 1
	case int32:
		return v == 1
	case int64:
		return v == 1
	case uint:
		return v == 1
	case uint8:
		return v == 1
	case uint16:
		return v == 1
	case uint32:
		return v == 1
	case uint64:
		return v == 1
	}
	return false
}

// objectAt returns obj[key] when it holds a JSON object.
func objectAt(obj map[string]interface{}, key string) map[string]interface{} {
	if obj == nil {
		return nil
	}
	child, _ := obj[key].(map[string]interface{})
	return child
}

// objectsAt returns the objects of the array at obj[key], skipping entries which are not objects.
func objectsAt(obj map[string]interface{}, key string) []map[string]interface{} {
	if obj == nil {
		return nil
	}
	items, _ := obj[key].([]interface{})
	objects := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if child, ok := item.(map[string]interface{}); ok {
			objects = append(objects, child)
		}
	}
	return objects
}
