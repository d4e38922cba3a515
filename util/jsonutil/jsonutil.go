package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/allegro/ortb-bridge/errortypes"
	jsoniter "github.com/json-iterator/go"
)

var jsonConfigValidationOn = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonConfigTree decodes into generic trees. Numbers are kept as json.Number so that
// integer ids and flags round-trip unchanged.
var jsonConfigTree = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Unmarshal unmarshals a byte slice into the specified data structure without performing
// any validation on the data. An unmarshal error is returned if a non-validation error occurs.
func Unmarshal(data []byte, v interface{}) error {
	err := jsonConfigValidationOn.Unmarshal(data, v)
	if err != nil {
		return &errortypes.FailedToUnmarshal{
			Message: tryExtractErrorMessage(err),
		}
	}
	return nil
}

// Marshal marshals a data structure into a byte slice without performing any validation
// on the data. A marshal error is returned if a non-validation error occurs.
func Marshal(v interface{}) ([]byte, error) {
	data, err := jsonConfigValidationOn.Marshal(v)
	if err != nil {
		return nil, &errortypes.FailedToMarshal{
			Message: err.Error(),
		}
	}
	return data, nil
}

// UnmarshalTree decodes a JSON object into a generic map. Nested objects become
// map[string]interface{}, arrays []interface{} and numbers json.Number.
func UnmarshalTree(data []byte) (map[string]interface{}, error) {
	var tree map[string]interface{}
	if err := jsonConfigTree.Unmarshal(data, &tree); err != nil {
		return nil, &errortypes.FailedToUnmarshal{
			Message: tryExtractErrorMessage(err),
		}
	}
	return tree, nil
}

// MarshalTree encodes a generic map with sorted keys.
func MarshalTree(tree map[string]interface{}) ([]byte, error) {
	data, err := jsonConfigTree.Marshal(tree)
	if err != nil {
		return nil, &errortypes.FailedToMarshal{
			Message: err.Error(),
		}
	}
	return data, nil
}

// IsEmpty reports whether a raw JSON value is absent, null or an empty object.
func IsEmpty(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}

// tryExtractErrorMessage attempts to extract a sane error message from the json-iter package. The errors
// returned from that library are not types and include a lot of extra information we don't want to respond with.
// This is hacky, but it's the only downside to the json-iter library.
func tryExtractErrorMessage(err error) string {
	msg := err.Error()

	msgEndIndex := strings.LastIndex(msg, ", error found in #")
	if msgEndIndex == -1 {
		return msg
	}

	msgStartIndex := strings.Index(msg, ": ")
	if msgStartIndex == -1 {
		return msg
	}

	operationStack := []string{msg[0:msgStartIndex]}
	for {
		msgStartIndexNext := strings.Index(msg[msgStartIndex+2:], ": ")

		// no more matches
		if msgStartIndexNext == -1 {
			break
		}

		// matches occur after the end message marker (sanity check)
		if (msgStartIndex + msgStartIndexNext) >= msgEndIndex {
			break
		}

		// match should not contain a space, indicates operation is really an error message
		match := msg[msgStartIndex+2 : msgStartIndex+2+msgStartIndexNext]
		if strings.Contains(match, " ") {
			break
		}

		operationStack = append(operationStack, match)
		msgStartIndex += msgStartIndexNext + 2
	}

	if len(operationStack) > 1 && isLikelyDetailedErrorMessage(msg[msgStartIndex+2:]) {
		return "cannot unmarshal " + operationStack[len(operationStack)-2] + ": " + msg[msgStartIndex+2:msgEndIndex]
	}

	return msg[msgStartIndex+2 : msgEndIndex]
}

// isLikelyDetailedErrorMessage checks if the json unmarshal error contains enough information such
// that the caller clearly understands the context, where the structure name is not needed.
func isLikelyDetailedErrorMessage(msg string) bool {
	return !strings.HasPrefix(msg, "request.")
}
