// Package mcputils binds loosely typed MCP tool arguments to Go structs.
package mcputils

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ArgumentGetter is an interface for getting arguments from a request
type ArgumentGetter interface {
	GetArguments() map[string]interface{}
}

// CoerceBindArguments binds MCP request arguments to target using the json tags of its fields.
// Clients frequently send every argument as a string, so JSON-encoded arrays, objects, booleans
// and numbers are decoded before binding, and comma-separated strings become slices.
func CoerceBindArguments[T any](request ArgumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonStringHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(request.GetArguments())
}

// jsonStringHook decodes string values that hold JSON for the target kind. Strings that do not
// parse are passed through unchanged for the later hooks.
func jsonStringHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return data, nil
	}

	// Optional fields are pointers; coerce against the pointed-to kind.
	if to.Kind() == reflect.Ptr {
		to = to.Elem()
	}

	switch kind := to.Kind(); {
	case kind == reflect.Slice:
		if isJSONArray(raw) {
			out := reflect.New(to)
			if err := json.Unmarshal([]byte(raw), out.Interface()); err == nil {
				return out.Elem().Interface(), nil
			}
		}
	case kind == reflect.Map || kind == reflect.Struct:
		if isJSONArray(raw) || isJSONObject(raw) {
			var out interface{}
			if err := json.Unmarshal([]byte(raw), &out); err == nil {
				return out, nil
			}
		}
	case kind == reflect.Bool:
		if raw == "true" || raw == "false" {
			return raw == "true", nil
		}
	case kind >= reflect.Int && kind <= reflect.Float64:
		var n json.Number
		if err := json.Unmarshal([]byte(raw), &n); err == nil {
			return n, nil
		}
	}

	return data, nil
}

func isJSONArray(s string) bool {
	return strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
}

func isJSONObject(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}
