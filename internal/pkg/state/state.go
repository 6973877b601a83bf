// Package state turns heterogeneous provider state payloads into a single
// on/off signal.
package state

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/anicoll/homedash/internal/pkg/model"
)

var (
	truthyWords = []string{"1", "on", "true", "open", "active"}
	falsyWords  = []string{"0", "off", "false", "closed", "inactive"}
)

// ToBooleanState reports whether a device state payload means "on".
// It never panics and returns false for anything it cannot interpret.
func ToBooleanState(state any) bool {
	obj, isObject := state.(map[string]any)
	if !isObject {
		return interpret(unwrap(state))
	}
	if isOn, ok := obj["isOn"].(bool); ok {
		return isOn
	}
	return interpret(unwrap(firstPresent(obj, "rawValue", "value", "state")))
}

// AnyOn is true when at least one device reports on.
func AnyOn(devices []model.DeviceState) bool {
	return lo.SomeBy(devices, func(d model.DeviceState) bool {
		return ToBooleanState(d.State)
	})
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// unwrap descends through nested objects preferring isOn, value, state.
// Depth is bounded so self-referencing payloads cannot loop.
func unwrap(v any) any {
	for range 32 {
		obj, ok := v.(map[string]any)
		if !ok {
			return v
		}
		next := firstPresent(obj, "isOn", "value", "state")
		if next == nil {
			return nil
		}
		v = next
	}
	return nil
}

func interpret(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return interpretString(t)
	case json.Number:
		return interpretString(t.String())
	case float64:
		return t > 0
	case float32:
		return t > 0
	case int:
		return t > 0
	case int8:
		return t > 0
	case int16:
		return t > 0
	case int32:
		return t > 0
	case int64:
		return t > 0
	case uint:
		return t > 0
	case uint8:
		return t > 0
	case uint16:
		return t > 0
	case uint32:
		return t > 0
	case uint64:
		return t > 0
	default:
		return false
	}
}

func interpretString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if lo.Contains(truthyWords, s) {
		return true
	}
	if lo.Contains(falsyWords, s) {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return false
	}
	return f > 0
}
