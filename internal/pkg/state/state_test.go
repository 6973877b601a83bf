package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anicoll/homedash/internal/pkg/model"
)

func TestToBooleanState(t *testing.T) {
	tests := map[string]struct {
		state any
		want  bool
	}{
		"nil":                  {state: nil, want: false},
		"true":                 {state: true, want: true},
		"false":                {state: false, want: false},
		"zero":                 {state: float64(0), want: false},
		"one":                  {state: float64(1), want: true},
		"negative":             {state: float64(-1), want: false},
		"int one":              {state: 1, want: true},
		"on":                   {state: "on", want: true},
		"off":                  {state: "off", want: false},
		"string one":           {state: "1", want: true},
		"string zero":          {state: "0", want: false},
		"string true":          {state: "true", want: true},
		"string false":         {state: "false", want: false},
		"open":                 {state: "open", want: true},
		"closed":               {state: "closed", want: false},
		"active":               {state: "active", want: true},
		"inactive":             {state: "inactive", want: false},
		"garbage":              {state: "foo", want: false},
		"padded upper":         {state: "  ON ", want: true},
		"numeric string":       {state: "42.5", want: true},
		"negative string":      {state: "-3", want: false},
		"empty string":         {state: "", want: false},
		"nan string":           {state: "NaN", want: false},
		"isOn true":            {state: map[string]any{"isOn": true}, want: true},
		"isOn wins":            {state: map[string]any{"isOn": false, "value": "on"}, want: false},
		"value upper":          {state: map[string]any{"value": "ON"}, want: true},
		"value on":             {state: map[string]any{"value": "on"}, want: true},
		"rawValue nested zero": {state: map[string]any{"rawValue": map[string]any{"state": float64(0)}}, want: false},
		"rawValue nested on":   {state: map[string]any{"rawValue": map[string]any{"state": "on"}}, want: true},
		"rawValue over value":  {state: map[string]any{"rawValue": "off", "value": "on"}, want: false},
		"nil rawValue skipped": {state: map[string]any{"rawValue": nil, "value": "on"}, want: true},
		"nested isOn":          {state: map[string]any{"state": map[string]any{"isOn": true}}, want: true},
		"non bool isOn":        {state: map[string]any{"isOn": "yes", "value": float64(1)}, want: true},
		"deep nesting":         {state: map[string]any{"value": map[string]any{"value": map[string]any{"state": "open"}}}, want: true},
		"empty object":         {state: map[string]any{}, want: false},
		"json number":          {state: json.Number("3"), want: true},
		"slice":                {state: []any{"on"}, want: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() { ToBooleanState(tt.state) })
			assert.Equal(t, tt.want, ToBooleanState(tt.state))
		})
	}
}

func TestToBooleanState_DecodedPayload(t *testing.T) {
	var payload any
	assert.NoError(t, json.Unmarshal([]byte(`{"rawValue":{"value":{"state":"Active"}}}`), &payload))
	assert.True(t, ToBooleanState(payload))
}

func TestAnyOn(t *testing.T) {
	assert.False(t, AnyOn(nil))
	assert.False(t, AnyOn([]model.DeviceState{}))

	devices := []model.DeviceState{
		{Device: model.Device{ID: "d1"}, State: map[string]any{"isOn": false}},
		{Device: model.Device{ID: "d2"}, State: map[string]any{"value": "1"}},
	}
	assert.True(t, AnyOn(devices))

	devices[1].State = map[string]any{"value": "0"}
	assert.False(t, AnyOn(devices))
}
