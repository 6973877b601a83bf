package widget

import (
	"encoding/json"

	"github.com/anicoll/homedash/internal/pkg/model"
)

var builtins = []Spec{
	{
		Kind:         KindSwitch,
		Component:    "SwitchWidget",
		DefaultSize:  model.Position{W: 2, H: 2},
		NeedsDevices: true,
		Polls:        true,
		Commands:     []string{model.CapabilityToggle},
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"icon": {"type": "string"},
				"variant": {"type": "string", "enum": ["default", "compact", "pill"]}
			}
		}`),
	},
	{
		Kind:         KindActionButton,
		Component:    "ActionButtonWidget",
		DefaultSize:  model.Position{W: 2, H: 1},
		NeedsDevices: true,
		Polls:        true,
		Commands:     []string{model.CapabilitySwitch},
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"action": {"type": "string", "enum": ["on", "off"]},
				"label": {"type": "string"}
			}
		}`),
	},
	{
		Kind:         KindDimmer,
		Component:    "DimmerWidget",
		DefaultSize:  model.Position{W: 3, H: 2},
		NeedsDevices: true,
		Polls:        true,
		Commands:     []string{model.CapabilityToggle, model.CapabilityDim, model.CapabilityTemperature},
		Schema:       json.RawMessage(`{"type": "object"}`),
	},
	{
		Kind:         KindColorLight,
		Component:    "ColorLightWidget",
		DefaultSize:  model.Position{W: 3, H: 3},
		NeedsDevices: true,
		Polls:        true,
		Commands:     []string{model.CapabilityToggle, model.CapabilityColor, model.CapabilityTemperature, model.CapabilityDim},
		Schema:       json.RawMessage(`{"type": "object"}`),
	},
	{
		Kind:         KindSensor,
		Component:    "SensorWidget",
		DefaultSize:  model.Position{W: 2, H: 2},
		NeedsDevices: true,
		Polls:        true,
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"unit": {"type": "string"},
				"decimals": {"type": "integer", "minimum": 0, "maximum": 6}
			}
		}`),
	},
	{
		Kind:        KindClock,
		Component:   "ClockWidget",
		DefaultSize: model.Position{W: 3, H: 2},
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"timezone": {"type": "string"},
				"showSeconds": {"type": "boolean"},
				"format24h": {"type": "boolean"}
			}
		}`),
	},
	{
		Kind:        KindPhotoFrame,
		Component:   "PhotoFrameWidget",
		DefaultSize: model.Position{W: 4, H: 3},
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"images": {"type": "array", "items": {"type": "string"}},
				"intervalSeconds": {"type": "integer", "minimum": 1}
			}
		}`),
	},
	{
		Kind:        KindWeather,
		Component:   "WeatherWidget",
		DefaultSize: model.Position{W: 4, H: 2},
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"address": {"type": "string"},
				"latitude": {"type": "number", "minimum": -90, "maximum": 90},
				"longitude": {"type": "number", "minimum": -180, "maximum": 180}
			}
		}`),
	},
	{
		Kind:        KindSection,
		Component:   "SectionWidget",
		DefaultSize: model.Position{W: 6, H: 4},
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"childWidgetIds": {"type": "array", "items": {"type": "string"}},
				"sectionColor": {"type": "string"},
				"title": {"type": "string"},
				"padding": {"type": "number", "minimum": 0},
				"foldable": {"type": "boolean"},
				"collapsed": {"type": "boolean"}
			}
		}`),
	},
}
