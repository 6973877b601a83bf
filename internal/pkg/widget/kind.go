// Package widget maps catalogue component identifiers to the closed set of
// widget kinds the dashboard knows how to drive.
package widget

type Kind string

func (k Kind) String() string {
	return string(k)
}

const (
	KindSwitch       Kind = "switch"
	KindActionButton Kind = "action_button"
	KindDimmer       Kind = "dimmer"
	KindColorLight   Kind = "color_light"
	KindSensor       Kind = "sensor"
	KindClock        Kind = "clock"
	KindPhotoFrame   Kind = "photo_frame"
	KindWeather      Kind = "weather"
	KindSection      Kind = "section"
)

var Kinds = []Kind{
	KindSwitch,
	KindActionButton,
	KindDimmer,
	KindColorLight,
	KindSensor,
	KindClock,
	KindPhotoFrame,
	KindWeather,
	KindSection,
}
