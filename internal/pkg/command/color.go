package command

import (
	"fmt"
	"math"

	"github.com/anicoll/homedash/internal/pkg/model"
)

const (
	MinKelvin = 2200
	MaxKelvin = 6500

	wheelSaturation = 90
	wheelLightness  = 56
)

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(f float64) float64 {
	return math.Floor(f + 0.5)
}

// AngleFromPointer returns the pointer angle in degrees, in screen
// coordinates (y grows downwards) relative to the wheel centre.
func AngleFromPointer(dx, dy float64) float64 {
	return math.Atan2(dy, dx) * 180 / math.Pi
}

// HueFromAngle maps a pointer angle to a hue so that the top of the wheel is 0.
func HueFromAngle(angle float64) int {
	h := int(roundHalfUp(angle+450)) % 360
	return (h + 360) % 360
}

// HSLToHex converts hue (degrees), saturation and lightness (percent) to #rrggbb.
func HSLToHex(h, s, l float64) string {
	h = math.Mod(math.Mod(h, 360)+360, 360)
	s = math.Max(0, math.Min(100, s)) / 100
	l = math.Max(0, math.Min(100, l)) / 100

	a := s * math.Min(l, 1-l)
	channel := func(n float64) int {
		k := math.Mod(n+h/30, 12)
		c := l - a*math.Max(-1, math.Min(math.Min(k-3, 9-k), 1))
		return int(roundHalfUp(255 * c))
	}
	return fmt.Sprintf("#%02x%02x%02x", channel(0), channel(8), channel(4))
}

// WheelHex is the colour sent for a hue picked on the wheel.
func WheelHex(hue int) string {
	return HSLToHex(float64(hue), wheelSaturation, wheelLightness)
}

// WhiteValueFromHue maps a hue to 0..100 by its distance from 180 degrees,
// 100 at 180 and 0 at 0/360.
func WhiteValueFromHue(hue int) int {
	h := float64(hue % 360)
	return int(roundHalfUp((1 - math.Abs((h-180)/180)) * 100))
}

func KelvinFromValue(value int) int {
	return int(roundHalfUp(MinKelvin + float64(value)/100*(MaxKelvin-MinKelvin)))
}

// ColorFromHue picks the colour command for a wheel hue, emulating white
// tones through colour temperature when the devices cannot do colour.
func (d *Dispatcher) ColorFromHue(hue int) Command {
	if !d.Supports(model.CapabilityColor) && d.Supports(model.CapabilityTemperature) {
		return WhiteTemperature(KelvinFromValue(WhiteValueFromHue(hue)))
	}
	return Color(WheelHex(hue))
}
